package mqtt

import "errors"

var (
	// ErrNotConnected is returned by publish and subscribe calls while
	// the broker link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects anything outside 0-2 before it reaches paho.
	ErrInvalidQoS   = errors.New("mqtt: invalid QoS level")
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrInvalidCommand is returned for a command message that cannot be
	// decoded or parsed into an action.
	ErrInvalidCommand = errors.New("mqtt: invalid command")

	// ErrCommandRejected is returned for a command that arrives after the
	// mirror has stopped.
	ErrCommandRejected = errors.New("mqtt: command rejected")
)

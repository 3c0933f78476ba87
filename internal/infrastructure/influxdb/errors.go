package influxdb

import "errors"

// Sentinel errors. Write failures surface asynchronously through the
// SetOnError callback, wrapped in ErrWriteFailed.
var (
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrWriteFailed      = errors.New("influxdb: write failed")
)

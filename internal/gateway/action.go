package gateway

import (
	"fmt"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
)

// Service names understood by the gateway.
const (
	ServiceTurnOn         = "turn_on"
	ServiceTurnOff        = "turn_off"
	ServiceToggle         = "toggle"
	ServiceSetTemperature = "set_temperature"
	ServiceSetHVACMode    = "set_hvac_mode"
	ServiceSetPresetMode  = "set_preset_mode"

	// ActionSetLightAttributes is the action name for SetLightAttributes.
	// On the wire it is light/turn_on with extra parameters.
	ActionSetLightAttributes = "set_light_attributes"
)

// Action is a command for one entity. The set of implementations is
// closed: TurnOn, TurnOff, Toggle, SetTemperature, SetHVACMode,
// SetPresetMode and SetLightAttributes.
type Action interface {
	// Name is the action's stable label, e.g. "turn_on".
	Name() string

	sealed()
}

// TurnOn switches an entity on in its own domain.
type TurnOn struct{}

// TurnOff switches an entity off in its own domain.
type TurnOff struct{}

// Toggle flips an entity in its own domain.
type Toggle struct{}

// SetTemperature sets a climate target temperature.
type SetTemperature struct {
	Temperature float64
}

// SetHVACMode sets a climate operating mode ("heat", "cool", "off", ...).
type SetHVACMode struct {
	Mode string
}

// SetPresetMode sets a climate preset ("eco", "away", ...).
type SetPresetMode struct {
	Mode string
}

// SetLightAttributes turns a light on with brightness and/or colour.
type SetLightAttributes struct {
	Brightness *int  // 0-255
	RGB        []int // [r, g, b], each 0-255
}

func (TurnOn) Name() string             { return ServiceTurnOn }
func (TurnOff) Name() string            { return ServiceTurnOff }
func (Toggle) Name() string             { return ServiceToggle }
func (SetTemperature) Name() string     { return ServiceSetTemperature }
func (SetHVACMode) Name() string        { return ServiceSetHVACMode }
func (SetPresetMode) Name() string      { return ServiceSetPresetMode }
func (SetLightAttributes) Name() string { return ActionSetLightAttributes }

func (TurnOn) sealed()             {}
func (TurnOff) sealed()            {}
func (Toggle) sealed()             {}
func (SetTemperature) sealed()     {}
func (SetHVACMode) sealed()        {}
func (SetPresetMode) sealed()      {}
func (SetLightAttributes) sealed() {}

// ExpectedState returns the terminal state an action deterministically
// produces. Only turn_on ("on") and turn_off ("off") have one.
func ExpectedState(a Action) (string, bool) {
	switch a.(type) {
	case TurnOn:
		return "on", true
	case TurnOff:
		return "off", true
	default:
		return "", false
	}
}

// serviceCall is the resolved wire form of an action.
type serviceCall struct {
	domain  string
	service string
	body    map[string]any
}

// resolve validates a against entityID and builds the request. Every
// Action variant must have a case here.
func resolve(entityID string, a Action) (serviceCall, error) {
	domain := entity.DomainOf(entityID)
	if domain == "" || domain == entityID {
		return serviceCall{}, fmt.Errorf("%w: entity id %q has no domain", ErrInvalidAction, entityID)
	}

	body := map[string]any{"entity_id": entityID}

	switch act := a.(type) {
	case TurnOn, TurnOff, Toggle:
		return serviceCall{domain: domain, service: act.Name(), body: body}, nil

	case SetTemperature:
		if err := requireDomain(entityID, domain, entity.DomainClimate); err != nil {
			return serviceCall{}, err
		}
		body["temperature"] = act.Temperature
		return serviceCall{domain: entity.DomainClimate, service: ServiceSetTemperature, body: body}, nil

	case SetHVACMode:
		if err := requireDomain(entityID, domain, entity.DomainClimate); err != nil {
			return serviceCall{}, err
		}
		if act.Mode == "" {
			return serviceCall{}, fmt.Errorf("%w: hvac_mode is required", ErrInvalidAction)
		}
		body["hvac_mode"] = act.Mode
		return serviceCall{domain: entity.DomainClimate, service: ServiceSetHVACMode, body: body}, nil

	case SetPresetMode:
		if err := requireDomain(entityID, domain, entity.DomainClimate); err != nil {
			return serviceCall{}, err
		}
		if act.Mode == "" {
			return serviceCall{}, fmt.Errorf("%w: preset_mode is required", ErrInvalidAction)
		}
		body["preset_mode"] = act.Mode
		return serviceCall{domain: entity.DomainClimate, service: ServiceSetPresetMode, body: body}, nil

	case SetLightAttributes:
		if err := requireDomain(entityID, domain, entity.DomainLight); err != nil {
			return serviceCall{}, err
		}
		if act.Brightness == nil && act.RGB == nil {
			return serviceCall{}, fmt.Errorf("%w: brightness or rgb_color is required", ErrInvalidAction)
		}
		if act.Brightness != nil {
			if *act.Brightness < 0 || *act.Brightness > 255 {
				return serviceCall{}, fmt.Errorf("%w: brightness %d out of range 0-255", ErrInvalidAction, *act.Brightness)
			}
			body["brightness"] = *act.Brightness
		}
		if act.RGB != nil {
			if len(act.RGB) != 3 {
				return serviceCall{}, fmt.Errorf("%w: rgb_color needs 3 components", ErrInvalidAction)
			}
			for _, c := range act.RGB {
				if c < 0 || c > 255 {
					return serviceCall{}, fmt.Errorf("%w: rgb_color component %d out of range", ErrInvalidAction, c)
				}
			}
			body["rgb_color"] = act.RGB
		}
		return serviceCall{domain: entity.DomainLight, service: ServiceTurnOn, body: body}, nil

	case nil:
		return serviceCall{}, fmt.Errorf("%w: nil action", ErrInvalidAction)

	default:
		panic(fmt.Sprintf("gateway: unhandled action type %T", a))
	}
}

func requireDomain(entityID, got, want string) error {
	if got != want {
		return fmt.Errorf("%w: %s is not a %s entity", ErrInvalidAction, entityID, want)
	}
	return nil
}

// ActionRequest is the JSON shape used by the API and MQTT command
// surfaces to describe an action.
type ActionRequest struct {
	Action      string   `json:"action"`
	Brightness  *int     `json:"brightness,omitempty"`
	RGBColor    []int    `json:"rgb_color,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	HVACMode    string   `json:"hvac_mode,omitempty"`
	PresetMode  string   `json:"preset_mode,omitempty"`
}

// Parse converts a request into an Action.
func (r ActionRequest) Parse() (Action, error) {
	switch r.Action {
	case ServiceTurnOn:
		return TurnOn{}, nil
	case ServiceTurnOff:
		return TurnOff{}, nil
	case ServiceToggle:
		return Toggle{}, nil
	case ServiceSetTemperature:
		if r.Temperature == nil {
			return nil, fmt.Errorf("%w: temperature is required", ErrInvalidAction)
		}
		return SetTemperature{Temperature: *r.Temperature}, nil
	case ServiceSetHVACMode:
		return SetHVACMode{Mode: r.HVACMode}, nil
	case ServiceSetPresetMode:
		return SetPresetMode{Mode: r.PresetMode}, nil
	case ActionSetLightAttributes:
		return SetLightAttributes{Brightness: r.Brightness, RGB: r.RGBColor}, nil
	case "":
		return nil, fmt.Errorf("%w: action is required", ErrInvalidAction)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, r.Action)
	}
}

// Validate checks that a can be sent to entityID without contacting the gateway.
func Validate(entityID string, a Action) error {
	_, err := resolve(entityID, a)
	return err
}

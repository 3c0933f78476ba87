package entity

import (
	"bytes"
	"encoding/json"
)

// Attributes is the gateway's attribute bag. Well-known keys are decoded
// into typed fields; everything else is kept verbatim in Extra so a
// snapshot re-encodes without loss.
type Attributes struct {
	FriendlyName       *string
	Area               *string
	Brightness         *int
	RGBColor           []int
	ColorTemp          *int
	Temperature        *float64
	CurrentTemperature *float64
	TargetTempHigh     *float64
	TargetTempLow      *float64
	HVACMode           *string
	HVACModes          []string
	PresetMode         *string
	PresetModes        []string
	UnitOfMeasurement  *string
	DeviceClass        *string
	Icon               *string
	SupportedFeatures  *int

	Extra map[string]json.RawMessage
}

// fields maps wire keys to the typed destinations of a.
func (a *Attributes) fields() []struct {
	key string
	dst any
} {
	return []struct {
		key string
		dst any
	}{
		{"friendly_name", &a.FriendlyName},
		{"area", &a.Area},
		{"brightness", &a.Brightness},
		{"rgb_color", &a.RGBColor},
		{"color_temp", &a.ColorTemp},
		{"temperature", &a.Temperature},
		{"current_temperature", &a.CurrentTemperature},
		{"target_temp_high", &a.TargetTempHigh},
		{"target_temp_low", &a.TargetTempLow},
		{"hvac_mode", &a.HVACMode},
		{"hvac_modes", &a.HVACModes},
		{"preset_mode", &a.PresetMode},
		{"preset_modes", &a.PresetModes},
		{"unit_of_measurement", &a.UnitOfMeasurement},
		{"device_class", &a.DeviceClass},
		{"icon", &a.Icon},
		{"supported_features", &a.SupportedFeatures},
	}
}

// UnmarshalJSON decodes known keys into typed fields. A known key whose
// value has an unexpected type (brightness as a float, say) or is null
// (brightness of a light that is off) stays in Extra rather than failing
// the whole entity or vanishing on re-encode.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Attributes{}
	for _, f := range a.fields() {
		v, ok := raw[f.key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			continue
		}
		delete(raw, f.key)
	}

	if len(raw) > 0 {
		a.Extra = raw
	}
	return nil
}

// MarshalJSON writes typed fields that are set plus every Extra key.
func (a Attributes) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Extra)+4)
	for k, v := range a.Extra {
		out[k] = v
	}

	for _, f := range a.fields() {
		switch v := f.dst.(type) {
		case **string:
			if *v != nil {
				out[f.key] = **v
			}
		case **int:
			if *v != nil {
				out[f.key] = **v
			}
		case **float64:
			if *v != nil {
				out[f.key] = **v
			}
		case *[]int:
			if *v != nil {
				out[f.key] = *v
			}
		case *[]string:
			if *v != nil {
				out[f.key] = *v
			}
		}
	}

	return json.Marshal(out)
}

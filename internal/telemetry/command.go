package telemetry

import "encoding/json"

// OverrideMode is the LED override sent on user request. The numeric
// values are part of the wire contract with the firmware.
type OverrideMode int

const (
	OverrideAuto OverrideMode = -1
	OverrideOff  OverrideMode = 0
	OverrideOn   OverrideMode = 1
)

// String returns the display form of the override mode.
func (m OverrideMode) String() string {
	switch m {
	case OverrideOn:
		return "on"
	case OverrideOff:
		return "off"
	case OverrideAuto:
		return "auto"
	default:
		return "invalid"
	}
}

// ControlCommand is the outbound control payload published to the
// control topic. It is never persisted.
type ControlCommand struct {
	LEDOverride OverrideMode `json:"LED_Override"`
}

// Marshal returns the JSON wire form, e.g. {"LED_Override":-1}.
func (c ControlCommand) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

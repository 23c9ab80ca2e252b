// Package telemetry defines the sensor reading model and the payload
// codec for the broker wire format. Inbound payloads drift between
// firmware variants (JSON with renamed keys, or an older ad-hoc
// comma-separated form), so decoding is deliberately permissive.
package telemetry

import "time"

// LEDState is the reported state of the LED actuator.
type LEDState int

const (
	LEDUnknown LEDState = iota
	LEDOff
	LEDOn
)

// String returns the display form of the LED state.
func (s LEDState) String() string {
	switch s {
	case LEDOn:
		return "ON"
	case LEDOff:
		return "OFF"
	default:
		return "?"
	}
}

// Wire returns the firmware numbering for the LED state: 1 on, 0 off,
// -1 unknown. Persisted records use this so external readers see the
// same convention as the control topic.
func (s LEDState) Wire() int {
	switch s {
	case LEDOn:
		return 1
	case LEDOff:
		return 0
	default:
		return -1
	}
}

// LEDFromWire is the inverse of [LEDState.Wire].
func LEDFromWire(v int) LEDState {
	switch v {
	case 1:
		return LEDOn
	case 0:
		return LEDOff
	default:
		return LEDUnknown
	}
}

// Reading is a single decoded telemetry sample. Valid is false for the
// unknown placeholder that resets displayed values after a decode
// failure.
type Reading struct {
	Temperature float64  // °C
	Humidity    float64  // %
	Light       float64  // lx
	LED         LEDState
	At          time.Time
	Valid       bool
}

// Unknown returns the placeholder reading shown when the payload could
// not be decoded.
func Unknown(at time.Time) Reading {
	return Reading{LED: LEDUnknown, At: at}
}

// Metric names used as history and recorder column keys.
const (
	MetricTemperature = "temperature"
	MetricHumidity    = "humidity"
	MetricLight       = "light"
)

// Value returns the reading's value for a named metric.
func (r Reading) Value(metric string) float64 {
	switch metric {
	case MetricTemperature:
		return r.Temperature
	case MetricHumidity:
		return r.Humidity
	case MetricLight:
		return r.Light
	default:
		return 0
	}
}

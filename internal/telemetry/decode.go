package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyPayload is returned for zero-length payloads.
var ErrEmptyPayload = errors.New("telemetry: empty payload")

// Key aliases observed across firmware variants. First match wins.
var (
	temperatureKeys = []string{"temperature", "temp", "t", "Temperature"}
	humidityKeys    = []string{"humidity", "hum", "h", "Humidity"}
	lightKeys       = []string{"light", "ldr", "lux", "light_intensity", "Light"}
	ledKeys         = []string{"led", "led_state", "state", "LED", "LED_State"}
)

// Decode parses an inbound telemetry payload. JSON objects are tried
// first; payloads from older firmware are a bare comma- or
// semicolon-separated list (temperature, humidity, light[, led]).
// Callers map any error to the unknown placeholder; decode failures
// never propagate past the session.
func Decode(payload []byte, at time.Time) (Reading, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return Unknown(at), ErrEmptyPayload
	}

	if strings.HasPrefix(trimmed, "{") {
		return decodeJSON([]byte(trimmed), at)
	}
	return decodeLegacy(trimmed, at)
}

func decodeJSON(payload []byte, at time.Time) (Reading, error) {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return Unknown(at), fmt.Errorf("telemetry: decode json: %w", err)
	}

	r := Reading{At: at, Valid: true}

	temp, ok := lookupNumber(obj, temperatureKeys)
	if !ok {
		return Unknown(at), errors.New("telemetry: no temperature key")
	}
	r.Temperature = temp

	hum, ok := lookupNumber(obj, humidityKeys)
	if !ok {
		return Unknown(at), errors.New("telemetry: no humidity key")
	}
	r.Humidity = hum

	light, ok := lookupNumber(obj, lightKeys)
	if !ok {
		return Unknown(at), errors.New("telemetry: no light key")
	}
	r.Light = light

	// LED state is optional; some variants never report it.
	if v, ok := lookup(obj, ledKeys); ok {
		r.LED = parseLED(v)
	}

	return r, nil
}

func decodeLegacy(s string, at time.Time) (Reading, error) {
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	parts := strings.Split(s, sep)
	if len(parts) < 3 {
		return Unknown(at), fmt.Errorf("telemetry: legacy payload has %d fields, want 3 or 4", len(parts))
	}

	vals := make([]float64, 0, 3)
	for _, p := range parts[:3] {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Unknown(at), fmt.Errorf("telemetry: legacy field %q: %w", p, err)
		}
		vals = append(vals, v)
	}

	r := Reading{
		Temperature: vals[0],
		Humidity:    vals[1],
		Light:       vals[2],
		At:          at,
		Valid:       true,
	}
	if len(parts) > 3 {
		r.LED = parseLED(strings.TrimSpace(parts[3]))
	}
	return r, nil
}

func lookup(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	// Case-insensitive pass for variants that capitalize freely.
	lowered := make(map[string]any, len(obj))
	for k, v := range obj {
		lowered[strings.ToLower(k)] = v
	}
	for _, k := range keys {
		if v, ok := lowered[strings.ToLower(k)]; ok {
			return v, true
		}
	}
	return nil, false
}

func lookupNumber(obj map[string]any, keys []string) (float64, bool) {
	v, ok := lookup(obj, keys)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// parseLED accepts the LED representations seen in the wild: JSON
// bools, 0/1 numbers, and "on"/"off" strings in any case.
func parseLED(v any) LEDState {
	switch s := v.(type) {
	case bool:
		if s {
			return LEDOn
		}
		return LEDOff
	case float64:
		if s != 0 {
			return LEDOn
		}
		return LEDOff
	case string:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "true", "1":
			return LEDOn
		case "off", "false", "0":
			return LEDOff
		}
	}
	return LEDUnknown
}

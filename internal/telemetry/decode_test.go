package telemetry

import (
	"testing"
	"time"
)

func TestDecodeJSONVariants(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		payload string
		temp    float64
		hum     float64
		light   float64
		led     LEDState
	}{
		{
			name:    "current firmware",
			payload: `{"temperature":25.4,"humidity":61.2,"light":412.0,"led":1}`,
			temp:    25.4, hum: 61.2, light: 412.0, led: LEDOn,
		},
		{
			name:    "short keys",
			payload: `{"temp":19.0,"hum":40.5,"ldr":88,"led_state":"off"}`,
			temp:    19.0, hum: 40.5, light: 88, led: LEDOff,
		},
		{
			name:    "capitalized keys",
			payload: `{"Temperature":30.1,"Humidity":55,"Light":700,"LED":true}`,
			temp:    30.1, hum: 55, light: 700, led: LEDOn,
		},
		{
			name:    "string numbers, no led",
			payload: `{"t":"22.5","h":"48.0","lux":"120.5"}`,
			temp:    22.5, hum: 48.0, light: 120.5, led: LEDUnknown,
		},
		{
			name:    "light_intensity variant",
			payload: `{"temperature":26,"humidity":60,"light_intensity":333,"state":"ON"}`,
			temp:    26, hum: 60, light: 333, led: LEDOn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode([]byte(tt.payload), now)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !r.Valid {
				t.Fatal("expected valid reading")
			}
			if r.Temperature != tt.temp {
				t.Errorf("temperature: got %v, want %v", r.Temperature, tt.temp)
			}
			if r.Humidity != tt.hum {
				t.Errorf("humidity: got %v, want %v", r.Humidity, tt.hum)
			}
			if r.Light != tt.light {
				t.Errorf("light: got %v, want %v", r.Light, tt.light)
			}
			if r.LED != tt.led {
				t.Errorf("led: got %v, want %v", r.LED, tt.led)
			}
			if !r.At.Equal(now) {
				t.Errorf("at: got %v, want %v", r.At, now)
			}
		})
	}
}

func TestDecodeLegacy(t *testing.T) {
	r, err := Decode([]byte("25.4,61.2,412.0,1"), time.Now())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.Temperature != 25.4 || r.Humidity != 61.2 || r.Light != 412.0 {
		t.Errorf("values: got %+v", r)
	}
	if r.LED != LEDOn {
		t.Errorf("led: got %v, want LEDOn", r.LED)
	}

	r, err = Decode([]byte(" 19.0 ; 40.5 ; 88 "), time.Now())
	if err != nil {
		t.Fatalf("Decode semicolon: %v", err)
	}
	if r.Temperature != 19.0 || r.LED != LEDUnknown {
		t.Errorf("semicolon variant: got %+v", r)
	}
}

func TestDecodeMalformed(t *testing.T) {
	now := time.Now()

	malformed := []string{
		"",
		"   ",
		"{not json",
		`{"temperature":25.4}`,
		`{"foo":1,"bar":2,"baz":3}`,
		"25.4,oops,412",
		"25.4",
		`{"temperature":"hot","humidity":60,"light":1}`,
	}

	for _, payload := range malformed {
		r, err := Decode([]byte(payload), now)
		if err == nil {
			t.Errorf("Decode(%q): expected error", payload)
		}
		if r.Valid {
			t.Errorf("Decode(%q): placeholder must be invalid", payload)
		}
		if r.LED != LEDUnknown {
			t.Errorf("Decode(%q): placeholder LED must be unknown", payload)
		}
	}
}

func TestControlCommandWireFormat(t *testing.T) {
	tests := []struct {
		mode OverrideMode
		want string
	}{
		{OverrideOn, `{"LED_Override":1}`},
		{OverrideOff, `{"LED_Override":0}`},
		{OverrideAuto, `{"LED_Override":-1}`},
	}
	for _, tt := range tests {
		got, err := ControlCommand{LEDOverride: tt.mode}.Marshal()
		if err != nil {
			t.Fatalf("Marshal(%v): %v", tt.mode, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%v): got %s, want %s", tt.mode, got, tt.want)
		}
	}
}

func TestLEDStateString(t *testing.T) {
	if LEDOn.String() != "ON" || LEDOff.String() != "OFF" || LEDUnknown.String() != "?" {
		t.Error("unexpected LED state strings")
	}
}

func TestLEDStateWireNumbering(t *testing.T) {
	tests := []struct {
		state LEDState
		wire  int
	}{
		{LEDOn, 1},
		{LEDOff, 0},
		{LEDUnknown, -1},
	}
	for _, tt := range tests {
		if got := tt.state.Wire(); got != tt.wire {
			t.Errorf("%v.Wire(): got %d, want %d", tt.state, got, tt.wire)
		}
		if got := LEDFromWire(tt.wire); got != tt.state {
			t.Errorf("LEDFromWire(%d): got %v, want %v", tt.wire, got, tt.state)
		}
	}
}

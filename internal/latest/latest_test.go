package latest

import (
	"testing"
	"time"

	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
)

func TestSetGet(t *testing.T) {
	s := New()

	if _, ok := s.Get(); ok {
		t.Fatal("expected empty store before first reading")
	}

	r := telemetry.Reading{Temperature: 25.4, Humidity: 61.2, Light: 412, LED: telemetry.LEDOn, At: time.Now(), Valid: true}
	s.Set(r)

	got, ok := s.Get()
	if !ok {
		t.Fatal("expected reading after Set")
	}
	if got != r {
		t.Errorf("got %+v, want %+v", got, r)
	}
}

func TestResetInstallsPlaceholder(t *testing.T) {
	s := New()
	s.Set(telemetry.Reading{Temperature: 25.4, Valid: true})

	at := time.Now()
	s.Reset(at)

	got, ok := s.Get()
	if !ok {
		t.Fatal("expected placeholder after Reset")
	}
	if got.Valid {
		t.Error("placeholder must be invalid")
	}
	if got.LED != telemetry.LEDUnknown {
		t.Error("placeholder LED must be unknown")
	}
	if !got.At.Equal(at) {
		t.Errorf("placeholder At: got %v, want %v", got.At, at)
	}
}

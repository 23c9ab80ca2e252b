package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
)

func TestDiskLogRoundTrip(t *testing.T) {
	dir := t.TempDir()

	dl, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer dl.Close()

	base := time.Date(2026, 8, 21, 14, 30, 0, 0, time.Local)
	readings := []telemetry.Reading{
		{Temperature: 25.4, Humidity: 61.2, Light: 412.0, LED: telemetry.LEDOn, At: base, Valid: true},
		{Temperature: 25.6, Humidity: 60.8, Light: 405.0, LED: telemetry.LEDOff, At: base.Add(2 * time.Second), Valid: true},
	}
	for _, r := range readings {
		if err := dl.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	dl.Close()

	loaded, err := LoadFile(filepath.Join(dir, "2026-08-21.csv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(loaded))
	}
	if loaded[0].Temperature != 25.4 || loaded[0].LED != telemetry.LEDOn {
		t.Errorf("first reading: got %+v", loaded[0])
	}
	if loaded[1].Humidity != 60.8 || loaded[1].LED != telemetry.LEDOff {
		t.Errorf("second reading: got %+v", loaded[1])
	}
}

func TestLEDColumnUsesWireNumbering(t *testing.T) {
	dir := t.TempDir()

	dl, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer dl.Close()

	base := time.Date(2026, 8, 21, 9, 0, 0, 0, time.Local)
	dl.Write(telemetry.Reading{Temperature: 20, LED: telemetry.LEDOn, At: base, Valid: true})
	dl.Write(telemetry.Reading{Temperature: 20, LED: telemetry.LEDOff, At: base.Add(time.Second), Valid: true})
	dl.Write(telemetry.Reading{Temperature: 20, LED: telemetry.LEDUnknown, At: base.Add(2 * time.Second), Valid: true})
	dl.Close()

	raw, err := os.ReadFile(filepath.Join(dir, "2026-08-21.csv"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	wantLED := []string{"1", "0", "-1"}
	for i, want := range wantLED {
		cols := strings.Split(lines[i+1], ",")
		if got := cols[len(cols)-1]; got != want {
			t.Errorf("row %d led column: got %q, want %q", i+1, got, want)
		}
	}

	loaded, err := LoadDay(dir, "2026-08-21")
	if err != nil {
		t.Fatalf("LoadDay: %v", err)
	}
	states := []telemetry.LEDState{telemetry.LEDOn, telemetry.LEDOff, telemetry.LEDUnknown}
	for i, want := range states {
		if loaded[i].LED != want {
			t.Errorf("reading %d LED: got %v, want %v", i, loaded[i].LED, want)
		}
	}
}

func TestDiskLogSkipsPlaceholders(t *testing.T) {
	dir := t.TempDir()

	dl, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer dl.Close()

	if err := dl.Write(telemetry.Unknown(time.Now())); err != nil {
		t.Fatalf("Write placeholder: %v", err)
	}
	dl.Close()

	days, err := ListDays(dir)
	if err != nil {
		t.Fatalf("ListDays: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("placeholder must not create a log file, got %v", days)
	}
}

func TestDailyRotation(t *testing.T) {
	dir := t.TempDir()

	dl, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer dl.Close()

	day1 := time.Date(2026, 8, 20, 23, 59, 58, 0, time.Local)
	day2 := time.Date(2026, 8, 21, 0, 0, 2, 0, time.Local)
	dl.Write(telemetry.Reading{Temperature: 20, At: day1, Valid: true})
	dl.Write(telemetry.Reading{Temperature: 21, At: day2, Valid: true})
	dl.Close()

	days, err := ListDays(dir)
	if err != nil {
		t.Fatalf("ListDays: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 day files, got %v", days)
	}
	// Newest first.
	if days[0] != "2026-08-21" || days[1] != "2026-08-20" {
		t.Errorf("day order: got %v", days)
	}

	loaded, err := LoadDay(dir, "2026-08-21")
	if err != nil {
		t.Fatalf("LoadDay: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Temperature != 21 {
		t.Errorf("day 2 contents: got %+v", loaded)
	}
}

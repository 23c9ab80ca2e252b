// Package recorder handles persistent CSV storage of telemetry
// readings with daily file rotation, plus an optional InfluxDB sink.
package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
)

const (
	timeLayout = "2006-01-02T15:04:05"
	fileLayout = "2006-01-02"
)

// DiskLog appends readings to per-day CSV files in dir:
//
//	<dir>/YYYY-MM-DD.csv with rows time,temperature,humidity,light,led
//
// The led column uses the firmware wire numbering (1 on, 0 off,
// -1 unknown), not the internal enum.
type DiskLog struct {
	dir     string
	current *os.File
	writer  *csv.Writer
	curDate string
}

// New creates a disk log, creating the data directory if needed.
func New(dir string) (*DiskLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create data dir: %w", err)
	}
	return &DiskLog{dir: dir}, nil
}

// Write appends a reading to today's CSV file. Invalid placeholder
// readings are not recorded.
func (d *DiskLog) Write(r telemetry.Reading) error {
	if !r.Valid {
		return nil
	}

	dateStr := r.At.Format(fileLayout)

	if d.curDate != dateStr || d.current == nil {
		d.Close()
		path := filepath.Join(d.dir, dateStr+".csv")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		d.current = f
		d.writer = csv.NewWriter(f)
		d.curDate = dateStr

		info, _ := f.Stat()
		if info.Size() == 0 {
			d.writer.Write([]string{"time", "temperature", "humidity", "light", "led"})
		}
	}

	d.writer.Write([]string{
		r.At.Format(timeLayout),
		fmt.Sprintf("%.1f", r.Temperature),
		fmt.Sprintf("%.1f", r.Humidity),
		fmt.Sprintf("%.1f", r.Light),
		strconv.Itoa(r.LED.Wire()),
	})
	d.writer.Flush()
	return d.writer.Error()
}

// Close flushes and closes the current file.
func (d *DiskLog) Close() {
	if d.writer != nil {
		d.writer.Flush()
	}
	if d.current != nil {
		d.current.Close()
		d.current = nil
	}
}

// ListDays returns available log dates in dir (newest first).
func ListDays(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var days []string
	for i := len(entries) - 1; i >= 0; i-- {
		name := entries[i].Name()
		if strings.HasSuffix(name, ".csv") {
			days = append(days, strings.TrimSuffix(name, ".csv"))
		}
	}
	return days, nil
}

// LoadDay reads all readings from a specific day's CSV file in dir.
func LoadDay(dir, day string) ([]telemetry.Reading, error) {
	return LoadFile(filepath.Join(dir, day+".csv"))
}

// LoadFile reads all readings from a CSV log file.
func LoadFile(path string) ([]telemetry.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var readings []telemetry.Reading
	for i, row := range records {
		if i == 0 && len(row) > 0 && row[0] == "time" {
			continue
		}
		if len(row) < 5 {
			continue
		}

		t, err := time.ParseInLocation(timeLayout, row[0], time.Local)
		if err != nil {
			continue
		}
		temp, _ := strconv.ParseFloat(row[1], 64)
		hum, _ := strconv.ParseFloat(row[2], 64)
		light, _ := strconv.ParseFloat(row[3], 64)
		led, _ := strconv.Atoi(row[4])

		readings = append(readings, telemetry.Reading{
			Temperature: temp,
			Humidity:    hum,
			Light:       light,
			LED:         telemetry.LEDFromWire(led),
			At:          t,
			Valid:       true,
		})
	}

	return readings, nil
}

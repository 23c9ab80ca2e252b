// Command homie is a terminal dashboard for a single MQTT sensor node.
// It keeps one TLS session to the broker, shows live temperature,
// humidity, and light readings with trailing sparklines, and sends LED
// override commands. With -view it browses previously recorded days
// instead of connecting.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/joho/godotenv/autoload"

	"github.com/jackysetiawan6/Android-Homie/internal/config"
	"github.com/jackysetiawan6/Android-Homie/internal/dashboard"
	"github.com/jackysetiawan6/Android-Homie/internal/latest"
	"github.com/jackysetiawan6/Android-Homie/internal/recorder"
	"github.com/jackysetiawan6/Android-Homie/internal/session"
	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
	"github.com/jackysetiawan6/Android-Homie/internal/viewer"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search standard locations)")
	view := flag.Bool("view", false, "browse recorded days instead of connecting")
	flag.Parse()

	path, err := config.FindConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatal(err)
	}

	if *view {
		viewer.Run(cfg.Recorder.Dir)
		return
	}

	if err := run(cfg); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func run(cfg config.Config) error {
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Broker.Host == "" {
		return fmt.Errorf("no broker host configured (set broker.host in config.yaml)")
	}

	tlsCfg, err := session.NewTLSConfig(cfg.TLS.CAFile, cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return fmt.Errorf("load TLS bundle: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	clientID, err := session.LoadOrCreateClientID(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("client identity: %w", err)
	}

	lv := latest.New()
	mgr := session.New(session.Options{
		BrokerURL:         cfg.Broker.URL(),
		ClientID:          clientID,
		Username:          cfg.Broker.Username,
		Password:          cfg.Broker.Password,
		TelemetryTopic:    cfg.Topics.Telemetry,
		ControlTopic:      cfg.Topics.Control,
		ReconnectInterval: cfg.Broker.ReconnectInterval(),
		TLS:               tlsCfg,
		KeepAlive:         time.Duration(cfg.Broker.KeepAliveSec) * time.Second,
	}, lv, logger)
	defer mgr.Close()

	var sinks []dashboard.Sink

	if cfg.Recorder.Enabled {
		disk, err := recorder.New(cfg.Recorder.Dir)
		if err != nil {
			return fmt.Errorf("recorder: %w", err)
		}
		defer disk.Close()
		sinks = append(sinks, disk)
	}

	if cfg.Influx.Enabled {
		influx := recorder.NewInfluxSink(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket, clientID)
		defer influx.Close()
		sinks = append(sinks, influxSink{influx})
	}

	mgr.Connect()

	p := tea.NewProgram(
		dashboard.New(mgr.Readings(), mgr, sinks),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

// newLogger opens the log file and builds the application logger. The
// TUI owns stdout, so logs never go there.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = io.Discard
	closeLog := func() {}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeLog = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, closeLog, nil
}

// influxSink adapts the context-based InfluxDB writer to the
// dashboard's Sink interface.
type influxSink struct {
	sink *recorder.InfluxSink
}

func (s influxSink) Write(r telemetry.Reading) error {
	return s.sink.Write(context.Background(), r)
}

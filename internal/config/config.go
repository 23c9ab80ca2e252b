// Package config handles dashboard configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"
)

// Config holds all dashboard configuration.
type Config struct {
	Broker   BrokerConfig   `yaml:"broker"`
	TLS      TLSConfig      `yaml:"tls"`
	Topics   TopicsConfig   `yaml:"topics"`
	Recorder RecorderConfig `yaml:"recorder"`
	Influx   InfluxConfig   `yaml:"influx"`
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
	LogFile  string         `yaml:"log_file"`
}

// BrokerConfig defines the MQTT endpoint and session behavior.
type BrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// ReconnectIntervalSec is the fixed retry period after a lost
	// connection. There is no backoff; each tick retries once.
	ReconnectIntervalSec int `yaml:"reconnect_interval_sec"`
	KeepAliveSec         int `yaml:"keep_alive_sec"`
}

// URL returns the broker address in paho form, e.g. "tls://host:8883".
func (b BrokerConfig) URL() string {
	return fmt.Sprintf("tls://%s:%d", b.Host, b.Port)
}

// ReconnectInterval returns the retry period as a duration.
func (b BrokerConfig) ReconnectInterval() time.Duration {
	return time.Duration(b.ReconnectIntervalSec) * time.Second
}

// TLSConfig points at the pinned mutual-TLS bundle.
type TLSConfig struct {
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// TopicsConfig names the fixed broker topics.
type TopicsConfig struct {
	Telemetry string `yaml:"telemetry"`
	Control   string `yaml:"control"`
}

// RecorderConfig controls the CSV telemetry log. Recording is opt-in.
type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// InfluxConfig controls the optional InfluxDB sink.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// Default returns the built-in configuration. Loaded files are merged
// on top of these values.
func Default() Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".homie")
	return Config{
		Broker: BrokerConfig{
			Port:                 8883,
			ReconnectIntervalSec: 5,
			KeepAliveSec:         30,
		},
		Topics: TopicsConfig{
			Telemetry: "homie/room/telemetry",
			Control:   "homie/room/led",
		},
		Recorder: RecorderConfig{
			Dir: filepath.Join(dataDir, "log"),
		},
		Influx: InfluxConfig{
			URL:    "http://localhost:8086",
			Bucket: "sensors",
		},
		DataDir:  dataDir,
		LogLevel: "info",
		LogFile:  filepath.Join(dataDir, "homie.log"),
	}
}

// DefaultSearchPaths returns the config file search order. An explicit
// path (from the -config flag) is checked first by FindConfig.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "homie", "config.yaml"))
	}

	paths = append(paths, "/etc/homie/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise the search paths are tried in order; an empty
// string means no file was found and defaults apply.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", nil
}

// Load reads the config at path (or just the defaults when path is
// empty), merges defaults into unset fields, and applies environment
// overrides for secrets.
func Load(path string) (Config, error) {
	cfg := Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := mergo.Merge(&cfg, Default()); err != nil {
		return Config{}, fmt.Errorf("merge defaults: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides secrets from the environment so they stay out of
// config files. A .env file is honored via godotenv autoload in main.
func applyEnv(cfg *Config) {
	if v := os.Getenv("HOMIE_MQTT_USERNAME"); v != "" {
		cfg.Broker.Username = v
	}
	if v := os.Getenv("HOMIE_MQTT_PASSWORD"); v != "" {
		cfg.Broker.Password = v
	}
	if v := os.Getenv("HOMIE_INFLUX_TOKEN"); v != "" {
		cfg.Influx.Token = v
	}
}

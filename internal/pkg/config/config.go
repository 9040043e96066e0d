package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ohowland/switchgear/internal/pkg/history"
	"github.com/ohowland/switchgear/internal/pkg/root"
)

// Config is the service configuration. Values load from a JSON file and are
// then overridden by SWGR_* environment variables.
type Config struct {
	LogLevel string `json:"LogLevel" env:"SWGR_LOG_LEVEL"`
	Addr     string `json:"Addr" env:"SWGR_ADDR"`
	System   System `json:"System"`
	NATS     NATS   `json:"NATS"`
	MQTT     MQTT   `json:"MQTT"`
	SQL      SQL    `json:"SQL"`
	Mongo    Mongo  `json:"Mongo"`
}

// System configures the simulation.
type System struct {
	TickMillis  int   `json:"TickMillis" env:"SWGR_TICK_MILLIS"`
	HistorySize int   `json:"HistorySize" env:"SWGR_HISTORY_SIZE"`
	Seed        int64 `json:"Seed" env:"SWGR_SEED"`
}

// Tick is the simulation period.
func (s System) Tick() time.Duration {
	return time.Duration(s.TickMillis) * time.Millisecond
}

// Root maps the file config onto the simulation config.
func (s System) Root() root.Config {
	return root.Config{
		Tick:        s.Tick(),
		HistorySize: s.HistorySize,
		Seed:        s.Seed,
	}
}

// NATS configures the NATS snapshot stream.
type NATS struct {
	Enabled bool   `json:"Enabled" env:"SWGR_NATS_ENABLED"`
	URL     string `json:"URL" env:"SWGR_NATS_URL"`
	Subject string `json:"Subject" env:"SWGR_NATS_SUBJECT"`
}

// MQTT configures the MQTT snapshot stream.
type MQTT struct {
	Enabled  bool   `json:"Enabled" env:"SWGR_MQTT_ENABLED"`
	Broker   string `json:"Broker" env:"SWGR_MQTT_BROKER"`
	ClientID string `json:"ClientID" env:"SWGR_MQTT_CLIENT_ID"`
	Username string `json:"Username" env:"SWGR_MQTT_USERNAME"`
	Password string `json:"Password" env:"SWGR_MQTT_PASSWORD"`
	Topic    string `json:"Topic" env:"SWGR_MQTT_TOPIC"`
}

// SQL configures the realtime table mirror.
type SQL struct {
	Enabled bool   `json:"Enabled" env:"SWGR_SQL_ENABLED"`
	Driver  string `json:"Driver" env:"SWGR_SQL_DRIVER"`
	DSN     string `json:"DSN" env:"SWGR_SQL_DSN"`
}

// Mongo configures the MongoDB status mirror.
type Mongo struct {
	Enabled  bool   `json:"Enabled" env:"SWGR_MONGO_ENABLED"`
	URI      string `json:"URI" env:"SWGR_MONGO_URI"`
	Database string `json:"Database" env:"SWGR_MONGO_DATABASE"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
		Addr:     ":8080",
		System: System{
			TickMillis:  2000,
			HistorySize: history.DefaultSize,
		},
		NATS: NATS{
			URL:     "nats://127.0.0.1:4222",
			Subject: "switchgear",
		},
		MQTT: MQTT{
			Broker:   "tcp://127.0.0.1:1883",
			ClientID: "switchgear",
			Topic:    "switchgear",
		},
		SQL: SQL{
			Driver: "postgres",
		},
		Mongo: Mongo{
			URI:      "mongodb://127.0.0.1:27017",
			Database: "switchgear",
		},
	}
}

// Parse decodes jsonConfig over the defaults.
func Parse(jsonConfig []byte) (Config, error) {
	cfg, err := decode(jsonConfig)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decode(jsonConfig []byte) (Config, error) {
	cfg := Default()
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load reads the file at configPath (skipped when empty), then applies the
// environment.
func Load(configPath string) (Config, error) {
	cfg := Default()
	if configPath != "" {
		jsonConfig, err := os.ReadFile(configPath)
		if err != nil {
			return Config{}, err
		}
		if cfg, err = decode(jsonConfig); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.System.TickMillis <= 0 {
		errs = append(errs, fmt.Errorf("TickMillis must be positive, got %d", c.System.TickMillis))
	}
	if c.System.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("HistorySize must be positive, got %d", c.System.HistorySize))
	}
	if c.SQL.Enabled && c.SQL.Driver != "postgres" && c.SQL.Driver != "mysql" {
		errs = append(errs, fmt.Errorf("unsupported SQL driver %q", c.SQL.Driver))
	}
	if c.SQL.Enabled && c.SQL.DSN == "" {
		errs = append(errs, errors.New("SQL DSN is required when SQL is enabled"))
	}
	return errors.Join(errs...)
}

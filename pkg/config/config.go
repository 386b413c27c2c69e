// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

// Package config loads the gateway configuration from a YAML file and
// fills in defaults for anything left out.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dotbot-org/botgate/pkg/protocol"
)

// Serial configures the byte link to the radio gateway board.
type Serial struct {
	Port     string `yaml:"port"`
	Baudrate int    `yaml:"baudrate"`
}

// Web configures the HTTP/websocket API.
type Web struct {
	Address string `yaml:"address"`
}

// Gateway configures the controller identity and persistence.
type Gateway struct {
	Address         string `yaml:"address"`  // 16-digit hex
	SwarmID         string `yaml:"swarm_id"` // 4-digit hex
	CalibrationPath string `yaml:"calibration_path"`
}

// Log configures structured logging.
type Log struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Config is the full gateway configuration.
type Config struct {
	Serial  Serial  `yaml:"serial"`
	Web     Web     `yaml:"web"`
	Gateway Gateway `yaml:"gateway"`
	Log     Log     `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Serial: Serial{
			Port:     "/dev/ttyACM0",
			Baudrate: 1000000,
		},
		Web: Web{
			Address: ":8000",
		},
		Gateway: Gateway{
			Address:         protocol.FormatAddress(protocol.AddressGatewayDefault),
			SwarmID:         "0000",
			CalibrationPath: "calibration.cbor",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Serial.Baudrate <= 0 {
		return fmt.Errorf("config: invalid baudrate %d", c.Serial.Baudrate)
	}
	if _, err := c.GatewayAddress(); err != nil {
		return fmt.Errorf("config: invalid gateway address %q", c.Gateway.Address)
	}
	if _, err := c.SwarmID(); err != nil {
		return fmt.Errorf("config: invalid swarm id %q", c.Gateway.SwarmID)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// GatewayAddress parses the configured gateway address.
func (c *Config) GatewayAddress() (uint64, error) {
	return protocol.ParseAddress(c.Gateway.Address)
}

// SwarmID parses the configured swarm id.
func (c *Config) SwarmID() (uint16, error) {
	v, err := strconv.ParseUint(c.Gateway.SwarmID, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
}

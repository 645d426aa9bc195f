// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Carrier kinds.
const (
	CarrierQueue = "queue"
	CarrierTCP   = "tcp"
)

// ErrInvalidConfig is returned for a config that fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the file form of the global options. Every field has a flag of
// the same name that overrides it.
type Config struct {
	// Carrier is "queue" for in-process sessions or "tcp".
	Carrier string `yaml:"carrier"`
	// Capacity bounds each in-process queue.
	Capacity int `yaml:"capacity"`
	// Listen makes a tcp run serve one session on this address.
	Listen string `yaml:"listen,omitempty"`
	// Dial makes a tcp run connect to this address as the client.
	Dial string `yaml:"dial,omitempty"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Carrier:  CarrierQueue,
		Capacity: 4,
		LogLevel: "warn",
	}
}

// LoadConfig reads a YAML config file over the defaults. Unknown fields are
// rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that flags and files cannot constrain.
func (c Config) Validate() error {
	switch c.Carrier {
	case CarrierQueue:
	case CarrierTCP:
		if c.Listen != "" && c.Dial != "" {
			return fmt.Errorf("%w: listen and dial are exclusive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: carrier %q must be %s or %s", ErrInvalidConfig, c.Carrier, CarrierQueue, CarrierTCP)
	}
	if c.Capacity < 1 {
		return fmt.Errorf("%w: capacity %d", ErrInvalidConfig, c.Capacity)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return l, nil
}

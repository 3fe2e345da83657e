// Package config loads the morgul.yaml receiver configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Module describes one detector module's geometry.
type Module struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// Config is the top-level structure of a morgul.yaml file.
type Config struct {
	// UDPPort receives detector packets.
	UDPPort uint16 `yaml:"udp_port"`
	// DynamicRange in bits per pixel.
	DynamicRange uint32 `yaml:"dynamic_range,omitempty"`
	// Module geometry in pixels.
	Module Module `yaml:"module,omitempty"`
	// IdleTimeout without packets before an acquisition is considered
	// over, e.g. "500ms".
	IdleTimeout string `yaml:"idle_timeout,omitempty"`
	// Stream is the ZMQ PUB endpoint for assembled frames. Empty
	// disables streaming.
	Stream string `yaml:"stream,omitempty"`
	// MetricsAddr serves Prometheus metrics. Empty disables them.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
	// FilePath and FileName label the acquisition in lifecycle headers.
	FilePath string `yaml:"file_path,omitempty"`
	FileName string `yaml:"file_name,omitempty"`
}

// Default returns the configuration for a single Jungfrau module in
// 16-bit readout.
func Default() *Config {
	return &Config{
		UDPPort:      30000,
		DynamicRange: 16,
		Module:       Module{Width: 1024, Height: 256},
		IdleTimeout:  "500ms",
		Stream:       "tcp://*:30101",
		MetricsAddr:  ":9090",
	}
}

// Parse reads and validates a morgul.yaml file. Missing fields take
// defaults.
func Parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field consistency.
func (c *Config) Validate() error {
	switch c.DynamicRange {
	case 4, 8, 16, 32:
	default:
		return fmt.Errorf("dynamic_range %d: must be 4, 8, 16 or 32", c.DynamicRange)
	}
	if c.Module.Width == 0 || c.Module.Height == 0 {
		return fmt.Errorf("module geometry %dx%d: both dimensions required", c.Module.Width, c.Module.Height)
	}
	if _, err := c.IdleTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// IdleTimeoutDuration parses the idle_timeout field.
func (c *Config) IdleTimeoutDuration() (time.Duration, error) {
	if c.IdleTimeout == "" {
		return 500 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("idle_timeout %q: %w", c.IdleTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("idle_timeout %q: must be positive", c.IdleTimeout)
	}
	return d, nil
}

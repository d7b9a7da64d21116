// Package config loads processing options from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/logging"
)

// Config holds every tunable of a processing run.
type Config struct {
	Logging     Logging  `yaml:"logging"`
	Trace       []string `yaml:"trace"`
	DSR         DSR      `yaml:"dsr"`
	Workers     int      `yaml:"workers"`
	Annotations *bool    `yaml:"annotations"`
	Fetch       Fetch    `yaml:"fetch"`
}

// Fetch configures the retrieval of pages given as URLs.
type Fetch struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
}

// Logging selects the log level and output format.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DSR holds source range computation options.
type DSR struct {
	// AttrExpansion marks documents produced from templated attribute
	// values, where top-level offset mismatches are expected.
	AttrExpansion bool `yaml:"attrExpansion"`
}

var validTraces = map[string]bool{"dsr": true, "tplwrap": true, "annwrap": true}

// Default returns the configuration used when no file is given.
func Default() *Config {
	on := true
	return &Config{
		Logging:     Logging{Level: "info", Format: "text"},
		Workers:     4,
		Annotations: &on,
		Fetch:       Fetch{Timeout: 30 * time.Second},
	}
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown values and normalizes the worker count.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}
	for _, t := range c.Trace {
		if !validTraces[t] {
			return fmt.Errorf("trace: unknown pass %q", t)
		}
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout: must not be negative")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}

// AnnotationsEnabled reports whether the annotation pass should run.
func (c *Config) AnnotationsEnabled() bool {
	return c.Annotations == nil || *c.Annotations
}

// LogLevel returns the parsed log level. Call Validate first.
func (c *Config) LogLevel() logging.Level {
	l, _ := logging.ParseLevel(c.Logging.Level)
	return l
}

// LogFormat returns the parsed log format. Call Validate first.
func (c *Config) LogFormat() logging.Format {
	f, _ := logging.ParseFormat(c.Logging.Format)
	return f
}

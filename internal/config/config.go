// Package config loads the optional socksrelay YAML configuration file.
//
// Every field has a usable zero value or a default from SetDefaults, so an
// absent file and an empty file behave the same. Command-line flags are
// applied on top by main.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTCPKeepAlive = "45:45:3"
	DefaultLogLevel     = "info"
)

// DurationString accepts Go durations ("10s", "1m30s") or a bare integer
// number of seconds.
type DurationString time.Duration

func (d *DurationString) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		v, err := strconv.Atoi(value.Value)
		if err != nil {
			return err
		}
		*d = DurationString(time.Duration(v) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	if dur < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", value.Value)
	}
	*d = DurationString(dur)
	return nil
}

func (d DurationString) Duration() time.Duration {
	return time.Duration(d)
}

// LogConfig selects the log level and, optionally, a rotated log file.
type LogConfig struct {
	Level      string `yaml:"Level,omitempty"`
	Filename   string `yaml:"Filename,omitempty"` // empty logs to stderr
	MaxSize    int    `yaml:"MaxSize,omitempty"`  // megabytes
	MaxBackups int    `yaml:"MaxBackups,omitempty"`
	MaxAge     int    `yaml:"MaxAge,omitempty"` // days
	Compress   bool   `yaml:"Compress,omitempty"`
}

// Config is the socksrelay configuration. The listen address is fixed and
// deliberately absent.
type Config struct {
	Verbose bool `yaml:"Verbose,omitempty"`

	// NegotiationTimeout bounds the greeting, request and upstream connect.
	// Zero means no deadline.
	NegotiationTimeout DurationString `yaml:"NegotiationTimeout,omitempty"`

	// DialTimeout bounds the upstream connect alone. Zero means the
	// operating system default.
	DialTimeout DurationString `yaml:"DialTimeout,omitempty"`

	TCPKeepAlive string `yaml:"TCPKeepAlive,omitempty"` // on|off|keepidle:keepintvl:keepcnt
	ReusePort    bool   `yaml:"ReusePort,omitempty"`
	DebugListen  string `yaml:"DebugListen,omitempty"`

	Log LogConfig `yaml:"Log,omitempty"`
}

// SetDefaults fills in unset optional fields.
func (c *Config) SetDefaults() {
	if c.TCPKeepAlive == "" {
		c.TCPKeepAlive = DefaultTCPKeepAlive
	}
	if c.Log.Filename != "" {
		if c.Log.MaxSize == 0 {
			c.Log.MaxSize = 20
		}
		if c.Log.MaxBackups == 0 {
			c.Log.MaxBackups = 5
		}
		if c.Log.MaxAge == 0 {
			c.Log.MaxAge = 28
		}
	}
}

// LogLevel returns the explicit log level, or debug when Verbose is set and
// info otherwise.
func (c *Config) LogLevel() string {
	switch {
	case c.Log.Level != "":
		return c.Log.Level
	case c.Verbose:
		return "debug"
	default:
		return DefaultLogLevel
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// Load reads and parses the YAML file at path. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var c Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.SetDefaults()
	return &c, nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "socksrelay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
Verbose: true
NegotiationTimeout: 10s
DialTimeout: 5
TCPKeepAlive: "off"
ReusePort: true
DebugListen: 127.0.0.1:6060
Log:
  Filename: /var/log/socksrelay.log
  MaxSize: 50
  Compress: true
`)

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !c.Verbose || !c.ReusePort {
		t.Fatalf("bools not parsed: %+v", c)
	}
	if got := c.NegotiationTimeout.Duration(); got != 10*time.Second {
		t.Fatalf("NegotiationTimeout %v", got)
	}
	if got := c.DialTimeout.Duration(); got != 5*time.Second {
		t.Fatalf("DialTimeout %v", got)
	}
	if c.TCPKeepAlive != "off" {
		t.Fatalf("TCPKeepAlive %q", c.TCPKeepAlive)
	}
	if c.DebugListen != "127.0.0.1:6060" {
		t.Fatalf("DebugListen %q", c.DebugListen)
	}
	if c.Log.MaxSize != 50 || !c.Log.Compress {
		t.Fatalf("log %+v", c.Log)
	}
	// Unset rotation fields pick up defaults once a file is configured.
	if c.Log.MaxBackups != 5 || c.Log.MaxAge != 28 {
		t.Fatalf("log defaults %+v", c.Log)
	}
	if got := c.LogLevel(); got != "debug" {
		t.Fatalf("LogLevel %q", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	c, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatal(err)
	}

	want := Default()
	if *c != *want {
		t.Fatalf("got %+v want %+v", c, want)
	}
}

func TestDefault(t *testing.T) {
	c := Default()

	if c.TCPKeepAlive != DefaultTCPKeepAlive {
		t.Fatalf("TCPKeepAlive %q", c.TCPKeepAlive)
	}
	if c.NegotiationTimeout != 0 || c.DialTimeout != 0 {
		t.Fatalf("timeouts should default to none: %+v", c)
	}
	if c.Log.Filename != "" || c.Log.MaxSize != 0 {
		t.Fatalf("log %+v", c.Log)
	}
	if got := c.LogLevel(); got != "info" {
		t.Fatalf("LogLevel %q", got)
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		level   string
		want    string
	}{
		{name: "default", want: "info"},
		{name: "verbose", verbose: true, want: "debug"},
		{name: "explicit", level: "warn", want: "warn"},
		{name: "explicit_beats_verbose", verbose: true, level: "error", want: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{Verbose: tt.verbose, Log: LogConfig{Level: tt.level}}
			if got := c.LogLevel(); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown_field", body: "ListenAddress: 0.0.0.0:1080\n", want: "ListenAddress"},
		{name: "bad_duration", body: "DialTimeout: soon\n", want: "soon"},
		{name: "negative_duration", body: "DialTimeout: -5s\n", want: "negative"},
		{name: "bad_yaml", body: "Verbose: [\n", want: "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("got %v", err)
	}
}

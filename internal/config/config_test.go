package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// cliWithPath returns a CLI struct pointing at the given config file.
func cliWithPath(path string) *CLI {
	return &CLI{Config: path}
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000
body_max_bytes = 5242880

[emby]
base_url = "http://emby.local:8096"
api_key = "test-key-12345"

[upstream]
forward_timeout_seconds = 30
metadata_timeout_seconds = 5
idle_connections = 50

[log]
level = "debug"
format = "text"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Emby.BaseURL != "http://emby.local:8096" {
		t.Errorf("Emby.BaseURL = %q, want %q", cfg.Emby.BaseURL, "http://emby.local:8096")
	}
	if cfg.Emby.APIKey != "test-key-12345" {
		t.Errorf("Emby.APIKey = %q, want %q", cfg.Emby.APIKey, "test-key-12345")
	}
	if cfg.Upstream.MetadataTimeoutSeconds != 5 {
		t.Errorf("Upstream.MetadataTimeoutSeconds = %d, want %d", cfg.Upstream.MetadataTimeoutSeconds, 5)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
}

func TestLoad_NoConfigFileFlagsOnly(t *testing.T) {
	// Flags alone must be enough to run the proxy; no config file exists.
	cli := &CLI{Server: "http://localhost:8096", APIKey: "k", Port: 9001}

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Emby.BaseURL != "http://localhost:8096" {
		t.Errorf("Emby.BaseURL = %q, want %q", cfg.Emby.BaseURL, "http://localhost:8096")
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9001)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
[emby]
base_url = "http://localhost:8096"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8097 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8097)
	}
	if cfg.Server.BodyMaxBytes != 10*1024*1024 {
		t.Errorf("Server.BodyMaxBytes = %d, want %d", cfg.Server.BodyMaxBytes, 10*1024*1024)
	}
	if cfg.Upstream.ForwardTimeoutSeconds != 30 {
		t.Errorf("Upstream.ForwardTimeoutSeconds = %d, want %d", cfg.Upstream.ForwardTimeoutSeconds, 30)
	}
	if cfg.Upstream.MetadataTimeoutSeconds != 10 {
		t.Errorf("Upstream.MetadataTimeoutSeconds = %d, want %d", cfg.Upstream.MetadataTimeoutSeconds, 10)
	}
	if cfg.Upstream.IdleConnections != 100 {
		t.Errorf("Upstream.IdleConnections = %d, want %d", cfg.Upstream.IdleConnections, 100)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "0.0.0.0"
port = 8097

[emby]
base_url = "http://emby.local:8096"
api_key = "file-key"

[log]
level = "info"
`)

	cli := cliWithPath(path)
	cli.Host = "127.0.0.1"
	cli.Port = 9999
	cli.Server = "http://other.local:8096"
	cli.APIKey = "flag-key"
	cli.LogLevel = "error"

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want flag override", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want flag override", cfg.Server.Port)
	}
	if cfg.Emby.BaseURL != "http://other.local:8096" {
		t.Errorf("Emby.BaseURL = %q, want flag override", cfg.Emby.BaseURL)
	}
	if cfg.Emby.APIKey != "flag-key" {
		t.Errorf("Emby.APIKey = %q, want flag override", cfg.Emby.APIKey)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want flag override", cfg.Log.Level)
	}
}

func TestLoad_MissingBaseURL(t *testing.T) {
	path := writeConfig(t, `
[emby]
api_key = "k"
`)

	_, err := Load(cliWithPath(path))
	if err == nil {
		t.Fatal("Load() expected error for missing emby.base_url, got nil")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("error = %v, want mention of base_url", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "bad scheme",
			data: `
[emby]
base_url = "ftp://emby.local"
`,
		},
		{
			name: "port out of range",
			data: `
[server]
port = 70000

[emby]
base_url = "http://emby.local:8096"
`,
		},
		{
			name: "negative body_max_bytes",
			data: `
[server]
body_max_bytes = -1

[emby]
base_url = "http://emby.local:8096"
`,
		},
		{
			name: "negative forward timeout",
			data: `
[emby]
base_url = "http://emby.local:8096"

[upstream]
forward_timeout_seconds = -5
`,
		},
		{
			name: "negative metadata timeout",
			data: `
[emby]
base_url = "http://emby.local:8096"

[upstream]
metadata_timeout_seconds = -1
`,
		},
		{
			name: "rate limit enabled without rps",
			data: `
[server.rate_limit]
enabled = true

[emby]
base_url = "http://emby.local:8096"
`,
		},
		{
			name: "invalid log level",
			data: `
[emby]
base_url = "http://emby.local:8096"

[log]
level = "verbose"
`,
		},
		{
			name: "invalid log format",
			data: `
[emby]
base_url = "http://emby.local:8096"

[log]
format = "xml"
`,
		},
		{
			name: "metrics path without slash",
			data: `
[emby]
base_url = "http://emby.local:8096"

[metrics]
enabled = true
path = "metrics"
`,
		},
		{
			name: "metrics path conflicts with healthz",
			data: `
[emby]
base_url = "http://emby.local:8096"

[metrics]
enabled = true
path = "/healthz"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.data)
			if _, err := Load(cliWithPath(path)); err == nil {
				t.Fatal("Load() expected validation error, got nil")
			}
		})
	}
}

func TestLoad_MetricsPathValidWhenDisabled(t *testing.T) {
	// The reserved-route check only applies when metrics are enabled.
	path := writeConfig(t, `
[emby]
base_url = "http://emby.local:8096"

[metrics]
enabled = false
path = "/healthz"
`)

	if _, err := Load(cliWithPath(path)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestAddr(t *testing.T) {
	c := &ServerConfig{Host: "127.0.0.1", Port: 8097}
	if got := c.Addr(); got != "127.0.0.1:8097" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:8097")
	}
}

func TestFindConfigInPaths(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "exists.toml")
	if err := os.WriteFile(existing, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	got := findConfigInPaths([]string{
		filepath.Join(dir, "missing.toml"),
		existing,
	})
	if got != existing {
		t.Errorf("findConfigInPaths() = %q, want %q", got, existing)
	}

	if got := findConfigInPaths([]string{filepath.Join(dir, "missing.toml")}); got != "" {
		t.Errorf("findConfigInPaths() = %q, want empty", got)
	}
}

func TestWarnPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions are not meaningful on windows")
	}

	path := writeConfig(t, `
[emby]
base_url = "http://emby.local:8096"
`)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg.WarnPermissions(logger)

	if !strings.Contains(buf.String(), "chmod 600") {
		t.Errorf("expected permission warning in log output, got %q", buf.String())
	}

	// Tight permissions produce no warning.
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	cfg.WarnPermissions(logger)
	if buf.Len() != 0 {
		t.Errorf("expected no warning for 0600, got %q", buf.String())
	}
}

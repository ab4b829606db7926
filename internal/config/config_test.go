package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/danmuck/dmapctl/internal/protocol/codes"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dmapctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
listen = "127.0.0.1:8080"

[log]
level = "debug"
compress = true

[[overrides]]
name = "daap.songdateadded"
kind = "i32"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.Listen != "127.0.0.1:8080" {
		t.Fatalf("listen not applied: %q", cfg.Listen)
	}
	if cfg.ContentCodes != def.ContentCodes || cfg.MaxBodyBytes != def.MaxBodyBytes {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Compress || !cfg.Log.Timestamp || cfg.Log.MaxBackups != 3 {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	overrides := cfg.CodeOverrides()
	if len(overrides) != 1 || overrides[0].Kind != codes.KindI32 {
		t.Fatalf("unexpected overrides: %+v", overrides)
	}
	if cfg.Log.Logging().Level != zerolog.DebugLevel {
		t.Fatalf("log level not mapped")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "listen = \":1\"\nlisten_addr = \":2\"\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "listen_addr") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty listen":  func(c *Config) { c.Listen = " " },
		"no codes":      func(c *Config) { c.ContentCodes = "" },
		"zero body":     func(c *Config) { c.MaxBodyBytes = 0 },
		"bad level":     func(c *Config) { c.Log.Level = "loud" },
		"half tls":      func(c *Config) { c.TLSCertFile = "server.crt" },
		"negative age":  func(c *Config) { c.Log.MaxAgeDays = -1 },
		"override name": func(c *Config) { c.Overrides = []OverrideConfig{{Kind: "i8"}} },
		"override kind": func(c *Config) { c.Overrides = []OverrideConfig{{Name: "dmap.status", Kind: "i24"}} },
	}
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestWriteTemplateRoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dmapctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := Default()
	if cfg.Listen != def.Listen || cfg.Log.MaxSizeMB != def.Log.MaxSizeMB || len(cfg.CorsOrigins) != 1 {
		t.Fatalf("template does not match defaults: %+v", cfg)
	}
}

package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/dmapctl/internal/logging"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
)

// Config is the dmapctl process configuration.
type Config struct {
	ContentCodes string           `toml:"content_codes"`
	Listen       string           `toml:"listen"`
	CorsOrigins  []string         `toml:"cors_origins"`
	MaxBodyBytes int64            `toml:"max_body_bytes"`
	AuthToken    string           `toml:"auth_token"`
	TLSCertFile  string           `toml:"tls_cert_file"`
	TLSKeyFile   string           `toml:"tls_key_file"`
	Log          LogConfig        `toml:"log"`
	Overrides    []OverrideConfig `toml:"overrides"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
	Timestamp  bool   `toml:"timestamp"`
	NoColor    bool   `toml:"no_color"`
}

// OverrideConfig corrects the declared kind of a content code after the
// built-in corrections have been applied.
type OverrideConfig struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"`
}

func Default() Config {
	return Config{
		ContentCodes: "content-codes.bin",
		Listen:       ":3689",
		CorsOrigins:  []string{"http://localhost:3000"},
		MaxBodyBytes: 4 << 20,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Timestamp:  true,
		},
	}
}

// Load decodes path over Default. Keys absent from the file keep their
// defaults; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("config parse failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("content_codes") {
		cfg.ContentCodes = strings.TrimSpace(raw.ContentCodes)
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("max_body_bytes") {
		cfg.MaxBodyBytes = raw.MaxBodyBytes
	}
	if meta.IsDefined("auth_token") {
		cfg.AuthToken = strings.TrimSpace(raw.AuthToken)
	}
	if meta.IsDefined("tls_cert_file") {
		cfg.TLSCertFile = strings.TrimSpace(raw.TLSCertFile)
	}
	if meta.IsDefined("tls_key_file") {
		cfg.TLSKeyFile = strings.TrimSpace(raw.TLSKeyFile)
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("log", "max_size_mb") {
		cfg.Log.MaxSizeMB = raw.Log.MaxSizeMB
	}
	if meta.IsDefined("log", "max_backups") {
		cfg.Log.MaxBackups = raw.Log.MaxBackups
	}
	if meta.IsDefined("log", "max_age_days") {
		cfg.Log.MaxAgeDays = raw.Log.MaxAgeDays
	}
	if meta.IsDefined("log", "compress") {
		cfg.Log.Compress = raw.Log.Compress
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("overrides") {
		cfg.Overrides = raw.Overrides
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.ContentCodes) == "" {
		return fmt.Errorf("content_codes is required")
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("listen is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("log.level %q not recognized", cfg.Log.Level)
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	for i, o := range cfg.Overrides {
		if strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("overrides[%d] missing name", i)
		}
		if _, err := codes.ParseKind(o.Kind); err != nil {
			return fmt.Errorf("overrides[%d] (%s): %w", i, o.Name, err)
		}
	}
	return nil
}

// CodeOverrides converts the [[overrides]] tables. Validate has already
// checked every kind.
func (c Config) CodeOverrides() []codes.Override {
	out := make([]codes.Override, 0, len(c.Overrides))
	for _, o := range c.Overrides {
		kind, err := codes.ParseKind(o.Kind)
		if err != nil {
			continue
		}
		out = append(out, codes.Override{Name: strings.TrimSpace(o.Name), Kind: kind})
	}
	return out
}

// Logging maps the [log] table onto a logger configuration.
func (l LogConfig) Logging() logging.Config {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(l.Level); ok {
		cfg.Level = lvl
	}
	cfg.File = l.File
	cfg.MaxSizeMB = l.MaxSizeMB
	cfg.MaxBackups = l.MaxBackups
	cfg.MaxAgeDays = l.MaxAgeDays
	cfg.Compress = l.Compress
	cfg.Timestamp = l.Timestamp
	cfg.NoColor = l.NoColor
	return cfg
}

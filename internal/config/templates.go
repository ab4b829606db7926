package config

import (
	"fmt"
	"os"

	gotoml "github.com/pelletier/go-toml/v2"
)

const templateHeader = `# dmapctl configuration.
# content_codes points at a raw content-codes response used to build the dictionary.
# [[overrides]] entries correct declared kinds after the built-in corrections.

`

// Render encodes cfg as TOML.
func Render(cfg Config) ([]byte, error) {
	out, err := gotoml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config render failed: %w", err)
	}
	return out, nil
}

// Template is the rendered default configuration with a comment header.
func Template() ([]byte, error) {
	body, err := Render(Default())
	if err != nil {
		return nil, err
	}
	return append([]byte(templateHeader), body...), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, template, 0o600)
}

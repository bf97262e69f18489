// Package config loads the carving configuration: the file-type signature
// table and the system file/directory exclusion lists. A default document is
// embedded in the binary; a user-supplied config file overrides it.
package config

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/spf13/viper"

	"github.com/carvex/carvex/internal/domain/detection"
)

//go:embed defaults.yaml
var defaultConfig []byte

// SignatureEntry is one row of the signature table as it appears in the
// configuration document. Prefixes are strings whose code points below U+0100
// each denote one raw byte.
type SignatureEntry struct {
	Label    string   `mapstructure:"label"`
	Prefixes []string `mapstructure:"prefixes"`
}

// Config is the carving configuration.
type Config struct {
	Signatures        []SignatureEntry `mapstructure:"signatures"`
	SystemFiles       []string         `mapstructure:"system_files"`
	SystemExtensions  []string         `mapstructure:"system_extensions"`
	SystemDirectories []string         `mapstructure:"system_directories"`
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	return unmarshal(v)
}

// Load reads the configuration file at path, layered over the embedded
// defaults. Sections absent from the file keep their default values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if len(cfg.Signatures) == 0 {
		return nil, fmt.Errorf("config has no signature table")
	}
	return &cfg, nil
}

// SignatureTable converts the configured signature entries into the
// classifier's table, preserving order.
func (c *Config) SignatureTable() ([]detection.TypeSignature, error) {
	table := make([]detection.TypeSignature, 0, len(c.Signatures))
	for _, entry := range c.Signatures {
		sig := detection.TypeSignature{Label: entry.Label}
		for _, p := range entry.Prefixes {
			prefix, err := prefixBytes(p)
			if err != nil {
				return nil, fmt.Errorf("signature %q: %w", entry.Label, err)
			}
			sig.Prefixes = append(sig.Prefixes, prefix)
		}
		table = append(table, sig)
	}
	return table, nil
}

// SupportedTypes returns the declared type labels in table order.
func (c *Config) SupportedTypes() []string {
	labels := make([]string, 0, len(c.Signatures))
	for _, entry := range c.Signatures {
		labels = append(labels, entry.Label)
	}
	return labels
}

// prefixBytes maps each code point of the configured prefix to a single raw
// byte. Code points at U+0100 or above cannot denote a byte and are rejected.
func prefixBytes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return nil, fmt.Errorf("prefix %q contains non-byte code point %q", s, r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

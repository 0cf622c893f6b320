// Package config loads the run configuration of the sesame CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory.
const DefaultFile = "sesame.yaml"

// Records backends.
const (
	RecordsMemory = "memory"
	RecordsFile   = "file"
	RecordsRedis  = "redis"
)

// Run is the configuration of one CLI run.
type Run struct {
	Logfile         string `mapstructure:"logfile"`
	SubjectNr       int    `mapstructure:"subject_nr"`
	Fullscreen      bool   `mapstructure:"fullscreen"`
	AutoResponse    bool   `mapstructure:"auto_response"`
	JSON            bool   `mapstructure:"json"`
	PoolFolder      string `mapstructure:"pool_folder"`
	ResourcesFolder string `mapstructure:"resources_folder"`
	Records         string `mapstructure:"records"`
	RecordsDir      string `mapstructure:"records_dir"`
	// RecordsKey is a base64 AES-256 key. When set, run records are
	// stored encrypted.
	RecordsKey  string   `mapstructure:"records_key"`
	Redact      []string `mapstructure:"redact"`
	Redis       Redis    `mapstructure:"redis"`
	InspectAddr string   `mapstructure:"inspect_addr"`
	LogLevel    string   `mapstructure:"log_level"`
	DebugLog    string   `mapstructure:"debug_log"`
	Journal     bool     `mapstructure:"journal"`
	Seed        uint64   `mapstructure:"seed"`
	Style       string   `mapstructure:"style"`
}

// Redis configures the redis record store and locker.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Default returns the configuration used when no file exists.
func Default() Run {
	return Run{
		SubjectNr: 0,
		Records:   RecordsMemory,
		LogLevel:  "info",
	}
}

// Load reads path, applies key=value overrides and decodes the result.
// A missing file yields the defaults. Dotted keys address nested maps.
func Load(path string, overrides []string) (Run, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Run{}, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return Run{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			if raw == nil {
				raw = map[string]any{}
			}
		}
	}

	for _, o := range overrides {
		key, value, ok := strings.Cut(o, "=")
		if !ok || key == "" {
			return Run{}, fmt.Errorf("invalid override %q: want key=value", o)
		}
		setPath(raw, strings.Split(key, "."), scalar(value))
	}

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Run{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Run{}, fmt.Errorf("invalid config: %w", err)
	}
	switch cfg.Records {
	case RecordsMemory, RecordsFile, RecordsRedis:
	default:
		return Run{}, fmt.Errorf("invalid config: unknown records backend %q", cfg.Records)
	}
	return cfg, nil
}

// scalar types an override value the way YAML would, keeping anything
// that is not a plain scalar as text.
func scalar(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case bool, int, float64:
		return v
	}
	return s
}

func setPath(m map[string]any, keys []string, v any) {
	for _, k := range keys[:len(keys)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = v
}

// Package config loads the simulator's YAML configuration file.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML files can use strings like
// "250ms" or "10m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every runtime setting the simulator binary needs.
// Fields left out of the YAML file keep their defaults.
type Config struct {
	// Log controls the structured logger.
	Log LogConfig `yaml:"log"`

	// ListenAddr is the HTTP bind address for /metrics and /ws.
	ListenAddr string `yaml:"listen_addr"`

	// CatalogPath points at the structure prototype catalog.
	CatalogPath string `yaml:"catalog_path"`

	// ScenarioPath optionally points at a JSON scenario to load at
	// startup. Empty means start with an empty factory.
	ScenarioPath string `yaml:"scenario_path"`

	// Tick is the simulated time step per tick.
	Tick Duration `yaml:"tick"`

	// DayLength is the simulated solar day length.
	DayLength Duration `yaml:"day_length"`

	// Accelerated runs ticks back to back instead of pacing against
	// the wall clock.
	Accelerated bool `yaml:"accelerated"`

	// RunFor bounds the simulated run time. Zero runs forever.
	RunFor Duration `yaml:"run_for"`
}

// LogConfig mirrors the logging package's knobs.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:         LogConfig{Level: "info", Format: "text"},
		ListenAddr:  ":9090",
		CatalogPath: "configs/structures.yaml",
		Tick:        Duration(time.Second),
		DayLength:   Duration(10 * time.Minute),
	}
}

// Load reads YAML from r on top of the defaults. Unknown keys are an
// error so typos do not silently fall back to defaults.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if err == io.EOF {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg.validate()
}

// LoadFile reads the YAML config at path on top of the defaults.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (c Config) validate() (Config, error) {
	if c.Tick <= 0 {
		return Config{}, fmt.Errorf("tick must be positive, got %v", c.Tick.Std())
	}
	if c.DayLength <= 0 {
		return Config{}, fmt.Errorf("day_length must be positive, got %v", c.DayLength.Std())
	}
	if c.CatalogPath == "" {
		return Config{}, fmt.Errorf("catalog_path must be set")
	}
	return c, nil
}

// Package config loads runtime settings from an optional YAML file and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hexcity/internal/world"
)

// Config holds every tunable of a simulation run.
type Config struct {
	GridSize          int           `yaml:"grid_size"`
	People            int           `yaml:"people"`
	Buildings         int           `yaml:"buildings"`
	KillerProbability float64       `yaml:"killer_probability"`
	PoliceProbability float64       `yaml:"police_probability"`
	LifespanMin       int           `yaml:"lifespan_min"`
	LifespanMax       int           `yaml:"lifespan_max"`
	CoordinateSystem  string        `yaml:"coordinate_system"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	SnapshotInterval  uint64        `yaml:"snapshot_interval"` // ticks between checkpoints; 0 disables
	SnapshotPath      string        `yaml:"snapshot_path"`
	Seed              int64         `yaml:"seed"`
	APIPort           int           `yaml:"api_port"`
	AdminKey          string        `yaml:"admin_key"`
	LogLevel          string        `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		GridSize:          100,
		People:            100,
		Buildings:         0,
		KillerProbability: 0.05,
		PoliceProbability: 0.05,
		LifespanMin:       70,
		LifespanMax:       100,
		CoordinateSystem:  world.SystemOddR,
		TickInterval:      time.Second,
		SnapshotInterval:  50,
		SnapshotPath:      "data/citysim.db",
		Seed:              42,
		APIPort:           8080,
		LogLevel:          "info",
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decode(bytes.NewReader(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"GRID_SIZE":        &c.GridSize,
		"PEOPLE_AMOUNT":    &c.People,
		"BUILDINGS_AMOUNT": &c.Buildings,
		"LIFESPAN_MIN":     &c.LifespanMin,
		"LIFESPAN_MAX":     &c.LifespanMax,
		"API_PORT":         &c.APIPort,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"KILLER_PROBABILITY": &c.KillerProbability,
		"POLICE_PROBABILITY": &c.PoliceProbability,
	}
	for key, dst := range floats {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = f
		}
	}

	if v, ok := lookup("SNAPSHOT_INTERVAL"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("SNAPSHOT_INTERVAL: %w", err)
		}
		c.SnapshotInterval = n
	}
	if v, ok := lookup("SEED"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("SEED: %w", err)
		}
		c.Seed = n
	}
	if v, ok := lookup("TICK_INTERVAL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TICK_INTERVAL: %w", err)
		}
		c.TickInterval = d
	}

	strs := map[string]*string{
		"SNAPSHOT_PATH":         &c.SnapshotPath,
		"HEX_COORDINATE_SYSTEM": &c.CoordinateSystem,
		"CITYSIM_ADMIN_KEY":     &c.AdminKey,
		"LOG_LEVEL":             &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.GridSize <= 0 {
		errs = append(errs, fmt.Errorf("grid_size must be positive, got %d", c.GridSize))
	}
	if c.People < 0 || c.Buildings < 0 {
		errs = append(errs, fmt.Errorf("entity counts must not be negative (people %d, buildings %d)", c.People, c.Buildings))
	}
	if !unit(c.KillerProbability) || !unit(c.PoliceProbability) {
		errs = append(errs, fmt.Errorf("probabilities must be in [0,1] (killer %g, police %g)", c.KillerProbability, c.PoliceProbability))
	} else if c.KillerProbability+c.PoliceProbability > 1 {
		errs = append(errs, fmt.Errorf("killer and police probabilities sum above 1 (%g)", c.KillerProbability+c.PoliceProbability))
	}
	if c.LifespanMin < 0 || c.LifespanMin > c.LifespanMax {
		errs = append(errs, fmt.Errorf("invalid lifespan range [%d,%d]", c.LifespanMin, c.LifespanMax))
	}
	if c.TickInterval < 0 {
		errs = append(errs, fmt.Errorf("tick_interval must not be negative, got %s", c.TickInterval))
	}
	if _, err := world.ParseCoordinateSystem(c.CoordinateSystem); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func unit(p float64) bool { return p >= 0 && p <= 1 }

// Package config holds compiler options, loaded from qconv.toml.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up from the working directory
const FileName = "qconv.toml"

// HoistPolicy selects which names receive a bare declaration at the top of
// a unit
type HoistPolicy string

const (
	// HoistAliases hoists names whose first typed binding is an alias
	HoistAliases HoistPolicy = "aliases"
	// HoistRebound additionally hoists every name bound more than once
	HoistRebound HoistPolicy = "rebound"
)

// Config holds the options shared by every build
type Config struct {
	Hoisting      HoistPolicy `toml:"hoisting"`
	Version       string      `toml:"version"`
	IntWidth      int         `toml:"int_width"`
	QubitRegister string      `toml:"qubit_register"`
	StrictMeasure bool        `toml:"strict_measure"`
	MaxQubits     int         `toml:"max_qubits"`
	MaxVariables  int         `toml:"max_variables"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Hoisting:      HoistAliases,
		Version:       "3.0",
		IntWidth:      32,
		QubitRegister: "__qubits__",
		StrictMeasure: false,
		MaxQubits:     1 << 16,
		MaxVariables:  1 << 20,
	}
}

// Validate checks option ranges
func (c Config) Validate() error {
	switch c.Hoisting {
	case HoistAliases, HoistRebound:
	default:
		return fmt.Errorf("hoisting: unknown policy %q (want %q or %q)", c.Hoisting, HoistAliases, HoistRebound)
	}
	if c.IntWidth <= 0 {
		return fmt.Errorf("int_width: must be positive, got %d", c.IntWidth)
	}
	if c.QubitRegister == "" {
		return fmt.Errorf("qubit_register: must not be empty")
	}
	if c.MaxQubits < 0 || c.MaxVariables < 0 {
		return fmt.Errorf("max_qubits and max_variables must not be negative")
	}
	return nil
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults
func Parse(text string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Find walks up from startDir looking for qconv.toml
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !stderrors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Resolve loads the explicit path when given, otherwise the nearest
// qconv.toml above startDir, otherwise the defaults
func Resolve(explicit, startDir string) (Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

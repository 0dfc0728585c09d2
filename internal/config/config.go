// Package config loads the daemon's TOML configuration file.
//
// The shape mirrors the program this daemon was distilled from: a host
// and port to bind the UDP socket, a refresh interval governing flush
// cadence, and a backend table separating the ordered list of enabled
// backends from the map of all available ones.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so it can be read from a TOML string
// like "10s" or "90s" instead of a raw integer of nanoseconds.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler, which toml calls
// for any TOML string value assigned to this type.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// BackendKind names one of the two reference backend implementations.
type BackendKind string

const (
	BackendConsole    BackendKind = "console"
	BackendPostgreSQL BackendKind = "postgresql"
)

// BackendConfig is one entry of [backend.available.<name>].
type BackendConfig struct {
	Type BackendKind `toml:"type"`

	// PostgreSQL fields; ignored for Type == BackendConsole.
	Host     string `toml:"host"`
	Port     uint16 `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"db-name"`
}

// rawBackends is the literal TOML shape of the [backend] table.
type rawBackends struct {
	Enabled   []string                 `toml:"enabled"`
	Available map[string]BackendConfig `toml:"available"`
}

// Backends is rawBackends resolved and validated: every enabled name
// is known, and Enabled preserves declaration order for publish order.
type Backends struct {
	Enabled []NamedBackend
}

// NamedBackend pairs a backend's configured name with its settings.
type NamedBackend struct {
	Name   string
	Config BackendConfig
}

func (b *Backends) resolve(raw rawBackends) error {
	for _, name := range raw.Enabled {
		cfg, ok := raw.Available[name]
		if !ok {
			return fmt.Errorf("config: backend %q listed in enabled is not defined in available", name)
		}
		b.Enabled = append(b.Enabled, NamedBackend{Name: name, Config: cfg})
	}
	return nil
}

// Config is the daemon's full, validated runtime configuration.
type Config struct {
	Host            string
	Port            uint16
	RefreshInterval time.Duration
	Backends        Backends
}

// rawConfig is the literal TOML document shape, decoded before
// validation/resolution produces a Config.
type rawConfig struct {
	Host            string      `toml:"host"`
	Port            uint16      `toml:"port"`
	RefreshInterval Duration    `toml:"refresh-interval"`
	Backend         rawBackends `toml:"backend"`
}

// Load reads and validates the TOML file at path, then applies any
// METCOD_-prefixed environment overrides for host and port.
func Load(path string) (Config, error) {
	var raw rawConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Config{
		Host:            raw.Host,
		Port:            raw.Port,
		RefreshInterval: raw.RefreshInterval.Duration,
	}
	if err := cfg.Backends.resolve(raw.Backend); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// applyEnvOverrides mirrors the original program's METCO_ env prefix,
// renamed to METCOD_ for this rewrite, for the handful of scalar
// fields worth overriding without a full config reload.
func applyEnvOverrides(cfg *Config) {
	if host, ok := os.LookupEnv("METCOD_HOST"); ok {
		cfg.Host = host
	}
	if portStr, ok := os.LookupEnv("METCOD_PORT"); ok {
		if port, err := strconv.ParseUint(portStr, 10, 16); err == nil {
			cfg.Port = uint16(port)
		}
	}
}

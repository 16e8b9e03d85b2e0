// Package config loads hive's TOML configuration. The file is
// optional: a missing config yields the defaults, and every field can
// be omitted independently.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hive/pkg/protocol"
)

// fileConfig is the on-disk shape. Durations are expressed in units
// that read naturally in a config file: minutes for coordination
// timeouts, days for decay horizons.
type fileConfig struct {
	Reservation struct {
		TTLMinutes int `toml:"ttl_minutes"`
	} `toml:"reservation"`
	Agents struct {
		GoneThresholdMinutes int `toml:"gone_threshold_minutes"`
	} `toml:"agents"`
	Memory struct {
		DecayWindowDays   int     `toml:"decay_window_days"`
		DecayHalfLifeDays int     `toml:"decay_half_life_days"`
		UpsertTopK        int     `toml:"upsert_top_k"`
		FindLimit         int     `toml:"find_limit"`
		RRFK              float64 `toml:"rrf_k"`
	} `toml:"memory"`
}

// Config is the resolved runtime configuration.
type Config struct {
	ReservationTTL time.Duration
	GoneThreshold  time.Duration
	DecayWindow    time.Duration
	DecayHalfLife  time.Duration
	UpsertTopK     int
	FindLimit      int
	RRFK           float64
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ReservationTTL: protocol.DefaultReservationTTL,
		GoneThreshold:  protocol.DefaultGoneThreshold,
		DecayWindow:    protocol.DefaultDecayWindow,
		DecayHalfLife:  protocol.DefaultDecayHalfLife,
		UpsertTopK:     protocol.DefaultUpsertTopK,
		FindLimit:      protocol.DefaultFindLimit,
		RRFK:           protocol.DefaultRRFK,
	}
}

// Path returns the config file location: $HIVE_CONFIG if set,
// otherwise <home>/config.toml under the hive home directory.
func Path(home string) string {
	if p := os.Getenv("HIVE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(home, "config.toml")
}

// Load reads the config file at path, layering it over the defaults.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Reservation.TTLMinutes > 0 {
		cfg.ReservationTTL = time.Duration(fc.Reservation.TTLMinutes) * time.Minute
	}
	if fc.Agents.GoneThresholdMinutes > 0 {
		cfg.GoneThreshold = time.Duration(fc.Agents.GoneThresholdMinutes) * time.Minute
	}
	if fc.Memory.DecayWindowDays > 0 {
		cfg.DecayWindow = time.Duration(fc.Memory.DecayWindowDays) * 24 * time.Hour
	}
	if fc.Memory.DecayHalfLifeDays > 0 {
		cfg.DecayHalfLife = time.Duration(fc.Memory.DecayHalfLifeDays) * 24 * time.Hour
	}
	if fc.Memory.UpsertTopK > 0 {
		cfg.UpsertTopK = fc.Memory.UpsertTopK
	}
	if fc.Memory.FindLimit > 0 {
		cfg.FindLimit = fc.Memory.FindLimit
	}
	if fc.Memory.RRFK > 0 {
		cfg.RRFK = fc.Memory.RRFK
	}
	return cfg, nil
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hive/pkg/config"
	"hive/pkg/protocol"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != config.Default() {
		t.Fatalf("missing file config %+v, want defaults", cfg)
	}
}

func TestLoadPartialOverride(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[reservation]
ttl_minutes = 5

[memory]
upsert_top_k = 12
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ReservationTTL != 5*time.Minute {
		t.Fatalf("ttl %v, want 5m", cfg.ReservationTTL)
	}
	if cfg.UpsertTopK != 12 {
		t.Fatalf("top-k %d, want 12", cfg.UpsertTopK)
	}
	// Unset fields keep their defaults.
	if cfg.GoneThreshold != protocol.DefaultGoneThreshold {
		t.Fatalf("gone threshold %v changed without being set", cfg.GoneThreshold)
	}
	if cfg.DecayHalfLife != protocol.DefaultDecayHalfLife {
		t.Fatalf("half-life %v changed without being set", cfg.DecayHalfLife)
	}
}

func TestLoadFullOverride(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[reservation]
ttl_minutes = 30

[agents]
gone_threshold_minutes = 90

[memory]
decay_window_days = 14
decay_half_life_days = 28
upsert_top_k = 3
find_limit = 50
rrf_k = 30.0
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := config.Config{
		ReservationTTL: 30 * time.Minute,
		GoneThreshold:  90 * time.Minute,
		DecayWindow:    14 * 24 * time.Hour,
		DecayHalfLife:  28 * 24 * time.Hour,
		UpsertTopK:     3,
		FindLimit:      50,
		RRFK:           30.0,
	}
	if cfg != want {
		t.Fatalf("config %+v, want %+v", cfg, want)
	}
}

func TestLoadIgnoresNonPositiveValues(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[reservation]
ttl_minutes = 0

[memory]
find_limit = -3
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ReservationTTL != protocol.DefaultReservationTTL {
		t.Fatalf("zero ttl overrode the default: %v", cfg.ReservationTTL)
	}
	if cfg.FindLimit != protocol.DefaultFindLimit {
		t.Fatalf("negative limit overrode the default: %d", cfg.FindLimit)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `[reservation
ttl_minutes = "not closed"`)
	if _, err := config.Load(path); err == nil {
		t.Fatal("malformed config loaded without error")
	}
}

func TestPathHonorsEnvOverride(t *testing.T) {
	t.Setenv("HIVE_CONFIG", "/etc/hive/custom.toml")
	if got := config.Path("/home/x/.hive"); got != "/etc/hive/custom.toml" {
		t.Fatalf("path %q, want env override", got)
	}

	t.Setenv("HIVE_CONFIG", "")
	if got := config.Path("/home/x/.hive"); got != filepath.Join("/home/x/.hive", "config.toml") {
		t.Fatalf("path %q, want home-relative default", got)
	}
}

// Package envconf loads idle-timeout supervision settings from the process
// environment, with an optional .env file.
package envconf

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/netweave/netweave/idle"
)

// Environment variables recognized by Load.
const (
	EnvTimeoutEnabled = "NETWEAVE_TIMEOUT_ENABLED"
	EnvIdleTimeout    = "NETWEAVE_IDLE_TIMEOUT"
	EnvReapingCycle   = "NETWEAVE_REAPING_CYCLE"
)

// Load builds an idle.Config from the environment, starting from the
// defaults. A .env file in the working directory is read first if present;
// a missing file is not an error. The returned config is already validated.
func Load() (idle.Config, error) {
	_ = godotenv.Load()

	cfg := idle.DefaultConfig()

	if v := os.Getenv(EnvTimeoutEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return idle.Config{}, fmt.Errorf(
				"parsing %s: %w", EnvTimeoutEnabled, err)
		}

		cfg.Enabled = enabled
	}

	if v := os.Getenv(EnvIdleTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return idle.Config{}, fmt.Errorf(
				"parsing %s: %w", EnvIdleTimeout, err)
		}

		cfg.IdleTimeout = d
	}

	if v := os.Getenv(EnvReapingCycle); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return idle.Config{}, fmt.Errorf(
				"parsing %s: %w", EnvReapingCycle, err)
		}

		cfg.ReapingCycle = d
	}

	if err := cfg.Validate(); err != nil {
		return idle.Config{}, err
	}

	return cfg, nil
}

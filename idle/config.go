// Package idle implements idle-timeout supervision for connection
// pipelines. The stage it provides watches per-connection activity and
// closes connections that have been silent longer than a configured
// threshold.
package idle

import (
	"errors"
	"time"
)

// Config controls idle-timeout supervision for one connection. It is
// immutable after construction and supplied once, at stage build time.
//
// An IdleTimeout of zero or less means the connection never expires. The
// reaping trigger still runs in that case, so that a finite timeout set
// later through a SetIdleTimeoutCommand takes effect without re-registering
// the trigger.
type Config struct {
	Enabled      bool
	IdleTimeout  time.Duration
	ReapingCycle time.Duration
}

// DefaultConfig returns the default supervision settings: enabled, a 10
// second idle timeout, and a 10 millisecond reaping cycle.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		IdleTimeout:  10 * time.Second,
		ReapingCycle: 10 * time.Millisecond,
	}
}

// Validate rejects configurations that make periodic reaping meaningless.
// The stage itself performs no validation; callers must reject bad
// configurations before building the stage.
func (c Config) Validate() error {
	if c.Enabled && c.ReapingCycle <= 0 {
		return errors.New("reaping cycle must be positive when supervision is enabled")
	}

	return nil
}

// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	c := cfg.CCard

	// ------------------------------------------------------------
	// REGISTER
	// ------------------------------------------------------------

	r := c.Register
	switch r.Transport {
	case "", "tcp", "rtu":
	default:
		return fmt.Errorf("register: unsupported transport %q (want tcp or rtu)", r.Transport)
	}
	if r.Endpoint == "" {
		return fmt.Errorf("register: endpoint is required")
	}
	if r.TimeoutMs < 0 {
		return fmt.Errorf("register: timeout_ms must be >= 0, got %d", r.TimeoutMs)
	}
	if r.PollIntervalMs < 0 {
		return fmt.Errorf("register: poll_interval_ms must be >= 0, got %d", r.PollIntervalMs)
	}
	if r.Transport == "rtu" {
		switch r.Parity {
		case "", "N", "E", "O":
		default:
			return fmt.Errorf("register: parity must be N, E or O, got %q", r.Parity)
		}
		if r.BaudRate < 0 || r.DataBits < 0 || r.StopBits < 0 {
			return fmt.Errorf("register: serial line settings must be >= 0")
		}
	}
	if r.CommandAddress == 0xFFFF {
		return fmt.Errorf("register: command_address %d leaves no room for the two-word command", r.CommandAddress)
	}

	// ------------------------------------------------------------
	// DEPLOY
	// ------------------------------------------------------------

	if c.Deploy.DelaySeconds != nil && *c.Deploy.DelaySeconds < 0 {
		return fmt.Errorf("deploy: delay_seconds must be >= 0, got %d", *c.Deploy.DelaySeconds)
	}

	// ------------------------------------------------------------
	// IDLE
	// ------------------------------------------------------------

	if c.Idle.ThresholdSeconds < 0 {
		return fmt.Errorf("idle: threshold_seconds must be >= 0, got %d", c.Idle.ThresholdSeconds)
	}
	if c.Idle.CheckIntervalSeconds < 0 {
		return fmt.Errorf("idle: check_interval_seconds must be >= 0, got %d", c.Idle.CheckIntervalSeconds)
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log: %v", err)
		}
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log: rotation limits must be >= 0")
	}

	return nil
}

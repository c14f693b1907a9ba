// internal/config/normalize.go
package config

import (
	"time"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

// Defaults applied by Normalize.
const (
	DefaultTimeoutMs      = 1000
	DefaultPollIntervalMs = 100
	DefaultBaudRate       = 19200
	DefaultMarkerFile     = "/data/ccard/initDeploy"
	DefaultListen         = "127.0.0.1:50500"
	DefaultLogLevel       = "info"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	c := &cfg.CCard

	// ---- register ----
	if c.Register.Transport == "" {
		c.Register.Transport = "tcp"
	}
	if c.Register.TimeoutMs == 0 {
		c.Register.TimeoutMs = DefaultTimeoutMs
	}
	if c.Register.PollIntervalMs == 0 {
		c.Register.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.Register.Transport == "rtu" {
		if c.Register.BaudRate == 0 {
			c.Register.BaudRate = DefaultBaudRate
		}
		if c.Register.DataBits == 0 {
			c.Register.DataBits = 8
		}
		if c.Register.StopBits == 0 {
			c.Register.StopBits = 1
		}
		if c.Register.Parity == "" {
			c.Register.Parity = "E"
		}
	}

	// ---- deploy ----
	if c.Deploy.Enabled == nil {
		enabled := true
		c.Deploy.Enabled = &enabled
	}
	if c.Deploy.MarkerFile == "" {
		c.Deploy.MarkerFile = DefaultMarkerFile
	}
	if c.Deploy.DelayOverrideFile == "" {
		c.Deploy.DelayOverrideFile = dsa.DefaultDeployDelayFile
	}
	if c.Deploy.DelaySeconds == nil {
		secs := int(dsa.InitialDeployDelay / time.Second)
		c.Deploy.DelaySeconds = &secs
	}

	// ---- idle ----
	if c.Idle.DisableFile == "" {
		c.Idle.DisableFile = dsa.DefaultIdleDisableFile
	}
	if c.Idle.ThresholdSeconds == 0 {
		c.Idle.ThresholdSeconds = int(dsa.IdleThreshold / time.Second)
	}
	if c.Idle.CheckIntervalSeconds == 0 {
		c.Idle.CheckIntervalSeconds = int(dsa.IdleCheckInterval / time.Second)
	}

	// ---- command ----
	if c.Command.Listen == "" {
		c.Command.Listen = DefaultListen
	}

	// ---- log ----
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.File != "" {
		if c.Log.MaxSizeMB == 0 {
			c.Log.MaxSizeMB = 10
		}
		if c.Log.MaxBackups == 0 {
			c.Log.MaxBackups = 3
		}
	}
}

// ---- derived durations (valid after Normalize) ----

func (r RegisterConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

func (r RegisterConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalMs) * time.Millisecond
}

func (d DeployConfig) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

func (d DeployConfig) Delay() time.Duration {
	if d.DelaySeconds == nil {
		return dsa.InitialDeployDelay
	}
	return time.Duration(*d.DelaySeconds) * time.Second
}

func (i IdleConfig) Threshold() time.Duration {
	return time.Duration(i.ThresholdSeconds) * time.Second
}

func (i IdleConfig) CheckInterval() time.Duration {
	return time.Duration(i.CheckIntervalSeconds) * time.Second
}

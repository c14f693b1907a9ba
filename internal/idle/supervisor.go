// internal/idle/supervisor.go
package idle

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

// Mode is the card's activity mode.
type Mode int

const (
	Active Mode = iota
	Idle
)

func (m Mode) String() string {
	if m == Idle {
		return "idle"
	}
	return "active"
}

// State is the supervisor's view of card activity.
type State struct {
	Mode         Mode
	LastActivity time.Time
	Disabled     bool
}

// StatusSource reports per-appendage progress without blocking.
type StatusSource interface {
	Status(id dsa.AppendageID) (dsa.StatusRegister, dsa.OperationStatus)
}

// Config is the runtime config of the supervisor.
type Config struct {
	Threshold   time.Duration
	Interval    time.Duration
	DisableFile string

	// Hooks run with the supervisor lock released.
	OnIdle   func()
	OnActive func()

	Log logrus.FieldLogger
}

// Supervisor moves the card into idle mode after prolonged command
// inactivity and back out on the next accepted command.
// State is not persisted; it starts Active on every boot.
type Supervisor struct {
	cfg    Config
	status StatusSource
	log    logrus.FieldLogger

	mu       sync.Mutex
	mode     Mode
	last     time.Time
	disabled bool
}

// New creates a supervisor whose inactivity clock starts at now.
func New(cfg Config, status StatusSource, now time.Time) (*Supervisor, error) {
	if cfg.Threshold <= 0 {
		return nil, errors.New("idle: threshold must be > 0")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("idle: interval must be > 0")
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Supervisor{
		cfg:    cfg,
		status: status,
		log:    log,
		mode:   Active,
		last:   now,
	}, nil
}

// Touch records accepted command activity at now.
func (s *Supervisor) Touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.last) {
		s.last = now
	}
	wasIdle := s.mode == Idle
	s.mode = Active
	s.mu.Unlock()

	if wasIdle {
		s.log.Info("command activity, leaving idle mode")
		if s.cfg.OnActive != nil {
			s.cfg.OnActive()
		}
	}
}

// Check evaluates inactivity at now and returns the resulting mode.
//
// Once the disable sentinel has been seen every later check is a no-op.
// While any appendage operation is in progress the check is deferred.
func (s *Supervisor) Check(now time.Time) Mode {
	s.mu.Lock()

	if !s.disabled && s.cfg.DisableFile != "" && exists(s.cfg.DisableFile) {
		s.disabled = true
		s.log.WithField("file", s.cfg.DisableFile).Info("idle mode disabled for this boot")
	}
	if s.disabled || s.mode == Idle {
		m := s.mode
		s.mu.Unlock()
		return m
	}

	if s.operationInProgress() {
		s.mu.Unlock()
		s.log.Debug("appendage operation in progress, deferring idle check")
		return Active
	}

	elapsed := now.Sub(s.last)
	if elapsed < s.cfg.Threshold {
		s.mu.Unlock()
		return Active
	}

	s.mode = Idle
	s.mu.Unlock()

	s.log.WithField("inactive", elapsed.Truncate(time.Second)).Info("no command activity, entering idle mode")
	if s.cfg.OnIdle != nil {
		s.cfg.OnIdle()
	}
	return Idle
}

// State returns a copy of the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Mode: s.mode, LastActivity: s.last, Disabled: s.disabled}
}

// Run checks every Interval until ctx is done. No overlap: one check per tick.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Check(now)
		}
	}
}

func (s *Supervisor) operationInProgress() bool {
	if s.status == nil {
		return false
	}
	for _, id := range dsa.Appendages {
		if _, op := s.status.Status(id); op == dsa.StatusInProgress {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// internal/dsa/controller.go
package dsa

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Register abstracts the physical actuator command/status channel.
// The controller depends on these two primitives only.
type Register interface {
	ReadStatus() (uint16, error)
	WriteCommand(word uint32) error
}

// Config is the minimal runtime config the controller needs.
type Config struct {
	// PollInterval is how often the status register is re-read while
	// waiting for a command to be confirmed.
	PollInterval time.Duration
	Log          logrus.FieldLogger
}

// Controller is the sole owner of the actuator register.
// Every Execute is serialized; Status never blocks.
type Controller struct {
	mu   sync.Mutex
	reg  Register
	poll time.Duration
	log  logrus.FieldLogger

	// last observed raw status bits
	snapshot atomic.Uint32
	// in-flight flags indexed by AppendageID
	busy [DSA2 + 1]atomic.Bool
}

// NewController creates a controller over reg.
func NewController(reg Register, cfg Config) (*Controller, error) {
	if reg == nil {
		return nil, errors.New("dsa: register required")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("dsa: poll interval must be > 0")
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{reg: reg, poll: cfg.PollInterval, log: log}, nil
}

// Execute issues cmd for id and blocks until the register confirms it or
// timeout elapses.
//
//   - StatusOk: expected bit state observed (Released, Deployed, or both
//     cleared for Reset).
//   - StatusTimedOut: not confirmed in time.
//   - StatusDeviceAccessError: register I/O failed.
//   - StatusInvalidInput: bad id/command/timeout, or Deploy requested for an
//     appendage that is not released. The register is not touched.
//
// A second caller blocks until the first completes.
func (c *Controller) Execute(id AppendageID, cmd Command, timeout time.Duration) OperationStatus {
	if !id.Valid() || !cmd.Valid() || timeout <= 0 {
		return StatusInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.busy[id].Store(true)
	defer c.busy[id].Store(false)

	log := c.log.WithFields(logrus.Fields{"dsa": id.String(), "cmd": cmd.String()})

	if cmd == Deploy {
		r, err := c.read()
		if err != nil {
			log.WithError(err).Error("status read failed before deploy")
			return StatusDeviceAccessError
		}
		if !r.Released(id) {
			log.Error("deploy refused: appendage not released")
			return StatusInvalidInput
		}
	}

	if err := c.reg.WriteCommand(EncodeCommand(id, cmd)); err != nil {
		log.WithError(err).Error("command write failed")
		return StatusDeviceAccessError
	}
	log.WithField("timeout", timeout).Debug("command issued")

	deadline := time.Now().Add(timeout)
	for {
		r, err := c.read()
		if err != nil {
			log.WithError(err).Error("status read failed")
			return StatusDeviceAccessError
		}
		if r.confirms(id, cmd) {
			log.Debug("command confirmed")
			return StatusOk
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Warn("command not confirmed before timeout")
			return StatusTimedOut
		}
		time.Sleep(min(c.poll, remaining))
	}
}

// Status returns the last observed register bits and whether an operation
// for id is currently in flight (StatusInProgress) or not (StatusOk).
// It does not touch the hardware.
func (c *Controller) Status(id AppendageID) (StatusRegister, OperationStatus) {
	r := DecodeStatus(uint16(c.snapshot.Load()))
	if !id.Valid() {
		return r, StatusInvalidInput
	}
	if c.busy[id].Load() {
		return r, StatusInProgress
	}
	return r, StatusOk
}

// Busy reports whether any appendage has an operation in flight.
func (c *Controller) Busy() bool {
	for _, id := range Appendages {
		if c.busy[id].Load() {
			return true
		}
	}
	return false
}

// Refresh reads the register under the channel lock and updates the
// snapshot. It waits behind any in-flight Execute.
func (c *Controller) Refresh() (StatusRegister, OperationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.read()
	if err != nil {
		c.log.WithError(err).Error("status refresh failed")
		return DecodeStatus(uint16(c.snapshot.Load())), StatusDeviceAccessError
	}
	return r, StatusOk
}

// Current reads the register when the channel is free and returns the
// last snapshot with StatusInProgress when it is not. It never waits
// behind an Execute.
func (c *Controller) Current() (StatusRegister, OperationStatus) {
	if !c.mu.TryLock() {
		return DecodeStatus(uint16(c.snapshot.Load())), StatusInProgress
	}
	defer c.mu.Unlock()

	r, err := c.read()
	if err != nil {
		c.log.WithError(err).Warn("status read failed, reporting last snapshot")
		return DecodeStatus(uint16(c.snapshot.Load())), StatusDeviceAccessError
	}
	return r, StatusOk
}

// read must be called with mu held.
func (c *Controller) read() (StatusRegister, error) {
	raw, err := c.reg.ReadStatus()
	if err != nil {
		return StatusRegister{}, err
	}
	r := DecodeStatus(raw)
	if !r.Consistent() {
		c.log.WithField("raw", raw).Warn("status register shows deployed without release")
	}
	c.snapshot.Store(uint32(r.Encode()))
	return r, nil
}

// internal/deploy/sequencer.go
package deploy

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

// Controller is the only primitive the sequencer needs from the actuator.
type Controller interface {
	Execute(id dsa.AppendageID, cmd dsa.Command, timeout time.Duration) dsa.OperationStatus
}

// Timings holds every ceiling the sequence uses.
// Production always uses DefaultTimings; tests shrink it.
type Timings struct {
	ReleaseTimeout          time.Duration
	ReleaseWait             time.Duration
	EmergencyReleaseTimeout time.Duration
	DeployTimeout           time.Duration
	OpWait                  time.Duration
}

// DefaultTimings returns the flight values.
func DefaultTimings() Timings {
	return Timings{
		ReleaseTimeout:          dsa.ReleaseTimeout,
		ReleaseWait:             dsa.ReleaseWait,
		EmergencyReleaseTimeout: dsa.EmergencyReleaseTimeout,
		DeployTimeout:           dsa.DeployTimeout,
		OpWait:                  dsa.OpWait,
	}
}

// WorstCase is the longest a single Run can block with these timings.
func (t Timings) WorstCase() time.Duration {
	perAppendage := t.ReleaseTimeout + t.ReleaseWait + t.ReleaseTimeout + t.EmergencyReleaseTimeout +
		t.OpWait + t.DeployTimeout + t.OpWait
	return time.Duration(len(dsa.Appendages)) * perAppendage
}

// AppendageResult records what happened to one appendage.
type AppendageResult struct {
	ID              dsa.AppendageID
	Release         dsa.OperationStatus
	ReleaseAttempts int
	Emergency       bool
	Deploy          dsa.OperationStatus
	// DeploySkipped is set when release never succeeded.
	DeploySkipped bool
	// Attempted is false when an earlier abort prevented any command.
	Attempted bool
}

// Ok reports whether the appendage was released and deployed.
func (r AppendageResult) Ok() bool {
	return r.Attempted && r.Release == dsa.StatusOk && r.Deploy == dsa.StatusOk && !r.DeploySkipped
}

// Report is the result of one full sequence.
type Report struct {
	Status     dsa.OperationStatus
	Appendages []AppendageResult
	Aborted    bool
	Elapsed    time.Duration
}

// Sequencer runs the initial release/deploy algorithm over both
// appendages. Run blocks for its whole duration and cannot be cancelled;
// it is bounded by Timings.WorstCase.
type Sequencer struct {
	ctrl  Controller
	t     Timings
	log   logrus.FieldLogger
	sleep func(time.Duration)
	now   func() time.Time
	act   Activity
}

// Activity receives command activity so the card stays out of idle mode
// while the sequence drives the actuators.
type Activity interface {
	Touch(now time.Time)
}

// Option customizes a Sequencer.
type Option func(*Sequencer)

// WithTimings replaces DefaultTimings.
func WithTimings(t Timings) Option {
	return func(s *Sequencer) { s.t = t }
}

// WithSleep replaces time.Sleep for pacing and retry waits.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Sequencer) { s.sleep = fn }
}

// WithActivity reports the start and end of every run to a.
func WithActivity(a Activity) Option {
	return func(s *Sequencer) { s.act = a }
}

// NewSequencer creates a sequencer over ctrl.
func NewSequencer(ctrl Controller, log logrus.FieldLogger, opts ...Option) *Sequencer {
	s := &Sequencer{
		ctrl:  ctrl,
		t:     DefaultTimings(),
		log:   log,
		sleep: time.Sleep,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Execute runs the sequence and returns only the aggregate status.
func (s *Sequencer) Execute() dsa.OperationStatus {
	return s.Run().Status
}

// Run processes DSA_1 then DSA_2:
//
//  1. release (ReleaseTimeout); on timeout wait ReleaseWait and retry once;
//     on timeout again one emergency release (EmergencyReleaseTimeout).
//     Exhausted: the appendage is errored and its deploy skipped.
//  2. OpWait
//  3. deploy (DeployTimeout); a timeout is recorded, not fatal.
//  4. OpWait
//
// Any hard error (device access, invalid input, general) aborts at once
// and no further commands are issued.
func (s *Sequencer) Run() Report {
	start := s.now()
	s.touch(start)
	rep := Report{Status: dsa.StatusOk}
	for _, id := range dsa.Appendages {
		rep.Appendages = append(rep.Appendages, AppendageResult{ID: id})
	}

	for i, id := range dsa.Appendages {
		res := &rep.Appendages[i]
		res.Attempted = true
		log := s.log.WithField("dsa", id.String())

		res.Release = s.release(id, res, log)
		if res.Release.IsHardError() {
			log.WithField("status", res.Release).Error("release failed, aborting sequence")
			rep.Status = res.Release
			rep.Aborted = true
			break
		}

		if res.Release != dsa.StatusOk {
			log.Error("release attempts exhausted, skipping deploy")
			res.DeploySkipped = true
			rep.Status = dsa.Worse(rep.Status, dsa.StatusTimedOut)
			s.sleep(s.t.OpWait)
			continue
		}

		s.sleep(s.t.OpWait)

		res.Deploy = s.ctrl.Execute(id, dsa.Deploy, s.t.DeployTimeout)
		switch {
		case res.Deploy == dsa.StatusOk:
			log.Info("deployed")
		case res.Deploy.IsHardError():
			log.WithField("status", res.Deploy).Error("deploy failed, aborting sequence")
			rep.Status = res.Deploy
			rep.Aborted = true
		default:
			log.WithField("status", res.Deploy).Warn("deploy not confirmed")
			rep.Status = dsa.Worse(rep.Status, dsa.StatusTimedOut)
		}
		if rep.Aborted {
			break
		}

		s.sleep(s.t.OpWait)
	}

	end := s.now()
	s.touch(end)
	rep.Elapsed = end.Sub(start)
	return rep
}

func (s *Sequencer) touch(now time.Time) {
	if s.act != nil {
		s.act.Touch(now)
	}
}

// release runs the bounded release escalation for one appendage.
func (s *Sequencer) release(id dsa.AppendageID, res *AppendageResult, log logrus.FieldLogger) dsa.OperationStatus {
	res.ReleaseAttempts++
	st := s.ctrl.Execute(id, dsa.Release, s.t.ReleaseTimeout)
	if st != dsa.StatusTimedOut {
		return st
	}

	log.WithField("wait", s.t.ReleaseWait).Warn("release timed out, retrying")
	s.sleep(s.t.ReleaseWait)

	res.ReleaseAttempts++
	st = s.ctrl.Execute(id, dsa.Release, s.t.ReleaseTimeout)
	if st != dsa.StatusTimedOut {
		return st
	}

	log.WithField("timeout", s.t.EmergencyReleaseTimeout).Warn("release retry timed out, attempting emergency release")
	res.ReleaseAttempts++
	res.Emergency = true
	return s.ctrl.Execute(id, dsa.Release, s.t.EmergencyReleaseTimeout)
}

// internal/deploy/deployer.go
package deploy

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

// markerContent is the single flag byte written to the marker file.
const markerContent = "1"

// Outcome is the audit classification of one initial deployment.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartialTimeout
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialTimeout:
		return "partial-timeout"
	default:
		return "error"
	}
}

// OutcomeOf maps an aggregate status onto an audit outcome.
func OutcomeOf(st dsa.OperationStatus) Outcome {
	switch st {
	case dsa.StatusOk:
		return OutcomeSuccess
	case dsa.StatusTimedOut:
		return OutcomePartialTimeout
	default:
		return OutcomeError
	}
}

// Scheduler runs fn once after delay on a worker it owns.
type Scheduler interface {
	After(name string, delay time.Duration, fn func()) bool
}

// InitialDeployer performs the one-shot deployment after first power-on.
//
// The marker file is written when the deployer is built, before the
// sequence runs, so its presence means "attempted", not "succeeded".
// It is audit state only and never guards a run.
type InitialDeployer struct {
	seq       *Sequencer
	log       logrus.FieldLogger
	marker    string
	markerErr error
}

// NewInitialDeployer builds the deployer and writes the marker file.
// A marker write failure is logged and otherwise ignored.
func NewInitialDeployer(ctrl Controller, markerPath string, log logrus.FieldLogger, opts ...Option) *InitialDeployer {
	d := &InitialDeployer{
		seq:    NewSequencer(ctrl, log, opts...),
		log:    log,
		marker: markerPath,
	}

	d.markerErr = writeMarker(markerPath)
	if d.markerErr != nil {
		log.WithError(d.markerErr).WithField("marker", markerPath).Error("unable to create deploy marker")
	} else {
		log.WithField("marker", markerPath).Info("created deploy marker to record initial deployment attempt")
	}
	return d
}

func writeMarker(path string) error {
	if path == "" {
		return errors.New("deploy: marker path empty")
	}
	if err := os.WriteFile(path, []byte(markerContent), 0o644); err != nil {
		return errors.Wrap(err, "deploy: write marker")
	}
	return nil
}

// MarkerErr returns the marker write error, if any.
func (d *InitialDeployer) MarkerErr() error {
	return d.markerErr
}

// Run executes the full sequence synchronously and logs its outcome.
// It blocks for up to Timings.WorstCase and must not run on an event loop.
func (d *InitialDeployer) Run() Outcome {
	d.log.WithField("worst_case", d.seq.t.WorstCase()).Info("performing initial deployment")

	rep := d.seq.Run()
	out := OutcomeOf(rep.Status)

	log := d.log.WithFields(logrus.Fields{
		"status":  rep.Status.String(),
		"outcome": out.String(),
		"elapsed": rep.Elapsed,
	})
	for _, a := range rep.Appendages {
		log = log.WithField(a.ID.String(), appendageSummary(a))
	}

	switch out {
	case OutcomeSuccess:
		log.Info("DSA release/deploy successful")
	case OutcomePartialTimeout:
		log.Warn("DSA release/deploy did not complete")
	default:
		log.Error("DSA release/deploy errored")
	}
	return out
}

// Schedule hands Run to s after delay. The result is only logged.
func (d *InitialDeployer) Schedule(s Scheduler, delay time.Duration) bool {
	return s.After("initial-deploy", delay, func() { d.Run() })
}

func appendageSummary(a AppendageResult) string {
	switch {
	case !a.Attempted:
		return "not-attempted"
	case a.DeploySkipped:
		return "release-failed"
	case a.Ok():
		return "deployed"
	case a.Release != dsa.StatusOk:
		return "release-" + a.Release.String()
	default:
		return "deploy-" + a.Deploy.String()
	}
}

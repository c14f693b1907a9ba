// cmd/ccard/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/ccard-deploy/internal/command"
	"github.com/tamzrod/ccard-deploy/internal/config"
	"github.com/tamzrod/ccard-deploy/internal/deploy"
	"github.com/tamzrod/ccard-deploy/internal/dsa"
	dsamodbus "github.com/tamzrod/ccard-deploy/internal/dsa/modbus"
	"github.com/tamzrod/ccard-deploy/internal/idle"
	"github.com/tamzrod/ccard-deploy/internal/logging"
	"github.com/tamzrod/ccard-deploy/internal/task"
)

var (
	flagConfig   = flag.String("config", "/etc/ccard/ccard.yaml", "Path to the C Card config file")
	flagLogDebug = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log := logging.New("main")

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}
	if err := config.Validate(cfg); err != nil {
		log.WithError(err).Fatal("config validation failed")
	}
	config.Normalize(cfg)
	c := cfg.CCard

	logging.Set(logging.Level(c.Log.Level))
	if *flagLogDebug {
		logging.Set(logging.Level("debug"))
	}
	logging.Set(logging.File(c.Log.File, c.Log.MaxSizeMB, c.Log.MaxBackups))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c); err != nil {
		log.WithError(err).Error("stopped")
		os.Exit(1)
	}
	log.Info("clean shutdown")
}

// daemon holds the wired components of one boot.
type daemon struct {
	reg  *dsamodbus.Client
	ctrl *dsa.Controller
	sup  *idle.Supervisor
	exec *task.Executor
	srv  *command.Server
}

func run(ctx context.Context, c config.CCardConfig) error {
	log := logging.New("main")

	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.reg.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.sup.Run(gctx) })
	g.Go(func() error { return d.srv.Serve(gctx) })

	err = g.Wait()

	// A deployment that already started always runs to completion.
	d.exec.Stop()
	if d.exec.Pending() > 0 {
		log.Warn("waiting for running deployment to finish")
	}
	d.exec.Wait()

	return err
}

// setup builds every component and schedules the initial deployment.
// The actuator board is not contacted here.
func setup(c config.CCardConfig) (*daemon, error) {
	log := logging.New("main")

	// --------------------
	// Actuator register + controller (the single shared handle)
	// --------------------

	reg, err := dsamodbus.New(dsamodbus.Config{
		Transport:      c.Register.Transport,
		Endpoint:       c.Register.Endpoint,
		UnitID:         c.Register.UnitID,
		Timeout:        c.Register.Timeout(),
		BaudRate:       c.Register.BaudRate,
		DataBits:       c.Register.DataBits,
		StopBits:       c.Register.StopBits,
		Parity:         c.Register.Parity,
		CommandAddress: c.Register.CommandAddress,
		StatusAddress:  c.Register.StatusAddress,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "register setup")
	}

	ctrl, err := dsa.NewController(reg, dsa.Config{
		PollInterval: c.Register.PollInterval(),
		Log:          logging.New("dsa"),
	})
	if err != nil {
		reg.Close()
		return nil, errors.WithMessage(err, "controller setup")
	}

	// --------------------
	// Idle supervisor
	// --------------------

	idleLog := logging.New("idle")
	sup, err := idle.New(idle.Config{
		Threshold:   c.Idle.Threshold(),
		Interval:    c.Idle.CheckInterval(),
		DisableFile: c.Idle.DisableFile,
		OnIdle:      func() { idleLog.Info("card in idle mode") },
		OnActive:    func() { idleLog.Info("card in active mode") },
		Log:         idleLog,
	}, ctrl, time.Now())
	if err != nil {
		reg.Close()
		return nil, errors.WithMessage(err, "idle supervisor setup")
	}

	// --------------------
	// Initial deployment (one-shot, detached worker owned by the executor)
	// --------------------

	exec := task.NewExecutor(logging.New("task"))
	if c.Deploy.IsEnabled() {
		delay, derr := config.DeployDelay(c.Deploy.DelayOverrideFile, c.Deploy.Delay())
		if derr != nil {
			log.WithError(derr).WithField("delay", delay).Warn("ignoring deploy delay override")
		}

		dlog := logging.New("deploy")
		d := deploy.NewInitialDeployer(ctrl, c.Deploy.MarkerFile, dlog, deploy.WithActivity(sup))
		d.Schedule(exec, delay)
		dlog.WithFields(logrus.Fields{
			"delay":      delay,
			"worst_case": dsa.WorstCaseSequence,
		}).Info("initial deployment scheduled")
	} else {
		log.Info("initial deployment disabled for this boot")
	}

	// --------------------
	// Query channel
	// --------------------

	srv, err := command.Listen(c.Command.Listen, ctrl, sup, logging.New("command"))
	if err != nil {
		exec.Stop()
		reg.Close()
		return nil, errors.WithMessage(err, "query channel setup")
	}

	return &daemon{reg: reg, ctrl: ctrl, sup: sup, exec: exec, srv: srv}, nil
}

// internal/command/server.go
package command

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

// Controller is what the query channel needs from the actuator controller.
type Controller interface {
	Execute(id dsa.AppendageID, cmd dsa.Command, timeout time.Duration) dsa.OperationStatus
	Status(id dsa.AppendageID) (dsa.StatusRegister, dsa.OperationStatus)
	Current() (dsa.StatusRegister, dsa.OperationStatus)
	Busy() bool
}

// Activity receives accepted command activity.
type Activity interface {
	Touch(now time.Time)
}

// Server answers the command/status query channel over UDP.
// The receive loop never blocks on the actuator: a manual DSA command runs
// on its own goroutine, at most one at a time, and is refused with
// InProgress while the actuators are busy.
type Server struct {
	conn net.PacketConn
	ctrl Controller
	act  Activity
	log  logrus.FieldLogger

	manual atomic.Bool
	wg     sync.WaitGroup
}

// Listen binds the query channel on addr.
func Listen(addr string, ctrl Controller, act Activity, log logrus.FieldLogger) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("command: controller required")
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "command: listen %s", addr)
	}
	return &Server{conn: conn, ctrl: ctrl, act: act, log: log}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve handles requests until ctx is done. In-flight manual commands are
// allowed to finish before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		s.conn.Close()
	}()

	s.log.WithField("addr", s.Addr().String()).Info("query channel listening")

	buf := make([]byte, maxPacket)
	for {
		n, src, err := s.conn.ReadFrom(buf)
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "command: read")
		}

		pkt := append([]byte(nil), buf[:n]...)
		s.handle(pkt, src)
	}
}

func (s *Server) handle(pkt []byte, src net.Addr) {
	log := s.log.WithField("src", src.String())

	req, err := DecodeRequest(pkt)
	if err != nil {
		reason := ReasonMalformed
		if errors.Is(err, ErrUnknownCommand) {
			reason = ReasonUnknownCommand
		}
		log.WithError(err).Warn("rejected request")
		s.reply(src, Response{Code: RespError, Reason: reason})
		return
	}

	switch req.Code {
	case CmdStatusRequest:
		// Watchdog liveness probe; not command activity.
		s.reply(src, Response{Code: RespStatus, Alive: true})

	case CmdDsaStatus:
		s.touch()
		reg, op := s.ctrl.Current()
		busy := op == dsa.StatusInProgress || s.ctrl.Busy()
		s.reply(src, Response{Code: RespDsaStatus, Register: reg, Busy: busy})

	case CmdDsaCommand:
		s.touch()
		timeout, ok := commandTimeout(req)
		if !ok {
			log.WithField("timeout", req.Timeout).Warn("manual command timeout out of range")
			s.reply(src, Response{Code: RespDsaCommand, Status: dsa.StatusInvalidInput})
			return
		}

		log = log.WithFields(logrus.Fields{"dsa": req.Appendage.String(), "cmd": req.Command.String()})
		if s.ctrl.Busy() || !s.manual.CompareAndSwap(false, true) {
			log.Warn("manual command refused, actuator operation in progress")
			s.reply(src, Response{Code: RespDsaCommand, Status: dsa.StatusInProgress})
			return
		}
		log.Info("manual command accepted")

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			st := s.ctrl.Execute(req.Appendage, req.Command, timeout)
			s.manual.Store(false)
			s.touch()
			log.WithField("status", st.String()).Info("manual command finished")
			s.reply(src, Response{Code: RespDsaCommand, Status: st})
		}()
	}
}

// commandTimeout resolves the effective timeout of a manual command.
func commandTimeout(req Request) (time.Duration, bool) {
	if req.Timeout == 0 {
		switch req.Command {
		case dsa.Deploy:
			return dsa.DeployTimeout, true
		default:
			return dsa.ReleaseTimeout, true
		}
	}
	return req.Timeout, req.Timeout <= dsa.MaxCommandTimeout
}

func (s *Server) touch() {
	if s.act != nil {
		s.act.Touch(time.Now())
	}
}

func (s *Server) reply(dst net.Addr, r Response) {
	if _, err := s.conn.WriteTo(EncodeResponse(r), dst); err != nil {
		s.log.WithError(err).WithField("dst", dst.String()).Warn("reply failed")
	}
}

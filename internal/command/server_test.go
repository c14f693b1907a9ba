package command

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

// ---- fakes ----

type fakeController struct {
	mu      sync.Mutex
	calls   []dsa.Command
	timeout time.Duration
	result  dsa.OperationStatus
	reg     dsa.StatusRegister
	busy    bool

	// started is signalled and gate awaited by Execute when set
	started chan struct{}
	gate    chan struct{}
}

func (f *fakeController) Execute(id dsa.AppendageID, cmd dsa.Command, timeout time.Duration) dsa.OperationStatus {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !id.Valid() {
		return dsa.StatusInvalidInput
	}
	f.calls = append(f.calls, cmd)
	f.timeout = timeout
	return f.result
}

func (f *fakeController) Status(id dsa.AppendageID) (dsa.StatusRegister, dsa.OperationStatus) {
	return f.reg, dsa.StatusOk
}

func (f *fakeController) Current() (dsa.StatusRegister, dsa.OperationStatus) {
	return f.reg, dsa.StatusOk
}

func (f *fakeController) Busy() bool { return f.busy }

// presetRegister holds fixed status bits and accepts any command.
type presetRegister struct{ raw uint16 }

func (r *presetRegister) ReadStatus() (uint16, error) { return r.raw, nil }
func (r *presetRegister) WriteCommand(uint32) error { return nil }

type fakeActivity struct{ n atomic.Int32 }

func (f *fakeActivity) Touch(time.Time) { f.n.Add(1) }

// ---- helpers ----

func startServer(t *testing.T, ctrl Controller, act Activity) (*Client, func()) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	srv, err := Listen("127.0.0.1:0", ctrl, act, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cli, err := NewClient(ClientConfig{Endpoint: srv.Addr().String(), Timeout: time.Second})
	require.NoError(t, err)

	return cli, func() {
		cancel()
		assert.NoError(t, <-done)
	}
}

// ---- tests ----

func TestServer_Ping(t *testing.T) {
	act := &fakeActivity{}
	cli, stop := startServer(t, &fakeController{}, act)
	defer stop()

	require.NoError(t, cli.Ping())
	assert.Equal(t, int32(0), act.n.Load(), "liveness probes are not command activity")
}

func TestServer_DsaStatus(t *testing.T) {
	ctrl := &fakeController{reg: dsa.StatusRegister{DSA1Released: true}, busy: true}
	act := &fakeActivity{}
	cli, stop := startServer(t, ctrl, act)
	defer stop()

	reg, busy, err := cli.DsaStatus()
	require.NoError(t, err)
	assert.True(t, reg.DSA1Released)
	assert.False(t, reg.DSA2Released)
	assert.True(t, busy)
	assert.Equal(t, int32(1), act.n.Load())
}

func TestServer_DsaStatusReadsHardwareAfterRestart(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ctrl, err := dsa.NewController(&presetRegister{raw: 0x0F}, dsa.Config{PollInterval: time.Millisecond, Log: log})
	require.NoError(t, err)

	cli, stop := startServer(t, ctrl, nil)
	defer stop()

	reg, busy, err := cli.DsaStatus()
	require.NoError(t, err)
	assert.Equal(t, dsa.StatusRegister{DSA1Released: true, DSA1Deployed: true, DSA2Released: true, DSA2Deployed: true}, reg)
	assert.False(t, busy)
}

func TestServer_DsaCommandRefusedWhileBusy(t *testing.T) {
	ctrl := &fakeController{busy: true}
	cli, stop := startServer(t, ctrl, nil)
	defer stop()

	st, err := cli.DsaCommand(dsa.DSA1, dsa.Release, 0)
	require.NoError(t, err)
	assert.Equal(t, dsa.StatusInProgress, st)

	ctrl.mu.Lock()
	assert.Empty(t, ctrl.calls)
	ctrl.mu.Unlock()
}

func TestServer_OneManualCommandAtATime(t *testing.T) {
	ctrl := &fakeController{started: make(chan struct{}, 1), gate: make(chan struct{})}
	cli, stop := startServer(t, ctrl, nil)
	defer stop()

	first := make(chan dsa.OperationStatus, 1)
	go func() {
		st, _ := cli.DsaCommand(dsa.DSA1, dsa.Release, time.Second)
		first <- st
	}()
	<-ctrl.started

	st, err := cli.DsaCommand(dsa.DSA2, dsa.Release, time.Second)
	require.NoError(t, err)
	assert.Equal(t, dsa.StatusInProgress, st)

	close(ctrl.gate)
	assert.Equal(t, dsa.StatusOk, <-first)

	ctrl.mu.Lock()
	assert.Equal(t, []dsa.Command{dsa.Release}, ctrl.calls)
	ctrl.mu.Unlock()

	// the slot is free again once the first command has replied
	st, err = cli.DsaCommand(dsa.DSA2, dsa.Release, time.Second)
	require.NoError(t, err)
	assert.Equal(t, dsa.StatusOk, st)
}

func TestServer_DsaCommand(t *testing.T) {
	ctrl := &fakeController{result: dsa.StatusTimedOut}
	act := &fakeActivity{}
	cli, stop := startServer(t, ctrl, act)
	defer stop()

	st, err := cli.DsaCommand(dsa.DSA2, dsa.Release, 4*time.Second)
	require.NoError(t, err)
	assert.Equal(t, dsa.StatusTimedOut, st)

	ctrl.mu.Lock()
	assert.Equal(t, []dsa.Command{dsa.Release}, ctrl.calls)
	assert.Equal(t, 4*time.Second, ctrl.timeout)
	ctrl.mu.Unlock()

	assert.GreaterOrEqual(t, act.n.Load(), int32(1))
}

func TestServer_DsaCommandDefaultTimeout(t *testing.T) {
	ctrl := &fakeController{}
	cli, stop := startServer(t, ctrl, nil)
	defer stop()

	st, err := cli.DsaCommand(dsa.DSA1, dsa.Deploy, 0)
	require.NoError(t, err)
	assert.Equal(t, dsa.StatusOk, st)

	ctrl.mu.Lock()
	assert.Equal(t, dsa.DeployTimeout, ctrl.timeout)
	ctrl.mu.Unlock()
}

func TestServer_DsaCommandTimeoutTooLong(t *testing.T) {
	ctrl := &fakeController{}
	cli, stop := startServer(t, ctrl, nil)
	defer stop()

	st, err := cli.DsaCommand(dsa.DSA1, dsa.Release, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, dsa.StatusInvalidInput, st)
	assert.Empty(t, ctrl.calls)
}

func TestServer_RejectsGarbage(t *testing.T) {
	cli, stop := startServer(t, &fakeController{}, nil)
	defer stop()

	conn, err := net.Dial("udp", cli.endpoint)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(time.Second)))

	_, err = conn.Write([]byte{0x42})
	require.NoError(t, err)

	buf := make([]byte, maxPacket)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{RespError, ReasonUnknownCommand}, buf[:n])
}

func TestListen_RequiresController(t *testing.T) {
	_, err := Listen("127.0.0.1:0", nil, nil, logrus.New())
	assert.Error(t, err)
}

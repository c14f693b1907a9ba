// internal/dsa/modbus/client.go
package modbus

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"
	"github.com/pkg/errors"
)

// Transports supported by New.
const (
	TransportTCP = "tcp"
	TransportRTU = "rtu"
)

// Config is minimal transport config.
type Config struct {
	Transport string
	Endpoint  string // host:port for tcp, device path for rtu
	UnitID    uint8
	Timeout   time.Duration

	// RTU line settings (ignored for tcp)
	BaudRate int
	DataBits int
	StopBits int
	Parity   string

	// CommandAddress is the first of two holding registers receiving the
	// command word (high word first).
	CommandAddress uint16
	// StatusAddress is the input register carrying the status bits.
	StatusAddress uint16
}

type handler interface {
	modbus.ClientHandler
	Close() error
}

// Client implements dsa.Register over Modbus.
// It serializes requests; the handler is not safe for concurrent use.
type Client struct {
	mu      sync.Mutex
	handler handler
	client  modbus.Client

	commandAddr uint16
	statusAddr  uint16
}

// New creates a Modbus client for the actuator board.
// No connection is made here: the handler dials on the first request, so an
// unreachable board surfaces as a register I/O error at command time.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("dsa modbus: endpoint required")
	}

	var h handler
	switch cfg.Transport {
	case TransportTCP, "":
		th := modbus.NewTCPClientHandler(cfg.Endpoint)
		th.Timeout = cfg.Timeout
		th.SlaveId = cfg.UnitID
		h = th

	case TransportRTU:
		rh := modbus.NewRTUClientHandler(cfg.Endpoint)
		rh.Config = serial.Config{
			Address:  cfg.Endpoint,
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
			StopBits: cfg.StopBits,
			Parity:   cfg.Parity,
			Timeout:  cfg.Timeout,
		}
		rh.SlaveId = cfg.UnitID
		h = rh

	default:
		return nil, errors.Errorf("dsa modbus: unsupported transport %q", cfg.Transport)
	}

	return &Client{
		handler:     h,
		client:      modbus.NewClient(h),
		commandAddr: cfg.CommandAddress,
		statusAddr:  cfg.StatusAddress,
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.handler == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ---- dsa.Register interface ----

// ReadStatus reads the single status input register (FC 4).
func (c *Client) ReadStatus() (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.client.ReadInputRegisters(c.statusAddr, 1)
	if err != nil {
		return 0, errors.Wrap(err, "dsa modbus: read status")
	}
	if len(b) < 2 {
		return 0, fmt.Errorf("dsa modbus: short status payload (%d bytes)", len(b))
	}
	return binary.BigEndian.Uint16(b[:2]), nil
}

// WriteCommand writes the 32-bit command word into two holding registers
// (FC 16), high word first.
func (c *Client) WriteCommand(word uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.client.WriteMultipleRegisters(c.commandAddr, 2, packCommand(word))
	if err != nil {
		return errors.Wrap(err, "dsa modbus: write command")
	}
	return nil
}

func packCommand(word uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, word)
	return out
}

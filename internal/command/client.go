// internal/command/client.go
package command

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

// Client is a stateless query channel client: 1 request = 1 socket.
type Client struct {
	endpoint string
	timeout  time.Duration
}

type ClientConfig struct {
	Endpoint string
	// Timeout bounds status queries. Manual commands wait for the command
	// timeout plus dsa.TimeoutPadding instead.
	Timeout time.Duration
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("command client: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Client{endpoint: cfg.Endpoint, timeout: cfg.Timeout}, nil
}

// Ping performs the liveness exchange.
func (c *Client) Ping() error {
	resp, err := c.roundTrip(Request{Code: CmdStatusRequest}, c.timeout, RespStatus)
	if err != nil {
		return err
	}
	if !resp.Alive {
		return errors.New("command client: server reports not alive")
	}
	return nil
}

// DsaStatus queries the status bits and whether an operation is running.
func (c *Client) DsaStatus() (dsa.StatusRegister, bool, error) {
	resp, err := c.roundTrip(Request{Code: CmdDsaStatus}, c.timeout, RespDsaStatus)
	if err != nil {
		return dsa.StatusRegister{}, false, err
	}
	return resp.Register, resp.Busy, nil
}

// DsaCommand issues a manual command and waits for its outcome.
// A zero timeout selects the server's per-command default.
// StatusInProgress means the server refused it because the actuators were
// busy; nothing was issued.
func (c *Client) DsaCommand(id dsa.AppendageID, cmd dsa.Command, timeout time.Duration) (dsa.OperationStatus, error) {
	wait := timeout
	if wait == 0 {
		wait = dsa.ReleaseTimeout
	}
	// The server refuses while an operation is in flight, but a command
	// accepted between two deployment steps waits behind the next one.
	wait += dsa.ReleaseTimeout + dsa.TimeoutPadding

	resp, err := c.roundTrip(Request{
		Code:      CmdDsaCommand,
		Appendage: id,
		Command:   cmd,
		Timeout:   timeout,
	}, wait, RespDsaCommand)
	if err != nil {
		return dsa.StatusGeneralError, err
	}
	return resp.Status, nil
}

func (c *Client) roundTrip(req Request, wait time.Duration, want byte) (Response, error) {
	pkt, err := EncodeRequest(req)
	if err != nil {
		return Response{}, err
	}

	conn, err := net.DialTimeout("udp", c.endpoint, c.timeout)
	if err != nil {
		return Response{}, errors.Wrap(err, "command client: dial")
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(wait))
	if _, err := conn.Write(pkt); err != nil {
		return Response{}, errors.Wrap(err, "command client: write")
	}

	buf := make([]byte, maxPacket)
	n, err := conn.Read(buf)
	if err != nil {
		return Response{}, errors.Wrap(err, "command client: read")
	}

	resp, err := DecodeResponse(buf[:n])
	if err != nil {
		return Response{}, err
	}

	switch resp.Code {
	case want:
		return resp, nil
	case RespError:
		return resp, errors.Errorf("command client: rejected (reason 0x%02x)", resp.Reason)
	default:
		return resp, errors.Errorf("command client: response code incorrect: got 0x%02X expected 0x%02X", resp.Code, want)
	}
}

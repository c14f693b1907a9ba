// internal/command/codec.go
package command

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

//
// ---- Query channel codec (LOCKED) ----
//
// Request:
// 0     Command code
// 1+    Command payload
//
//   CmdStatusRequest   no payload
//   CmdDsaStatus       no payload
//   CmdDsaCommand      1 Appendage (1|2)
//                      2 Command (0 release, 1 deploy, 2 reset)
//                      3–4 Timeout seconds (uint16 BE, 0 = command default)
//
// Response:
// 0     Response code
// 1+    Response payload
//
//   RespStatus         1 Liveness (0 = alive)
//   RespDsaStatus      1 Status bits (bit0 DSA1 released … bit3 DSA2 deployed)
//                      2 Flags (bit0 = operation in progress)
//   RespDsaCommand     1 Operation status (int8 wire code)
//   RespError          1 Reason
//

const (
	CmdStatusRequest byte = 0x01
	CmdDsaStatus     byte = 0x10
	CmdDsaCommand    byte = 0x11

	RespStatus     byte = 0xF1
	RespDsaStatus  byte = 0xF2
	RespDsaCommand byte = 0xF3
	RespError      byte = 0xFF
)

// Error reasons carried by RespError.
const (
	ReasonUnknownCommand byte = 0x01
	ReasonMalformed      byte = 0x02
)

const (
	dsaCommandLen = 5
	flagBusy      = 0x01

	// maxPacket bounds every datagram on this channel.
	maxPacket = 64
)

var (
	ErrUnknownCommand = errors.New("command: unknown command code")
	ErrMalformed      = errors.New("command: malformed packet")
)

// Request is a decoded query channel request.
type Request struct {
	Code      byte
	Appendage dsa.AppendageID
	Command   dsa.Command
	// Timeout is zero when the command default applies.
	Timeout time.Duration
}

// Response is a decoded query channel response.
type Response struct {
	Code     byte
	Alive    bool
	Register dsa.StatusRegister
	Busy     bool
	Status   dsa.OperationStatus
	Reason   byte
}

// ---- appendage / command wire mapping ----

func appendageToWire(id dsa.AppendageID) (byte, bool) {
	switch id {
	case dsa.DSA1:
		return 1, true
	case dsa.DSA2:
		return 2, true
	}
	return 0, false
}

func appendageFromWire(b byte) dsa.AppendageID {
	switch b {
	case 1:
		return dsa.DSA1
	case 2:
		return dsa.DSA2
	}
	return dsa.Unknown
}

func commandToWire(c dsa.Command) (byte, bool) {
	switch c {
	case dsa.Release:
		return 0, true
	case dsa.Deploy:
		return 1, true
	case dsa.Reset:
		return 2, true
	}
	return 0, false
}

func commandFromWire(b byte) (dsa.Command, bool) {
	switch b {
	case 0:
		return dsa.Release, true
	case 1:
		return dsa.Deploy, true
	case 2:
		return dsa.Reset, true
	}
	return 0, false
}

// ---- requests ----

// EncodeRequest builds the datagram for r.
func EncodeRequest(r Request) ([]byte, error) {
	switch r.Code {
	case CmdStatusRequest, CmdDsaStatus:
		return []byte{r.Code}, nil

	case CmdDsaCommand:
		id, ok := appendageToWire(r.Appendage)
		if !ok {
			return nil, errors.Errorf("command: cannot encode appendage %s", r.Appendage)
		}
		cmd, ok := commandToWire(r.Command)
		if !ok {
			return nil, errors.Errorf("command: cannot encode %s", r.Command)
		}
		secs := r.Timeout / time.Second
		if r.Timeout < 0 || secs > 0xFFFF {
			return nil, errors.Errorf("command: timeout %s out of range", r.Timeout)
		}

		pkt := make([]byte, dsaCommandLen)
		pkt[0] = r.Code
		pkt[1] = id
		pkt[2] = cmd
		binary.BigEndian.PutUint16(pkt[3:5], uint16(secs))
		return pkt, nil
	}
	return nil, ErrUnknownCommand
}

// DecodeRequest parses a request datagram. An unknown appendage is
// decoded as dsa.Unknown so the controller can reject it.
func DecodeRequest(b []byte) (Request, error) {
	if len(b) == 0 {
		return Request{}, ErrMalformed
	}

	r := Request{Code: b[0]}
	switch r.Code {
	case CmdStatusRequest, CmdDsaStatus:
		return r, nil

	case CmdDsaCommand:
		if len(b) != dsaCommandLen {
			return r, ErrMalformed
		}
		cmd, ok := commandFromWire(b[2])
		if !ok {
			return r, ErrMalformed
		}
		r.Appendage = appendageFromWire(b[1])
		r.Command = cmd
		r.Timeout = time.Duration(binary.BigEndian.Uint16(b[3:5])) * time.Second
		return r, nil
	}
	return r, ErrUnknownCommand
}

// ---- responses ----

// EncodeResponse builds the datagram for r.
func EncodeResponse(r Response) []byte {
	switch r.Code {
	case RespStatus:
		var live byte = 1
		if r.Alive {
			live = 0
		}
		return []byte{RespStatus, live}

	case RespDsaStatus:
		var flags byte
		if r.Busy {
			flags |= flagBusy
		}
		return []byte{RespDsaStatus, byte(r.Register.Encode()), flags}

	case RespDsaCommand:
		return []byte{RespDsaCommand, byte(r.Status.WireCode())}
	}
	return []byte{RespError, r.Reason}
}

// DecodeResponse parses a response datagram.
func DecodeResponse(b []byte) (Response, error) {
	if len(b) < 2 {
		return Response{}, ErrMalformed
	}

	r := Response{Code: b[0]}
	switch r.Code {
	case RespStatus:
		r.Alive = b[1] == 0
	case RespDsaStatus:
		if len(b) < 3 {
			return r, ErrMalformed
		}
		r.Register = dsa.DecodeStatus(uint16(b[1]))
		r.Busy = b[2]&flagBusy != 0
	case RespDsaCommand:
		r.Status = dsa.StatusFromWire(int8(b[1]))
	case RespError:
		r.Reason = b[1]
	default:
		return r, errors.Errorf("command: unknown response code 0x%02x", r.Code)
	}
	return r, nil
}

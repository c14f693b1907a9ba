// internal/dsa/register.go
package dsa

import "fmt"

// AppendageID identifies one deployable solar array.
type AppendageID uint8

const (
	Unknown AppendageID = iota
	DSA1
	DSA2
)

// Appendages is the fixed processing order. DSA1 always goes first.
var Appendages = [...]AppendageID{DSA1, DSA2}

// Valid reports whether id names a real appendage.
func (id AppendageID) Valid() bool {
	return id == DSA1 || id == DSA2
}

// shift is the appendage's bit offset in both the command word and the
// status register.
func (id AppendageID) shift() uint {
	if id == DSA2 {
		return 2
	}
	return 0
}

func (id AppendageID) String() string {
	switch id {
	case DSA1:
		return "DSA_1"
	case DSA2:
		return "DSA_2"
	default:
		return "DSA_UNKNOWN"
	}
}

// Command is a single actuation request for one appendage.
type Command uint8

const (
	Release Command = iota
	Deploy
	Reset
)

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	return c <= Reset
}

func (c Command) String() string {
	switch c {
	case Release:
		return "release"
	case Deploy:
		return "deploy"
	case Reset:
		return "reset"
	default:
		return fmt.Sprintf("command(%d)", uint8(c))
	}
}

// ---- COMMAND WORD ----
// Layout (32 bits):
//   bits 16-23  message type (MsgTypeDSA)
//   bits  8-15  command
//   bits  0-7   appendage shift offset

const (
	msgTypeOffset = 16
	msgCmdOffset  = 8
	msgIDOffset   = 0

	// MsgTypeDSA selects the DSA actuator block.
	MsgTypeDSA uint32 = 0
)

// EncodeCommand builds the command word written to the actuator register.
func EncodeCommand(id AppendageID, cmd Command) uint32 {
	return MsgTypeDSA<<msgTypeOffset |
		uint32(cmd)<<msgCmdOffset |
		uint32(id.shift())<<msgIDOffset
}

// ---- STATUS REGISTER ----

const (
	bitDSA1Released = 0
	bitDSA1Deployed = 1
	bitDSA2Released = 2
	bitDSA2Deployed = 3
)

// StatusRegister is the logical 4-bit snapshot of the actuator status.
type StatusRegister struct {
	DSA1Released bool
	DSA1Deployed bool
	DSA2Released bool
	DSA2Deployed bool
}

// DecodeStatus unpacks the low four bits of a raw status word.
func DecodeStatus(raw uint16) StatusRegister {
	return StatusRegister{
		DSA1Released: raw&(1<<bitDSA1Released) != 0,
		DSA1Deployed: raw&(1<<bitDSA1Deployed) != 0,
		DSA2Released: raw&(1<<bitDSA2Released) != 0,
		DSA2Deployed: raw&(1<<bitDSA2Deployed) != 0,
	}
}

// Encode packs the snapshot back into a raw status word.
func (r StatusRegister) Encode() uint16 {
	var raw uint16
	if r.DSA1Released {
		raw |= 1 << bitDSA1Released
	}
	if r.DSA1Deployed {
		raw |= 1 << bitDSA1Deployed
	}
	if r.DSA2Released {
		raw |= 1 << bitDSA2Released
	}
	if r.DSA2Deployed {
		raw |= 1 << bitDSA2Deployed
	}
	return raw
}

// Released reports the release bit for id.
func (r StatusRegister) Released(id AppendageID) bool {
	switch id {
	case DSA1:
		return r.DSA1Released
	case DSA2:
		return r.DSA2Released
	}
	return false
}

// Deployed reports the deploy bit for id.
func (r StatusRegister) Deployed(id AppendageID) bool {
	switch id {
	case DSA1:
		return r.DSA1Deployed
	case DSA2:
		return r.DSA2Deployed
	}
	return false
}

// Consistent reports whether no appendage shows Deployed without Released.
func (r StatusRegister) Consistent() bool {
	return !(r.DSA1Deployed && !r.DSA1Released) && !(r.DSA2Deployed && !r.DSA2Released)
}

// confirms reports whether the register shows the state cmd asks for.
func (r StatusRegister) confirms(id AppendageID, cmd Command) bool {
	switch cmd {
	case Release:
		return r.Released(id)
	case Deploy:
		return r.Deployed(id)
	case Reset:
		return !r.Released(id) && !r.Deployed(id)
	}
	return false
}

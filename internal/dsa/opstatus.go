// internal/dsa/opstatus.go
package dsa

import "fmt"

// OperationStatus is the outcome of a controller or sequence operation.
// Values are opaque: compare severity with Rank, never numerically.
type OperationStatus uint8

const (
	StatusOk OperationStatus = iota
	StatusInProgress
	StatusTimedOut
	StatusGeneralError
	StatusInvalidInput
	StatusDeviceAccessError
)

// Rank is the single severity order used for aggregation:
//
//	DeviceAccessError > InvalidInput > GeneralError > TimedOut > InProgress > Ok
//
// TimedOut is recoverable and therefore ranks below every hard error.
func (s OperationStatus) Rank() int {
	switch s {
	case StatusDeviceAccessError:
		return 5
	case StatusInvalidInput:
		return 4
	case StatusGeneralError:
		return 3
	case StatusTimedOut:
		return 2
	case StatusInProgress:
		return 1
	case StatusOk:
		return 0
	default:
		// unknown values are treated as general errors
		return 3
	}
}

// IsHardError reports whether s aborts a running deployment sequence.
func (s OperationStatus) IsHardError() bool {
	return s.Rank() >= StatusGeneralError.Rank()
}

// Worse returns the more severe of a and b. On equal rank a wins.
func Worse(a, b OperationStatus) OperationStatus {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

func (s OperationStatus) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusInProgress:
		return "in-progress"
	case StatusTimedOut:
		return "timed-out"
	case StatusGeneralError:
		return "general-error"
	case StatusInvalidInput:
		return "invalid-input"
	case StatusDeviceAccessError:
		return "device-access-error"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// ---- WIRE CODES ----
// Signed codes carried by the query channel. The mapping is protocol-locked
// and independent of the in-memory values above.

const (
	wireTimedOut     int8 = -10
	wireDeviceAccess int8 = -3
	wireInvalidInput int8 = -2
	wireGeneralError int8 = -1
	wireOk           int8 = 0
	wireInProgress   int8 = 1
)

// WireCode returns the signed protocol code for s.
func (s OperationStatus) WireCode() int8 {
	switch s {
	case StatusOk:
		return wireOk
	case StatusInProgress:
		return wireInProgress
	case StatusTimedOut:
		return wireTimedOut
	case StatusInvalidInput:
		return wireInvalidInput
	case StatusDeviceAccessError:
		return wireDeviceAccess
	default:
		return wireGeneralError
	}
}

// StatusFromWire maps a protocol code back to an OperationStatus.
// Unknown codes map to StatusGeneralError.
func StatusFromWire(code int8) OperationStatus {
	switch code {
	case wireOk:
		return StatusOk
	case wireInProgress:
		return StatusInProgress
	case wireTimedOut:
		return StatusTimedOut
	case wireInvalidInput:
		return StatusInvalidInput
	case wireDeviceAccess:
		return StatusDeviceAccessError
	default:
		return StatusGeneralError
	}
}

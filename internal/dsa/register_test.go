package dsa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank_TimedOutBetweenOkAndHardErrors(t *testing.T) {
	assert.Greater(t, StatusTimedOut.Rank(), StatusOk.Rank())
	for _, hard := range []OperationStatus{StatusDeviceAccessError, StatusInvalidInput, StatusGeneralError} {
		assert.Greater(t, hard.Rank(), StatusTimedOut.Rank(), hard.String())
		assert.True(t, hard.IsHardError(), hard.String())
	}
	assert.False(t, StatusTimedOut.IsHardError())
	assert.False(t, StatusInProgress.IsHardError())
}

func TestWorse(t *testing.T) {
	assert.Equal(t, StatusTimedOut, Worse(StatusOk, StatusTimedOut))
	assert.Equal(t, StatusDeviceAccessError, Worse(StatusDeviceAccessError, StatusTimedOut))
	assert.Equal(t, StatusDeviceAccessError, Worse(StatusInvalidInput, StatusDeviceAccessError))
	assert.Equal(t, StatusOk, Worse(StatusOk, StatusOk))
}

func TestWireCodes(t *testing.T) {
	assert.Equal(t, int8(-10), StatusTimedOut.WireCode())
	assert.Equal(t, int8(-3), StatusDeviceAccessError.WireCode())
	assert.Equal(t, int8(0), StatusOk.WireCode())
	assert.Equal(t, StatusInProgress, StatusFromWire(1))
	assert.Equal(t, StatusGeneralError, StatusFromWire(-77))
}

func TestEncodeCommand(t *testing.T) {
	assert.Equal(t, uint32(0x0000), EncodeCommand(DSA1, Release))
	assert.Equal(t, uint32(0x0102), EncodeCommand(DSA2, Deploy))
	assert.Equal(t, uint32(0x0200), EncodeCommand(DSA1, Reset))
}

func TestDecodeStatus(t *testing.T) {
	r := DecodeStatus(0b0111)
	assert.True(t, r.DSA1Released)
	assert.True(t, r.DSA1Deployed)
	assert.True(t, r.DSA2Released)
	assert.False(t, r.DSA2Deployed)
	assert.Equal(t, uint16(0b0111), r.Encode())
	assert.True(t, r.Consistent())

	// upper bits are ignored
	assert.Equal(t, uint16(0b0101), DecodeStatus(0xFF05).Encode())

	assert.False(t, DecodeStatus(0b1000).Consistent())
}

func TestConfirms(t *testing.T) {
	r := StatusRegister{DSA2Released: true}
	assert.True(t, r.confirms(DSA2, Release))
	assert.False(t, r.confirms(DSA2, Deploy))
	assert.False(t, r.confirms(DSA2, Reset))
	assert.True(t, r.confirms(DSA1, Reset))
	assert.False(t, r.confirms(Unknown, Release))
}

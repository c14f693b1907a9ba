package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

func TestEncodeRequest_DsaCommandLayout(t *testing.T) {
	pkt, err := EncodeRequest(Request{
		Code:      CmdDsaCommand,
		Appendage: dsa.DSA2,
		Command:   dsa.Deploy,
		Timeout:   300 * time.Second,
	})
	require.NoError(t, err)

	// code, appendage, command, timeout hi, timeout lo
	assert.Equal(t, []byte{0x11, 0x02, 0x01, 0x01, 0x2C}, pkt)
}

func TestEncodeRequest_Rejects(t *testing.T) {
	_, err := EncodeRequest(Request{Code: CmdDsaCommand, Appendage: dsa.Unknown})
	assert.Error(t, err)

	_, err = EncodeRequest(Request{Code: CmdDsaCommand, Appendage: dsa.DSA1, Timeout: 70000 * time.Second})
	assert.Error(t, err)

	_, err = EncodeRequest(Request{Code: 0x42})
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDecodeRequest(t *testing.T) {
	r, err := DecodeRequest([]byte{0x11, 0x01, 0x00, 0x00, 0x05})
	require.NoError(t, err)
	assert.Equal(t, dsa.DSA1, r.Appendage)
	assert.Equal(t, dsa.Release, r.Command)
	assert.Equal(t, 5*time.Second, r.Timeout)

	// unknown appendage survives decoding so the controller rejects it
	r, err = DecodeRequest([]byte{0x11, 0x07, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, dsa.Unknown, r.Appendage)

	_, err = DecodeRequest([]byte{0x11, 0x01, 0x09, 0x00, 0x00})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeRequest([]byte{0x11, 0x01})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeRequest(nil)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeRequest([]byte{0x99})
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestResponses(t *testing.T) {
	pkt := EncodeResponse(Response{Code: RespDsaStatus, Register: dsa.StatusRegister{DSA1Released: true, DSA1Deployed: true}, Busy: true})
	assert.Equal(t, []byte{0xF2, 0x03, 0x01}, pkt)

	r, err := DecodeResponse(pkt)
	require.NoError(t, err)
	assert.True(t, r.Register.DSA1Deployed)
	assert.True(t, r.Busy)

	pkt = EncodeResponse(Response{Code: RespDsaCommand, Status: dsa.StatusTimedOut})
	assert.Equal(t, []byte{0xF3, 0xF6}, pkt) // -10
	r, err = DecodeResponse(pkt)
	require.NoError(t, err)
	assert.Equal(t, dsa.StatusTimedOut, r.Status)

	assert.Equal(t, []byte{0xF1, 0x00}, EncodeResponse(Response{Code: RespStatus, Alive: true}))
	assert.Equal(t, []byte{0xFF, ReasonMalformed}, EncodeResponse(Response{Code: RespError, Reason: ReasonMalformed}))

	_, err = DecodeResponse([]byte{0xF2, 0x01})
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = DecodeResponse([]byte{0x00, 0x00})
	assert.Error(t, err)
}

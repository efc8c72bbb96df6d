package wire

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		mode     Mode
		opcode   OpCode
	}{
		{"rrq octet", "boot.img", ModeOctet, OpCodeRRQ},
		{"wrq netascii", "readme.txt", ModeNetASCII, OpCodeWRQ},
		{"rrq mail", "x", ModeMail, OpCodeRRQ},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &Request{Filename: tc.filename, Mode: tc.mode, Opcode: tc.opcode}

			b, err := req.MarshalBinary()
			require.NoError(t, err)

			var got Request
			require.NoError(t, got.UnmarshalBinary(b))
			assert.Equal(t, *req, got)
		})
	}
}

func TestRequestRejectsBadMode(t *testing.T) {
	raw := append([]byte{0, byte(OpCodeRRQ)}, append([]byte("file.bin\x00"), []byte("bogus\x00")...)...)

	var req Request
	err := req.UnmarshalBinary(raw)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestRequestParsesMailButSessionRejectsLater(t *testing.T) {
	raw := append([]byte{0, byte(OpCodeRRQ)}, append([]byte("file.bin\x00"), []byte("mail\x00")...)...)

	var req Request
	require.NoError(t, req.UnmarshalBinary(raw))
	assert.Equal(t, ModeMail, req.Mode)
}

func TestRequestRejectsEmptyFilename(t *testing.T) {
	raw := append([]byte{0, byte(OpCodeRRQ)}, append([]byte("\x00"), []byte("octet\x00")...)...)

	var req Request
	require.ErrorIs(t, req.UnmarshalBinary(raw), ErrMalformedPacket)
}

func TestRequestRejectsUnknownOpcode(t *testing.T) {
	raw := append([]byte{0, 9}, append([]byte("file\x00"), []byte("octet\x00")...)...)

	var req Request
	require.ErrorIs(t, req.UnmarshalBinary(raw), ErrMalformedPacket)
}

func TestRequestRejectsTooShort(t *testing.T) {
	var req Request
	require.ErrorIs(t, req.UnmarshalBinary([]byte{0, byte(OpCodeRRQ)}), ErrMalformedPacket)
}

func TestDataRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
		block   uint16
	}{
		{"empty last block", []byte{}, 1},
		{"full block", make([]byte, MaxPayloadSize), 1},
		{"partial block", []byte("hello"), 42},
		{"max block number", []byte("x"), MaxBlockNum},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &Data{Opcode: OpCodeDATA, BlockNum: tc.block, Payload: tc.payload}

			b, err := d.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, 4+len(tc.payload), len(b))

			var got Data
			require.NoError(t, got.UnmarshalBinary(b))
			assert.Equal(t, tc.block, got.BlockNum)
			assert.Equal(t, tc.payload, got.Payload)
		})
	}
}

func TestDataRejectsOversizePayload(t *testing.T) {
	d := &Data{Opcode: OpCodeDATA, BlockNum: 1, Payload: make([]byte, MaxPayloadSize+1)}
	_, err := d.MarshalBinary()
	require.Error(t, err)
}

func TestDataRejectsZeroBlockNumber(t *testing.T) {
	d := &Data{Opcode: OpCodeDATA, BlockNum: 0, Payload: []byte("x")}
	b, err := d.MarshalBinary()
	require.NoError(t, err)

	var got Data
	require.ErrorIs(t, got.UnmarshalBinary(b), ErrMalformedPacket)
}

func TestAckRoundTrip(t *testing.T) {
	for _, block := range []uint16{0, 1, MaxBlockNum} {
		a := &Ack{Opcode: OpCodeACK, BlockNum: block}

		b, err := a.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, 4, len(b))

		var got Ack
		require.NoError(t, got.UnmarshalBinary(b))
		assert.Equal(t, block, got.BlockNum)
	}
}

func TestAckRejectsWrongLength(t *testing.T) {
	var a Ack
	require.ErrorIs(t, a.UnmarshalBinary([]byte{0, byte(OpCodeACK), 0}), ErrMalformedPacket)
}

func TestErrorRoundTrip(t *testing.T) {
	for code := ErrNotDefined; code <= ErrNoSuchUser; code++ {
		e := NewError(code)

		b, err := e.MarshalBinary()
		require.NoError(t, err)
		require.NotEmpty(t, b)

		var got Error
		require.NoError(t, got.UnmarshalBinary(b))
		assert.Equal(t, code, got.ErrorCode)
		assert.Equal(t, code.Message(), got.ErrMsg)
	}
}

func TestErrorEncodeOutOfTaxonomyYieldsNoBytes(t *testing.T) {
	e := &Error{Opcode: OpCodeError, ErrorCode: 99, ErrMsg: "n/a"}
	b, err := e.MarshalBinary()
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestErrorRejectsOversizeMessageOnDecode(t *testing.T) {
	raw := new(bytes.Buffer)
	binary.Write(raw, binary.BigEndian, OpCodeError)
	binary.Write(raw, binary.BigEndian, ErrNotDefined)
	raw.WriteString(strings.Repeat("a", MaxErrorMsgLen+1))
	raw.WriteByte(0)

	var got Error
	require.ErrorIs(t, got.UnmarshalBinary(raw.Bytes()), ErrMalformedPacket)
}

func TestOpcodeValidation(t *testing.T) {
	for _, op := range []OpCode{0, 6, 65535} {
		_, err := PeekOpcode([]byte{byte(op >> 8), byte(op)})
		require.ErrorIs(t, err, ErrMalformedPacket)
	}
}

func TestDecodeDispatch(t *testing.T) {
	ack := &Ack{Opcode: OpCodeACK, BlockNum: 7}
	raw, err := ack.MarshalBinary()
	require.NoError(t, err)

	p, err := Decode(raw)
	require.NoError(t, err)

	got, ok := p.(*Ack)
	require.True(t, ok)
	assert.Equal(t, uint16(7), got.BlockNum)
}

func TestModeParsing(t *testing.T) {
	assert.Equal(t, ModeOctet, ParseMode("octet"))
	assert.Equal(t, ModeNetASCII, ParseMode("netascii"))
	assert.Equal(t, ModeMail, ParseMode("mail"))
	assert.Equal(t, ModeInvalid, ParseMode("OCTET"))
	assert.Equal(t, ModeInvalid, ParseMode("binary"))
}

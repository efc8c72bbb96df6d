package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Error is the ERROR packet: opcode, error code, message.
type Error struct {
	ErrMsg    string
	ErrorCode ErrCode
	Opcode    OpCode
}

// NewError builds an ERROR packet carrying the canonical message for code.
func NewError(code ErrCode) *Error {
	return &Error{Opcode: OpCodeError, ErrorCode: code, ErrMsg: code.Message()}
}

// MarshalBinary encodes e. Per the codec contract, an error code outside
// the 0..7 taxonomy yields zero bytes and a nil error — the caller must
// check len(b) before transmitting.
func (e *Error) MarshalBinary() ([]byte, error) {
	if !e.ErrorCode.Valid() {
		return nil, nil
	}

	msg := e.ErrMsg
	if len(msg) > MaxErrorMsgLen {
		msg = msg[:MaxErrorMsgLen]
	}

	b := new(bytes.Buffer)
	b.Grow(4 + len(msg) + 1)

	if err := binary.Write(b, binary.BigEndian, &e.Opcode); err != nil {
		return nil, fmt.Errorf("wire: write opcode: %w", err)
	}

	if err := binary.Write(b, binary.BigEndian, &e.ErrorCode); err != nil {
		return nil, fmt.Errorf("wire: write error code: %w", err)
	}

	if _, err := b.WriteString(msg); err != nil {
		return nil, fmt.Errorf("wire: write error message: %w", err)
	}

	if err := b.WriteByte(0); err != nil {
		return nil, fmt.Errorf("wire: write error message terminator: %w", err)
	}

	return b.Bytes(), nil
}

func (e *Error) UnmarshalBinary(data []byte) error {
	if len(data) < 5 {
		return ErrMalformedPacket
	}

	b := bytes.NewBuffer(data)

	if err := binary.Read(b, binary.BigEndian, &e.Opcode); err != nil {
		return ErrMalformedPacket
	}

	if e.Opcode != OpCodeError {
		return ErrMalformedPacket
	}

	if err := binary.Read(b, binary.BigEndian, &e.ErrorCode); err != nil {
		return ErrMalformedPacket
	}

	if !e.ErrorCode.Valid() {
		return ErrMalformedPacket
	}

	msg, err := b.ReadString(0)
	if err != nil {
		return ErrMalformedPacket
	}

	msg = strings.TrimSuffix(msg, "\x00")
	if len(msg) > MaxErrorMsgLen {
		return ErrMalformedPacket
	}

	e.ErrMsg = msg

	return nil
}

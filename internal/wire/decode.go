package wire

import (
	"bytes"
	"encoding/binary"
)

// Packet is implemented by every decoded packet kind.
type Packet interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// PeekOpcode reads only the 2-byte opcode without validating the rest of
// the buffer, so the listener can classify a datagram before choosing a
// decoder.
func PeekOpcode(data []byte) (OpCode, error) {
	if len(data) < 2 {
		return 0, ErrMalformedPacket
	}

	var op OpCode
	if err := binary.Read(bytes.NewReader(data[:2]), binary.BigEndian, &op); err != nil {
		return 0, ErrMalformedPacket
	}

	if op < OpCodeRRQ || op > OpCodeError {
		return 0, ErrMalformedPacket
	}

	return op, nil
}

// Decode dispatches data to the decoder matching its opcode and returns
// the populated packet value.
func Decode(data []byte) (Packet, error) {
	op, err := PeekOpcode(data)
	if err != nil {
		return nil, err
	}

	var p Packet

	switch op {
	case OpCodeRRQ, OpCodeWRQ:
		p = &Request{}
	case OpCodeDATA:
		p = &Data{}
	case OpCodeACK:
		p = &Ack{}
	case OpCodeError:
		p = &Error{}
	default:
		return nil, ErrMalformedPacket
	}

	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	return p, nil
}

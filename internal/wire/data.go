package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Data is the DATA packet: opcode, block number, payload (<=512 bytes).
// A payload shorter than MaxPayloadSize signals end-of-file.
type Data struct {
	Payload  []byte
	BlockNum uint16
	Opcode   OpCode
}

func (d *Data) MarshalBinary() ([]byte, error) {
	if len(d.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("wire: data payload exceeds %d bytes", MaxPayloadSize)
	}

	b := new(bytes.Buffer)
	b.Grow(4 + len(d.Payload))

	if err := binary.Write(b, binary.BigEndian, &d.Opcode); err != nil {
		return nil, fmt.Errorf("wire: write opcode: %w", err)
	}

	if err := binary.Write(b, binary.BigEndian, &d.BlockNum); err != nil {
		return nil, fmt.Errorf("wire: write block#: %w", err)
	}

	if _, err := b.Write(d.Payload); err != nil {
		return nil, fmt.Errorf("wire: write payload: %w", err)
	}

	return b.Bytes(), nil
}

func (d *Data) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return ErrMalformedPacket
	}

	b := bytes.NewBuffer(data)

	if err := binary.Read(b, binary.BigEndian, &d.Opcode); err != nil {
		return ErrMalformedPacket
	}

	if d.Opcode != OpCodeDATA {
		return ErrMalformedPacket
	}

	if err := binary.Read(b, binary.BigEndian, &d.BlockNum); err != nil {
		return ErrMalformedPacket
	}

	if d.BlockNum < 1 {
		return ErrMalformedPacket
	}

	payload := data[4:]
	if len(payload) > MaxPayloadSize {
		return ErrMalformedPacket
	}

	d.Payload = payload

	return nil
}

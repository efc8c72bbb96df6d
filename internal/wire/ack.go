package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Ack is the fixed 4-byte ACK packet: opcode, block number.
type Ack struct {
	Opcode   OpCode
	BlockNum uint16
}

func (a *Ack) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	b.Grow(4)

	if err := binary.Write(b, binary.BigEndian, &a.Opcode); err != nil {
		return nil, fmt.Errorf("wire: write opcode: %w", err)
	}

	if err := binary.Write(b, binary.BigEndian, &a.BlockNum); err != nil {
		return nil, fmt.Errorf("wire: write block#: %w", err)
	}

	return b.Bytes(), nil
}

func (a *Ack) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return ErrMalformedPacket
	}

	b := bytes.NewBuffer(data)

	if err := binary.Read(b, binary.BigEndian, &a.Opcode); err != nil {
		return ErrMalformedPacket
	}

	if a.Opcode != OpCodeACK {
		return ErrMalformedPacket
	}

	if err := binary.Read(b, binary.BigEndian, &a.BlockNum); err != nil {
		return ErrMalformedPacket
	}

	return nil
}

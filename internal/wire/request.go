package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Request is the RRQ/WRQ packet: opcode, filename, mode.
type Request struct {
	Filename string
	Mode     Mode
	Opcode   OpCode
}

func (r *Request) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	rqLen := 2 + len(r.Filename) + 1 + len(r.Mode.String()) + 1
	b.Grow(rqLen)

	if err := binary.Write(b, binary.BigEndian, &r.Opcode); err != nil {
		return nil, fmt.Errorf("wire: write opcode: %w", err)
	}

	if _, err := b.WriteString(r.Filename); err != nil {
		return nil, fmt.Errorf("wire: write filename: %w", err)
	}

	if err := b.WriteByte(0); err != nil {
		return nil, fmt.Errorf("wire: write filename terminator: %w", err)
	}

	if _, err := b.WriteString(r.Mode.String()); err != nil {
		return nil, fmt.Errorf("wire: write mode: %w", err)
	}

	if err := b.WriteByte(0); err != nil {
		return nil, fmt.Errorf("wire: write mode terminator: %w", err)
	}

	return b.Bytes(), nil
}

func (r *Request) UnmarshalBinary(data []byte) error {
	rd := bytes.NewBuffer(data)

	if err := binary.Read(rd, binary.BigEndian, &r.Opcode); err != nil {
		return ErrMalformedPacket
	}

	if r.Opcode != OpCodeRRQ && r.Opcode != OpCodeWRQ {
		return ErrMalformedPacket
	}

	filename, err := rd.ReadString(0)
	if err != nil {
		return ErrMalformedPacket
	}

	filename = strings.TrimSuffix(filename, "\x00")
	if len(filename) < 1 || len(filename) > MaxFilenameLen {
		return ErrMalformedPacket
	}

	modeStr, err := rd.ReadString(0)
	if err != nil {
		return ErrMalformedPacket
	}

	modeStr = strings.TrimSuffix(modeStr, "\x00")

	mode := ParseMode(modeStr)
	if mode == ModeInvalid {
		return ErrMalformedPacket
	}

	r.Filename = filename
	r.Mode = mode

	return nil
}

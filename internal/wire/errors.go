package wire

import "errors"

// ErrMalformedPacket is returned by every decoder when the buffer does not
// hold a structurally valid packet of its kind: unrecognized opcode,
// missing string terminator, invalid mode, or an out-of-range field.
var ErrMalformedPacket = errors.New("wire: malformed packet")

package session

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelsys/tftpd/internal/netio"
	"github.com/kestrelsys/tftpd/internal/store"
	"github.com/kestrelsys/tftpd/internal/wire"
)

// RunRRQ drives one server-to-client file transfer: OPENING ->
// SENDING_BLOCK(n) -> AWAITING_ACK(n) -> {SENDING_BLOCK(n+1)|DONE|FAILED}.
// It allocates its own ephemeral endpoint and closes it on every exit
// path. lastErrCode is NoError (-1) on a clean completion.
func RunRRQ(cfg Config, log *zap.SugaredLogger, blobs *store.Store, peer netio.Peer, rawRequest []byte) (lastErrCode int, err error) {
	ep, err := netio.Bind(0)
	if err != nil {
		return wireCode(wire.ErrNotDefined), fmt.Errorf("session: rrq bind: %w", err)
	}
	defer ep.Close()

	req, decodeErr := decodeRequest(rawRequest)
	if decodeErr != nil {
		return wireCode(wire.ErrIllegalTftpOp), fmt.Errorf("session: rrq decode: %w", ErrRequestMalformed)
	}

	if req.Mode != wire.ModeOctet && req.Mode != wire.ModeNetASCII {
		sendError(ep, peer, log, wire.ErrIllegalTftpOp)
		return wireCode(wire.ErrIllegalTftpOp), ErrModeNotSupported
	}

	blob, size, openErr := blobs.OpenRead(req.Filename)
	if openErr != nil {
		if os.IsNotExist(openErr) {
			sendError(ep, peer, log, wire.ErrFileNotFound)
			return wireCode(wire.ErrFileNotFound), ErrFileNotFound
		}

		sendError(ep, peer, log, wire.ErrAccessViolation)
		return wireCode(wire.ErrAccessViolation), fmt.Errorf("session: rrq open %s: %w", req.Filename, openErr)
	}
	defer blob.Close()

	totalBlocks := int(size)/wire.MaxPayloadSize + 1

	log.Debugf("rrq %s from %s: %d bytes, %d blocks", req.Filename, peer, size, totalBlocks)

	chunk := make([]byte, wire.MaxPayloadSize)

	var lastAcked uint16

	for block := 1; block <= totalBlocks; block++ {
		remaining := int(size) - (block-1)*wire.MaxPayloadSize
		readLen := remaining

		switch {
		case readLen > wire.MaxPayloadSize:
			readLen = wire.MaxPayloadSize
		case readLen < 0:
			readLen = 0
		}

		if readLen > 0 {
			if _, rerr := readFull(blob, chunk[:readLen]); rerr != nil {
				sendError(ep, peer, log, wire.ErrAccessViolation)
				return wireCode(wire.ErrAccessViolation), fmt.Errorf("session: rrq read block %d: %w", block, ErrReadFail)
			}
		}

		data := &wire.Data{Opcode: wire.OpCodeDATA, BlockNum: uint16(block), Payload: chunk[:readLen]}

		payload, merr := data.MarshalBinary()
		if merr != nil {
			sendError(ep, peer, log, wire.ErrNotDefined)
			return wireCode(wire.ErrNotDefined), fmt.Errorf("session: rrq marshal data: %w", merr)
		}

		acked, aerr := sendDataAwaitAck(ep, peer, cfg, payload, uint16(block), &lastAcked)
		if aerr != nil {
			if errors.Is(aerr, ErrPeerError) {
				return NoError, nil
			}

			sendError(ep, peer, log, wire.ErrNotDefined)
			return wireCode(wire.ErrNotDefined), aerr
		}

		if !acked {
			sendError(ep, peer, log, wire.ErrNotDefined)
			return wireCode(wire.ErrNotDefined), ErrRetryExhausted
		}

		log.Debugf("rrq %s: sent block#=%d, sent #bytes=%d", req.Filename, block, readLen)
	}

	return NoError, nil
}

// sendDataAwaitAck sends payload (already marshaled DATA for block) and
// waits for a matching ACK, retrying up to cfg.Attempts times on timeout.
// A stale ACK (<= *lastAcked) is absorbed without retransmitting, within
// the same attempt's remaining deadline; any other mismatch triggers a
// retransmit on the next attempt.
func sendDataAwaitAck(ep *netio.Endpoint, peer netio.Peer, cfg Config, payload []byte, block uint16, lastAcked *uint16) (bool, error) {
	buf := make([]byte, wire.DatagramSize)

	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if _, err := ep.SendTo(peer, payload); err != nil {
			return false, fmt.Errorf("session: rrq send data: %w", err)
		}

		deadline := time.Now().Add(cfg.Timeout)

		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break // attempt exhausted: retransmit next attempt
			}

			n, _, err := ep.RecvFromTimeout(buf, peer, remaining)
			if err != nil {
				if errors.Is(err, netio.ErrTimeout) {
					break
				}

				return false, fmt.Errorf("session: rrq recv ack: %w", err)
			}

			pkt, decErr := wire.Decode(buf[:n])
			if decErr != nil {
				continue // malformed: keep absorbing within this attempt
			}

			switch p := pkt.(type) {
			case *wire.Ack:
				if p.BlockNum == block {
					*lastAcked = block
					return true, nil
				}

				if p.BlockNum <= *lastAcked {
					continue // duplicate ACK: absorb, keep waiting
				}
				// ACK for an unexpected block: stop absorbing, retransmit.
			case *wire.Error:
				return false, ErrPeerError
			}

			break
		}
	}

	return false, nil
}

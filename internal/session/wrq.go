package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelsys/tftpd/internal/netio"
	"github.com/kestrelsys/tftpd/internal/store"
	"github.com/kestrelsys/tftpd/internal/wire"
)

// RunWRQ drives one client-to-server file transfer: OPENING ->
// ACKING_BLOCK(n) -> AWAITING_DATA(n+1) -> {ACKING_BLOCK(n+1)|DONE|FAILED}.
// It allocates its own ephemeral endpoint and closes it on every exit
// path. lastErrCode is NoError (-1) on a clean completion. The server
// always truncates an existing destination file (overwrite semantics);
// FILE_ALREADY_EXISTS is never emitted.
func RunWRQ(cfg Config, log *zap.SugaredLogger, blobs *store.Store, peer netio.Peer, rawRequest []byte) (lastErrCode int, err error) {
	ep, err := netio.Bind(0)
	if err != nil {
		return wireCode(wire.ErrNotDefined), fmt.Errorf("session: wrq bind: %w", err)
	}
	defer ep.Close()

	req, decodeErr := decodeRequest(rawRequest)
	if decodeErr != nil {
		return wireCode(wire.ErrIllegalTftpOp), fmt.Errorf("session: wrq decode: %w", ErrRequestMalformed)
	}

	if req.Mode != wire.ModeOctet && req.Mode != wire.ModeNetASCII {
		sendError(ep, peer, log, wire.ErrIllegalTftpOp)
		return wireCode(wire.ErrIllegalTftpOp), ErrModeNotSupported
	}

	blob, openErr := blobs.OpenWrite(req.Filename)
	if openErr != nil {
		sendError(ep, peer, log, wire.ErrDiskFull)
		return wireCode(wire.ErrDiskFull), fmt.Errorf("session: wrq open %s: %w", req.Filename, ErrFileOpenFail)
	}
	defer blob.Close()

	log.Debugf("wrq %s from %s", req.Filename, peer)

	var blockIndex uint16

	for {
		ack := &wire.Ack{Opcode: wire.OpCodeACK, BlockNum: blockIndex}

		ackBytes, merr := ack.MarshalBinary()
		if merr != nil {
			return wireCode(wire.ErrNotDefined), fmt.Errorf("session: wrq marshal ack: %w", merr)
		}

		payload, received, werr := awaitDataAfterAck(ep, peer, cfg, ackBytes, blockIndex+1)
		if werr != nil {
			if errors.Is(werr, ErrPeerError) {
				return NoError, nil
			}

			sendError(ep, peer, log, wire.ErrNotDefined)
			return wireCode(wire.ErrNotDefined), werr
		}

		if !received {
			sendError(ep, peer, log, wire.ErrNotDefined)
			return wireCode(wire.ErrNotDefined), ErrRetryExhausted
		}

		blockIndex++

		if len(payload) > 0 {
			if _, werr := blob.Write(payload); werr != nil {
				sendError(ep, peer, log, wire.ErrDiskFull)
				return wireCode(wire.ErrDiskFull), fmt.Errorf("session: wrq write block %d: %w", blockIndex, ErrWriteFail)
			}
		}

		log.Debugf("wrq %s: received block#=%d, received #bytes=%d", req.Filename, blockIndex, len(payload))

		if len(payload) < wire.MaxPayloadSize {
			finalAck := &wire.Ack{Opcode: wire.OpCodeACK, BlockNum: blockIndex}

			finalBytes, ferr := finalAck.MarshalBinary()
			if ferr != nil {
				return wireCode(wire.ErrNotDefined), fmt.Errorf("session: wrq marshal final ack: %w", ferr)
			}

			if _, serr := ep.SendTo(peer, finalBytes); serr != nil {
				log.Errorf("session: wrq final ack to %s not sent: %s", peer, serr.Error())
			}

			return NoError, nil
		}
	}
}

// awaitDataAfterAck sends ackBytes (ACK for the previous block) and waits
// for DATA carrying expectedBlock, retrying up to cfg.Attempts times on
// timeout by resending the same ACK. DATA with a wrong block number is
// absorbed without retransmitting the ACK.
func awaitDataAfterAck(ep *netio.Endpoint, peer netio.Peer, cfg Config, ackBytes []byte, expectedBlock uint16) ([]byte, bool, error) {
	buf := make([]byte, wire.DatagramSize)

	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if _, err := ep.SendTo(peer, ackBytes); err != nil {
			return nil, false, fmt.Errorf("session: wrq send ack: %w", err)
		}

		deadline := time.Now().Add(cfg.Timeout)

		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break // attempt exhausted: resend ack next attempt
			}

			n, _, err := ep.RecvFromTimeout(buf, peer, remaining)
			if err != nil {
				if errors.Is(err, netio.ErrTimeout) {
					break
				}

				return nil, false, fmt.Errorf("session: wrq recv data: %w", err)
			}

			pkt, decErr := wire.Decode(buf[:n])
			if decErr != nil {
				continue // malformed: keep absorbing within this attempt
			}

			switch p := pkt.(type) {
			case *wire.Data:
				if p.BlockNum == expectedBlock {
					payload := make([]byte, len(p.Payload))
					copy(payload, p.Payload)

					return payload, true, nil
				}
				// wrong block: absorb, keep waiting without resending ACK.
				continue
			case *wire.Error:
				return nil, false, ErrPeerError
			}

			break
		}
	}

	return nil, false, nil
}

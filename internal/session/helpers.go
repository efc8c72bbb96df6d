package session

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kestrelsys/tftpd/internal/netio"
	"github.com/kestrelsys/tftpd/internal/wire"
)

func decodeRequest(raw []byte) (*wire.Request, error) {
	var req wire.Request
	if err := req.UnmarshalBinary(raw); err != nil {
		return nil, err
	}

	return &req, nil
}

// sendError is best-effort: the ERROR packet is unreliable and no
// confirmation is expected, so a send failure is only logged.
func sendError(ep *netio.Endpoint, peer netio.Peer, log *zap.SugaredLogger, code wire.ErrCode) {
	errPkt := wire.NewError(code)

	b, err := errPkt.MarshalBinary()
	if err != nil || len(b) == 0 {
		log.Errorf("session: cannot marshal error packet for code %d", code)
		return
	}

	if _, err := ep.SendTo(peer, b); err != nil {
		log.Errorf("session: error packet to %s not sent: %s", peer, err.Error())
	}
}

// wireCode reports the last-observed error code as an int, matching the
// programmatic handle API's get_last_server_error_code contract.
func wireCode(code wire.ErrCode) int {
	return int(code)
}

func readFull(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return n, fmt.Errorf("session: short read: %w", err)
	}

	return n, nil
}

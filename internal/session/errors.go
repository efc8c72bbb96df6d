package session

import "errors"

// Sentinel errors for the session-local error taxonomy (spec §7),
// grounded on the teacher's pkg/utils/errors.go package-level var block.
var (
	ErrModeNotSupported = errors.New("session: transfer mode not supported")
	ErrFileNotFound     = errors.New("session: file not found")
	ErrFileOpenFail     = errors.New("session: could not open file for write")
	ErrReadFail         = errors.New("session: read from file failed")
	ErrWriteFail        = errors.New("session: write to file failed")
	ErrRetryExhausted   = errors.New("session: retry attempts exhausted")
	ErrPeerError        = errors.New("session: peer sent an ERROR packet")
	ErrRequestMalformed = errors.New("session: request packet malformed")
)

// NoError is the handle API's "no terminal error observed" sentinel
// (tftp_get_last_server_error_code returns -1 on success).
const NoError = -1

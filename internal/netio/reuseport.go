package netio

import "syscall"

// soReusePort is SO_REUSEPORT (include/uapi/asm-generic/socket.h); the
// syscall package omits it on linux/amd64 even though it matches the
// value already exposed for other linux architectures.
const soReusePort = 0xf

// reusePortControl allows up to TFTPD_IPC_POOL_SIZE server instances to
// bind distinct ports without contending over a lingering socket from a
// fast restart. Adapted verbatim from the teacher's
// pkg/server/helpers.go controlReusePort.
func reusePortControl() func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var opErr error

		err := c.Control(func(fd uintptr) {
			opErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, soReusePort, 1)
		})
		if err != nil {
			return err
		}

		return opErr
	}
}

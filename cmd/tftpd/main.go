// Command tftpd is the standalone TFTP daemon:
//
//	tftpd [GET_DIR] [PUT_DIR] [max_concurrent_sessions] [trace_level]
//
// Grounded on the original C++ main() (nuTftpServer.cc) for the argument
// order and defaults, and on the teacher's cmd/server/main.go for the
// signal-driven shutdown idiom.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrelsys/tftpd/internal/cliconfig"
	"github.com/kestrelsys/tftpd/internal/control"
	"github.com/kestrelsys/tftpd/internal/logx"
	"github.com/kestrelsys/tftpd/internal/session"
)

func main() {
	cfg, warnings := cliconfig.Parse(os.Args[1:])

	log, err := logx.New(cfg.TraceLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	for _, w := range warnings {
		log.Warn(string(w))
	}

	log.Infof("nuTFTPServer-compatible daemon starting: GET_DIR=%s PUT_DIR=%s max_concurrent_sessions=%d trace_level=%d",
		cfg.ReadDir, cfg.WriteDir, cfg.MaxSessions, cfg.TraceLevel)

	pool := control.NewPool()

	block, err := pool.Start(log, cfg.Port, cfg.MaxSessions, cfg.ReadDir, cfg.WriteDir, session.DefaultConfig())
	if err != nil {
		log.Errorf("tftpd: failed to start: %s", err.Error())
		os.Exit(1)
	}

	log.Infof("listening on port %d", block.Port())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan

	if err := block.Shutdown(); err != nil {
		log.Errorf("tftpd: shutdown error: %s", err.Error())
	}

	log.Infof("closed connection on port %d", block.Port())
}

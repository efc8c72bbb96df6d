// Command tftpc is an interactive TFTP client REPL: connect, get, put,
// timeout, trace, quit.
//
// Grounded on the teacher's cmd/client/main.go and pkg/client.Cli, wired
// to the working Get/Put implementation in pkg/client.Client.
package main

import (
	"github.com/kestrelsys/tftpd/internal/logx"
	"github.com/kestrelsys/tftpd/pkg/client"
)

func main() {
	log, err := logx.New(logx.LevelWarn)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	c := client.NewClient(log)
	cli := client.NewCli(log, c)
	cli.Read()
}

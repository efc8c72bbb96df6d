// Package cliconfig parses the daemon's positional command line:
//
//	<program> [GET_DIR] [PUT_DIR] [max_concurrent_sessions] [trace_level]
//
// Grounded on the original C++ main()'s argv parsing (nuTftpServer.cc)
// for the defaulting and clamping rules, and on the teacher's
// cmd/server/main.go for the idiom of resolving configuration into a
// small struct before constructing the server.
package cliconfig

import (
	"strconv"

	"github.com/kestrelsys/tftpd/internal/logx"
)

const (
	// DefaultReadDir is GET_DIR's default (spec.md §6).
	DefaultReadDir = "/tmp"
	// DefaultWriteDir is PUT_DIR's default (spec.md §6).
	DefaultWriteDir = "/tmp"
	// MaxSessions is the largest accepted max_concurrent_sessions value;
	// anything above it is reset to DefaultSessions, not clamped.
	MaxSessions = 16
	// DefaultSessions is used whenever max_concurrent_sessions is absent
	// or out of [1, MaxSessions].
	DefaultSessions = 16
	// DefaultTraceLevel is used when trace_level is absent.
	DefaultTraceLevel = 3
	// DefaultPort is the well-known TFTP service port.
	DefaultPort = 69
)

// Config is the daemon's fully resolved startup configuration.
type Config struct {
	ReadDir     string
	WriteDir    string
	MaxSessions int
	TraceLevel  logx.Level
	Port        int
}

// Warning is a human-readable message produced while resolving args,
// meant to be logged once the logger is constructed.
type Warning string

// Parse resolves args (os.Args[1:]) into a Config, along with any
// warnings about out-of-range values that were reset to their default.
func Parse(args []string) (Config, []Warning) {
	cfg := Config{
		ReadDir:     DefaultReadDir,
		WriteDir:    DefaultWriteDir,
		MaxSessions: DefaultSessions,
		TraceLevel:  logx.Level(DefaultTraceLevel),
		Port:        DefaultPort,
	}

	var warnings []Warning

	if len(args) > 0 && args[0] != "" {
		cfg.ReadDir = args[0]
	}

	if len(args) > 1 && args[1] != "" {
		cfg.WriteDir = args[1]
	}

	if len(args) > 2 && args[2] != "" {
		sessions, err := strconv.Atoi(args[2])
		if err != nil || sessions < 1 || sessions > MaxSessions {
			warnings = append(warnings, Warning("max_concurrent_sessions out of range, default value is used"))
		} else {
			cfg.MaxSessions = sessions
		}
	}

	if len(args) > 3 && args[3] != "" {
		trace, err := strconv.Atoi(args[3])
		if err != nil {
			warnings = append(warnings, Warning("trace_level not a number, default value is used"))
		} else {
			cfg.TraceLevel = logx.Clamp(trace)
		}
	}

	return cfg, warnings
}

package cliconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsys/tftpd/internal/logx"
)

func TestParseDefaults(t *testing.T) {
	cfg, warnings := Parse(nil)

	assert.Equal(t, DefaultReadDir, cfg.ReadDir)
	assert.Equal(t, DefaultWriteDir, cfg.WriteDir)
	assert.Equal(t, DefaultSessions, cfg.MaxSessions)
	assert.Equal(t, logx.Level(DefaultTraceLevel), cfg.TraceLevel)
	assert.Empty(t, warnings)
}

func TestParseAllPositionalArgs(t *testing.T) {
	cfg, warnings := Parse([]string{"/get", "/put", "8", "1"})

	require.Empty(t, warnings)
	assert.Equal(t, "/get", cfg.ReadDir)
	assert.Equal(t, "/put", cfg.WriteDir)
	assert.Equal(t, 8, cfg.MaxSessions)
	assert.Equal(t, logx.LevelError, cfg.TraceLevel)
}

func TestParseOutOfRangeSessionsResetsToDefaultWithWarning(t *testing.T) {
	cfg, warnings := Parse([]string{"/get", "/put", "99"})

	assert.Equal(t, DefaultSessions, cfg.MaxSessions)
	require.Len(t, warnings, 1)
}

func TestParseZeroSessionsResetsToDefaultWithWarning(t *testing.T) {
	cfg, warnings := Parse([]string{"/get", "/put", "0"})

	assert.Equal(t, DefaultSessions, cfg.MaxSessions)
	require.Len(t, warnings, 1)
}

func TestParseTraceLevelClamped(t *testing.T) {
	cfg, warnings := Parse([]string{"/get", "/put", "4", "99"})

	require.Empty(t, warnings)
	assert.Equal(t, logx.LevelPedantic, cfg.TraceLevel)
}

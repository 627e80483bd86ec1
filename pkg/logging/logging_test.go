package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger("test-component", zerolog.InfoLevel)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewLoggerWithWriter(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logger := NewLoggerWithWriter("test", zerolog.DebugLevel, &buf)

	logger.Debug().Msg("test debug message")
	assert.Contains(t, buf.String(), "test debug message")
	assert.Contains(t, buf.String(), `"component":"test"`)
	assert.Contains(t, buf.String(), `"level":"debug"`)
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("test", zerolog.InfoLevel, &buf)

	logger.Debug().Msg("debug message")
	assert.NotContains(t, buf.String(), "debug message")

	logger.Info().Msg("info message")
	assert.Contains(t, buf.String(), "info message")

	logger.Warn().Msg("warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestConfigureGlobal(t *testing.T) {
	ConfigureGlobal(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantErr, err != nil, tt.in)
	}
}

func TestConfigureGlobalLogging_JSON(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriter(&buf)
	t.Cleanup(func() {
		SetLogWriter(os.Stderr)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	require.NoError(t, ConfigureGlobalLogging("warn", FormatJSON))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

func TestConfigureGlobalLogging_InvalidFormat(t *testing.T) {
	require.Error(t, ConfigureGlobalLogging("info", "xml"))
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	require.NoError(t, SetLevel("error"))
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
	require.Error(t, SetLevel("nope"))
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("http", zerolog.InfoLevel, &buf)

	StdLogger(logger, zerolog.WarnLevel).Print("http: TLS handshake error from 127.0.0.1:5555: EOF")

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "TLS handshake error")
}

func TestOpenFile_RotateAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fpintake.log")
	OpenFile(path, 1, 2)
	t.Cleanup(func() { SetLogWriter(os.Stderr) })

	logger := NewLogger("test", zerolog.InfoLevel)
	logger.Info().Msg("before rotate")
	require.NoError(t, Rotate())
	logger.Info().Msg("after rotate")
	require.NoError(t, Close())

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(current), "after rotate")
	assert.NotContains(t, string(current), "before rotate")

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "fpintake-*.log"))
	require.NoError(t, err)
	assert.Len(t, matches, 1, "rotated backup")
}

func TestRotate_NoFile(t *testing.T) {
	SetLogWriter(os.Stderr)
	require.NoError(t, Rotate())
	require.NoError(t, Close())
}

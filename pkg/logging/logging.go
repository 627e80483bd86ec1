// pkg/logging/logging.go
package logging

import (
	"fmt"
	"io"
	stdLog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	// logWriter stores the current log writer globally
	logWriter io.Writer = os.Stderr

	// fileWriter is set when output goes to a rotated log file.
	fileWriter *lumberjack.Logger
)

// stdLogWriter forwards stdlib log output (e.g. net/http's ErrorLog) to zerolog.
type stdLogWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func (w *stdLogWriter) Write(p []byte) (n int, err error) {
	message := strings.TrimSpace(string(p))

	// "2025/05/23 14:40:15 server.go:35: message" when stdlog flags are set
	parts := strings.SplitN(message, " ", 4)
	if len(parts) == 4 {
		if stdTime, err := time.Parse("2006/01/02 15:04:05", parts[0]+" "+parts[1]); err == nil {
			w.logger.WithLevel(w.level).
				Str("file", strings.TrimSuffix(parts[2], ":")).
				Time("time", stdTime).
				Msg(parts[3])
			return len(p), nil
		}
	}

	w.logger.WithLevel(w.level).Msg(message)
	return len(p), nil
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// ConfigureGlobalLogging configures the global logger from the log level and
// format settings. Unknown levels fall back to info.
func ConfigureGlobalLogging(levelStr, format string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}

	w, ferr := writerFor(format, logWriter)
	if ferr != nil {
		return ferr
	}

	logContext := zerolog.New(w).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logContext = logContext.Caller()
	}

	// The level lives only in the global setting so SetLevel also applies
	// to loggers derived from log.Logger.
	zerolog.SetGlobalLevel(level)
	log.Logger = logContext.Logger()
	zerolog.DefaultContextLogger = &log.Logger

	stdLog.SetFlags(0)
	stdLog.SetOutput(&stdLogWriter{logger: log.Logger, level: zerolog.DebugLevel})

	if err != nil {
		log.Warn().Str("level", levelStr).Msg("Invalid log level, using info")
	}
	return nil
}

// SetLevel changes the global level without rebuilding the logger. Used when
// the config file is reloaded.
func SetLevel(levelStr string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// ConfigureGlobal sets the global level and a JSON logger on stderr.
func ConfigureGlobal(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(logWriter).Level(level).With().Timestamp().Logger()
}

// ParseLevel converts a level name to a zerolog.Level. An empty name is info.
func ParseLevel(levelStr string) (zerolog.Level, error) {
	if levelStr == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}
	return level, nil
}

func writerFor(format string, out io.Writer) (io.Writer, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}, nil
	case FormatJSON:
		return out, nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want %s or %s)", format, FormatText, FormatJSON)
	}
}

// OpenFile sends subsequent log output to path, rotating it once it grows
// past maxSizeMB and keeping maxBackups old files. Call it before
// ConfigureGlobalLogging.
func OpenFile(path string, maxSizeMB, maxBackups int) {
	fileWriter = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	logWriter = fileWriter
}

// Rotate closes the current log file and starts a new one. It is a no-op
// when logging to stderr.
func Rotate() error {
	if fileWriter == nil {
		return nil
	}
	return fileWriter.Rotate()
}

// Close closes the log file, if any.
func Close() error {
	if fileWriter == nil {
		return nil
	}
	return fileWriter.Close()
}

// SetLogWriter sets the writer used by ConfigureGlobalLogging.
func SetLogWriter(w io.Writer) {
	logWriter = w
	fileWriter = nil
}

// NewLogger returns a JSON logger on the current log writer tagged with
// component.
func NewLogger(component string, level zerolog.Level) zerolog.Logger {
	return NewLoggerWithWriter(component, level, logWriter)
}

// NewLoggerWithWriter returns a JSON logger on w tagged with component.
func NewLoggerWithWriter(component string, level zerolog.Level, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// StdLogger adapts logger for APIs that take a *log.Logger, such as
// http.Server.ErrorLog. Lines are logged at level.
func StdLogger(logger zerolog.Logger, level zerolog.Level) *stdLog.Logger {
	return stdLog.New(&stdLogWriter{logger: logger, level: level}, "", 0)
}

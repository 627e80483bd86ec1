package server

import (
	"errors"
	"fmt"

	"github.com/vulntor/fpintake/pkg/storage"
)

const (
	errorCodeInvalidPort       = "SERVER_INVALID_PORT"
	errorCodeConfigUnavailable = "SERVER_CONFIG_UNAVAILABLE"
	errorCodeInvalidConfig     = "SERVER_INVALID_CONFIG"
	errorCodeStorageInitFailed = "SERVER_STORAGE_INIT_FAILED"
	errorCodeStorageLocked     = "SERVER_STORAGE_LOCKED"
	errorCodeTLSLoadFailed     = "SERVER_TLS_LOAD_FAILED"
	errorCodeAppInitFailed     = "SERVER_INIT_FAILED"
	errorCodeRuntimeFailed     = "SERVER_RUNTIME_FAILED"
)

var (
	// ErrInvalidPort indicates an invalid port flag value.
	ErrInvalidPort = errors.New("invalid port")
	// ErrConfigUnavailable indicates the CLI context lacked a config manager.
	ErrConfigUnavailable = errors.New("config manager unavailable")
)

type errorCoder interface {
	error
	Code() string
}

type withCodeError struct {
	error
	code string
}

func (e *withCodeError) Code() string {
	return e.code
}

func (e *withCodeError) Unwrap() error {
	return e.error
}

// WithErrorCode annotates err with a server error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCodeError{error: err, code: code}
}

// NewInvalidPortError formats an invalid port error with context.
func NewInvalidPortError(port int) error {
	return WithErrorCode(fmt.Errorf("%w: invalid port %d: must be between 1 and 65535", ErrInvalidPort, port), errorCodeInvalidPort)
}

// WrapInvalidConfig annotates server config validation errors.
func WrapInvalidConfig(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(fmt.Errorf("invalid server configuration: %w", err), errorCodeInvalidConfig)
}

// WrapStorageInit annotates storage backend initialization failures. A
// database file held by another process gets its own code.
func WrapStorageInit(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrLocked) {
		return WithErrorCode(err, errorCodeStorageLocked)
	}
	return WithErrorCode(err, errorCodeStorageInitFailed)
}

// WrapTLSLoad annotates certificate loading failures.
func WrapTLSLoad(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(fmt.Errorf("load TLS key pair: %w", err), errorCodeTLSLoadFailed)
}

// WrapAppInit annotates server app creation failures. Errors that already
// carry a code keep it.
func WrapAppInit(err error) error {
	if err == nil {
		return nil
	}
	var coded errorCoder
	if errors.As(err, &coded) {
		return err
	}
	return WithErrorCode(err, errorCodeAppInitFailed)
}

// WrapRuntime annotates server runtime failures.
func WrapRuntime(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(err, errorCodeRuntimeFailed)
}

// ErrorCode resolves a server error to its error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded errorCoder
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}

	switch {
	case errors.Is(err, ErrInvalidPort):
		return errorCodeInvalidPort
	case errors.Is(err, ErrConfigUnavailable):
		return errorCodeConfigUnavailable
	case errors.Is(err, storage.ErrLocked):
		return errorCodeStorageLocked
	default:
		return errorCodeRuntimeFailed
	}
}

// ExitCode maps server errors to CLI exit codes.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch code := ErrorCode(err); {
	case errors.Is(err, ErrInvalidPort), code == errorCodeInvalidConfig:
		return 2
	case errors.Is(err, ErrConfigUnavailable):
		return 1
	case code == errorCodeStorageInitFailed,
		code == errorCodeStorageLocked,
		code == errorCodeTLSLoadFailed,
		code == errorCodeAppInitFailed:
		return 7
	default:
		return 1
	}
}

// Suggestions provides CLI hints for server errors.
func Suggestions(err error) []string {
	if err == nil {
		return nil
	}
	return SuggestionsFor(ErrorCode(err))
}

// SuggestionsFor returns the CLI hints for a server error code, or nil.
func SuggestionsFor(code string) []string {
	switch code {
	case errorCodeInvalidPort:
		return []string{
			"Use a port between 1 and 65535",
			"Example:                 fpintake server start --port 8080",
		}
	case errorCodeConfigUnavailable:
		return []string{
			"Run via the fpintake CLI so the config manager initializes",
			"Avoid calling server start from custom scripts without init",
		}
	case errorCodeInvalidConfig:
		return []string{
			"Check configuration values in the config file and FPINTAKE_* variables",
			"Retry with --debug for detailed validation errors",
		}
	case errorCodeStorageInitFailed:
		return []string{
			"Verify the database directory is writable or the DSN is reachable",
			"Override storage:        fpintake server start --storage-path <file>",
		}
	case errorCodeStorageLocked:
		return []string{
			"Another fpintake process is using this database file",
			"Stop it or use a different file: --storage-path <file>",
		}
	case errorCodeTLSLoadFailed:
		return []string{
			"Check that --tls-cert and --tls-key point to a matching PEM pair",
			"Omit both flags to serve plain HTTP",
		}
	case errorCodeAppInitFailed:
		return []string{
			"Retry with debug logging: fpintake server start --debug",
			"Review configuration for invalid values",
		}
	case errorCodeRuntimeFailed:
		return []string{
			"Check server logs for runtime errors",
			"Ensure no other process is using the selected port",
		}
	default:
		return nil
	}
}

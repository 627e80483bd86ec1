// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	serversvc "github.com/vulntor/fpintake/pkg/server"
)

// ReportedError marks an error whose failure summary was already printed.
// main only sets the exit code for it.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }
func (e *ReportedError) Unwrap() error { return e.Err }

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	var reported *ReportedError
	return errors.As(err, &reported)
}

// Fail prints the failure summary for err and returns it marked as reported.
func Fail(f Formatter, operation string, err error, errorCode string) error {
	if printErr := f.PrintTotalFailureSummary(operation, err, errorCode); printErr != nil {
		return errors.Join(err, printErr)
	}
	return &ReportedError{Err: err}
}

// PrintTotalFailureSummary prints total failure with error and suggestions
// Example output:
//
//	✗ Failed to start server: invalid port 0: must be between 1 and 65535
//
//	💡 Suggestions:
//	  → Use a port between 1 and 65535
//	  → Example:                 fpintake server start --port 8080
func (f *formatter) PrintTotalFailureSummary(operation string, err error, errorCode string) error {
	if f.quiet {
		return nil
	}

	if f.mode == ModeJSON {
		return f.PrintJSON(map[string]any{
			"success":    false,
			"operation":  operation,
			"error":      err.Error(),
			"error_code": errorCode,
		})
	}

	var sb strings.Builder

	errorMsg := fmt.Sprintf("✗ Failed to %s: %v", operation, err)
	if f.color {
		sb.WriteString(color.RedString("%s\n", errorMsg))
	} else {
		sb.WriteString(fmt.Sprintf("%s\n", errorMsg))
	}

	suggestions := GetSuggestions(errorCode, operation)
	if len(suggestions) > 0 {
		sb.WriteString("\n💡 Suggestions:\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("  → %s\n", s))
		}
	}

	_, writeErr := f.stdout.Write([]byte(sb.String()))
	return writeErr
}

var suggestionGenerators = map[string]func(string) []string{
	"FINGERPRINT_NOT_FOUND": func(string) []string {
		return []string{
			"Check the id returned by POST /api/v1/fingerprints",
			"Point at the same database: --storage-path <file> or --storage-dsn <dsn>",
		}
	},
	"FINGERPRINT_INVALID_ID": func(string) []string {
		return []string{
			"Pass the fingerprint id as the only argument",
			"Example:                 fpintake fingerprint show 0190a1b2-...",
		}
	},
	"INVALID_OUTPUT": func(string) []string {
		return []string{
			"Use --output table, --output json or --output yaml",
		}
	},
	"STORAGE_FAILURE": func(string) []string {
		return []string{
			"Retry with debug logging:  fpintake --debug <command>",
			"Check database file permissions or DSN reachability",
		}
	},
}

func init() {
	suggestionGenerators["STORAGE_INIT_FAILED"] = suggestionGenerators["STORAGE_FAILURE"]
}

// GetSuggestions returns actionable hints based on error code and operation.
// Server codes are resolved by the server package.
func GetSuggestions(errorCode, operation string) []string {
	if generator, ok := suggestionGenerators[errorCode]; ok {
		return generator(operation)
	}
	return serversvc.SuggestionsFor(errorCode)
}

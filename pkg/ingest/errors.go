package ingest

import (
	"errors"
	"strings"

	"github.com/vulntor/fpintake/pkg/component"
)

// ErrInvalidJSON is returned when the submitted body is not a JSON object.
var ErrInvalidJSON = errors.New("invalid JSON")

// ValidationError aggregates every field rejected in strict mode.
type ValidationError struct {
	Fields []*component.FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

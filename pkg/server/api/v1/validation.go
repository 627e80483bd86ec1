package v1

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Retrieval output formats.
const (
	FormatNested = "nested"
	FormatFlat   = "flat"
)

// GetFingerprintQuery represents supported query params for
// GET /api/v1/fingerprints/{id}.
type GetFingerprintQuery struct {
	Format string
}

// ParseGetFingerprintQuery parses and validates query params.
// Format defaults to nested.
func ParseGetFingerprintQuery(r *http.Request) (*GetFingerprintQuery, error) {
	res := GetFingerprintQuery{Format: FormatNested}

	if v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); v != "" {
		if err := validate.Var(v, "oneof="+FormatNested+" "+FormatFlat); err != nil {
			return nil, &ValidationError{Field: "format", Reason: "must be one of: nested,flat"}
		}
		res.Format = v
	}

	if strings.TrimSpace(r.PathValue("id")) == "" {
		return nil, &ValidationError{Field: "id", Reason: "required"}
	}

	return &res, nil
}

// ValidationError is a lightweight error used for 400 responses.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return "validation failed"
	}
	if e.Reason == "" {
		return e.Field + ": invalid"
	}
	return e.Field + ": " + e.Reason
}

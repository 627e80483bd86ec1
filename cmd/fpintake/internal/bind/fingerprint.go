package bind

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vulntor/fpintake/cmd/fpintake/internal/format"
)

// ErrInvalidID is returned when the fingerprint id argument is blank.
var ErrInvalidID = errors.New("fingerprint id is required")

// FingerprintShowOptions contains validated options for 'fingerprint show'.
type FingerprintShowOptions struct {
	ID     string
	Flat   bool
	Output format.OutputMode
}

// BindFingerprintShowOptions reads the id argument and the --flat and
// --output flags.
func BindFingerprintShowOptions(cmd *cobra.Command, args []string) (FingerprintShowOptions, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return FingerprintShowOptions{}, ErrInvalidID
	}

	output, _ := cmd.Flags().GetString("output")
	if err := format.ValidateMode(output); err != nil {
		return FingerprintShowOptions{}, err
	}
	flat, _ := cmd.Flags().GetBool("flat")

	return FingerprintShowOptions{
		ID:     strings.TrimSpace(args[0]),
		Flat:   flat,
		Output: format.ParseMode(output),
	}, nil
}

package format

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// FromCommand builds a Formatter on the command's writers. The --output,
// --quiet and --no-color flags are read when the command (or a parent) has
// them; a command without --output prints tables. Color is also off when
// fatih/color has disabled it (NO_COLOR or a non-terminal stdout).
func FromCommand(cmd *cobra.Command) Formatter {
	flags := cmd.Flags()

	mode := ModeTable
	if out, err := flags.GetString("output"); err == nil {
		mode = ParseMode(out)
	}
	quiet, _ := flags.GetBool("quiet")
	noColor, _ := flags.GetBool("no-color")

	return New(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode, quiet, !noColor && !color.NoColor)
}

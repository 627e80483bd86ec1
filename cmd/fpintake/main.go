package main

import (
	"fmt"
	"os"

	"github.com/vulntor/fpintake/cmd/fpintake/commands"
	"github.com/vulntor/fpintake/cmd/fpintake/internal/format"
	serversvc "github.com/vulntor/fpintake/pkg/server"
)

func main() {
	if err := commands.NewCommand().Execute(); err != nil {
		if !format.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(serversvc.ExitCode(err))
	}
}

package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	serverCmd "github.com/vulntor/fpintake/cmd/fpintake/commands/server"
	"github.com/vulntor/fpintake/pkg/appctx"
	"github.com/vulntor/fpintake/pkg/config"
	"github.com/vulntor/fpintake/pkg/logging"
	"github.com/vulntor/fpintake/pkg/paths"
)

const cliExecutable = "fpintake"

// NewCommand constructs the top-level fpintake CLI command, wiring global
// flags, configuration loading and logging setup.
func NewCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "fpintake collects browser fingerprints over HTTP",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cmd is the command being executed, so its local flags are
			// visible to the flag source too.
			path := configFile
			if path == "" {
				path = paths.DefaultConfigFile()
			}

			mgr := config.NewManager()
			if err := mgr.Load(cmd.Flags(), path); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg := mgr.Get()

			if cfg.Log.File != "" {
				logging.OpenFile(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
			}
			if err := logging.ConfigureGlobalLogging(cfg.Log.Level, cfg.Log.Format); err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			log.Debug().Str("config_file", mgr.ConfigFile()).Msg("configuration loaded")

			ctx := appctx.WithConfig(cmd.Context(), mgr)
			ctx = appctx.WithLogger(ctx, log.Logger)

			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Close()
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default: $XDG_CONFIG_HOME/fpintake/fpintake.yaml)")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress summaries")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(serverCmd.NewCommand())
	cmd.AddCommand(NewFingerprintCommand())
	cmd.AddCommand(NewVersionCommand(cliExecutable))

	return cmd
}

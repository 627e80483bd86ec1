package commands

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/vulntor/fpintake/cmd/fpintake/internal/bind"
	"github.com/vulntor/fpintake/cmd/fpintake/internal/format"
	"github.com/vulntor/fpintake/pkg/appctx"
	"github.com/vulntor/fpintake/pkg/retrieval"
	serversvc "github.com/vulntor/fpintake/pkg/server"
	"github.com/vulntor/fpintake/pkg/storage"
)

const showOperation = "show fingerprint"

// NewFingerprintCommand wires CLI helpers for stored fingerprints.
func NewFingerprintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fingerprint",
		Aliases: []string{"fp"},
		Short:   "Inspect stored fingerprints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("storage-driver", "", "Storage driver: sqlite | postgres")
	cmd.PersistentFlags().String("storage-path", "", "SQLite database file")
	cmd.PersistentFlags().String("storage-dsn", "", "PostgreSQL connection string")

	cmd.AddCommand(newFingerprintShowCommand())

	return cmd
}

func newFingerprintShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored fingerprint",
		Long: `Print a stored fingerprint with every component, using the same
rendering as GET /api/v1/fingerprints/{id}.

Table output always lists flat "component.field" keys.`,
		Example: `  fpintake fingerprint show 0190a1b2-7c3d-7000-8000-1a2b3c4d5e6f
  fpintake fingerprint show 0190a1b2-7c3d-7000-8000-1a2b3c4d5e6f --flat -o json`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			opts, err := bind.BindFingerprintShowOptions(cmd, args)
			if err != nil {
				code := "INVALID_OUTPUT"
				if errors.Is(err, bind.ErrInvalidID) {
					code = "FINGERPRINT_INVALID_ID"
				}
				return format.Fail(formatter, showOperation, err, code)
			}

			cfgMgr, ok := appctx.Config(cmd.Context())
			if !ok {
				err := serversvc.ErrConfigUnavailable
				return format.Fail(formatter, showOperation, err, serversvc.ErrorCode(err))
			}
			cfg := cfgMgr.Get()
			logger := appctx.Logger(cmd.Context())

			backend, err := storage.NewBackend(cmd.Context(), &cfg.Storage, logger)
			if err != nil {
				wrapped := serversvc.WrapStorageInit(err)
				return format.Fail(formatter, showOperation, wrapped, serversvc.ErrorCode(wrapped))
			}
			defer func() { _ = backend.Close() }()

			svc := retrieval.NewService(backend)

			var out map[string]any
			if opts.Flat || opts.Output == format.ModeTable {
				out, err = svc.Flat(cmd.Context(), opts.ID)
			} else {
				out, err = svc.Nested(cmd.Context(), opts.ID)
			}
			if err != nil {
				code := "STORAGE_FAILURE"
				if storage.IsNotFound(err) {
					code = "FINGERPRINT_NOT_FOUND"
				}
				return format.Fail(formatter, showOperation, err, code)
			}

			if opts.Output != format.ModeTable {
				return formatter.PrintData(out)
			}
			return formatter.PrintTable([]string{"key", "value"}, flatRows(out))
		},
	}

	cmd.Flags().Bool("flat", false, "Print flat component.field keys")
	cmd.Flags().StringP("output", "o", "table", "Output format: table | json | yaml")

	return cmd
}

// flatRows renders a flat fingerprint as sorted key/value rows. Lists and
// objects are shown as compact JSON, NULL as an empty cell.
func flatRows(flat map[string]any) [][]string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, cellValue(flat[k])})
	}
	return rows
}

func cellValue(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return "?"
		}
		return string(b)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "?"
	}
	return s
}

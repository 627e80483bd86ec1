package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/fpintake/cmd/fpintake/internal/format"
	"github.com/vulntor/fpintake/pkg/component"
	"github.com/vulntor/fpintake/pkg/storage"
)

// seedDatabase stores one fingerprint in a fresh SQLite file and returns
// the file and the fingerprint id.
func seedDatabase(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fp.db")
	ctx := context.Background()

	backend, err := storage.NewBackend(ctx, &storage.Config{Driver: storage.DriverSQLite, Path: path}, zerolog.Nop())
	require.NoError(t, err)

	doc := component.NewDocument()
	doc["display"]["screen_width"] = int64(1920)
	doc["fonts"]["installed_fonts"] = []any{"Arial", "Noto Sans"}

	id, err := backend.CreateFingerprint(ctx, doc)
	require.NoError(t, err)
	require.NoError(t, backend.Close())
	return path, id
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFingerprintShow_FlatJSON(t *testing.T) {
	path, id := seedDatabase(t)

	out, err := runCLI(t, "fingerprint", "show", id, "--storage-path", path, "--flat", "-o", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, id, got["id"])
	require.Equal(t, float64(1920), got["display.screen_width"])
	require.Equal(t, []any{"Arial", "Noto Sans"}, got["fonts.installed_fonts"])
}

func TestFingerprintShow_NestedYAML(t *testing.T) {
	path, id := seedDatabase(t)

	out, err := runCLI(t, "fp", "show", id, "--storage-path", path, "-o", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "display:\n")
	require.Contains(t, out, "  screen_width: 1920\n")
}

func TestFingerprintShow_Table(t *testing.T) {
	path, id := seedDatabase(t)

	out, err := runCLI(t, "--no-color", "fingerprint", "show", id, "--storage-path", path)
	require.NoError(t, err)
	require.Contains(t, out, "display.screen_width")
	require.Contains(t, out, `["Arial","Noto Sans"]`)
}

func TestFingerprintShow_Errors(t *testing.T) {
	path, _ := seedDatabase(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "unknown id",
			args: []string{"fingerprint", "show", "0190a1b2-0000-7000-8000-000000000000", "--storage-path", path},
			want: "Check the id returned by POST /api/v1/fingerprints",
		},
		{
			name: "missing id",
			args: []string{"fingerprint", "show", "--storage-path", path},
			want: "Pass the fingerprint id as the only argument",
		},
		{
			name: "bad output",
			args: []string{"fingerprint", "show", "x", "-o", "xml", "--storage-path", path},
			want: "Use --output table, --output json or --output yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, append([]string{"--no-color"}, tt.args...)...)
			require.Error(t, err)
			require.True(t, format.IsReported(err))
			require.Contains(t, out, "✗ Failed to show fingerprint")
			require.Contains(t, out, tt.want)
		})
	}
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{int64(7), "7"},
		{true, "true"},
		{"x", "x"},
		{[]any{"a"}, `["a"]`},
		{map[string]any{"quota": 1}, `{"quota":1}`},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, cellValue(tt.in))
	}
}

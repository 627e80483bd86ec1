package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vulntor/fpintake/pkg/component"
)

func newMemoryStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), &Config{Driver: DriverSQLite, Path: MemoryPath}, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	return store
}

func sampleDocument() component.Document {
	doc := component.NewDocument()
	doc["http_header"]["header_count"] = 3
	doc["http_header"]["http_version"] = "HTTP/1.1"
	doc["http_header"]["headers_present"] = []any{"Host", "User-Agent", "X-Custom-Trace"}
	doc["http_header"]["unusual_headers"] = []any{"X-Custom-Trace"}
	doc["display"]["screen_width"] = float64(1920)
	doc["display"]["device_pixel_ratio"] = 1.5
	doc["storage"]["cookies_enabled"] = true
	doc["storage"]["storage_estimate"] = map[string]any{"quota": float64(1024), "usage": float64(12)}
	doc["ip"]["ip_address"] = "203.0.113.7"
	doc["fonts"]["installed_fonts"] = []any{"Arial", "Helvetica"}
	doc["browser"]["private_mode"] = false
	return doc
}

func countRows(t *testing.T, s *SQLStore, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM "` + table + `"`).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSQLStore_RoundTrip(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	id, err := store.CreateFingerprint(ctx, sampleDocument())
	if err != nil {
		t.Fatalf("CreateFingerprint() failed: %v", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("id %q is not a uuid: %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("uuid version = %d, expected 7", parsed.Version())
	}

	fp, err := store.GetFingerprint(ctx, id)
	if err != nil {
		t.Fatalf("GetFingerprint() failed: %v", err)
	}
	if fp.ID != id {
		t.Errorf("ID = %q, expected %q", fp.ID, id)
	}
	if fp.CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, expected after %v", fp.CreatedAt, before)
	}
	if err := fp.Components.Complete(); err != nil {
		t.Fatalf("stored fingerprint incomplete: %v", err)
	}

	c := fp.Components
	checks := []struct {
		component, field string
		want             any
	}{
		{"http_header", "header_count", int64(3)},
		{"http_header", "http_version", "HTTP/1.1"},
		{"display", "screen_width", int64(1920)},
		{"display", "device_pixel_ratio", 1.5},
		{"display", "color_depth", nil},
		{"storage", "cookies_enabled", true},
		{"browser", "private_mode", false},
		{"ip", "ip_address", "203.0.113.7"},
	}
	for _, tc := range checks {
		if got := c[tc.component][tc.field]; got != tc.want {
			t.Errorf("%s.%s = %#v, expected %#v", tc.component, tc.field, got, tc.want)
		}
	}

	fonts, ok := c["fonts"]["installed_fonts"].([]any)
	if !ok || len(fonts) != 2 || fonts[0] != "Arial" {
		t.Errorf("installed_fonts = %#v", c["fonts"]["installed_fonts"])
	}
	estimate, ok := c["storage"]["storage_estimate"].(map[string]any)
	if !ok || estimate["quota"] != float64(1024) {
		t.Errorf("storage_estimate = %#v", c["storage"]["storage_estimate"])
	}
	if langs, ok := c["time_zone"]["languages"].([]any); !ok || len(langs) != 0 {
		t.Errorf("languages = %#v, expected empty list", c["time_zone"]["languages"])
	}
}

func TestSQLStore_EmptyDocumentCreatesAllComponents(t *testing.T) {
	store := newMemoryStore(t)

	if _, err := store.CreateFingerprint(context.Background(), component.NewDocument()); err != nil {
		t.Fatalf("CreateFingerprint() failed: %v", err)
	}

	for _, c := range component.Registry() {
		if n := countRows(t, store, c.Table); n != 1 {
			t.Errorf("%s has %d rows, expected 1", c.Table, n)
		}
	}
	if n := countRows(t, store, fingerprintTable); n != 1 {
		t.Errorf("fingerprints has %d rows, expected 1", n)
	}
}

func TestSQLStore_ConstraintFailureLeavesNoRows(t *testing.T) {
	store := newMemoryStore(t)

	doc := sampleDocument()
	// audio is inserted after most siblings.
	doc["audio"]["audio_hash"] = string(make([]byte, 129))

	_, err := store.CreateFingerprint(context.Background(), doc)
	if !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	var inputErr *InvalidInputError
	if !errors.As(err, &inputErr) || inputErr.Field != "audio.audio_hash" {
		t.Fatalf("expected audio.audio_hash error, got %v", err)
	}

	for _, c := range component.Registry() {
		if n := countRows(t, store, c.Table); n != 0 {
			t.Errorf("%s has %d rows after rollback", c.Table, n)
		}
	}
	if n := countRows(t, store, fingerprintTable); n != 0 {
		t.Errorf("fingerprints has %d rows after rollback", n)
	}
}

func TestSQLStore_InvalidIP(t *testing.T) {
	store := newMemoryStore(t)

	doc := component.NewDocument()
	doc["ip"]["ip_address"] = "not-an-ip"

	_, err := store.CreateFingerprint(context.Background(), doc)
	var inputErr *InvalidInputError
	if !errors.As(err, &inputErr) || inputErr.Field != "ip.ip_address" {
		t.Fatalf("expected ip.ip_address error, got %v", err)
	}
}

func TestSQLStore_OutOfRangeIntegerLeavesNoRows(t *testing.T) {
	for name, v := range map[string]any{
		"float":   1e20,
		"literal": json.Number("1e20"),
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemoryStore(t)

			doc := sampleDocument()
			doc["display"]["screen_height"] = v

			_, err := store.CreateFingerprint(context.Background(), doc)
			var inputErr *InvalidInputError
			if !errors.As(err, &inputErr) || inputErr.Field != "display.screen_height" {
				t.Fatalf("expected display.screen_height error, got %v", err)
			}

			for _, c := range component.Registry() {
				if n := countRows(t, store, c.Table); n != 0 {
					t.Errorf("%s has %d rows after rollback", c.Table, n)
				}
			}
			if n := countRows(t, store, fingerprintTable); n != 0 {
				t.Errorf("fingerprints has %d rows after rollback", n)
			}
		})
	}
}

func TestSQLStore_LargeIntegerRoundTrip(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	doc := sampleDocument()
	doc["display"]["screen_height"] = json.Number("9007199254740993")

	id, err := store.CreateFingerprint(ctx, doc)
	if err != nil {
		t.Fatalf("CreateFingerprint() failed: %v", err)
	}
	fp, err := store.GetFingerprint(ctx, id)
	if err != nil {
		t.Fatalf("GetFingerprint() failed: %v", err)
	}
	if got := fp.Components["display"]["screen_height"]; got != int64(9007199254740993) {
		t.Errorf("screen_height = %v (%T), expected 9007199254740993", got, got)
	}
}

func TestSQLStore_BlankIPStoredAsNull(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	doc := sampleDocument()
	doc["ip"]["ip_address"] = ""

	id, err := store.CreateFingerprint(ctx, doc)
	if err != nil {
		t.Fatalf("CreateFingerprint() failed: %v", err)
	}
	fp, err := store.GetFingerprint(ctx, id)
	if err != nil {
		t.Fatalf("GetFingerprint() failed: %v", err)
	}
	if got := fp.Components["ip"]["ip_address"]; got != nil {
		t.Errorf("ip_address = %v, expected nil", got)
	}
}

func TestSQLStore_GetFingerprintNotFound(t *testing.T) {
	store := newMemoryStore(t)

	_, err := store.GetFingerprint(context.Background(), "0190a1b2-0000-7000-8000-000000000000")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSQLStore_NullLinkYieldsEmptyComponent(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	id, err := store.CreateFingerprint(ctx, sampleDocument())
	if err != nil {
		t.Fatalf("CreateFingerprint() failed: %v", err)
	}
	if _, err := store.db.Exec(`UPDATE "fingerprints" SET "fonts_id" = NULL WHERE "id" = ?`, id); err != nil {
		t.Fatalf("unlink fonts: %v", err)
	}

	fp, err := store.GetFingerprint(ctx, id)
	if err != nil {
		t.Fatalf("GetFingerprint() failed: %v", err)
	}
	fonts, ok := fp.Components["fonts"]["installed_fonts"].([]any)
	if !ok || len(fonts) != 0 {
		t.Errorf("installed_fonts = %#v, expected empty list", fp.Components["fonts"]["installed_fonts"])
	}
}

func TestSQLStore_InitializeIsIdempotent(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize() failed: %v", err)
	}
}

func TestSQLStore_Closed(t *testing.T) {
	store, err := OpenSQLite(context.Background(), &Config{Path: MemoryPath}, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if _, err := store.CreateFingerprint(context.Background(), component.NewDocument()); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateFingerprint() after close = %v, expected ErrClosed", err)
	}
	if _, err := store.GetFingerprint(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("GetFingerprint() after close = %v, expected ErrClosed", err)
	}
	if err := store.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() = %v, expected ErrClosed", err)
	}
}

func TestOpenSQLite_FileLock(t *testing.T) {
	cfg := &Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "fp.db")}

	first, err := OpenSQLite(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}

	if _, err := OpenSQLite(context.Background(), cfg, zerolog.Nop()); !errors.Is(err, ErrLocked) {
		t.Fatalf("second OpenSQLite() = %v, expected ErrLocked", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	again, err := OpenSQLite(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite() after close failed: %v", err)
	}
	_ = again.Close()
}

func TestOpenSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "nested", "fp.db")}

	b, err := NewBackend(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBackend() failed: %v", err)
	}
	id, err := b.CreateFingerprint(ctx, sampleDocument())
	if err != nil {
		t.Fatalf("CreateFingerprint() failed: %v", err)
	}
	_ = b.Close()

	b, err = NewBackend(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = b.Close() }()

	fp, err := b.GetFingerprint(ctx, id)
	if err != nil {
		t.Fatalf("GetFingerprint() failed: %v", err)
	}
	if fp.Components["ip"]["ip_address"] != "203.0.113.7" {
		t.Errorf("ip_address = %#v", fp.Components["ip"]["ip_address"])
	}
}

//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vulntor/fpintake/pkg/component"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fpintake"),
		postgres.WithUsername("fpintake"),
		postgres.WithPassword("fpintake"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	return dsn
}

func TestPostgres_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Driver: DriverPostgres, DSN: startPostgres(t)}

	b, err := NewBackend(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBackend() failed: %v", err)
	}
	defer func() { _ = b.Close() }()

	id, err := b.CreateFingerprint(ctx, sampleDocument())
	if err != nil {
		t.Fatalf("CreateFingerprint() failed: %v", err)
	}

	fp, err := b.GetFingerprint(ctx, id)
	if err != nil {
		t.Fatalf("GetFingerprint() failed: %v", err)
	}
	if err := fp.Components.Complete(); err != nil {
		t.Fatalf("incomplete fingerprint: %v", err)
	}
	if got := fp.Components["display"]["screen_width"]; got != int64(1920) {
		t.Errorf("screen_width = %#v", got)
	}
	if got := fp.Components["storage"]["cookies_enabled"]; got != true {
		t.Errorf("cookies_enabled = %#v", got)
	}
	if fonts, ok := fp.Components["fonts"]["installed_fonts"].([]any); !ok || len(fonts) != 2 {
		t.Errorf("installed_fonts = %#v", fp.Components["fonts"]["installed_fonts"])
	}

	if _, err := b.GetFingerprint(ctx, "0190a1b2-0000-7000-8000-000000000000"); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPostgres_VarcharLimitRollsBack(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Driver: DriverPostgres, DSN: startPostgres(t)}

	b, err := NewBackend(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBackend() failed: %v", err)
	}
	defer func() { _ = b.Close() }()

	doc := component.NewDocument()
	doc["permissions_status"]["camera"] = "granted-but-way-too-long-for-column"
	if _, err := b.CreateFingerprint(ctx, doc); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	store := b.(*SQLStore)
	var n int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "fp_http_header"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("fp_http_header has %d rows after rollback", n)
	}
}

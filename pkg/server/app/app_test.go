package app

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/fpintake/pkg/config"
	"github.com/vulntor/fpintake/pkg/server"
	"github.com/vulntor/fpintake/pkg/storage"
)

func newStore(t *testing.T) storage.Backend {
	t.Helper()
	b, err := storage.NewBackend(context.Background(),
		&storage.Config{Driver: storage.DriverSQLite, Path: storage.MemoryPath}, zerolog.Nop())
	require.NoError(t, err)
	return b
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 9999
	return cfg
}

func TestNew(t *testing.T) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	app, err := New(context.Background(), testConfig(), &Deps{Storage: store, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NotNil(t, app.HTTP)
	require.Nil(t, app.TLSConfig)
	require.Equal(t, "127.0.0.1:9999", app.HTTP.Addr)
	require.NotNil(t, app.HTTP.ConnContext)
	require.False(t, app.Ready.Load())
}

func TestNew_Errors(t *testing.T) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	t.Run("missing storage", func(t *testing.T) {
		_, err := New(context.Background(), testConfig(), &Deps{Logger: zerolog.Nop()})
		require.Error(t, err)
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.Port = 0
		_, err := New(context.Background(), cfg, &Deps{Storage: store, Logger: zerolog.Nop()})
		require.Error(t, err)
	})

	t.Run("zero body limit", func(t *testing.T) {
		cfg := testConfig()
		cfg.Ingest.MaxBodyBytes = 0
		_, err := New(context.Background(), cfg, &Deps{Storage: store, Logger: zerolog.Nop()})
		require.Error(t, err)
	})

	t.Run("missing certificate", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.TLSCertFile = filepath.Join(t.TempDir(), "cert.pem")
		cfg.Server.TLSKeyFile = filepath.Join(t.TempDir(), "key.pem")
		_, err := New(context.Background(), cfg, &Deps{Storage: store, Logger: zerolog.Nop()})
		require.Error(t, err)
		require.Equal(t, "SERVER_TLS_LOAD_FAILED", server.ErrorCode(err))
	})
}

func startApp(t *testing.T, app *App) (string, func() error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	appErr := make(chan error, 1)
	go func() { appErr <- app.Serve(ctx, ln) }()

	require.Eventually(t, app.Ready.Load, 2*time.Second, 10*time.Millisecond)

	return ln.Addr().String(), func() error {
		cancel()
		select {
		case err := <-appErr:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("Shutdown timeout")
			return nil
		}
	}
}

func TestApp_Lifecycle(t *testing.T) {
	app, err := New(context.Background(), testConfig(), &Deps{Storage: newStore(t), Logger: zerolog.Nop()})
	require.NoError(t, err)

	addr, stop := startApp(t, app)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get("http://" + addr + "/readyz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	require.NoError(t, stop())
	require.False(t, app.Ready.Load())

	// Storage is closed on shutdown.
	_, err = app.Deps.Storage.GetFingerprint(context.Background(), "x")
	require.ErrorIs(t, err, storage.ErrClosed)
}

func TestApp_IngestKeepsWireHeaderOrder(t *testing.T) {
	app, err := New(context.Background(), testConfig(), &Deps{Storage: newStore(t), Logger: zerolog.Nop()})
	require.NoError(t, err)

	addr, stop := startApp(t, app)
	defer func() { require.NoError(t, stop()) }()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	body := `{"display":{"screen_width":1280}}`
	raw := "POST /api/v1/fingerprints HTTP/1.1\r\n" +
		"x-custom-trace: 1\r\n" +
		"Host: fp.test\r\n" +
		"User-Agent: probe\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"\r\n" + body
	_, err = io.WriteString(conn, raw)
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		Status        string `json:"status"`
		FingerprintID string `json:"fingerprint_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_ = resp.Body.Close()
	require.Equal(t, "ok", created.Status)

	get, err := http.Get("http://" + addr + "/api/v1/fingerprints/" + created.FingerprintID)
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	var fp struct {
		HTTPHeader struct {
			HeadersPresent []string `json:"headers_present"`
			UnusualHeaders []string `json:"unusual_headers"`
		} `json:"http_header"`
		Display struct {
			ScreenWidth int `json:"screen_width"`
		} `json:"display"`
	}
	require.NoError(t, json.NewDecoder(get.Body).Decode(&fp))
	require.Equal(t, []string{"x-custom-trace", "Host", "User-Agent", "Content-Length"}, fp.HTTPHeader.HeadersPresent)
	require.Equal(t, []string{"x-custom-trace", "Content-Length"}, fp.HTTPHeader.UnusualHeaders)
	require.Equal(t, 1280, fp.Display.ScreenWidth)
}

func TestApp_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fpintake.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	mgr := config.NewManager()
	require.NoError(t, mgr.Load(nil, path))

	var got []string
	app, err := New(context.Background(), testConfig(), &Deps{
		Storage:  newStore(t),
		Config:   mgr,
		OnReload: func(cfg config.Config) { got = append(got, cfg.Log.Level) },
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	defer func() { _ = app.Deps.Storage.Close() }()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))
	app.reload()
	require.Equal(t, []string{"debug"}, got)

	// A broken file keeps the previous configuration and skips the callback.
	require.NoError(t, os.WriteFile(path, []byte("log: ["), 0o644))
	app.reload()
	require.Equal(t, []string{"debug"}, got)
	require.Equal(t, "debug", mgr.Get().Log.Level)
}

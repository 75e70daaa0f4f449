package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfscan/internal/config"
	"shelfscan/internal/httpx"
	"shelfscan/internal/logging"
	"shelfscan/internal/testutil"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	servers := testutil.NewCatalogServers(t)

	cfg := config.Default()
	cfg.Library.Backend = config.BackendSQLite
	cfg.Library.Path = filepath.Join(t.TempDir(), "library.db")
	cfg.Catalog.OpenLibraryBaseURL = servers.OpenLibraryURL
	cfg.Catalog.GoogleBooksBaseURL = servers.GoogleBooksURL
	cfg.Catalog.RequestsPerSecond = 0
	cfg.Catalog.ResolveTimeout = 200 * time.Millisecond
	cfg.Server.ScanRateLimit = 0

	a, err := New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestHandler_ScanFlow(t *testing.T) {
	a := newTestApp(t)
	h, _ := a.Handler()

	resp := testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/v1/scans", map[string]string{"isbn": testutil.FoxISBN}))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	assert.NotEmpty(t, resp.Header.Get(httpx.RequestIDHeader))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, testutil.FoxISBN, resp.Data()["isbn"])
	assert.Equal(t, testutil.FoxMergedTitle, resp.Data()["title"])
	assert.Equal(t, "Roald Dahl", resp.Data()["author"])
	assert.Equal(t, testutil.FoxGoogleCover, resp.Data()["cover_image"])

	resp = testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/v1/scans", map[string]string{"isbn": testutil.DuneISBN}))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Dune", resp.Data()["title"])
	assert.NotContains(t, resp.Data(), "cover_image")

	resp = testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/v1/library", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, resp.Body["data"], 2)
	assert.Equal(t, "2 books", resp.Meta()["label"])
	assert.EqualValues(t, 2, resp.Meta()["total"])

	resp = testutil.Serve(h, testutil.NewRequest(http.MethodDelete, "/v1/library/"+testutil.FoxISBN, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, testutil.FoxMergedTitle, resp.Data()["title"])

	resp = testutil.Serve(h, testutil.NewRequest(http.MethodDelete, "/v1/library/"+testutil.FoxISBN, nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = testutil.Serve(h, testutil.NewRequest(http.MethodDelete, "/v1/library", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, resp.Data()["removed"])

	resp = testutil.Serve(h, testutil.NewRequest(http.MethodDelete, "/v1/library", nil))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, httpx.CodeLibraryEmpty, resp.ErrorCode())
}

func TestHandler_ScanOutcomes(t *testing.T) {
	a := newTestApp(t)
	h, _ := a.Handler()

	resp := testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/v1/scans", map[string]string{"isbn": testutil.UnknownISBN}))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, httpx.CodeNotFound, resp.ErrorCode())

	start := time.Now()
	resp = testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/v1/scans", map[string]string{"isbn": testutil.SlowISBN}))
	assert.Equal(t, http.StatusGatewayTimeout, resp.Code)
	assert.Equal(t, httpx.CodeTimeout, resp.ErrorCode())
	assert.Less(t, time.Since(start), 2*time.Second)

	resp = testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/v1/scans", `{"isbn":""}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, httpx.CodeValidation, resp.ErrorCode())

	count, err := a.Store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandler_LookupDoesNotStore(t *testing.T) {
	a := newTestApp(t)
	h, _ := a.Handler()

	resp := testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/v1/catalog/books/"+testutil.FoxISBN, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, testutil.FoxMergedTitle, resp.Data()["title"])

	count, err := a.Store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandler_Import(t *testing.T) {
	a := newTestApp(t)
	h, _ := a.Handler()

	resp := testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/v1/imports", map[string][]string{
		"isbns": {testutil.FoxISBN, testutil.UnknownISBN, testutil.FoxISBN, testutil.DuneISBN},
	}))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	assert.Equal(t, "COMPLETED", resp.Data()["status"])
	assert.EqualValues(t, 2, resp.Data()["added"])
	assert.EqualValues(t, 1, resp.Data()["not_found"])
	assert.EqualValues(t, 1, resp.Data()["skipped"])

	count, err := a.Store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHandler_Health(t *testing.T) {
	a := newTestApp(t)
	h, _ := a.Handler()

	assert.Equal(t, http.StatusOK, testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/readyz", nil)).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/healthz", nil)).Code)

	require.NoError(t, a.Store.Close())
	assert.Equal(t, http.StatusServiceUnavailable, testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/readyz", nil)).Code)
}

func TestHandler_RateLimitedScans(t *testing.T) {
	a := newTestApp(t)
	a.Config.Server.ScanRateLimit = 0.001
	a.Config.Server.ScanRateBurst = 1
	h, _ := a.Handler()

	lookup := func() int {
		return testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/v1/catalog/books/"+testutil.FoxISBN, nil)).Code
	}
	assert.Equal(t, http.StatusOK, lookup())
	assert.Equal(t, http.StatusTooManyRequests, lookup())
	assert.Equal(t, http.StatusOK, testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/v1/library", nil)).Code)
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	_, err := OpenStore(context.Background(), config.Library{Backend: "mongo"}, logging.NewNop())
	assert.Error(t, err)
}

func TestMigrate_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Library{Backend: config.BackendSQLite, Path: filepath.Join(t.TempDir(), "nested", "library.db")}

	require.NoError(t, Migrate(ctx, cfg, "up", logging.NewNop()))
	require.NoError(t, Migrate(ctx, cfg, "status", logging.NewNop()))
	assert.Error(t, Migrate(ctx, cfg, "sideways", logging.NewNop()))
	assert.Error(t, Migrate(ctx, config.Library{Backend: config.BackendPostgres}, "up", logging.NewNop()))
}

func TestServe_StopsOnCancel(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_ImportOutlastsWriteTimeout(t *testing.T) {
	a := newTestApp(t)
	previous := writeTimeoutSlack
	writeTimeoutSlack = 50 * time.Millisecond
	t.Cleanup(func() { writeTimeoutSlack = previous })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.ServeListener(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	codes := []string{testutil.SlowISBN + "1", testutil.SlowISBN + "2", testutil.SlowISBN + "3", testutil.SlowISBN + "4"}
	body, err := json.Marshal(map[string][]string{"isbns": codes})
	require.NoError(t, err)

	start := time.Now()
	resp, err := http.Post("http://"+ln.Addr().String()+"/v1/imports", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Greater(t, time.Since(start), a.Resolver.Deadline()+writeTimeoutSlack)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Status   string `json:"status"`
			TimedOut int    `json:"timed_out"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "COMPLETED", envelope.Data.Status)
	assert.Equal(t, len(codes), envelope.Data.TimedOut)
}

func TestPerCodeBudget(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, a.Resolver.Deadline(), a.perCodeBudget())

	a.Config.Catalog.RequestsPerSecond = 4
	assert.Equal(t, a.Resolver.Deadline()+250*time.Millisecond, a.perCodeBudget())
}

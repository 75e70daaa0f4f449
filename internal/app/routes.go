package app

import (
	"context"
	"net/http"
	"time"

	"shelfscan/internal/httpx"
	"shelfscan/internal/ingest"
	"shelfscan/internal/scan"
)

// Handler builds the HTTP API. The returned limiter should be run for the
// lifetime of the server so idle clients are evicted.
func (a *App) Handler() (http.Handler, *httpx.RateLimitMiddleware) {
	scanHandler := scan.NewHTTPHandler(a.Scans, a.Logger)
	importHandler := ingest.NewHTTPHandler(a.Imports, a.perCodeBudget())
	limiter := httpx.NewRateLimitMiddleware(a.Config.Server.ScanRateLimit, a.Config.Server.ScanRateBurst)
	limited := func(h http.HandlerFunc) http.Handler { return limiter.Middleware(h) }

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := a.Store.Ping(ctx); err != nil {
			httpx.JSONError(w, r, http.StatusServiceUnavailable, httpx.CodeUnavailable, "library store not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Handle("POST /v1/scans", limited(scanHandler.Scan))
	router.Handle("GET /v1/catalog/books/{isbn}", limited(scanHandler.Lookup))
	router.Handle("POST /v1/imports", limited(importHandler.Import))
	router.HandleFunc("GET /v1/library", scanHandler.List)
	router.HandleFunc("DELETE /v1/library", scanHandler.Clear)
	router.HandleFunc("DELETE /v1/library/{isbn}", scanHandler.Delete)

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(a.Logger),
		httpx.RecoveryMiddleware(a.Logger),
		httpx.SecurityHeadersMiddleware(a.Config.Server.EnableHSTS),
		httpx.RequestSizeLimitMiddleware(a.Config.Server.MaxBodyBytes),
	), limiter
}

// perCodeBudget is the longest a single import code can take: a full
// resolution plus one wait on the outbound catalog limiter.
func (a *App) perCodeBudget() time.Duration {
	budget := a.Resolver.Deadline()
	if rps := a.Config.Catalog.RequestsPerSecond; rps > 0 {
		budget += time.Second / time.Duration(rps)
	}
	return budget
}

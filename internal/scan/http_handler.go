package scan

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"shelfscan/internal/book"
	"shelfscan/internal/catalog"
	"shelfscan/internal/httpx"
	"shelfscan/internal/library"
	"shelfscan/internal/logging"
)

// statusClientClosedRequest is the de facto code for requests abandoned by
// the client before a response was ready.
const statusClientClosedRequest = 499

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type HTTPHandler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHTTPHandler(svc *Service, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logging.Component(logger, "scan_http")}
}

type scanRequest struct {
	ISBN string `json:"isbn" validate:"required"`
}

// Scan handles POST /v1/scans
func (h *HTTPHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	record, err := h.svc.Scan(r.Context(), req.ISBN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, record)
}

// Lookup handles GET /v1/catalog/books/{isbn}
func (h *HTTPHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.Lookup(r.Context(), r.PathValue("isbn"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, record, nil)
}

// List handles GET /v1/library
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	page, err := h.svc.LibraryPage(r.Context(), limit, query.Get("cursor"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	records := page.Records
	if records == nil {
		records = []book.Record{}
	}
	meta := httpx.Meta{
		"total": page.Total,
		"label": CountLabel(page.Total),
	}
	if page.NextCursor != "" {
		meta["next_cursor"] = page.NextCursor
	}
	httpx.JSONSuccess(w, r, records, meta)
}

// Delete handles DELETE /v1/library/{isbn}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.Delete(r.Context(), r.PathValue("isbn"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]string{
		"isbn":  record.Identifier(),
		"title": record.Title(),
	}, nil)
}

// Clear handles DELETE /v1/library
func (h *HTTPHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.svc.Clear(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]int{"removed": removed}, nil)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidCursor):
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid cursor",
			[]httpx.ErrorDetail{{Field: "cursor", Message: "cursor is malformed"}})
	case errors.Is(err, ErrEmptyIdentifier):
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "ISBN is required",
			[]httpx.ErrorDetail{{Field: "isbn", Message: "isbn is required"}})
	case errors.Is(err, catalog.ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Book not found in any catalog", nil)
	case errors.Is(err, library.ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Book not found in library", nil)
	case errors.Is(err, catalog.ErrTimedOut):
		httpx.JSONError(w, r, http.StatusGatewayTimeout, httpx.CodeTimeout, "Catalog lookup took too long", nil)
	case errors.Is(err, ErrLibraryEmpty):
		httpx.JSONError(w, r, http.StatusConflict, httpx.CodeLibraryEmpty, "Library is already empty", nil)
	case errors.Is(err, context.Canceled):
		w.WriteHeader(statusClientClosedRequest)
	default:
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", httpx.RequestIDFrom(r)),
			slog.Any("error", err))
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
	}
}

package ingest

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"shelfscan/internal/httpx"
)

// importWriteSlack is added to the per-code budget when extending the
// response write deadline of an import.
const importWriteSlack = 10 * time.Second

type HTTPHandler struct {
	svc     *Service
	perCode time.Duration
}

// NewHTTPHandler serves imports through svc. perCode is the longest one code
// may take to resolve and store; the response write deadline of an import is
// pushed out by perCode for every submitted code. Zero leaves the server's
// write timeout in place.
func NewHTTPHandler(svc *Service, perCode time.Duration) *HTTPHandler {
	return &HTTPHandler{svc: svc, perCode: perCode}
}

type importRequest struct {
	ISBNs []string `json:"isbns" validate:"required,min=1,max=500"`
}

// Import handles POST /v1/imports
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	h.extendWriteDeadline(w, len(req.ISBNs))

	run, err := h.svc.Run(r.Context(), req.ISBNs)
	if err != nil {
		httpx.JSONError(w, r, http.StatusServiceUnavailable, httpx.CodeImportAborted, err.Error(), nil)
		return
	}
	httpx.JSONSuccess(w, r, run, nil)
}

func (h *HTTPHandler) extendWriteDeadline(w http.ResponseWriter, codes int) {
	if h.perCode <= 0 {
		return
	}
	deadline := time.Now().Add(time.Duration(codes)*h.perCode + importWriteSlack)
	err := http.NewResponseController(w).SetWriteDeadline(deadline)
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.svc.logger.Warn("extend import write deadline", slog.Any("error", err))
	}
}

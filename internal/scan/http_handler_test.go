package scan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfscan/internal/book"
	"shelfscan/internal/catalog"
	"shelfscan/internal/httpx"
	"shelfscan/internal/library"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()
	var body httpx.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func staticResolver(record book.Record, err error) catalog.Resolver {
	return resolverFunc(func(context.Context, string, time.Time) (book.Record, error) {
		return record, err
	})
}

func TestHTTPHandler_Scan(t *testing.T) {
	found := book.New("9780140328721", "Fantastic Mr Fox", "Roald Dahl", fixedNow, "https://covers.openlibrary.org/b/id/1-M.jpg")

	t.Run("created", func(t *testing.T) {
		svc, store := newTestService(t, staticResolver(found, nil))
		store.EXPECT().Add(gomock.Any(), found).Return(nil)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/scans", strings.NewReader(`{"isbn":"9780140328721"}`))
		handler.Scan(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"success":true,"data":{"isbn":"9780140328721","title":"Fantastic Mr Fox","author":"Roald Dahl","added_at":1700000000000,"cover_image":"https://covers.openlibrary.org/b/id/1-M.jpg"}}`, w.Body.String())
	})

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", `{"isbn":"000000000"}`, catalog.ErrNotFound, http.StatusNotFound, httpx.CodeNotFound},
		{"timed out", `{"isbn":"123"}`, catalog.ErrTimedOut, http.StatusGatewayTimeout, httpx.CodeTimeout},
		{"blank isbn", `{"isbn":"   "}`, nil, http.StatusBadRequest, httpx.CodeValidation},
		{"missing isbn", `{}`, nil, http.StatusBadRequest, httpx.CodeValidation},
		{"malformed body", `{"isbn":`, nil, http.StatusBadRequest, httpx.CodeValidation},
		{"unexpected failure", `{"isbn":"123"}`, errors.New("merge exploded"), http.StatusInternalServerError, httpx.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, staticResolver(book.Record{}, tt.err))
			handler := NewHTTPHandler(svc, nil)

			w := httptest.NewRecorder()
			handler.Scan(w, httptest.NewRequest(http.MethodPost, "/v1/scans", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Error.Code)
		})
	}
}

func TestHTTPHandler_Lookup(t *testing.T) {
	found := book.New("123", "Dune", "Frank Herbert", fixedNow, "")
	var gotID string
	svc, _ := newTestService(t, resolverFunc(func(_ context.Context, id string, _ time.Time) (book.Record, error) {
		gotID = id
		return found, nil
	}))
	handler := NewHTTPHandler(svc, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/catalog/books/123", nil)
	r.SetPathValue("isbn", "123")
	handler.Lookup(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "123", gotID)
	assert.Contains(t, w.Body.String(), `"title":"Dune"`)
}

func TestHTTPHandler_List(t *testing.T) {
	t.Run("with books", func(t *testing.T) {
		svc, store := newTestService(t, nil)
		store.EXPECT().GetAll(gomock.Any()).Return([]book.Record{
			book.New("1", "Old", "A", time.UnixMilli(1), ""),
			book.New("2", "New", "B", time.UnixMilli(2), ""),
		}, nil)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/v1/library", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data []book.Primitive `json:"data"`
			Meta map[string]any   `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Data, 2)
		assert.Equal(t, "New", body.Data[0].Title)
		assert.EqualValues(t, 2, body.Meta["total"])
		assert.Equal(t, "2 books", body.Meta["label"])
	})

	t.Run("empty library", func(t *testing.T) {
		svc, store := newTestService(t, nil)
		store.EXPECT().GetAll(gomock.Any()).Return(nil, nil)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/v1/library", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"data":[],"meta":{"total":0,"label":""}}`, w.Body.String())
	})

	t.Run("paged", func(t *testing.T) {
		svc, store := newTestService(t, nil)
		store.EXPECT().GetAll(gomock.Any()).Return([]book.Record{
			book.New("1", "Old", "A", time.UnixMilli(1), ""),
			book.New("2", "New", "B", time.UnixMilli(2), ""),
		}, nil)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/v1/library?limit=1", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data []book.Primitive `json:"data"`
			Meta map[string]any   `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, "2", body.Data[0].ISBN)
		assert.EqualValues(t, 2, body.Meta["total"])
		assert.Equal(t, EncodeCursor(CursorData{AfterISBN: "2", AddedAt: 2}), body.Meta["next_cursor"])
	})

	t.Run("bad cursor", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/v1/library?cursor=%25%25", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, httpx.CodeValidation, decodeError(t, w).Error.Code)
	})

	t.Run("store error", func(t *testing.T) {
		svc, store := newTestService(t, nil)
		store.EXPECT().GetAll(gomock.Any()).Return(nil, context.DeadlineExceeded)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/v1/library", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc, store := newTestService(t, nil)
		store.EXPECT().Get(gomock.Any(), "123").Return(book.New("123", "Dune", "Frank Herbert", fixedNow, ""), nil)
		store.EXPECT().Delete(gomock.Any(), "123").Return(nil)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/v1/library/123", nil)
		r.SetPathValue("isbn", "123")
		handler.Delete(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"data":{"isbn":"123","title":"Dune"}}`, w.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		svc, store := newTestService(t, nil)
		store.EXPECT().Get(gomock.Any(), "404").Return(book.Record{}, library.ErrNotFound)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/v1/library/404", nil)
		r.SetPathValue("isbn", "404")
		handler.Delete(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, httpx.CodeNotFound, decodeError(t, w).Error.Code)
	})
}

func TestHTTPHandler_Clear(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc, store := newTestService(t, nil)
		store.EXPECT().Count(gomock.Any()).Return(2, nil)
		store.EXPECT().Clear(gomock.Any()).Return(nil)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		handler.Clear(w, httptest.NewRequest(http.MethodDelete, "/v1/library", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"data":{"removed":2}}`, w.Body.String())
	})

	t.Run("already empty", func(t *testing.T) {
		svc, store := newTestService(t, nil)
		store.EXPECT().Count(gomock.Any()).Return(0, nil)
		handler := NewHTTPHandler(svc, nil)

		w := httptest.NewRecorder()
		handler.Clear(w, httptest.NewRequest(http.MethodDelete, "/v1/library", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, httpx.CodeLibraryEmpty, decodeError(t, w).Error.Code)
	})
}

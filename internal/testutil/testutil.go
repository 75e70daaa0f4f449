// Package testutil holds fixtures shared by handler and command tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shelfscan/internal/book"
)

// Catalog fixtures served by NewCatalogServers.
const (
	// FoxISBN is known to both fake catalogs.
	FoxISBN = "9780140328721"
	// DuneISBN is only known to the fake Open Library.
	DuneISBN = "9780441013593"
	// SlowISBN never answers before the test ends, nor does any code
	// starting with it.
	SlowISBN = "9999999999"
	// UnknownISBN is known to neither catalog.
	UnknownISBN = "000000000"

	FoxMergedTitle = "Fantastic Mr Fox (Puffin)"
	FoxGoogleCover = "http://books.google.com/books/content?id=fox"
)

// TestBook is a record for handler tests that do not hit a catalog.
var TestBook = book.New(FoxISBN, "Fantastic Mr Fox", "Roald Dahl", time.UnixMilli(1700000000000), "https://covers.openlibrary.org/b/id/123-M.jpg")

// CatalogServers are fake Open Library and Google Books endpoints.
type CatalogServers struct {
	OpenLibraryURL string
	GoogleBooksURL string
}

// NewCatalogServers starts both fakes and stops them when t ends. Requests
// for SlowISBN, or any code with that prefix, block until then.
func NewCatalogServers(t testing.TB) CatalogServers {
	t.Helper()
	release := make(chan struct{})

	ol := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isbn := r.URL.Query().Get("isbn")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(isbn, SlowISBN) {
			<-release
			_, _ = io.WriteString(w, `{"numFound":0,"docs":[]}`)
			return
		}
		switch isbn {
		case FoxISBN:
			_, _ = io.WriteString(w, `{"numFound":1,"docs":[{"key":"/works/OL45804W","title":"Fantastic Mr Fox","author_name":["Roald Dahl"],"cover_i":123}]}`)
		case DuneISBN:
			_, _ = io.WriteString(w, `{"numFound":1,"docs":[{"key":"/works/OL893415W","title":"Dune","author_name":["Frank Herbert"]}]}`)
		default:
			_, _ = io.WriteString(w, `{"numFound":0,"docs":[]}`)
		}
	}))
	gb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(q, "isbn:"+SlowISBN) {
			<-release
			_, _ = io.WriteString(w, `{"totalItems":0}`)
			return
		}
		switch q {
		case "isbn:" + FoxISBN:
			_, _ = fmt.Fprintf(w, `{"totalItems":1,"items":[{"id":"fox","volumeInfo":{"title":%q,"authors":["Roald Dahl"],"imageLinks":{"thumbnail":%q}}}]}`,
				FoxMergedTitle, FoxGoogleCover)
		default:
			_, _ = io.WriteString(w, `{"totalItems":0}`)
		}
	}))
	t.Cleanup(ol.Close)
	t.Cleanup(gb.Close)
	t.Cleanup(func() { close(release) })

	return CatalogServers{OpenLibraryURL: ol.URL, GoogleBooksURL: gb.URL}
}

// NewRequest creates a new HTTP request for testing, encoding body as JSON.
func NewRequest(method, path string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	var reader io.Reader
	switch b := body.(type) {
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// RecordResponse is a decoded HTTP response.
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

// Serve runs r through h and decodes the JSON body, if any.
func Serve(h http.Handler, r *http.Request) RecordResponse {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return RecordHTTPResponse(w)
}

// RecordHTTPResponse records the HTTP response.
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}

// Data returns the "data" object of a success envelope.
func (r RecordResponse) Data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

// Meta returns the "meta" object of an envelope.
func (r RecordResponse) Meta() map[string]any {
	meta, _ := r.Body["meta"].(map[string]any)
	return meta
}

// ErrorCode returns error.code of an error envelope.
func (r RecordResponse) ErrorCode() string {
	e, _ := r.Body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

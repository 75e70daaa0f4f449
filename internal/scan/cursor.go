package scan

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor is returned for a page cursor that cannot be decoded.
var ErrInvalidCursor = errors.New("scan: invalid page cursor")

// CursorData is the position after which the next library page starts.
type CursorData struct {
	AfterISBN string `json:"after_isbn,omitempty"`
	AddedAt   int64  `json:"added_at,omitempty"`
}

// EncodeCursor encodes cursor data to a URL-safe string.
func EncodeCursor(data CursorData) string {
	if data.AfterISBN == "" {
		return ""
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(jsonBytes)
}

// DecodeCursor decodes a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (CursorData, error) {
	if cursor == "" {
		return CursorData{}, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return CursorData{}, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(decoded, &data); err != nil || data.AfterISBN == "" {
		return CursorData{}, ErrInvalidCursor
	}
	return data, nil
}

package openlibrary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"shelfscan/internal/book"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchByISBN(ctx context.Context, isbn string) (*SearchResponse, error) {
	args := m.Called(ctx, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SearchResponse), args.Error(1)
}

func TestSource_FindBook(t *testing.T) {
	ctx := context.Background()
	ts := time.UnixMilli(1234)

	t.Run("first match", func(t *testing.T) {
		m := new(mockSearcher)
		m.On("SearchByISBN", ctx, "9780140328721").Return(&SearchResponse{
			NumFound: 2,
			Docs: []SearchDoc{
				{Title: "Fantastic Mr Fox", AuthorNames: []string{"Roald Dahl", "Quentin Blake"}, CoverID: 42},
				{Title: "Other"},
			},
		}, nil)

		r, ok := NewSource(m, nil).FindBook(ctx, "9780140328721", ts)
		assert.True(t, ok)
		assert.Equal(t, "9780140328721", r.Identifier())
		assert.Equal(t, "Fantastic Mr Fox", r.Title())
		assert.Equal(t, "Roald Dahl", r.Contributor())
		assert.Equal(t, ts, r.RegisteredAt())
		cover, hasCover := r.CoverImageURL()
		assert.True(t, hasCover)
		assert.Equal(t, "https://covers.openlibrary.org/b/id/42-M.jpg", cover)
	})

	t.Run("missing author and cover", func(t *testing.T) {
		m := new(mockSearcher)
		m.On("SearchByISBN", ctx, "123").Return(&SearchResponse{Docs: []SearchDoc{{Title: "Anonymous"}}}, nil)

		r, ok := NewSource(m, nil).FindBook(ctx, "123", ts)
		assert.True(t, ok)
		assert.Equal(t, book.UnknownContributor, r.Contributor())
		_, hasCover := r.CoverImageURL()
		assert.False(t, hasCover)
	})

	t.Run("defaults timestamp to now", func(t *testing.T) {
		m := new(mockSearcher)
		m.On("SearchByISBN", ctx, "123").Return(&SearchResponse{Docs: []SearchDoc{{Title: "T"}}}, nil)

		before := time.Now()
		r, ok := NewSource(m, nil).FindBook(ctx, "123", time.Time{})
		assert.True(t, ok)
		assert.False(t, r.RegisteredAt().Before(before))
	})

	t.Run("no match", func(t *testing.T) {
		m := new(mockSearcher)
		m.On("SearchByISBN", ctx, "000000000").Return(&SearchResponse{}, nil)

		_, ok := NewSource(m, nil).FindBook(ctx, "000000000", ts)
		assert.False(t, ok)
	})

	t.Run("transport error is a miss", func(t *testing.T) {
		m := new(mockSearcher)
		m.On("SearchByISBN", ctx, "123").Return(nil, errors.New("connection refused"))

		_, ok := NewSource(m, nil).FindBook(ctx, "123", ts)
		assert.False(t, ok)
		m.AssertExpectations(t)
	})
}

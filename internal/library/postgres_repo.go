package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"shelfscan/internal/book"
)

// PostgresRepo keeps the library in PostgreSQL, for a library shared by
// several devices through the HTTP API.
type PostgresRepo struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresRepo)(nil)

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// OpenPostgres connects to dsn, verifies the connection and applies
// pending migrations.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database (%s): %w", RedactDSN(dsn), err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := migrateUp(ctx, db, DialectPostgres, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgresRepo(pool), nil
}

func (r *PostgresRepo) Add(ctx context.Context, record book.Record) error {
	const query = `
		INSERT INTO library_books (isbn, title, author, added_at, cover_image, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (isbn) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			added_at = EXCLUDED.added_at,
			cover_image = EXCLUDED.cover_image,
			updated_at = now()`

	p := record.Primitive()
	if _, err := r.db.Exec(ctx, query, p.ISBN, p.Title, p.Author, p.AddedAt, p.CoverImage); err != nil {
		return fmt.Errorf("add book %s: %w", p.ISBN, err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, isbn string) (book.Record, error) {
	const query = `
		SELECT isbn, title, author, added_at, cover_image
		FROM library_books
		WHERE isbn = $1`

	var p book.Primitive
	err := r.db.QueryRow(ctx, query, isbn).Scan(&p.ISBN, &p.Title, &p.Author, &p.AddedAt, &p.CoverImage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return book.Record{}, ErrNotFound
		}
		return book.Record{}, fmt.Errorf("get book %s: %w", isbn, err)
	}
	return book.FromPrimitive(p), nil
}

func (r *PostgresRepo) GetAll(ctx context.Context) ([]book.Record, error) {
	const query = `
		SELECT isbn, title, author, added_at, cover_image
		FROM library_books
		ORDER BY added_at DESC, isbn ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var out []book.Record
	for rows.Next() {
		var p book.Primitive
		if err := rows.Scan(&p.ISBN, &p.Title, &p.Author, &p.AddedAt, &p.CoverImage); err != nil {
			return nil, err
		}
		out = append(out, book.FromPrimitive(p))
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Delete(ctx context.Context, isbn string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM library_books WHERE isbn = $1`, isbn)
	if err != nil {
		return fmt.Errorf("delete book %s: %w", isbn, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Clear(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM library_books`); err != nil {
		return fmt.Errorf("clear library: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM library_books").Scan(&count)
	return count, err
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresRepo) Close() error {
	r.db.Close()
	return nil
}

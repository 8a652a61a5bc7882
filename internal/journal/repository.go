// Package journal keeps an append-only record of stored uploads in Postgres.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kie/assets/internal/upload"
)

// Entry is one recorded upload.
type Entry struct {
	ID          string    `json:"id" example:"8d0f4c1e-6f0b-4a57-9d1e-1f5c7a2b3c4d"`
	URL         string    `json:"url"`
	Pathname    string    `json:"pathname"`
	ContentType string    `json:"contentType" example:"image/png"`
	SizeBytes   int64     `json:"sizeBytes" example:"2048"`
	Shape       string    `json:"shape" example:"json"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Repository handles journal persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Record inserts one upload. It satisfies upload.Recorder.
func (r *Repository) Record(ctx context.Context, rec upload.Record) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO uploads (id, url, pathname, content_type, size_bytes, shape, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), rec.URL, rec.Pathname, rec.ContentType, rec.Size, string(rec.Shape), rec.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, url, pathname, content_type, size_bytes, shape, uploaded_at
		 FROM uploads
		 ORDER BY uploaded_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e  Entry
			id uuid.UUID
		)
		if err := rows.Scan(&id, &e.URL, &e.Pathname, &e.ContentType, &e.SizeBytes, &e.Shape, &e.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		e.ID = id.String()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return entries, nil
}

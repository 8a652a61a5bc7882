package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kie/assets/internal/db"
	"github.com/kie/assets/internal/upload"
)

// Runs against a real Postgres when TEST_DATABASE_URL is set.
func TestRepositoryRecordAndRecent(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, db.Migrate(url))
	pool, err := db.Connect(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Record(ctx, upload.Record{
		URL: "https://blob.test/older.png", Pathname: "older.png", ContentType: "image/png",
		Size: 1, Shape: upload.ShapeJSON, UploadedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, repo.Record(ctx, upload.Record{
		URL: "https://blob.test/newer.png", Pathname: "newer.png", ContentType: "image/png",
		Size: 2, Shape: upload.ShapeMultipart, UploadedAt: now,
	}))

	entries, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "newer.png", entries[0].Pathname)
	assert.Equal(t, "multipart", entries[0].Shape)
	assert.NotEmpty(t, entries[0].ID)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/docqa/internal/core/document"
	"github.com/jinford/docqa/internal/core/retrieval"
)

// setupTestDatabase はpgvector入りのPostgreSQLコンテナを起動し、接続プールを返す。
// Dockerが利用できない環境ではテストをスキップする。
func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	if err := dockerPool.Client.Ping(); err != nil {
		t.Skipf("docker is not available: %v", err)
	}

	resource, err := dockerPool.Run("pgvector/pgvector", "pg16", []string{
		"POSTGRES_USER=docqa",
		"POSTGRES_PASSWORD=docqa",
		"POSTGRES_DB=docqa_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = dockerPool.Purge(resource)
	})

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	require.NoError(t, err)

	params := ConnectionParams{
		Host:     "localhost",
		Port:     port,
		User:     "docqa",
		Password: "docqa",
		DBName:   "docqa_test",
		SSLMode:  "disable",
	}

	var pool *pgxpool.Pool
	dockerPool.MaxWait = 60 * time.Second
	err = dockerPool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var connectErr error
		pool, connectErr = NewPool(ctx, params)
		return connectErr
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func testChunk(seq int, text string) document.Chunk {
	return document.Chunk{
		ID:            uuid.New(),
		Text:          text,
		SourceOffset:  seq * 100,
		SequenceIndex: seq,
	}
}

func TestIndex_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pool := setupTestDatabase(t)

	idx, err := NewIndex(ctx, pool, 3)
	require.NoError(t, err)

	t.Run("search before build returns ErrIndexNotBuilt", func(t *testing.T) {
		_, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, retrieval.ErrIndexNotBuilt))
	})

	t.Run("build rejects empty chunks", func(t *testing.T) {
		err := idx.Build(ctx, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, document.ErrEmptyDocument))
	})

	t.Run("build and search ranked by cosine similarity", func(t *testing.T) {
		chunks := []document.Chunk{
			testChunk(0, "orthogonal"),
			testChunk(1, "exact match"),
			testChunk(2, "close"),
		}
		vectors := [][]float32{
			{0, 1, 0},
			{1, 0, 0},
			{0.9, 0.1, 0.1},
		}
		require.NoError(t, idx.Build(ctx, chunks, vectors))

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "exact match", results[0].Chunk.Text)
		assert.InDelta(t, 1.0, results[0].Score, 1e-4)
		assert.Equal(t, "close", results[1].Chunk.Text)
		assert.Equal(t, "orthogonal", results[2].Chunk.Text)

		// チャンクメタデータがラウンドトリップする
		assert.Equal(t, chunks[1].ID, results[0].Chunk.ID)
		assert.Equal(t, 1, results[0].Chunk.SequenceIndex)
		assert.Equal(t, 100, results[0].Chunk.SourceOffset)
	})

	t.Run("ties broken by ordinal", func(t *testing.T) {
		chunks := []document.Chunk{
			testChunk(1, "second"),
			testChunk(0, "first"),
		}
		vectors := [][]float32{
			{1, 1, 0},
			{1, 1, 0},
		}
		require.NoError(t, idx.Build(ctx, chunks, vectors))

		results, err := idx.Search(ctx, []float32{1, 1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "first", results[0].Chunk.Text)
		assert.Equal(t, "second", results[1].Chunk.Text)
	})

	t.Run("k larger than count returns all", func(t *testing.T) {
		chunks := []document.Chunk{testChunk(0, "only")}
		vectors := [][]float32{{1, 0, 0}}
		require.NoError(t, idx.Build(ctx, chunks, vectors))

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 50)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("rebuild replaces previous contents", func(t *testing.T) {
		first := []document.Chunk{testChunk(0, "old document")}
		require.NoError(t, idx.Build(ctx, first, [][]float32{{1, 0, 0}}))

		second := []document.Chunk{testChunk(0, "new document")}
		require.NoError(t, idx.Build(ctx, second, [][]float32{{1, 0, 0}}))

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "new document", results[0].Chunk.Text)
	})

	t.Run("failed build keeps previous contents", func(t *testing.T) {
		stable := []document.Chunk{testChunk(0, "stable")}
		require.NoError(t, idx.Build(ctx, stable, [][]float32{{1, 0, 0}}))

		bad := []document.Chunk{testChunk(0, "a"), testChunk(1, "b")}
		err := idx.Build(ctx, bad, [][]float32{{1, 0, 0}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, retrieval.ErrVectorCountMismatch))

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "stable", results[0].Chunk.Text)
	})
}

func TestNewIndex_InvalidDimension(t *testing.T) {
	_, err := NewIndex(context.Background(), nil, 0)
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "dimension")
}

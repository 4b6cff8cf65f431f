package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/jinford/docqa/internal/core/document"
	"github.com/jinford/docqa/internal/core/retrieval"
)

// ConnectionParams はデータベース接続パラメータ
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewPool はpgvector型を登録済みの接続プールを作成します
func NewPool(ctx context.Context, params ConnectionParams) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		params.Host,
		params.Port,
		params.User,
		params.Password,
		params.DBName,
		params.SSLMode,
	)

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// 接続テスト
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Index はpgvectorを使ったリモートのVectorIndex実装。
// インメモリ実装と同じ契約（厳密検索・コサイン類似度・原子的置き換え）を満たす。
// インデックスはセッションごとに再構築される一時データであり、永続ストアの契約は持たない。
type Index struct {
	pool      *pgxpool.Pool
	dimension int

	mu    sync.RWMutex
	built bool
}

// NewIndex は新しいIndexを作成し、スキーマを初期化する
func NewIndex(ctx context.Context, pool *pgxpool.Pool, dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	idx := &Index{
		pool:      pool,
		dimension: dimension,
	}

	if err := idx.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// ensureSchema はvector拡張とチャンクテーブルを用意する
func (idx *Index) ensureSchema(ctx context.Context) error {
	if _, err := idx.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS document_chunks (
			id            UUID PRIMARY KEY,
			ordinal       INT NOT NULL,
			source_offset INT NOT NULL,
			content       TEXT NOT NULL,
			embedding     vector(%d) NOT NULL
		)`, idx.dimension)
	if _, err := idx.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create document_chunks table: %w", err)
	}
	return nil
}

// Build はトランザクション内で旧チャンクを全削除し、新しい組を挿入する。
// コミットは全件挿入後に1回だけ行うため、失敗時は以前の内容が残る。
func (idx *Index) Build(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return document.ErrEmptyDocument
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", retrieval.ErrVectorCountMismatch, len(chunks), len(vectors))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // コミット済みならno-op

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks`); err != nil {
		return fmt.Errorf("failed to clear previous index: %w", err)
	}

	for i, chunk := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks (id, ordinal, source_offset, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			chunk.ID,
			chunk.SequenceIndex,
			chunk.SourceOffset,
			chunk.Text,
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit index build: %w", err)
	}

	idx.built = true
	return nil
}

// Search はコサイン距離演算子（<=>）で上位k件を取得する。
// score = 1 - コサイン距離（= コサイン類似度）。同点はordinal昇順。
func (idx *Index) Search(ctx context.Context, queryVector []float32, k int) ([]retrieval.ScoredChunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.built {
		return nil, retrieval.ErrIndexNotBuilt
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	rows, err := idx.pool.Query(ctx,
		`SELECT id, ordinal, source_offset, content, 1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 ORDER BY embedding <=> $1 ASC, ordinal ASC
		 LIMIT $2`,
		pgvector.NewVector(queryVector),
		k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []retrieval.ScoredChunk
	for rows.Next() {
		var (
			id           uuid.UUID
			ordinal      int
			sourceOffset int
			content      string
			score        float64
		)
		if err := rows.Scan(&id, &ordinal, &sourceOffset, &content, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, retrieval.ScoredChunk{
			Chunk: document.Chunk{
				ID:            id,
				Text:          content,
				SourceOffset:  sourceOffset,
				SequenceIndex: ordinal,
			},
			Score: score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}

	return results, nil
}

// インターフェース実装の確認
var _ retrieval.VectorIndex = (*Index)(nil)

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultTopK はk未指定時に取得するチャンク数
const DefaultTopK = 10

// Retriever はクエリEmbeddingとインデックス検索を束ねる
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	defaultK int
	logger   *slog.Logger
}

// RetrieverOption は Retriever のオプション設定
type RetrieverOption func(*Retriever)

// WithRetrieverLogger は Retriever にロガーを設定する
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// WithRetrieverTopK はk未指定時のデフォルト取得件数を上書きする
func WithRetrieverTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		r.defaultK = k
	}
}

// NewRetriever は新しいRetrieverを作成する
func NewRetriever(embedder Embedder, index VectorIndex, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder: embedder,
		index:    index,
		defaultK: DefaultTopK,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.defaultK < 1 {
		r.defaultK = DefaultTopK
	}

	return r
}

// Retrieve はクエリをEmbeddingに変換し、類似チャンク上位k件を返す。
// k <= 0 の場合はデフォルト件数を適用する。
// EmbedderとVectorIndexのエラーはそのまま伝播する（代替手段へのフォールバックはしない）。
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (*Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	if k <= 0 {
		k = r.defaultK
	}

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := r.index.Search(ctx, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	r.logger.Info("retrieval completed",
		"query", query,
		"k", k,
		"hits", len(chunks),
	)

	return &Result{
		Query:  query,
		Chunks: chunks,
	}, nil
}

package retrieval

import (
	"context"

	"github.com/jinford/docqa/internal/core/document"
)

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed は複数テキストのEmbeddingを入力と同じ順序で生成する。
	// 失敗時は結果を一切返さない（all-or-nothing）。
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension はベクトル次元数を返す
	Dimension() int

	// MaxBatchSize は1回のBatchEmbedで処理できる最大件数を返す
	MaxBatchSize() int
}

// VectorIndex は1ドキュメント分のチャンクベクトルに対する
// 厳密最近傍検索インターフェース。
type VectorIndex interface {
	// Build はチャンクとベクトルの組でインデックスを構築する。
	// 既存のインデックスは成功時にのみ丸ごと置き換えられ、
	// 失敗時は以前の内容がそのまま残る（部分更新状態は存在しない）。
	// チャンクが0件の場合は document.ErrEmptyDocument を返す。
	Build(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error

	// Search はクエリベクトルに類似する上位k件のチャンクを類似度降順で返す。
	// 同点は SequenceIndex 昇順で安定に並べる。総数がk未満の場合は全件を返す。
	// 同じ入力に対して常に同じ結果を返す（厳密検索のみ、近似は用いない）。
	// 一度もBuildされていない場合は ErrIndexNotBuilt を返す。
	Search(ctx context.Context, queryVector []float32, k int) ([]ScoredChunk, error)
}

package retrieval

import "errors"

var (
	// ErrIndexNotBuilt はインデックス構築前に検索が呼ばれた場合に返されます
	ErrIndexNotBuilt = errors.New("vector index not built")

	// ErrEmbeddingService はEmbeddingサービス呼び出しの失敗を表します
	ErrEmbeddingService = errors.New("embedding service failed")

	// ErrVectorCountMismatch はチャンク数とベクトル数が一致しない場合に返されます
	ErrVectorCountMismatch = errors.New("chunk and vector counts do not match")
)

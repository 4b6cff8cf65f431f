package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jinford/docqa/internal/core/document"
	"github.com/jinford/docqa/internal/core/retrieval"
)

// Index はプロセス内に保持する厳密最近傍インデックス。
// 総当たりのコサイン類似度計算を行う。対象は1ドキュメント分のチャンク
// （単一PDF規模）なので近似構造は不要で、結果は常に決定的になる。
type Index struct {
	dimension int

	mu      sync.RWMutex
	built   bool
	chunks  []document.Chunk
	vectors [][]float32
}

// NewIndex は新しいIndexを作成する
func NewIndex(dimension int) *Index {
	return &Index{
		dimension: dimension,
	}
}

// Build はチャンクとベクトルの組でインデックスを構築する。
// 検証が全て通った後に1回のスワップで置き換えるため、
// 失敗時に以前の内容が部分的に壊れることはない。
func (idx *Index) Build(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return document.ErrEmptyDocument
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", retrieval.ErrVectorCountMismatch, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if idx.dimension > 0 && len(v) != idx.dimension {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), idx.dimension)
		}
	}

	// チャンクとベクトルの1:1対応を崩さないようコピーして保持する
	newChunks := make([]document.Chunk, len(chunks))
	copy(newChunks, chunks)
	newVectors := make([][]float32, len(vectors))
	copy(newVectors, vectors)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks = newChunks
	idx.vectors = newVectors
	idx.built = true
	return nil
}

// Search はクエリベクトルとのコサイン類似度上位k件を降順で返す。
// 同点は SequenceIndex 昇順で並べる。
func (idx *Index) Search(ctx context.Context, queryVector []float32, k int) ([]retrieval.ScoredChunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.built {
		return nil, retrieval.ErrIndexNotBuilt
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	results := make([]retrieval.ScoredChunk, 0, len(idx.chunks))
	for i, v := range idx.vectors {
		results = append(results, retrieval.ScoredChunk{
			Chunk: idx.chunks[i],
			Score: cosineSimilarity(queryVector, v),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.SequenceIndex < results[j].Chunk.SequenceIndex
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// cosineSimilarity は2ベクトルのコサイン類似度を返す。
// いずれかがゼロベクトルの場合は0を返す。
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// インターフェース実装の確認
var _ retrieval.VectorIndex = (*Index)(nil)

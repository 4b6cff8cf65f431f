package retrieval

import "github.com/jinford/docqa/internal/core/document"

// ScoredChunk はベクトル検索で得られたチャンクとその類似度を表す。
// Score はコサイン類似度（1 - コサイン距離）で、大きいほどクエリに近い。
// この尺度は全てのインデックス実装で共通とする。
type ScoredChunk struct {
	Chunk document.Chunk `json:"chunk"`
	Score float64        `json:"score"`
}

// Result は1回の検索結果（類似度降順のチャンク列、長さ <= k）を表す。
// クエリごとに再計算される一時データであり、永続化されない。
type Result struct {
	Query  string        `json:"query"`
	Chunks []ScoredChunk `json:"chunks"`
}

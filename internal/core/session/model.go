package session

import "github.com/jinford/docqa/internal/core/document"

// State はコントローラの状態を表す
type State string

const (
	// StateEmpty はドキュメント未取り込みの初期状態
	StateEmpty State = "empty"
	// StateIngesting は取り込み処理中の状態
	StateIngesting State = "ingesting"
	// StateReady は質問受付可能な状態
	StateReady State = "ready"
	// StateQueryInFlight は質問処理中の一時状態
	StateQueryInFlight State = "query_in_flight"
)

// IngestResult は取り込み処理の結果を表す
type IngestResult struct {
	Identity   document.Identity // 取り込んだドキュメントの同一性
	Pages      int               // 抽出したページ数
	ChunkCount int               // 生成したチャンク数
	Skipped    bool              // 同一ドキュメントの再取り込みでスキップした場合 true
}

// SourceReference は回答の根拠となったチャンクへの参照を表す
type SourceReference struct {
	SequenceIndex int     `json:"sequenceIndex"` // 元ドキュメント内でのチャンク位置
	SourceOffset  int     `json:"sourceOffset"`  // ドキュメント先頭からのルーン単位オフセット
	Score         float64 `json:"score"`         // コサイン類似度
	Snippet       string  `json:"snippet"`       // チャンク冒頭の抜粋
}

// AskResult は質問応答の結果を表す
type AskResult struct {
	Answer  string            `json:"answer"`
	Sources []SourceReference `json:"sources"`
}

package document

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	// DefaultChunkSize はデフォルトのチャンク幅（ルーン数）
	DefaultChunkSize = 1000
	// DefaultChunkOverlap は隣接チャンク間のデフォルトの重なり幅（ルーン数）
	DefaultChunkOverlap = 200
)

// Splitter はテキストを固定幅の重なり付きウィンドウでチャンク化する。
// 副作用を持たず、同じ入力に対して常に同じ分割結果を返す。
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter は新しいSplitterを作成する。
// chunkSize > 0 かつ 0 <= overlap < chunkSize でなければ ErrInvalidChunkConfig を返す。
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunkSize must be positive, got %d", ErrInvalidChunkConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must satisfy 0 <= overlap < chunkSize, got overlap=%d chunkSize=%d", ErrInvalidChunkConfig, overlap, chunkSize)
	}

	return &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
	}, nil
}

// ChunkSize はチャンク幅を返す
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap は重なり幅を返す
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split はテキストをチャンク列に分割する。
// ウィンドウは chunkSize - overlap ずつ前進し、各位置で1チャンクを生成する。
// 末尾のチャンクのみ chunkSize より短くなり得る。
// 空テキストは空のチャンク列を返す（エラーではない）。
// オフセットはルーン単位で数える。マルチバイト文字を含むテキストでも
// SourceOffset が文字位置として安定するため。
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	stride := s.chunkSize - s.overlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += stride {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			ID:            uuid.New(),
			Text:          string(runes[start:end]),
			SourceOffset:  start,
			SequenceIndex: len(chunks),
		})
	}

	return chunks
}

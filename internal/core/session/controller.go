package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/jinford/docqa/internal/core/answer"
	"github.com/jinford/docqa/internal/core/document"
	"github.com/jinford/docqa/internal/core/retrieval"
)

// snippetRunes はSourceReferenceに含める抜粋の最大ルーン数
const snippetRunes = 120

// Controller は1セッション分の取り込み・質問応答パイプラインを統括する。
//
// 状態遷移: Empty → Ingesting → Ready → (Ingesting | QueryInFlight) → Ready
//
// 同一セッション内の操作は常に1つずつ実行される（取り込みと質問は排他）。
// セッション間で共有される可変状態はなく、各セッションが自分のインデックスを占有する。
type Controller struct {
	extractor   document.Extractor
	splitter    *document.Splitter
	embedder    retrieval.Embedder
	index       retrieval.VectorIndex
	retriever   *retrieval.Retriever
	synthesizer *answer.Synthesizer
	logger      *slog.Logger

	mu      sync.Mutex
	state   State
	current mo.Option[document.Identity] // 最後に取り込みが成功したドキュメント
}

// ControllerOption は Controller のオプション設定
type ControllerOption func(*Controller)

// WithControllerLogger は Controller にロガーを設定する
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController は新しいControllerを作成する
func NewController(
	extractor document.Extractor,
	splitter *document.Splitter,
	embedder retrieval.Embedder,
	index retrieval.VectorIndex,
	retriever *retrieval.Retriever,
	synthesizer *answer.Synthesizer,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		extractor:   extractor,
		splitter:    splitter,
		embedder:    embedder,
		index:       index,
		retriever:   retriever,
		synthesizer: synthesizer,
		logger:      slog.Default(),
		state:       StateEmpty,
		current:     mo.None[document.Identity](),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// State は現在の状態を返す
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentDocument は最後に取り込みが成功したドキュメントの同一性を返す
func (c *Controller) CurrentDocument() mo.Option[document.Identity] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Ingest は生バイト列からドキュメントを取り込み、インデックスを構築する。
//
// 同一ドキュメント（名前+内容ハッシュ）がReady状態で再度渡された場合は
// Embedding費用を避けるため再構築せずスキップする。
//
// 失敗時のポリシー: インデックスの置き換え（Build）は全ての前段が成功した後に
// 1回だけ行うため、途中失敗では以前のReady状態とインデックスがそのまま残る。
// 一度も取り込みに成功していなければEmptyに戻る。
func (c *Controller) Ingest(ctx context.Context, name string, raw []byte) (*IngestResult, error) {
	c.mu.Lock()
	if c.state == StateIngesting || c.state == StateQueryInFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	identity := document.NewIdentity(name, raw)

	// 再取り込みガード: 同一ドキュメントなら何もしない
	if c.state == StateReady {
		if cur, ok := c.current.Get(); ok && cur.Equal(identity) {
			c.mu.Unlock()
			c.logger.Info("document already ingested, skipping rebuild",
				"name", identity.Name,
				"hash", identity.Hash[:12],
			)
			return &IngestResult{Identity: identity, Skipped: true}, nil
		}
	}

	c.state = StateIngesting
	c.mu.Unlock()

	result, err := c.ingest(ctx, identity, raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// 以前のドキュメントがあればReadyに復帰する（インデックスは無傷）
		if c.current.IsPresent() {
			c.state = StateReady
		} else {
			c.state = StateEmpty
		}
		return nil, err
	}

	c.state = StateReady
	c.current = mo.Some(identity)
	return result, nil
}

// ingest は取り込みの本体処理。状態管理は呼び出し側が行う。
func (c *Controller) ingest(ctx context.Context, identity document.Identity, raw []byte) (*IngestResult, error) {
	startTime := time.Now()

	c.logger.Info("ingestion started",
		"name", identity.Name,
		"bytes", len(raw),
	)

	// 1. テキスト抽出
	pages, err := c.extractor.Extract(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document text: %w", err)
	}

	text := document.JoinPages(pages)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", document.ErrEmptyDocument, identity.Name)
	}

	// 2. チャンク分割
	chunks := c.splitter.Split(text)

	c.logger.Info("document split into chunks",
		"name", identity.Name,
		"pages", len(pages),
		"chunks", len(chunks),
	)

	// 3. Embedding生成（EmbedderのMaxBatchSizeごとにバッチ処理）
	vectors, err := c.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	// 4. インデックス構築（成功時のみ旧インデックスを丸ごと置き換える）
	if err := c.index.Build(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("failed to build vector index: %w", err)
	}

	c.logger.Info("ingestion completed",
		"name", identity.Name,
		"chunks", len(chunks),
		"duration", time.Since(startTime),
	)

	return &IngestResult{
		Identity:   identity,
		Pages:      len(pages),
		ChunkCount: len(chunks),
	}, nil
}

// embedChunks は全チャンクのEmbeddingを入力順を保ったまま生成する。
// どのバッチが失敗しても結果は破棄され、部分的な消費は起きない。
func (c *Controller) embedChunks(ctx context.Context, chunks []document.Chunk) ([][]float32, error) {
	batchSize := c.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Text)
		}

		batch, err := c.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks [%d:%d]: %w", start, end, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: requested %d, got %d", retrieval.ErrVectorCountMismatch, len(texts), len(batch))
		}

		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// Ask はReady状態のセッションに対して質問応答を実行する。
// 処理中は一時的にQueryInFlightに遷移し、成否にかかわらずReadyへ戻る。
// 質問の失敗が構築済みインデックスを壊すことはない。
// ドキュメント取り込み前に呼ばれた場合は retrieval.ErrIndexNotBuilt を返す。
func (c *Controller) Ask(ctx context.Context, question string, k int) (*AskResult, error) {
	c.mu.Lock()
	switch c.state {
	case StateIngesting, StateQueryInFlight:
		c.mu.Unlock()
		return nil, ErrBusy
	case StateEmpty:
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: ingest a document first", retrieval.ErrIndexNotBuilt)
	}
	c.state = StateQueryInFlight
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateReady
		c.mu.Unlock()
	}()

	retrieved, err := c.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	answerText, err := c.synthesizer.Synthesize(ctx, question, retrieved.Chunks)
	if err != nil {
		return nil, fmt.Errorf("answer synthesis failed: %w", err)
	}

	sources := make([]SourceReference, 0, len(retrieved.Chunks))
	for _, sc := range retrieved.Chunks {
		sources = append(sources, SourceReference{
			SequenceIndex: sc.Chunk.SequenceIndex,
			SourceOffset:  sc.Chunk.SourceOffset,
			Score:         sc.Score,
			Snippet:       snippet(sc.Chunk.Text),
		})
	}

	c.logger.Info("ask completed",
		"question", question,
		"answerLength", len(answerText),
		"sources", len(sources),
	)

	return &AskResult{
		Answer:  answerText,
		Sources: sources,
	}, nil
}

// snippet はチャンク冒頭の抜粋を返す
func snippet(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= snippetRunes {
		return string(runes)
	}
	return string(runes[:snippetRunes]) + "…"
}

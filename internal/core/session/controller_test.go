package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/docqa/internal/core/answer"
	"github.com/jinford/docqa/internal/core/document"
	"github.com/jinford/docqa/internal/core/retrieval"
	"github.com/jinford/docqa/internal/infra/memory"
)

// fakeExtractor は生バイト列をそのまま1ページのテキストとして返す
type fakeExtractor struct {
	err   error
	block chan struct{} // 非nilの場合、closeされるまでExtractをブロックする
}

func (e *fakeExtractor) Extract(ctx context.Context, raw []byte) ([]document.Page, error) {
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return []document.Page{{Number: 1, Text: string(raw)}}, nil
}

// keywordEmbedder は語彙の出現回数をそのままベクトルにする決定的なEmbedder
type keywordEmbedder struct {
	vocab []string
	err   error
}

func (e *keywordEmbedder) embed(text string) []float32 {
	lower := strings.ToLower(text)
	vector := make([]float32, len(e.vocab))
	for i, word := range e.vocab {
		vector[i] = float32(strings.Count(lower, word))
	}
	return vector
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.embed(text), nil
}

func (e *keywordEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *keywordEmbedder) Dimension() int    { return len(e.vocab) }
func (e *keywordEmbedder) MaxBatchSize() int { return 2 }

// contextAwareLLM はプロンプトの<context>ブロックにneedleが含まれる場合のみ
// 回答を返し、それ以外は定型の「見つからない」文を返す
type contextAwareLLM struct {
	needle string
	reply  string
}

func (l *contextAwareLLM) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	start := strings.Index(prompt, "<context>")
	end := strings.Index(prompt, "</context>")
	if start < 0 || end < 0 {
		return "", fmt.Errorf("prompt is missing context block")
	}
	contextBlock := prompt[start:end]
	if l.needle != "" && strings.Contains(contextBlock, l.needle) {
		return l.reply, nil
	}
	return answer.NotFoundAnswer, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, extractor document.Extractor, embedder retrieval.Embedder, llm answer.LLMClient) *Controller {
	t.Helper()

	splitter, err := document.NewSplitter(80, 10)
	require.NoError(t, err)

	index := memory.NewIndex(embedder.Dimension())
	retriever := retrieval.NewRetriever(embedder, index,
		retrieval.WithRetrieverLogger(testLogger()))

	synthesizer, err := answer.NewSynthesizer(llm,
		answer.WithSynthesizerLogger(testLogger()))
	require.NoError(t, err)

	return NewController(extractor, splitter, embedder, index, retriever, synthesizer,
		WithControllerLogger(testLogger()))
}

// TestController_IngestThenAsk は取り込み済みドキュメントへの質問が
// コンテキストに基づいて回答されることをテストします
func TestController_IngestThenAsk(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{vocab: []string{"enterprise", "sales", "weather"}}
	llm := &contextAwareLLM{
		needle: "enterprise sales grew",
		reply:  "Enterprise sales grew 40% driven by new contracts.",
	}
	c := newTestController(t, &fakeExtractor{}, embedder, llm)

	assert.Equal(t, StateEmpty, c.State())

	doc := []byte("Annual report. Enterprise sales grew 40% this year driven by new contracts.")
	result, err := c.Ingest(ctx, "report.pdf", doc)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Pages)
	assert.Greater(t, result.ChunkCount, 0)
	assert.Equal(t, StateReady, c.State())

	askResult, err := c.Ask(ctx, "How did enterprise sales perform?", 3)
	require.NoError(t, err)
	assert.Equal(t, "Enterprise sales grew 40% driven by new contracts.", askResult.Answer)
	require.NotEmpty(t, askResult.Sources)
	assert.Equal(t, StateReady, c.State())

	// 参照ソースはチャンクのメタデータを持つ
	source := askResult.Sources[0]
	assert.GreaterOrEqual(t, source.SequenceIndex, 0)
	assert.NotEmpty(t, source.Snippet)
}

// TestController_Ask_OutOfContext はドキュメントに無い話題への質問が
// 定型の「見つからない」回答になることをテストします
func TestController_Ask_OutOfContext(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{vocab: []string{"enterprise", "sales", "weather"}}
	llm := &contextAwareLLM{needle: "weather forecast", reply: "should not happen"}
	c := newTestController(t, &fakeExtractor{}, embedder, llm)

	doc := []byte("Annual report. Enterprise sales grew 40% this year.")
	_, err := c.Ingest(ctx, "report.pdf", doc)
	require.NoError(t, err)

	askResult, err := c.Ask(ctx, "What is the weather forecast?", 3)
	require.NoError(t, err)
	assert.Equal(t, answer.NotFoundAnswer, askResult.Answer)
}

func TestController_Ask_BeforeIngest(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"a"}}
	c := newTestController(t, &fakeExtractor{}, embedder, &contextAwareLLM{})

	_, err := c.Ask(context.Background(), "anything", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, retrieval.ErrIndexNotBuilt))
}

// TestController_Ingest_EmptyDocument は抽出テキストが空の場合の失敗と
// その後の状態をテストします
func TestController_Ingest_EmptyDocument(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{vocab: []string{"a"}}
	c := newTestController(t, &fakeExtractor{}, embedder, &contextAwareLLM{})

	_, err := c.Ingest(ctx, "blank.pdf", []byte("   \n\t  "))
	require.Error(t, err)
	assert.True(t, errors.Is(err, document.ErrEmptyDocument))
	assert.Equal(t, StateEmpty, c.State())

	// 取り込み失敗後の質問はインデックス未構築エラーになる
	_, err = c.Ask(ctx, "anything", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, retrieval.ErrIndexNotBuilt))
}

// TestController_Ingest_ReplacesDocument は2つ目のドキュメント取り込みで
// 1つ目のチャンクが検索されなくなることをテストします
func TestController_Ingest_ReplacesDocument(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{vocab: []string{"alpha", "beta"}}
	llm := &contextAwareLLM{needle: "beta project", reply: "The beta project launched."}
	c := newTestController(t, &fakeExtractor{}, embedder, llm)

	_, err := c.Ingest(ctx, "first.pdf", []byte("The alpha project was cancelled."))
	require.NoError(t, err)

	_, err = c.Ingest(ctx, "second.pdf", []byte("The beta project launched in March."))
	require.NoError(t, err)

	identity, ok := c.CurrentDocument().Get()
	require.True(t, ok)
	assert.Equal(t, "second.pdf", identity.Name)

	askResult, err := c.Ask(ctx, "What happened to the beta project?", 3)
	require.NoError(t, err)
	assert.Equal(t, "The beta project launched.", askResult.Answer)

	// 旧ドキュメントの内容は参照ソースに現れない
	for _, source := range askResult.Sources {
		assert.NotContains(t, source.Snippet, "alpha")
	}
}

// TestController_Ingest_SameDocumentSkipped は同一ドキュメントの再取り込みが
// スキップされることをテストします
func TestController_Ingest_SameDocumentSkipped(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{vocab: []string{"report"}}
	c := newTestController(t, &fakeExtractor{}, embedder, &contextAwareLLM{})

	doc := []byte("Quarterly report contents.")
	first, err := c.Ingest(ctx, "report.pdf", doc)
	require.NoError(t, err)
	assert.False(t, first.Skipped)

	second, err := c.Ingest(ctx, "report.pdf", doc)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.True(t, first.Identity.Equal(second.Identity))
	assert.Equal(t, StateReady, c.State())
}

// TestController_Ingest_SameContentDifferentName は内容が同じでも名前が違えば
// 再構築されることをテストします
func TestController_Ingest_SameContentDifferentName(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{vocab: []string{"report"}}
	c := newTestController(t, &fakeExtractor{}, embedder, &contextAwareLLM{})

	doc := []byte("Quarterly report contents.")
	_, err := c.Ingest(ctx, "report.pdf", doc)
	require.NoError(t, err)

	second, err := c.Ingest(ctx, "renamed.pdf", doc)
	require.NoError(t, err)
	assert.False(t, second.Skipped)
}

// TestController_Ingest_FailureKeepsPreviousDocument は途中失敗した再取り込みが
// 直前のインデックスを壊さないことをテストします
func TestController_Ingest_FailureKeepsPreviousDocument(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{vocab: []string{"stable"}}
	llm := &contextAwareLLM{needle: "stable content", reply: "Found it."}
	c := newTestController(t, &fakeExtractor{}, embedder, llm)

	_, err := c.Ingest(ctx, "first.pdf", []byte("The stable content remains."))
	require.NoError(t, err)

	// Embedding失敗で2つ目の取り込みを失敗させる
	embedder.err = retrieval.ErrEmbeddingService
	_, err = c.Ingest(ctx, "second.pdf", []byte("This ingestion will fail."))
	require.Error(t, err)
	assert.True(t, errors.Is(err, retrieval.ErrEmbeddingService))

	// 以前のドキュメントでReadyのまま
	assert.Equal(t, StateReady, c.State())
	identity, ok := c.CurrentDocument().Get()
	require.True(t, ok)
	assert.Equal(t, "first.pdf", identity.Name)

	embedder.err = nil
	askResult, err := c.Ask(ctx, "Where is the stable content?", 3)
	require.NoError(t, err)
	assert.Equal(t, "Found it.", askResult.Answer)
}

// TestController_BusyDuringIngest は取り込み中の操作が ErrBusy で拒否されることをテストします
func TestController_BusyDuringIngest(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{vocab: []string{"report"}}
	extractor := &fakeExtractor{block: make(chan struct{})}
	c := newTestController(t, extractor, embedder, &contextAwareLLM{})

	ingestDone := make(chan error, 1)
	go func() {
		_, err := c.Ingest(ctx, "slow.pdf", []byte("report contents"))
		ingestDone <- err
	}()

	// Ingesting状態になるまで待つ
	require.Eventually(t, func() bool {
		return c.State() == StateIngesting
	}, time.Second, time.Millisecond)

	_, err := c.Ask(ctx, "anything", 3)
	assert.True(t, errors.Is(err, ErrBusy))

	_, err = c.Ingest(ctx, "other.pdf", []byte("other contents"))
	assert.True(t, errors.Is(err, ErrBusy))

	close(extractor.block)
	require.NoError(t, <-ingestDone)
	assert.Equal(t, StateReady, c.State())
}

func TestSnippet_Truncation(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, snippet(short))

	long := strings.Repeat("あ", snippetRunes+50)
	got := snippet(long)
	runes := []rune(got)
	assert.Len(t, runes, snippetRunes+1)
	assert.Equal(t, '…', runes[len(runes)-1])
}

package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/docqa/internal/core/retrieval"
)

// DefaultPromptTokenBudget はプロンプト全体の目安トークン数。
// 超過しても切り詰めはせず、警告ログのみ出す（切り詰めの有無はモデル側の制約に委ねる）。
const DefaultPromptTokenBudget = 8000

// LLMClient はLLM通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// Synthesizer は検索済みコンテキストに基づく回答生成を提供する
type Synthesizer struct {
	llm         LLMClient
	encoder     *tiktoken.Tiktoken
	tokenBudget int
	logger      *slog.Logger
}

// SynthesizerOption は Synthesizer のオプション設定
type SynthesizerOption func(*Synthesizer)

// WithSynthesizerLogger は Synthesizer にロガーを設定する
func WithSynthesizerLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// WithPromptTokenBudget は警告を出すトークン数の閾値を上書きする
func WithPromptTokenBudget(budget int) SynthesizerOption {
	return func(s *Synthesizer) {
		s.tokenBudget = budget
	}
}

// NewSynthesizer は新しいSynthesizerを作成する
func NewSynthesizer(llm LLMClient, opts ...SynthesizerOption) (*Synthesizer, error) {
	// cl100k_baseエンコーダを使用（gpt-4o系と互換）
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	s := &Synthesizer{
		llm:         llm,
		encoder:     encoder,
		tokenBudget: DefaultPromptTokenBudget,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Synthesize は質問と検索結果からプロンプトを組み立て、LLMで回答を生成する。
// コンテキストが回答を含まない場合、LLMは NotFoundAnswer を返す契約になっている。
// LLM呼び出しの失敗は ErrSynthesisService をラップして返す。
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []retrieval.ScoredChunk) (string, error) {
	if question == "" {
		return "", fmt.Errorf("question is required")
	}

	prompt := BuildAnswerPrompt(question, chunks)

	promptTokens := len(s.encoder.Encode(prompt, nil, nil))
	if promptTokens > s.tokenBudget {
		s.logger.Warn("prompt exceeds token budget",
			"promptTokens", promptTokens,
			"budget", s.tokenBudget,
			"contextChunks", len(chunks),
		)
	}

	s.logger.Info("generating answer",
		"contextChunks", len(chunks),
		"promptTokens", promptTokens,
	)

	answer, err := s.llm.GenerateCompletion(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSynthesisService, err)
	}

	return answer, nil
}

// CountTokens はテキストのトークン数をカウントします
func (s *Synthesizer) CountTokens(text string) int {
	return len(s.encoder.Encode(text, nil, nil))
}

package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/docqa/internal/core/answer"
	"github.com/jinford/docqa/internal/core/document"
	"github.com/jinford/docqa/internal/core/retrieval"
	"github.com/jinford/docqa/internal/core/session"
	"github.com/jinford/docqa/internal/infra/memory"
	infraopenai "github.com/jinford/docqa/internal/infra/openai"
	infrapostgres "github.com/jinford/docqa/internal/infra/postgres"
	"github.com/jinford/docqa/internal/infra/pdfload"
	"github.com/jinford/docqa/internal/platform/config"
)

// ServiceContainer はアプリケーションの依存関係を保持する
type ServiceContainer struct {
	Controller *session.Controller

	logger *slog.Logger
	pool   *pgxpool.Pool // postgresバックエンド使用時のみ非nil
}

type containerOptions struct {
	logger    *slog.Logger
	extractor document.Extractor
	embedder  retrieval.Embedder
	index     retrieval.VectorIndex
	llmClient answer.LLMClient
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerExtractor はカスタム Extractor を注入する
func WithContainerExtractor(extractor document.Extractor) ContainerOption {
	return func(opts *containerOptions) {
		opts.extractor = extractor
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder retrieval.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerIndex はカスタム VectorIndex を注入する
func WithContainerIndex(index retrieval.VectorIndex) ContainerOption {
	return func(opts *containerOptions) {
		opts.index = index
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client answer.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// NewContainer は設定からコンテナを生成する
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	// チャンク分割（パラメータ不正はここで致命エラーになる）
	splitter, err := document.NewSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	// テキスト抽出
	extractor := options.extractor
	if extractor == nil {
		extractor = pdfload.NewExtractor(pdfload.WithExtractorLogger(logger))
	}

	// Embedder
	embedder := options.embedder
	if embedder == nil {
		if cfg.OpenAI.APIKey == "" {
			return nil, infraopenai.ErrAPIKeyNotSet
		}
		embedder = infraopenai.NewEmbedder(cfg.OpenAI.APIKey,
			infraopenai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			infraopenai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
		)
	}

	// VectorIndex（設定によりインメモリ/pgvectorを切り替える）
	var pool *pgxpool.Pool
	index := options.index
	if index == nil {
		switch cfg.IndexBackend {
		case config.IndexBackendPostgres:
			pool, err = infrapostgres.NewPool(ctx, infrapostgres.ConnectionParams{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				DBName:   cfg.Database.DBName,
				SSLMode:  cfg.Database.SSLMode,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to connect to postgres: %w", err)
			}
			index, err = infrapostgres.NewIndex(ctx, pool, embedder.Dimension())
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to create postgres index: %w", err)
			}
		default:
			index = memory.NewIndex(embedder.Dimension())
		}
	}

	// LLMクライアント
	llmClient := options.llmClient
	if llmClient == nil {
		llmClient, err = infraopenai.NewClient(cfg.OpenAI.APIKey,
			infraopenai.WithChatModel(cfg.OpenAI.ChatModel),
		)
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	}

	retriever := retrieval.NewRetriever(embedder, index,
		retrieval.WithRetrieverLogger(logger),
		retrieval.WithRetrieverTopK(cfg.Retrieval.TopK),
	)

	synthesizer, err := answer.NewSynthesizer(llmClient,
		answer.WithSynthesizerLogger(logger),
	)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}

	controller := session.NewController(
		extractor,
		splitter,
		embedder,
		index,
		retriever,
		synthesizer,
		session.WithControllerLogger(logger),
	)

	return &ServiceContainer{
		Controller: controller,
		logger:     logger,
		pool:       pool,
	}, nil
}

// Logger はコンテナのロガーを返す
func (c *ServiceContainer) Logger() *slog.Logger {
	return c.logger
}

// Close はコンテナが保持するリソースをクリーンアップする
func (c *ServiceContainer) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

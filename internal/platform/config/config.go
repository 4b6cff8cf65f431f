package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// インデックスバックエンドの種別
const (
	IndexBackendMemory   = "memory"
	IndexBackendPostgres = "postgres"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// OpenAI設定（Embeddings + 回答生成）
	OpenAI OpenAIConfig

	// チャンク分割設定
	Chunk ChunkConfig

	// 検索設定
	Retrieval RetrievalConfig

	// インデックスバックエンド（"memory" または "postgres"）
	IndexBackend string

	// Database設定（IndexBackend=postgres の場合のみ使用）
	Database DatabaseConfig

	// ログ設定
	LogLevel  string
	LogFormat string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	ChatModel          string
}

// ChunkConfig はチャンク分割パラメータ
type ChunkConfig struct {
	Size    int // チャンク幅（ルーン数）
	Overlap int // 隣接チャンクの重なり幅（ルーン数）
}

// RetrievalConfig は検索パラメータ
type RetrievalConfig struct {
	TopK int // 取得するチャンク数のデフォルト値
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Load は環境変数または.envファイルから設定を読み込みます。
// チャンクパラメータの不正はプログラマエラーとして起動時に失敗させる。
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			ChatModel:          getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		},
		Chunk: ChunkConfig{
			Size:    getEnvAsInt("DOCQA_CHUNK_SIZE", 1000),
			Overlap: getEnvAsInt("DOCQA_CHUNK_OVERLAP", 200),
		},
		Retrieval: RetrievalConfig{
			TopK: getEnvAsInt("DOCQA_TOP_K", 10),
		},
		IndexBackend: getEnv("DOCQA_INDEX_BACKEND", IndexBackendMemory),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "docqa"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "docqa"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		LogLevel:  getEnv("DOCQA_LOG_LEVEL", "info"),
		LogFormat: getEnv("DOCQA_LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は起動時に検出すべき設定不備をチェックする
func (c *Config) validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("DOCQA_CHUNK_SIZE must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("DOCQA_CHUNK_OVERLAP must satisfy 0 <= overlap < chunk size, got %d", c.Chunk.Overlap)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("DOCQA_TOP_K must be at least 1, got %d", c.Retrieval.TopK)
	}
	if c.IndexBackend != IndexBackendMemory && c.IndexBackend != IndexBackendPostgres {
		return fmt.Errorf("DOCQA_INDEX_BACKEND must be %q or %q, got %q", IndexBackendMemory, IndexBackendPostgres, c.IndexBackend)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 1536, cfg.OpenAI.EmbeddingDimension)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, 1000, cfg.Chunk.Size)
	assert.Equal(t, 200, cfg.Chunk.Overlap)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, IndexBackendMemory, cfg.IndexBackend)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOCQA_CHUNK_SIZE", "500")
	t.Setenv("DOCQA_CHUNK_OVERLAP", "50")
	t.Setenv("DOCQA_TOP_K", "5")
	t.Setenv("DOCQA_INDEX_BACKEND", "postgres")
	t.Setenv("OPENAI_CHAT_MODEL", "gpt-4o")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunk.Size)
	assert.Equal(t, 50, cfg.Chunk.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, IndexBackendPostgres, cfg.IndexBackend)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
}

// TestLoad_InvalidChunkConfig は不正なチャンク設定が起動時エラーになることをテストします
func TestLoad_InvalidChunkConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    string
		overlap string
	}{
		{name: "zero size", size: "0", overlap: "0"},
		{name: "overlap equals size", size: "100", overlap: "100"},
		{name: "negative overlap", size: "100", overlap: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DOCQA_CHUNK_SIZE", tt.size)
			t.Setenv("DOCQA_CHUNK_OVERLAP", tt.overlap)

			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("DOCQA_INDEX_BACKEND", "redis")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	cfg, err := Load("/nonexistent/.env")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

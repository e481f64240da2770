package syngh

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.API.BaseURL)
	assert.Equal(t, ProfileConfig{
		Model:       "deepseek-r1-distill-llama-70b",
		Temperature: 0.5,
		TopP:        0.9,
		MaxTokens:   2048,
		MemoryFile:  "~/.ai_session.jsonl",
		MemoryLimit: 3,
	}, cfg.Codeboss)
	assert.Equal(t, ProfileConfig{
		Model:       "deepseek-r1-distill-llama-70b",
		Temperature: 0.6,
		TopP:        0.95,
		MaxTokens:   1024,
		MemoryFile:  "~/.ai_memory_log.jsonl",
		MemoryLimit: 6,
	}, cfg.Chat)
	assert.Equal(t, "micro", cfg.Dispatch.Editor)
	assert.Equal(t, 10, cfg.Dispatch.HistoryLines)
	assert.Equal(t, 2*time.Millisecond, cfg.TypingDelay())
	assert.Equal(t, 120*time.Second, cfg.Timeout())
}

func TestLoadConfigFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFileFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
base_url = "http://localhost:11434/v1"

[chat]
model = "llama3"
memory_limit = 2

[dispatch]
editor = "nvim"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", cfg.API.BaseURL)
	assert.Equal(t, 120, cfg.API.TimeoutSeconds)
	assert.Equal(t, "llama3", cfg.Chat.Model)
	assert.Equal(t, 2, cfg.Chat.MemoryLimit)
	assert.Equal(t, 0.6, cfg.Chat.Temperature)
	assert.Equal(t, "~/.ai_memory_log.jsonl", cfg.Chat.MemoryFile)
	assert.Equal(t, DefaultConfig().Codeboss, cfg.Codeboss)
	assert.Equal(t, "nvim", cfg.Dispatch.Editor)
	assert.Equal(t, "sh", cfg.Dispatch.Shell)
	assert.Equal(t, 3, cfg.Embedding.RecallTopK)
}

func TestLoadConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api\nbase_url ="), 0600))
	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}

func TestConfigDirResolution(t *testing.T) {
	t.Setenv("SYNGH_CONFIG_DIR", "/custom/dir")
	assert.Equal(t, "/custom/dir", ConfigDir())
	assert.Equal(t, "/custom/dir/config.toml", ConfigPath())

	t.Setenv("SYNGH_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/syngh", ConfigDir())
}

func TestRequireAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("SYNGH_API_KEY", "")

	_, err := RequireAPIKey(DefaultConfig())
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	cfg := DefaultConfig()
	cfg.API.APIKey = "from-file"
	key, err := RequireAPIKey(cfg)
	require.NoError(t, err)
	assert.Equal(t, "from-file", key)

	t.Setenv("SYNGH_API_KEY", "alias")
	key, _ = RequireAPIKey(cfg)
	assert.Equal(t, "alias", key)

	t.Setenv("GROQ_API_KEY", "groq")
	key, _ = RequireAPIKey(cfg)
	assert.Equal(t, "groq", key)

	t.Setenv("GROQ_API_KEY", "   ")
	t.Setenv("SYNGH_API_KEY", "")
	cfg.API.APIKey = ""
	_, err = RequireAPIKey(cfg)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestResolveBaseURLAndModel(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("SYNGH_BASE_URL", "")
	assert.Equal(t, "https://api.groq.com/openai/v1", ResolveBaseURL(cfg))

	t.Setenv("SYNGH_BASE_URL", "http://localhost:8080/v1/")
	assert.Equal(t, "http://localhost:8080/v1", ResolveBaseURL(cfg))

	t.Setenv("SYNGH_MODEL", "")
	assert.Equal(t, "deepseek-r1-distill-llama-70b", ResolveModel(cfg.Chat))
	t.Setenv("SYNGH_MODEL", "qwen")
	assert.Equal(t, "qwen", ResolveModel(cfg.Chat))
}

func TestEmbeddingEnabled(t *testing.T) {
	t.Setenv("SYNGH_EMBEDDING_BASE_URL", "")
	t.Setenv("SYNGH_EMBEDDING_API_KEY", "")
	cfg := DefaultConfig()
	assert.False(t, EmbeddingEnabled(cfg))
	assert.False(t, EmbeddingEnabled(nil))

	cfg.Embedding.BaseURL = "http://localhost/v1"
	assert.False(t, EmbeddingEnabled(cfg))
	t.Setenv("SYNGH_EMBEDDING_API_KEY", "k")
	assert.True(t, EmbeddingEnabled(cfg))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ai_session.jsonl"), ExpandHome("~/.ai_session.jsonl"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

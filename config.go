package syngh

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	defaults "github.com/syngh-ai/syngh/default"
)

// ErrMissingAPIKey is returned when no API credential is configured.
var ErrMissingAPIKey = errors.New("GROQ_API_KEY missing. Add it to your ~/.zshrc or ~/.bashrc")

// Config represents the user's syngh configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Codeboss  ProfileConfig   `toml:"codeboss"`
	Chat      ProfileConfig   `toml:"chat"`
	Dispatch  DispatchConfig  `toml:"dispatch"`
	Embedding EmbeddingConfig `toml:"embedding"`
}

// APIConfig holds settings for the chat-completions endpoint.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ProfileConfig holds per-assistant sampling and memory settings.
type ProfileConfig struct {
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	TopP        float64 `toml:"top_p"`
	MaxTokens   int     `toml:"max_tokens"`
	MemoryFile  string  `toml:"memory_file"`
	MemoryLimit int     `toml:"memory_limit"`
}

// DispatchConfig holds settings for acting on generated tasks.
type DispatchConfig struct {
	Editor          string `toml:"editor"`
	Shell           string `toml:"shell"`
	HistoryLines    int    `toml:"history_lines"`
	TypingDelayMsec int    `toml:"typing_delay_ms"`
}

// EmbeddingConfig holds settings for semantic recall of past sessions.
// Recall is disabled unless both base_url and api_key resolve.
type EmbeddingConfig struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	RecallTopK int    `toml:"recall_top_k"`
}

// ConfigDir returns the config directory path.
// Resolution order: $SYNGH_CONFIG_DIR > $XDG_CONFIG_HOME/syngh > ~/.config/syngh
func ConfigDir() string {
	if dir := os.Getenv("SYNGH_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "syngh")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "syngh-config")
	}
	return filepath.Join(home, ".config", "syngh")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// RecallCachePath returns where prompt embeddings are cached between runs.
func RecallCachePath() string {
	return filepath.Join(ConfigDir(), "recall_cache.json")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if _, err := toml.Decode(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("syngh: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile loads config from path, filling missing fields from the defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	d := DefaultConfig()
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = d.API.BaseURL
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = d.API.TimeoutSeconds
	}
	fillProfile(&cfg.Codeboss, d.Codeboss)
	fillProfile(&cfg.Chat, d.Chat)
	if cfg.Dispatch.Editor == "" {
		cfg.Dispatch.Editor = d.Dispatch.Editor
	}
	if cfg.Dispatch.Shell == "" {
		cfg.Dispatch.Shell = d.Dispatch.Shell
	}
	if cfg.Dispatch.HistoryLines == 0 {
		cfg.Dispatch.HistoryLines = d.Dispatch.HistoryLines
	}
	if cfg.Dispatch.TypingDelayMsec == 0 {
		cfg.Dispatch.TypingDelayMsec = d.Dispatch.TypingDelayMsec
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = d.Embedding.Model
	}
	if cfg.Embedding.RecallTopK == 0 {
		cfg.Embedding.RecallTopK = d.Embedding.RecallTopK
	}

	return &cfg, nil
}

func fillProfile(p *ProfileConfig, d ProfileConfig) {
	if p.Model == "" {
		p.Model = d.Model
	}
	if p.Temperature == 0 {
		p.Temperature = d.Temperature
	}
	if p.TopP == 0 {
		p.TopP = d.TopP
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = d.MaxTokens
	}
	if p.MemoryFile == "" {
		p.MemoryFile = d.MemoryFile
	}
	if p.MemoryLimit == 0 {
		p.MemoryLimit = d.MemoryLimit
	}
}

// ResolveAPIKey returns the completion API key.
// Priority: $GROQ_API_KEY env > $SYNGH_API_KEY env > config value.
func ResolveAPIKey(cfg *Config) string {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		return key
	}
	if key := os.Getenv("SYNGH_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.API.APIKey
	}
	return ""
}

// RequireAPIKey returns the resolved API key or ErrMissingAPIKey.
func RequireAPIKey(cfg *Config) (string, error) {
	key := strings.TrimSpace(ResolveAPIKey(cfg))
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// ResolveBaseURL returns the completion API base URL.
// Priority: $SYNGH_BASE_URL env > config value.
func ResolveBaseURL(cfg *Config) string {
	if url := os.Getenv("SYNGH_BASE_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	if cfg != nil {
		return strings.TrimRight(cfg.API.BaseURL, "/")
	}
	return ""
}

// ResolveModel returns the model for a profile.
// Priority: $SYNGH_MODEL env > profile value.
func ResolveModel(p ProfileConfig) string {
	if model := os.Getenv("SYNGH_MODEL"); model != "" {
		return model
	}
	return p.Model
}

// Timeout returns the request timeout for blocking completions.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// TypingDelay returns the per-fragment delay while rendering an answer.
func (c *Config) TypingDelay() time.Duration {
	return time.Duration(c.Dispatch.TypingDelayMsec) * time.Millisecond
}

// ResolveEmbeddingBaseURL returns the embedding API base URL.
// Priority: $SYNGH_EMBEDDING_BASE_URL env > config value.
func ResolveEmbeddingBaseURL(cfg *Config) string {
	if url := os.Getenv("SYNGH_EMBEDDING_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Embedding.BaseURL
	}
	return ""
}

// ResolveEmbeddingAPIKey returns the embedding API key.
// Priority: $SYNGH_EMBEDDING_API_KEY env > config value.
func ResolveEmbeddingAPIKey(cfg *Config) string {
	if key := os.Getenv("SYNGH_EMBEDDING_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Embedding.APIKey
	}
	return ""
}

// EmbeddingEnabled returns true when both base_url and api_key are configured for embedding.
func EmbeddingEnabled(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return ResolveEmbeddingBaseURL(cfg) != "" && ResolveEmbeddingAPIKey(cfg) != ""
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/agenthands/truthseeker/internal/config"
	"github.com/sirupsen/logrus"
)

const DeepSeekBaseURL = "https://api.deepseek.com"

// NewChatModel builds the provider named in cfg. httpClient carries the shared outbound timeout
// for providers that accept one.
func NewChatModel(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client, log logrus.FieldLogger) (ChatModel, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "deepseek", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DeepSeekBaseURL
		}
		return NewOpenAIClient(cfg.APIKey, cfg.Model, baseURL, httpClient), nil

	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, httpClient), nil

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		if log != nil {
			log.WithField("base_url", baseURL).Info("Using Ollama through its OpenAI-compatible API")
		}

		// Ollama ignores the key, any placeholder works.
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, httpClient), nil

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

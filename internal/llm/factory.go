package llm

import (
	"fmt"
	"net/http"

	"github.com/fleveque/review-jury/internal/config"
)

// Factory builds a Client for a caller-supplied API key. Keys belong to the
// user making the request, so clients are built per review, not at startup.
type Factory func(apiKey string) (Client, error)

// NewFactory returns the factory for the configured provider. The HTTP client
// is shared by every Client it builds.
func NewFactory(cfg config.LLMConfig) (Factory, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case "", "dashscope":
		return func(apiKey string) (Client, error) {
			return NewDashScopeClient(cfg.DashScope.BaseURL, apiKey, httpClient), nil
		}, nil
	case "openai":
		return func(apiKey string) (Client, error) {
			return NewOpenAIClient(cfg.OpenAI.BaseURL, apiKey, httpClient), nil
		}, nil
	case "anthropic":
		return func(apiKey string) (Client, error) {
			return NewAnthropicClient(cfg.Anthropic.BaseURL, apiKey, cfg.Anthropic.MaxTokens, httpClient), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

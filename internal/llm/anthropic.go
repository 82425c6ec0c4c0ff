package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"
)

// AnthropicClient reviews with Claude. The persona prompt goes in the system
// block; images are sent inline as base64 blocks.
type AnthropicClient struct {
	client    *anthropic.Client
	maxTokens int64
}

// NewAnthropicClient creates a client for one user's API key.
func NewAnthropicClient(baseURL, apiKey string, maxTokens int64, httpClient *http.Client) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		client:    &client,
		maxTokens: maxTokens,
	}
}

func (a *AnthropicClient) ProviderName() string { return "anthropic" }

func (a *AnthropicClient) ReviewText(ctx context.Context, req TextRequest) (string, error) {
	return a.send(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Content)),
		},
	})
}

func (a *AnthropicClient) ReviewImage(ctx context.Context, req ImageRequest) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(req.Image)

	return a.send(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(req.MediaType, encoded),
				anthropic.NewTextBlock(req.Prompt),
			),
		},
	})
}

func (a *AnthropicClient) send(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", anthropicError(apiErr)
		}
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var parts []string
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return strings.Join(parts, "\n"), nil
}

// anthropicError keeps the vendor's error type and message from the response
// body; the SDK's own Error() string also carries the method and URL.
func anthropicError(apiErr *anthropic.Error) error {
	out := &APIError{Provider: "anthropic", StatusCode: apiErr.StatusCode}

	raw := apiErr.RawJSON()
	if gjson.Valid(raw) {
		out.Code = gjson.Get(raw, "error.type").String()
		out.Message = gjson.Get(raw, "error.message").String()
	}
	if out.Message == "" {
		out.Message = strings.TrimSpace(raw)
	}
	return out
}

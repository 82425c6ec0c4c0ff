package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	dashScopeTextPath       = "/services/aigc/text-generation/generation"
	dashScopeMultimodalPath = "/services/aigc/multimodal-generation/generation"
	contentPath             = "output.choices.0.message.content"
)

// DashScopeClient calls the native DashScope (Qwen) endpoints directly.
type DashScopeClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewDashScopeClient creates a client for one user's API key.
func NewDashScopeClient(baseURL, apiKey string, httpClient *http.Client) *DashScopeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DashScopeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  httpClient,
	}
}

func (d *DashScopeClient) ProviderName() string { return "dashscope" }

type dashScopeMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type dashScopeRequest struct {
	Model      string         `json:"model"`
	Input      dashScopeInput `json:"input"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type dashScopeInput struct {
	Messages []dashScopeMessage `json:"messages"`
}

// ReviewText sends the persona prompt as the system message and the user's
// text as the user message.
func (d *DashScopeClient) ReviewText(ctx context.Context, req TextRequest) (string, error) {
	body := dashScopeRequest{
		Model: req.Model,
		Input: dashScopeInput{Messages: []dashScopeMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Content},
		}},
		Parameters: map[string]any{"result_format": "message"},
	}
	return d.post(ctx, dashScopeTextPath, body)
}

// ReviewImage sends the raw image as base64 followed by the prompt in a single
// user message.
func (d *DashScopeClient) ReviewImage(ctx context.Context, req ImageRequest) (string, error) {
	body := dashScopeRequest{
		Model: req.Model,
		Input: dashScopeInput{Messages: []dashScopeMessage{
			{Role: "user", Content: []map[string]string{
				{"image": base64.StdEncoding.EncodeToString(req.Image)},
				{"text": req.Prompt},
			}},
		}},
	}
	return d.post(ctx, dashScopeMultimodalPath, body)
}

func (d *DashScopeClient) post(ctx context.Context, path string, body dashScopeRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dashscope request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", dashScopeError(resp.StatusCode, data, path == dashScopeMultimodalPath)
	}

	content := gjson.GetBytes(data, contentPath)
	if !content.Exists() {
		return "", fmt.Errorf("dashscope response has no %s", contentPath)
	}
	return contentText(content), nil
}

// contentText flattens the message content. Text generation returns a string,
// multimodal generation returns a list of {"text": ...} parts.
func contentText(content gjson.Result) string {
	if !content.IsArray() {
		return content.String()
	}
	var parts []string
	for _, part := range content.Array() {
		if text := part.Get("text"); text.Exists() {
			parts = append(parts, text.String())
		}
	}
	return strings.Join(parts, "\n")
}

// dashScopeError reads the vendor code and message. Multimodal failures show
// the message alone.
func dashScopeError(status int, body []byte, messageOnly bool) error {
	apiErr := &APIError{Provider: "dashscope", StatusCode: status, messageOnly: messageOnly}
	if gjson.ValidBytes(body) {
		apiErr.Code = gjson.GetBytes(body, "code").String()
		apiErr.Message = gjson.GetBytes(body, "message").String()
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

package llm

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const anthropicReply = `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",` +
	`"content":[{"type":"text","text":"Fine"}],"stop_reason":"end_turn",` +
	`"usage":{"input_tokens":1,"output_tokens":1}}`

func TestAnthropic_ReviewTextAndImage(t *testing.T) {
	var bodies [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, anthropicReply)
	}))
	defer srv.Close()

	c := NewAnthropicClient(srv.URL, "sk-test", 256, srv.Client())

	out, err := c.ReviewText(context.Background(), TextRequest{Model: "claude-test", SystemPrompt: "sys", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Fine", out)

	image := []byte("img")
	out, err = c.ReviewImage(context.Background(), ImageRequest{
		Model: "claude-test", Prompt: "look", Image: image, MediaType: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Fine", out)

	require.Len(t, bodies, 2)
	text := bodies[0]
	assert.Equal(t, int64(256), gjson.GetBytes(text, "max_tokens").Int())
	assert.Equal(t, "text", gjson.GetBytes(text, "system.0.type").String())
	assert.Equal(t, "sys", gjson.GetBytes(text, "system.0.text").String())
	assert.Equal(t, "user", gjson.GetBytes(text, "messages.0.role").String())
	assert.Equal(t, "hello", gjson.GetBytes(text, "messages.0.content.0.text").String())

	img := bodies[1]
	assert.Equal(t, "image", gjson.GetBytes(img, "messages.0.content.0.type").String())
	assert.Equal(t, "base64", gjson.GetBytes(img, "messages.0.content.0.source.type").String())
	assert.Equal(t, "image/png", gjson.GetBytes(img, "messages.0.content.0.source.media_type").String())
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), gjson.GetBytes(img, "messages.0.content.0.source.data").String())
	assert.Equal(t, "look", gjson.GetBytes(img, "messages.0.content.1.text").String())
}

func TestAnthropic_APIErrorWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient(srv.URL, "sk-test", 0, srv.Client())
	_, err := c.ReviewText(context.Background(), TextRequest{Model: "claude-test", SystemPrompt: "sys", Content: "hi"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 529, apiErr.StatusCode)
	assert.Equal(t, "overloaded_error", apiErr.Code)
	assert.Equal(t, "Overloaded", apiErr.Message)
	assert.Equal(t, "overloaded_error: Overloaded", err.Error())
	assert.Equal(t, 1, calls)
}

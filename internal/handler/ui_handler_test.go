package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"testing"
)

var sessionField = regexp.MustCompile(`name="session" value="([^"]*)"`)

func hiddenSession(t *testing.T, body string) string {
	t.Helper()
	m := sessionField.FindStringSubmatch(body)
	if m == nil {
		t.Fatal("session field not found in page")
	}
	return m[1]
}

func TestUI_Index(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`<option value="A" selected>`,
		`<option value="B" selected>`,
		`<option value="C">`,
		`<option value="qwen-turbo" selected>`,
		`<option value="qwen-vl-plus" selected>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
}

func TestUI_AddPersona(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(formRequest("/personas", url.Values{
		"adhoc_name":   {"Pirate"},
		"adhoc_prompt": {"Review like a pirate."},
		"personas":     {"A"},
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "✅ Persona &#39;Pirate&#39; added!") {
		t.Error("expected success status")
	}
	if !strings.Contains(body, `<option value="Pirate">`) {
		t.Error("expected the new persona in the selector")
	}
	if !strings.Contains(body, `<option value="A" selected>`) {
		t.Error("expected the submitted selection to be kept")
	}

	// The returned session carries the persona into the next submit.
	w = env.do(formRequest("/review", url.Values{
		"session":  {hiddenSession(t, body)},
		"personas": {"Pirate"},
		"text":     {"hello"},
		"api_key":  {"sk-test"},
	}))
	if !strings.Contains(w.Body.String(), "Review like a pirate. says: hello") {
		t.Errorf("expected the ad-hoc persona's review, got %s", w.Body.String())
	}
}

func TestUI_AddPersona_MissingPrompt(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(formRequest("/personas", url.Values{
		"adhoc_name": {"Pirate"},
	}))

	body := w.Body.String()
	if !strings.Contains(body, "⚠️ Name and prompt must not be empty") {
		t.Error("expected validation status")
	}
	if strings.Contains(body, `<option value="Pirate"`) {
		t.Error("rejected persona must not be offered")
	}
}

func TestUI_AddPersona_BadSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(formRequest("/personas", url.Values{
		"session":      {"%%%not-base64"},
		"adhoc_name":   {"Pirate"},
		"adhoc_prompt": {"p"},
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUI_Review_PartialFailure(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(formRequest("/review", url.Values{
		"personas": {"A", "B"},
		"text":     {"ok"},
		"api_key":  {"sk-test"},
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	a := strings.Index(body, "<h3>👤 A</h3>")
	b := strings.Index(body, "<h3>👤 B</h3>")
	if a < 0 || b < 0 || a > b {
		t.Fatalf("expected sections A then B, got %s", body)
	}
	if !strings.Contains(body, "prompt-a says: ok") {
		t.Error("expected A's review")
	}
	if !strings.Contains(body, "❌ Review failed: InternalError: boom") {
		t.Error("expected B's failure")
	}
	if len(env.apiKeys) != 1 || env.apiKeys[0] != "sk-test" {
		t.Errorf("expected the form key to reach the client, got %v", env.apiKeys)
	}
}

func TestUI_Review_DoesNotEchoKey(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(formRequest("/review", url.Values{
		"personas": {"A"},
		"text":     {"ok"},
		"api_key":  {"sk-secret-123"},
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "sk-secret-123") {
		t.Error("API key must not be written into the page")
	}
}

func TestUI_Review_MissingKey(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(formRequest("/review", url.Values{
		"personas": {"A"},
		"text":     {"ok"},
	}))

	if !strings.Contains(w.Body.String(), "❌ Please enter your API key") {
		t.Error("expected missing key message")
	}
	if env.client.calls != 0 {
		t.Errorf("expected no model calls, got %d", env.client.calls)
	}
}

func TestUI_Review_UnsupportedModel(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(formRequest("/review", url.Values{
		"personas":   {"A"},
		"text":       {"ok"},
		"api_key":    {"sk-test"},
		"text_model": {"gpt-99"},
	}))

	if !strings.Contains(w.Body.String(), "unsupported model") {
		t.Error("expected unsupported model message")
	}
	if env.client.calls != 0 {
		t.Errorf("expected no model calls, got %d", env.client.calls)
	}
}

func TestUI_Review_TextAndImage(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t, "/review", url.Values{
		"personas": {"A"},
		"text":     {"some text"},
		"api_key":  {"sk-test"},
	}, "image", "logo.png", []byte("not really a png"))
	w := env.do(req)

	body := w.Body.String()
	if !strings.Contains(body, "⚠️ Input error: do not submit text and an image at the same time; choose one of them") {
		t.Errorf("expected input conflict message, got %s", body)
	}
	if env.client.calls != 0 {
		t.Errorf("expected no model calls, got %d", env.client.calls)
	}

	entries, err := os.ReadDir(env.uploadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected the upload to be deleted, found %d files", len(entries))
	}
}

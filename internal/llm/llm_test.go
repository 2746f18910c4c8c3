package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- Tests ---

func TestMockProviderRecordsCalls(t *testing.T) {
	mock := NewMockProvider("test")
	ctx := context.Background()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	resp, err := mock.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}

	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}

	if mock.Calls[0].Model != "test-model" {
		t.Errorf("expected model 'test-model', got %q", mock.Calls[0].Model)
	}
}

func TestFactoryReturnsErrorForMissingAPIKey(t *testing.T) {
	// Ensure env vars are not set for this test.
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	providers := []string{"anthropic", "openai", "google"}
	for _, p := range providers {
		_, err := NewProvider(p, "some-model")
		if err == nil {
			t.Errorf("expected error for provider %q with missing API key", p)
		}
	}
}

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	_, err := NewProvider("unknown", "some-model")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactoryCreatesOllamaWithoutAPIKey(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://localhost:11434")
	provider, err := NewProvider("ollama", "llama3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "ollama" {
		t.Errorf("expected name 'ollama', got %q", provider.Name())
	}
}

func TestFactoryCreatesOllamaWithDefaultHost(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	provider, err := NewProvider("ollama", "llama3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ollamaP, ok := provider.(*OllamaProvider)
	if !ok {
		t.Fatal("expected *OllamaProvider")
	}
	if ollamaP.baseURL != "http://localhost:11434" {
		t.Errorf("expected default host, got %q", ollamaP.baseURL)
	}
}

func TestFactoryCreatesAnthropicProvider(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	provider, err := NewProvider("anthropic", "claude-sonnet-4-5-20250929")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "anthropic" {
		t.Errorf("expected name 'anthropic', got %q", provider.Name())
	}
}

func TestFactoryCreatesOpenAIProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", "")
	provider, err := NewProvider("openai", "gpt-4o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "openai" {
		t.Errorf("expected name 'openai', got %q", provider.Name())
	}
}

func TestFactoryCreatesGoogleProvider(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	provider, err := NewProvider("google", "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "google" {
		t.Errorf("expected name 'google', got %q", provider.Name())
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 60)

	ctx := context.Background()
	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	resp, err := rl.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if rl.Name() != "test" {
		t.Errorf("expected name 'test', got %q", rl.Name())
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	mock := NewMockProvider("test")
	// Allow only 2 requests per minute.
	rl := NewRateLimitedProvider(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	// First two should succeed immediately.
	for i := 0; i < 2; i++ {
		_, err := rl.Complete(ctx, req)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// Third should block and eventually fail due to context timeout.
	_, err := rl.Complete(ctx, req)
	if err == nil {
		t.Error("expected error due to rate limiting + context timeout")
	}
}

func TestRoles(t *testing.T) {
	if RoleSystem != "system" {
		t.Errorf("RoleSystem = %q, want 'system'", RoleSystem)
	}
	if RoleUser != "user" {
		t.Errorf("RoleUser = %q, want 'user'", RoleUser)
	}
	if RoleAssistant != "assistant" {
		t.Errorf("RoleAssistant = %q, want 'assistant'", RoleAssistant)
	}
}

func TestRateLimiterKeepsStreaming(t *testing.T) {
	plain := NewRateLimitedProvider(NewMockProvider("test"), 10)
	if _, ok := plain.(StreamingProvider); ok {
		t.Error("non-streaming provider should not gain CompleteStream")
	}

	streaming := NewRateLimitedProvider(NewOllamaProvider("http://localhost:1", "m"), 10)
	if _, ok := streaming.(StreamingProvider); !ok {
		t.Error("streaming provider lost CompleteStream behind the rate limiter")
	}

	if got := NewRateLimitedProvider(plain, 0); got != plain {
		t.Error("rpm 0 should disable limiting")
	}
}

func TestUserPrompt(t *testing.T) {
	req := UserPrompt("m", "question?", 0.2, 512)
	if req.Model != "m" || req.MaxTokens != 512 || req.Temperature != 0.2 {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser || req.Messages[0].Content != "question?" {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
}

func TestOpenAIProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["max_tokens"] != float64(512) {
			t.Errorf("max_tokens = %v", body["max_tokens"])
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":"Paris."},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProviderWithBaseURL("key", "gpt-test", srv.URL)
	resp, err := p.Complete(context.Background(), UserPrompt("", "capital?", 0.2, 512))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Paris." || resp.FinishReason != "stop" || resp.OutputTokens != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestOpenAIProviderCompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo ", "world"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"model\":\"gpt-test\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"model\":\"gpt-test\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAIProviderWithBaseURL("key", "gpt-test", srv.URL)
	var deltas []string
	resp, err := p.CompleteStream(context.Background(), UserPrompt("", "hi", 0.2, 0), func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}
	if resp.Content != "Hello world" || strings.Join(deltas, "") != "Hello world" {
		t.Errorf("content = %q, deltas = %q", resp.Content, deltas)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
}

func TestAnthropicProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		var req anthropicRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MaxTokens != 1024 {
			t.Errorf("max_tokens = %d, want default 1024", req.MaxTokens)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"An answer."}],"model":"claude-test","stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "claude-test")
	p.baseURL = srv.URL
	resp, err := p.Complete(context.Background(), UserPrompt("", "q", 0.2, 0))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "An answer." || resp.FinishReason != "end_turn" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAnthropicProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "claude-test")
	p.baseURL = srv.URL
	_, err := p.Complete(context.Background(), UserPrompt("", "q", 0.2, 0))
	if err == nil || !strings.Contains(err.Error(), "slow down") {
		t.Errorf("err = %v, want API error", err)
	}
}

func TestGoogleProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/gemini-test:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req geminiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig.MaxOutputTokens != 512 {
			t.Errorf("maxOutputTokens = %d", req.GenerationConfig.MaxOutputTokens)
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Gem"},{"text":"ini"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":1,"candidatesTokenCount":2}}`)
	}))
	defer srv.Close()

	p := NewGoogleProvider("key", "gemini-test")
	p.baseURL = srv.URL
	resp, err := p.Complete(context.Background(), UserPrompt("", "q", 0.2, 512))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Gemini" || resp.FinishReason != "STOP" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestOllamaProviderCompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("expected stream=true")
		}
		fmt.Fprintln(w, `{"model":"llama","message":{"role":"assistant","content":"Local "},"done":false}`)
		fmt.Fprintln(w, `{"model":"llama","message":{"role":"assistant","content":"answer"},"done":false}`)
		fmt.Fprintln(w, `{"model":"llama","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","eval_count":2}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama")
	var deltas []string
	resp, err := p.CompleteStream(context.Background(), UserPrompt("", "q", 0.2, 0), func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}
	if resp.Content != "Local answer" || len(deltas) != 2 || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v, deltas = %q", resp, deltas)
	}
}

func TestOllamaProviderStreamStopsOnCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"a"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"b"},"done":false}`)
	}))
	defer srv.Close()

	stop := errors.New("client gone")
	calls := 0
	_, err := NewOllamaProvider(srv.URL, "m").CompleteStream(context.Background(), UserPrompt("", "q", 0, 0), func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestOllamaProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"num_predict":64`) {
			t.Errorf("body = %s", body)
		}
		fmt.Fprint(w, `{"model":"llama","message":{"role":"assistant","content":"ok"},"done":true,"done_reason":"stop"}`)
	}))
	defer srv.Close()

	resp, err := NewOllamaProvider(srv.URL, "llama").Complete(context.Background(), UserPrompt("", "q", 0.2, 64))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestOllamaProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "missing").Complete(context.Background(), UserPrompt("", "q", 0, 0))
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v, want status error", err)
	}
}

func TestAnthropicProviderCompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Errorf("stream flag not set")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\n"+
			`data: {"type":"message_start","message":{"model":"claude-test","usage":{"input_tokens":7}}}`+"\n\n"+
			"event: content_block_delta\n"+
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`+"\n\n"+
			"event: ping\n"+
			`data: {"type":"ping"}`+"\n\n"+
			"event: content_block_delta\n"+
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`+"\n\n"+
			"event: message_delta\n"+
			`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`+"\n\n"+
			"event: message_stop\n"+
			`data: {"type":"message_stop"}`+"\n\n")
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "claude-test")
	p.baseURL = srv.URL

	var deltas []string
	resp, err := p.CompleteStream(context.Background(), UserPrompt("", "q", 0.2, 0), func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}
	if strings.Join(deltas, "|") != "Hello| world" {
		t.Errorf("deltas = %q", deltas)
	}
	if resp.Content != "Hello world" || resp.FinishReason != "end_turn" || resp.InputTokens != 7 || resp.OutputTokens != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAnthropicProviderStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: content_block_delta\n"+
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Par"}}`+"\n\n"+
			"event: error\n"+
			`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`+"\n\n")
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "claude-test")
	p.baseURL = srv.URL
	_, err := p.CompleteStream(context.Background(), UserPrompt("", "q", 0.2, 0), func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "Overloaded") {
		t.Errorf("err = %v, want stream error", err)
	}
}

func TestGoogleProviderCompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/gemini-test:streamGenerateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" || r.URL.Query().Get("key") != "key" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		fmt.Fprint(w,
			`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"Gem"}]}}]}`+"\r\n\r\n"+
				`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"ini"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2}}`+"\r\n\r\n")
	}))
	defer srv.Close()

	p := NewGoogleProvider("key", "gemini-test")
	p.baseURL = srv.URL

	var deltas []string
	resp, err := p.CompleteStream(context.Background(), UserPrompt("", "q", 0.2, 0), func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}
	if strings.Join(deltas, "|") != "Gem|ini" {
		t.Errorf("deltas = %q", deltas)
	}
	if resp.Content != "Gemini" || resp.FinishReason != "STOP" || resp.InputTokens != 4 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGoogleProviderStreamStopsOnCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, text := range []string{"a", "b", "c"} {
			fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":%q}]}}]}\n\n", text)
		}
	}))
	defer srv.Close()

	p := NewGoogleProvider("key", "gemini-test")
	p.baseURL = srv.URL

	stop := errors.New("client gone")
	calls := 0
	_, err := p.CompleteStream(context.Background(), UserPrompt("", "q", 0.2, 0), func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("err = %v, want callback error", err)
	}
	if calls != 1 {
		t.Errorf("callback called %d times, want 1", calls)
	}
}

func TestGoogleProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	p := NewGoogleProvider("key", "gemini-test")
	p.baseURL = srv.URL
	_, err := p.Complete(context.Background(), UserPrompt("", "q", 0.2, 0))
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("err = %v, want API error", err)
	}
}

func TestProvidersImplementStreaming(t *testing.T) {
	for _, p := range []Provider{
		NewOpenAIProvider("k", "m"),
		NewAnthropicProvider("k", "m"),
		NewGoogleProvider("k", "m"),
		NewOllamaProvider("", "m"),
	} {
		if _, ok := p.(StreamingProvider); !ok {
			t.Errorf("%s does not implement StreamingProvider", p.Name())
		}
	}
}

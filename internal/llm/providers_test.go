package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestOpenRouterComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "mentormirror" {
			t.Errorf("X-Title = %q, want mentormirror", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "openai/gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("messages = %+v", req.Messages)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Hi there"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenRouterClientWithBaseURL("test-key", "openai/gpt-4o-mini", srv.URL)
	got, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Hi there" {
		t.Errorf("Complete() = %q, want %q", got, "Hi there")
	}
}

func TestOpenRouterRateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenRouterClientWithBaseURL("k", "m", srv.URL)
	_, err := c.Complete(context.Background(), "hello")
	if !IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestOpenRouterBadRequestIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewOpenRouterClientWithBaseURL("k", "m", srv.URL)
	_, err := c.Complete(context.Background(), "hello")
	if err == nil || IsTransient(err) {
		t.Errorf("err = %v, want non-transient error", err)
	}
}

func TestOpenRouterListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"a/one"},{"id":"b/two"}]}`)
	}))
	defer srv.Close()

	c := NewOpenRouterClientWithBaseURL("k", "m", srv.URL)
	ids, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a/one" || ids[1] != "b/two" {
		t.Errorf("ListModels() = %v", ids)
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Paul Graham"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-4o-mini", 0.7, srv.URL)
	got, err := c.Complete(context.Background(), "who wrote this?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Paul Graham" {
		t.Errorf("Complete() = %q, want %q", got, "Paul Graham")
	}
}

func TestOpenAIErrorClassification(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status.Load()))
		fmt.Fprint(w, `{"error":{"message":"nope","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-4o-mini", 0.7, srv.URL)

	status.Store(http.StatusBadRequest)
	if _, err := c.Complete(context.Background(), "x"); err == nil || IsTransient(err) {
		t.Errorf("400: err = %v, want non-transient error", err)
	}

	status.Store(http.StatusTooManyRequests)
	if _, err := c.Complete(context.Background(), "x"); !IsTransient(err) {
		t.Errorf("429: err = %v, want transient", err)
	}
}

func TestOpenAIUndecodableReplyIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices": nope}`)
	}))
	defer srv.Close()

	r := NewRegistry(Options{OpenAIKey: "sk-test", OpenAIBaseURL: srv.URL, Retry: fastRetry()})
	c, err := r.Resolve("openai", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_, err = c.Complete(context.Background(), "x")
	if err == nil || IsTransient(err) {
		t.Errorf("err = %v, want non-transient error", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}

func TestOpenAIGarbageReplyIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `<html>gateway page</html>`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-4o-mini", 0.7, srv.URL)
	if _, err := c.Complete(context.Background(), "x"); err == nil || IsTransient(err) {
		t.Errorf("err = %v, want non-transient error", err)
	}
}

func TestOpenAIConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-4o-mini", 0.7, srv.URL)
	if _, err := c.Complete(context.Background(), "x"); !IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key test-key, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.MaxTokens != anthropicMaxTokens {
			t.Errorf("max_tokens = %d", req.MaxTokens)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"world"}]}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", "claude-test", 0.7)
	c.url = srv.URL

	got, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("Complete() = %q, want %q", got, "Hello world")
	}
}

func TestAnthropicAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("bad", "claude-test", 0.7)
	c.url = srv.URL

	_, err := c.Complete(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if IsTransient(err) {
		t.Errorf("401 should not be transient: %v", err)
	}
}

// tagsJSON builds a /api/tags response with the given model names.
func tagsJSON(names ...string) string {
	type entry struct {
		Name string `json:"name"`
	}
	var resp struct {
		Models []entry `json:"models"`
	}
	for _, n := range names {
		resp.Models = append(resp.Models, entry{Name: n})
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestOllamaListAndHasModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tagsJSON("llama3.2:latest", "mistral-nemo:latest"))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.2", 0.7)
	if !c.IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}
	if !c.HasModel(context.Background(), "llama3.2") {
		t.Error("HasModel(llama3.2) = false, want true")
	}
	if c.HasModel(context.Background(), "phi3.5") {
		t.Error("HasModel(phi3.5) = true, want false")
	}
}

func TestOllamaIsRunningDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.2", 0.7)
	if c.IsRunning(context.Background()) {
		t.Error("IsRunning() = true, want false")
	}
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		if req.Options["temperature"] != 0.7 {
			t.Errorf("temperature = %v, want 0.7", req.Options["temperature"])
		}
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"local answer"}}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.2", 0.7)
	got, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "local answer" {
		t.Errorf("Complete() = %q, want %q", got, "local answer")
	}
}

func TestStatusErrorClassification(t *testing.T) {
	if !IsTransient(statusError("x", 503, "")) {
		t.Error("503 should be transient")
	}
	if IsTransient(statusError("x", 404, "")) {
		t.Error("404 should not be transient")
	}
	if !errors.Is(NewTransientError(ErrEmptyResponse), ErrEmptyResponse) {
		t.Error("TransientError should unwrap")
	}
}

func TestGoogleCandidateText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		{"nil response", nil, "", ErrEmptyResponse},
		{"no candidates", &genai.GenerateContentResponse{}, "", ErrEmptyResponse},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, "", ErrEmptyResponse},
		{
			"empty text part",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("")}},
			}}},
			"", nil,
		},
		{
			"no text parts",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
			}}},
			"", nil,
		},
		{
			"joined text",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("world")}},
			}}},
			"Hello world", nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := candidateText(tt.resp)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("candidateText() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Package llm exposes language-model providers behind a single Completer
// capability and selects among them at request time.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Completer is a text-completion capability: one prompt in, one response out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var (
	// ErrNotConfigured is returned when the credentials for a provider are
	// missing.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrUnknownService is returned for an unrecognised service selector.
	ErrUnknownService = errors.New("unknown service")

	// ErrModelUnavailable is returned when a local model has not been pulled.
	ErrModelUnavailable = errors.New("model not available")

	// ErrEmptyResponse is returned when a provider reply has no candidate,
	// choice or content block at all. A reply with empty text is not an error.
	ErrEmptyResponse = errors.New("empty response from provider")
)

// Service identifies a provider.
type Service string

const (
	OpenAI     Service = "openai"
	Google     Service = "google"
	Anthropic  Service = "anthropic"
	OpenRouter Service = "openrouter"
	Ollama     Service = "ollama"
)

// Services lists every supported provider in display order.
var Services = []Service{OpenAI, Google, Anthropic, OpenRouter, Ollama}

// ParseService normalizes a selector string. The empty string is returned
// unchanged so callers can substitute a default.
func ParseService(s string) (Service, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, svc := range Services {
		if string(svc) == s {
			return svc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownService, s)
}

// suggestedModels are offered to clients for each hosted provider. The first
// entry is the provider default.
var suggestedModels = map[Service][]string{
	OpenAI:     {"gpt-4o-mini", "gpt-4o", "gpt-4-turbo"},
	Google:     {"gemini-2.5-flash", "gemini-2.5-pro"},
	Anthropic:  {"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest"},
	OpenRouter: {"openai/gpt-4o-mini", "anthropic/claude-3.5-sonnet", "google/gemini-2.5-flash"},
	Ollama:     {"llama3.2"},
}

// SuggestedModels returns the suggested model ids for svc.
func SuggestedModels(svc Service) []string {
	return append([]string(nil), suggestedModels[svc]...)
}

// TransientError marks a provider failure that may succeed on retry
// (rate limiting, 5xx, connection errors).
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps err as retryable.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// statusError builds the error for a non-2xx provider response, marking
// 429 and 5xx as transient.
func statusError(provider string, status int, body string) error {
	err := fmt.Errorf("%s: unexpected status %d: %s", provider, status, strings.TrimSpace(body))
	if status == 429 || status >= 500 {
		return NewTransientError(err)
	}
	return err
}

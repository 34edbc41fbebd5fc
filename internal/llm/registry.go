package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/mentormirror/internal/metrics"
)

// Options configures a Registry. Empty keys leave the matching provider
// unconfigured.
type Options struct {
	OpenAIKey     string
	GoogleKey     string
	AnthropicKey  string
	OpenRouterKey string
	OllamaURL     string

	DefaultService Service
	DefaultModel   string
	Temperature    float64
	Timeout        time.Duration
	Retry          RetryConfig
	Metrics        *metrics.Metrics

	// Endpoint overrides, used by tests and self-hosted gateways.
	OpenAIBaseURL     string
	AnthropicURL      string
	OpenRouterBaseURL string
}

// Registry builds Completers for a service selector and model id.
type Registry struct {
	opts Options
}

// NewRegistry returns a Registry for opts.
func NewRegistry(opts Options) *Registry {
	if opts.DefaultService == "" {
		opts.DefaultService = OpenAI
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	return &Registry{opts: opts}
}

// DefaultService returns the service used when a request names none.
func (r *Registry) DefaultService() Service {
	return r.opts.DefaultService
}

// Resolve returns a Completer for the given selector and model. Empty values
// fall back to the configured defaults. The returned Completer enforces the
// call timeout and retries transient errors.
func (r *Registry) Resolve(selector, model string) (Completer, error) {
	svc, model, err := r.selection(selector, model)
	if err != nil {
		return nil, err
	}

	inner, err := r.provider(svc, model)
	if err != nil {
		return nil, err
	}
	return &guarded{
		inner:   inner,
		service: svc,
		timeout: r.opts.Timeout,
		retry:   r.opts.Retry,
		metrics: r.opts.Metrics,
	}, nil
}

// selection applies the configured defaults to a selector and model.
func (r *Registry) selection(selector, model string) (Service, string, error) {
	svc, err := ParseService(selector)
	if err != nil {
		return "", "", err
	}
	if svc == "" {
		svc = r.opts.DefaultService
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = r.defaultModel(svc)
	}
	return svc, model, nil
}

func (r *Registry) defaultModel(svc Service) string {
	if svc == r.opts.DefaultService && r.opts.DefaultModel != "" {
		return r.opts.DefaultModel
	}
	if models := suggestedModels[svc]; len(models) > 0 {
		return models[0]
	}
	return ""
}

func notConfigured(svc Service, what string) error {
	return fmt.Errorf("%w: %s (%s is not set)", ErrNotConfigured, svc, what)
}

func (r *Registry) provider(svc Service, model string) (Completer, error) {
	o := r.opts
	switch svc {
	case OpenAI:
		if o.OpenAIKey == "" {
			return nil, notConfigured(svc, "OPENAI_API_KEY")
		}
		return NewOpenAIClient(o.OpenAIKey, model, o.Temperature, o.OpenAIBaseURL), nil
	case Google:
		if o.GoogleKey == "" {
			return nil, notConfigured(svc, "GOOGLE_API_KEY")
		}
		return NewGoogleClient(o.GoogleKey, model, o.Temperature), nil
	case Anthropic:
		if o.AnthropicKey == "" {
			return nil, notConfigured(svc, "ANTHROPIC_API_KEY")
		}
		c := NewAnthropicClient(o.AnthropicKey, model, o.Temperature)
		if o.AnthropicURL != "" {
			c.url = o.AnthropicURL
		}
		return c, nil
	case OpenRouter:
		if o.OpenRouterKey == "" {
			return nil, notConfigured(svc, "OPENROUTER_API_KEY")
		}
		return r.openRouterClient(model), nil
	case Ollama:
		if o.OllamaURL == "" {
			return nil, notConfigured(svc, "ollama.base_url")
		}
		return NewOllamaClient(o.OllamaURL, model, o.Temperature), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownService, svc)
}

func (r *Registry) openRouterClient(model string) *OpenRouterClient {
	c := NewOpenRouterClient(r.opts.OpenRouterKey, model, r.opts.Temperature)
	if r.opts.OpenRouterBaseURL != "" {
		c.baseURL = strings.TrimRight(r.opts.OpenRouterBaseURL, "/")
	}
	return c
}

// ProviderInfo describes a provider for clients choosing a service.
type ProviderInfo struct {
	Service      Service  `json:"service"`
	Configured   bool     `json:"configured"`
	DefaultModel string   `json:"defaultModel"`
	Models       []string `json:"models"`
}

// Providers reports every provider, whether it can be used, and its models.
// Ollama counts as configured only when the local server answers; its model
// list comes from the server. A configured OpenRouter lists its live catalogue,
// falling back to the suggestions when the catalogue cannot be fetched.
func (r *Registry) Providers(ctx context.Context) []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(Services))
	for _, svc := range Services {
		info := ProviderInfo{
			Service:      svc,
			DefaultModel: r.defaultModel(svc),
			Models:       SuggestedModels(svc),
		}
		switch svc {
		case OpenAI:
			info.Configured = r.opts.OpenAIKey != ""
		case Google:
			info.Configured = r.opts.GoogleKey != ""
		case Anthropic:
			info.Configured = r.opts.AnthropicKey != ""
		case OpenRouter:
			info.Configured = r.opts.OpenRouterKey != ""
			if info.Configured {
				if ids, err := r.openRouterClient("").ListModels(ctx); err == nil && len(ids) > 0 {
					info.Models = ids
				} else if err != nil {
					slog.Debug("openrouter catalogue unavailable", "error", err)
				}
			}
		case Ollama:
			if r.opts.OllamaURL != "" {
				oc := NewOllamaClient(r.opts.OllamaURL, "", 0)
				if oc.IsRunning(ctx) {
					info.Configured = true
					if names, err := oc.ListModels(ctx); err == nil && len(names) > 0 {
						info.Models = names
					}
				}
			}
		}
		infos = append(infos, info)
	}
	return infos
}

const checkPrompt = "Say hello in one sentence."

// Check sends a short prompt to verify that the credentials for a provider
// work, returning the provider's reply.
// For Ollama the model must already be pulled on a running server.
func (r *Registry) Check(ctx context.Context, selector, model string) (string, error) {
	svc, model, err := r.selection(selector, model)
	if err != nil {
		return "", err
	}
	c, err := r.Resolve(string(svc), model)
	if err != nil {
		return "", err
	}
	if svc == Ollama {
		oc := NewOllamaClient(r.opts.OllamaURL, model, 0)
		if oc.IsRunning(ctx) && !oc.HasModel(ctx, model) {
			return "", fmt.Errorf("%w: %q is not pulled on %s (run `ollama pull %s`)", ErrModelUnavailable, model, r.opts.OllamaURL, model)
		}
	}
	out, err := c.Complete(ctx, checkPrompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

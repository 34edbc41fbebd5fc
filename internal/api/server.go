package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/kalambet/mentormirror/internal/llm"
	"github.com/kalambet/mentormirror/internal/mentor"
	"github.com/kalambet/mentormirror/internal/metrics"
	"github.com/kalambet/mentormirror/internal/pipeline"
	"github.com/kalambet/mentormirror/internal/scrape"
	"github.com/kalambet/mentormirror/internal/speech"
	"github.com/kalambet/mentormirror/internal/style"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Capabilities resolves language-model providers for a request.
type Capabilities interface {
	Resolve(selector, model string) (llm.Completer, error)
	Providers(ctx context.Context) []llm.ProviderInfo
}

// Analyzer runs an analysis and streams its events.
type Analyzer interface {
	Run(ctx context.Context, req pipeline.Request, emit pipeline.EmitFunc) (pipeline.Result, error)
}

// Deps holds everything the HTTP handlers need.
type Deps struct {
	Store         mentor.Store
	Analyzer      Analyzer
	LLM           Capabilities
	Speech        *speech.Renderer
	Metrics       *metrics.Metrics
	AllowedOrigin string
}

// NewHandler returns the HTTP API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	origin := deps.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)
	r.Handle("/metrics", deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", handleAnalyze(deps))
		r.Post("/rewrite", handleRewrite(deps))
		r.Get("/mentors", handleListMentors(deps))
		r.Post("/mentors", handleCreateMentor(deps))
		r.Get("/mentors/{id}", handleGetMentor(deps))
		r.Get("/mentors/{id}/prompts", handleMentorPrompts(deps))
		r.Post("/speech", handleSpeech(deps))
		r.Post("/mentorgram", handleMentorgram(deps))
		r.Post("/compose", handleCompose(deps))
		r.Get("/providers", handleProviders(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// decodeBody reads a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// errorStatus maps a domain error to an HTTP status and error type.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, scrape.ErrUnsupportedSource),
		errors.Is(err, pipeline.ErrMissingURL),
		errors.Is(err, llm.ErrUnknownService),
		errors.Is(err, style.ErrEmptyText),
		errors.Is(err, style.ErrEmptyTopic),
		errors.Is(err, speech.ErrEmptyText),
		errors.Is(err, mentor.ErrInvalidID):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, mentor.ErrNotFound):
		return http.StatusNotFound, "mentor_not_found"
	case errors.Is(err, speech.ErrVoiceUnavailable):
		return http.StatusNotFound, "voice_unavailable"
	case errors.Is(err, llm.ErrNotConfigured), errors.Is(err, speech.ErrNotConfigured):
		return http.StatusServiceUnavailable, "not_configured"
	case errors.Is(err, scrape.ErrFetchTimeout):
		return http.StatusGatewayTimeout, "fetch_timeout"
	case errors.Is(err, scrape.ErrScrapeFailed):
		return http.StatusBadGateway, "scrape_failed"
	case errors.Is(err, speech.ErrSpeechSynthesisFailed):
		return http.StatusBadGateway, "speech_synthesis_failed"
	case errors.Is(err, style.ErrStyleAnalysisFailed):
		return http.StatusInternalServerError, "style_analysis_failed"
	case errors.Is(err, style.ErrRewriteFailed):
		return http.StatusInternalServerError, "rewrite_failed"
	case errors.Is(err, style.ErrComposeFailed), errors.Is(err, style.ErrMentorgramFailed):
		return http.StatusInternalServerError, "generation_failed"
	}
	return http.StatusInternalServerError, "api_error"
}

func writeError(w http.ResponseWriter, err error) {
	code, errType := errorStatus(err)
	if code >= 500 {
		slog.Error("request failed", "status", code, "error", err)
	}
	httpError(w, code, errType, "%v", err)
}

// requireFields writes a 400 naming the first empty field and returns false.
func requireFields(w http.ResponseWriter, fields ...[2]string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s is required", f[0])
			return false
		}
	}
	return true
}

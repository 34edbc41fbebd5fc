// Package speech renders text as audio in a mentor's synthesized voice.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/mentormirror/internal/mentor"
	"github.com/kalambet/mentormirror/internal/metrics"
)

var (
	ErrVoiceUnavailable      = errors.New("no voice available for mentor")
	ErrNotConfigured         = errors.New("speech synthesis is not configured")
	ErrSpeechSynthesisFailed = errors.New("speech synthesis failed")
	ErrEmptyText             = errors.New("text is empty")
)

// SynthesisError is an upstream synthesis failure. It matches
// ErrSpeechSynthesisFailed with errors.Is.
type SynthesisError struct {
	Status  int
	Message string
}

func (e *SynthesisError) Error() string {
	if e.Status == 0 {
		return "speech synthesis failed: " + e.Message
	}
	return fmt.Sprintf("speech synthesis failed (status %d): %s", e.Status, e.Message)
}

func (e *SynthesisError) Is(target error) bool {
	return target == ErrSpeechSynthesisFailed
}

// Synthesizer turns text into audio bytes using a provider voice id.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

const defaultTimeout = 60 * time.Second

// Renderer resolves a mentor's voice and synthesizes text with it.
type Renderer struct {
	synth   Synthesizer
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRenderer returns a Renderer. A nil synth makes every render for a
// voiced mentor fail with ErrNotConfigured.
func NewRenderer(synth Synthesizer, m *metrics.Metrics, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{synth: synth, timeout: defaultTimeout, metrics: m, logger: logger}
}

// Configured reports whether a synthesizer is available.
func (r *Renderer) Configured() bool {
	return r.synth != nil
}

// Render returns MPEG audio of text spoken in mentorID's voice.
func (r *Renderer) Render(ctx context.Context, text, mentorID string) ([]byte, error) {
	audio, err := r.render(ctx, text, mentorID)
	r.metrics.ObserveSpeech(err)
	return audio, err
}

func (r *Renderer) render(ctx context.Context, text, mentorID string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	voiceID, ok := mentor.VoiceID(mentorID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVoiceUnavailable, mentorID)
	}
	if r.synth == nil {
		return nil, ErrNotConfigured
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	audio, err := r.synth.Synthesize(ctx, voiceID, text)
	if err != nil {
		r.logger.Warn("speech synthesis failed", "mentor", mentorID, "error", err)
		if errors.Is(err, ErrSpeechSynthesisFailed) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &SynthesisError{Message: err.Error()}
	}
	r.logger.Debug("speech rendered", "mentor", mentorID, "bytes", len(audio), "duration", time.Since(start))
	return audio, nil
}

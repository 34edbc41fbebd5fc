// Package pipeline runs an analysis: it extracts a document, infers its
// author, profiles the author's style and saves the result as a mentor,
// reporting progress as an ordered stream of events.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/mentormirror/internal/events"
	"github.com/kalambet/mentormirror/internal/llm"
	"github.com/kalambet/mentormirror/internal/mentor"
	"github.com/kalambet/mentormirror/internal/metrics"
	"github.com/kalambet/mentormirror/internal/style"
)

// Step names, in the order they run.
const (
	StepScrape       = "scrape"
	StepInferAuthor  = "infer_author"
	StepAnalyzeStyle = "analyze_style"
	StepSaveMentor   = "save_mentor"
)

// ErrMissingURL is returned when a request carries no URL.
var ErrMissingURL = errors.New("url is required")

// Request describes one analysis.
type Request struct {
	URL             string `json:"url"`
	ServiceSelector string `json:"serviceSelector"`
	ModelID         string `json:"modelId"`
}

// Result is the payload of the terminal success event.
type Result struct {
	AuthorName   string             `json:"authorName"`
	StyleProfile style.StyleProfile `json:"styleProfile"`
	MentorID     string             `json:"mentorId"`
}

// Event is one element of the progress stream. Exactly one of the three
// shapes is populated: a stage progress event (Step, Completed, Message), a
// terminal failure (Error) or a terminal success (Complete, Message, Data).
type Event struct {
	Step      string  `json:"step,omitempty"`
	Completed bool    `json:"completed,omitempty"`
	Error     string  `json:"error,omitempty"`
	Complete  bool    `json:"complete,omitempty"`
	Message   string  `json:"message,omitempty"`
	Data      *Result `json:"data,omitempty"`
}

// IsTerminal reports whether e ends the stream.
func (e Event) IsTerminal() bool {
	return e.Complete || e.Error != ""
}

// EmitFunc receives events in order. A non-nil error stops the run; no
// further events are emitted after it.
type EmitFunc func(Event) error

// Extractor turns a URL into plain text.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (string, error)
}

// Resolver builds a Completer for a service selector and model id.
type Resolver interface {
	Resolve(selector, model string) (llm.Completer, error)
}

// Analyzer wires the analysis stages together.
type Analyzer struct {
	extractor Extractor
	resolver  Resolver
	store     mentor.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAnalyzer returns an Analyzer. publisher and m may be nil.
func NewAnalyzer(extractor Extractor, resolver Resolver, store mentor.Store, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Analyzer {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		extractor: extractor,
		resolver:  resolver,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// stageError records which step a failure came from.
type stageError struct {
	step string
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// emitError is returned when the consumer refused an event.
type emitError struct{ err error }

func (e *emitError) Error() string { return "emit event: " + e.err.Error() }
func (e *emitError) Unwrap() error { return e.err }

// Run executes the stages strictly in sequence and emits one progress event
// per stage followed by exactly one terminal event. The returned error is
// the failure reported in the terminal error event, if any.
func (a *Analyzer) Run(ctx context.Context, req Request, emit EmitFunc) (Result, error) {
	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID, "url", req.URL)
	logger.Info("analysis started", "service", req.ServiceSelector, "model", req.ModelID)

	res, err := a.run(ctx, runID, req, emit)
	a.metrics.ObserveAnalysis(err)

	var ee *emitError
	if errors.As(err, &ee) {
		logger.Warn("analysis abandoned by consumer", "error", ee.err)
		return Result{}, err
	}

	if err != nil {
		step := ""
		var se *stageError
		if errors.As(err, &se) {
			step = se.step
		}
		logger.Error("analysis failed", "step", step, "error", err)
		a.publish(ctx, logger, events.SubjectAnalysisFailed, events.AnalysisFailed{
			RunID:     runID,
			SourceURL: req.URL,
			Step:      step,
			Error:     err.Error(),
			FailedAt:  time.Now().UTC(),
		})
		if emitErr := emit(Event{Error: err.Error()}); emitErr != nil {
			logger.Warn("could not deliver error event", "error", emitErr)
		}
		return Result{}, err
	}

	if err := emit(Event{
		Complete: true,
		Message:  fmt.Sprintf("Analysis complete: %s is ready as a mentor", res.AuthorName),
		Data:     &res,
	}); err != nil {
		logger.Warn("could not deliver completion event", "error", err)
	}
	logger.Info("analysis complete", "mentor", res.MentorID)
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, runID string, req Request, emit EmitFunc) (Result, error) {
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		return Result{}, ErrMissingURL
	}
	completer, err := a.resolver.Resolve(req.ServiceSelector, req.ModelID)
	if err != nil {
		return Result{}, err
	}

	progress := func(step, message string) error {
		if err := emit(Event{Step: step, Completed: true, Message: message}); err != nil {
			return &emitError{err: err}
		}
		return nil
	}

	var text string
	err = a.stage(ctx, StepScrape, func(ctx context.Context) error {
		var err error
		text, err = a.extractor.Extract(ctx, rawURL)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if err := progress(StepScrape, fmt.Sprintf("Extracted %d characters of content", len([]rune(text)))); err != nil {
		return Result{}, err
	}

	var author string
	err = a.stage(ctx, StepInferAuthor, func(ctx context.Context) error {
		author = style.InferAuthor(ctx, completer, text)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if err := progress(StepInferAuthor, "Identified author: "+author); err != nil {
		return Result{}, err
	}

	var profile style.StyleProfile
	err = a.stage(ctx, StepAnalyzeStyle, func(ctx context.Context) error {
		var err error
		profile, err = style.Profile(ctx, completer, text, author)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if err := progress(StepAnalyzeStyle, "Analyzed writing style of "+author); err != nil {
		return Result{}, err
	}

	var saved mentor.Mentor
	err = a.stage(ctx, StepSaveMentor, func(ctx context.Context) error {
		var err error
		saved, err = a.store.Upsert(ctx, mentor.Mentor{
			DisplayName:  author,
			StyleProfile: profile,
			SourceURL:    rawURL,
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if err := progress(StepSaveMentor, "Saved mentor "+saved.ID); err != nil {
		return Result{}, err
	}

	service := req.ServiceSelector
	if service == "" {
		service = "default"
	}
	a.publish(ctx, a.logger.With("run_id", runID), events.SubjectMentorCreated, events.MentorCreated{
		RunID:       runID,
		MentorID:    saved.ID,
		DisplayName: saved.DisplayName,
		SourceURL:   rawURL,
		Service:     service,
		Model:       req.ModelID,
		CreatedAt:   saved.UpdatedAt,
	})

	return Result{AuthorName: author, StyleProfile: profile, MentorID: saved.ID}, nil
}

// stage runs fn, records its latency and tags any error with step.
func (a *Analyzer) stage(ctx context.Context, step string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &stageError{step: step, err: err}
	}
	start := time.Now()
	err := fn(ctx)
	a.metrics.ObserveStage(step, time.Since(start))
	if err != nil {
		return &stageError{step: step, err: err}
	}
	return nil
}

func (a *Analyzer) publish(ctx context.Context, logger *slog.Logger, subject string, event any) {
	if err := a.publisher.Publish(ctx, subject, event); err != nil {
		logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}

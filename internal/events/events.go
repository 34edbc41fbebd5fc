// Package events publishes domain events about mentors and analyses to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectMentorCreated carries a MentorCreated after a mentor is saved.
	SubjectMentorCreated = "mentormirror.mentor.created"
	// SubjectAnalysisFailed carries an AnalysisFailed when a run aborts.
	SubjectAnalysisFailed = "mentormirror.analysis.failed"
)

// MentorCreated is emitted when an analysis stores a mentor.
type MentorCreated struct {
	RunID       string    `json:"run_id"`
	MentorID    string    `json:"mentor_id"`
	DisplayName string    `json:"display_name"`
	SourceURL   string    `json:"source_url"`
	Service     string    `json:"service"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnalysisFailed is emitted when an analysis stops with an error.
type AnalysisFailed struct {
	RunID     string    `json:"run_id"`
	SourceURL string    `json:"source_url"`
	Step      string    `json:"step"`
	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failed_at"`
}

// Publisher sends events. Publishing is best effort: callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close()
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close()                                      {}

// NATSPublisher publishes JSON-encoded events to a NATS server.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to url. The connection retries in the
// background, so a server that is down at startup does not fail the call.
func NewNATSPublisher(url, token string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name("mentormirror"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: nc, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes buffered messages and closes the connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}

// Recorder keeps published events in memory. Tests use it to assert on what
// a component emitted.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
}

// Recorded is one event captured by a Recorder.
type Recorded struct {
	Subject string
	Event   any
}

func (r *Recorder) Publish(_ context.Context, subject string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{Subject: subject, Event: event})
	return nil
}

func (r *Recorder) Close() {}

// Subjects returns the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Subject
	}
	return out
}

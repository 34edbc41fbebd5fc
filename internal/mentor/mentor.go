// Package mentor defines mentors, the store that owns them and the voice
// table used for speech.
package mentor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kalambet/mentormirror/internal/style"
)

// ErrNotFound is returned when no mentor has the requested id.
var ErrNotFound = errors.New("mentor not found")

// ErrInvalidID is returned when a name normalizes to an empty id.
var ErrInvalidID = errors.New("mentor id is empty")

// Mentor is a named author identity with its style profile.
type Mentor struct {
	ID           string             `json:"id"`
	DisplayName  string             `json:"displayName"`
	StyleProfile style.StyleProfile `json:"styleProfile"`
	SourceURL    string             `json:"sourceUrl,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// HasVoice reports whether a synthesized voice exists for the mentor. It is
// computed on every call and never stored.
func (m Mentor) HasVoice() bool {
	return HasVoice(m.ID)
}

// NormalizeID derives a mentor id from a display name: lower-cased, with
// each run of whitespace replaced by a single underscore.
func NormalizeID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// Store holds mentors keyed by id. Upsert overwrites any existing entry with
// the same id; there is no merge and no delete.
type Store interface {
	Get(ctx context.Context, id string) (Mentor, error)
	List(ctx context.Context) ([]Mentor, error)
	Upsert(ctx context.Context, m Mentor) (Mentor, error)
}

// Prepare validates m and fills derived fields before it is written: the id
// is normalized (from DisplayName when empty), the display name defaults to
// the id, and UpdatedAt is set to now. CreatedAt is set to now when zero.
func Prepare(m Mentor, now time.Time) (Mentor, error) {
	if m.ID == "" {
		m.ID = NormalizeID(m.DisplayName)
	} else {
		m.ID = NormalizeID(m.ID)
	}
	if m.ID == "" {
		return Mentor{}, ErrInvalidID
	}
	if strings.TrimSpace(m.DisplayName) == "" {
		m.DisplayName = m.ID
	}
	now = now.UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return m, nil
}

package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kalambet/mentormirror/internal/mentor"
)

// Backend is a mentor.Store that owns resources and must be closed.
type Backend interface {
	mentor.Store
	io.Closer
}

// Open returns the backend selected by driver: "memory", "sqlite" (in
// dataDir) or "postgres" (at databaseURL).
func Open(ctx context.Context, driver, dataDir, databaseURL string) (Backend, error) {
	switch driver {
	case "memory":
		return memoryBackend{mentor.NewMemoryStore()}, nil
	case "sqlite", "":
		return OpenSQLite(dataDir)
	case "postgres":
		return OpenPostgres(ctx, databaseURL)
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}

type memoryBackend struct {
	*mentor.MemoryStore
}

func (memoryBackend) Close() error { return nil }

// mentorColumns is the column list shared by every SELECT and INSERT.
const mentorColumns = `id, display_name, source_url,
	tone_voice, sentence_structure, vocabulary_diction, rhetorical_patterns,
	unique_elements, content_themes, audience_engagement,
	created_at, updated_at`

// scanner is satisfied by *sql.Row, *sql.Rows and pgx.Row.
type scanner interface {
	Scan(dest ...any) error
}

// mentorArgs returns m's values in mentorColumns order, minus the timestamps.
func mentorArgs(m mentor.Mentor) []any {
	p := m.StyleProfile
	return []any{
		m.ID, m.DisplayName, m.SourceURL,
		p.ToneVoice, p.SentenceStructure, p.VocabularyDiction, p.RhetoricalPatterns,
		p.UniqueElements, p.ContentThemes, p.AudienceEngagement,
	}
}

// profileDest returns scan destinations for m in mentorColumns order, minus
// the timestamps.
func profileDest(m *mentor.Mentor) []any {
	p := &m.StyleProfile
	return []any{
		&m.ID, &m.DisplayName, &m.SourceURL,
		&p.ToneVoice, &p.SentenceStructure, &p.VocabularyDiction, &p.RhetoricalPatterns,
		&p.UniqueElements, &p.ContentThemes, &p.AudienceEngagement,
	}
}

// timeNow is the clock used by backends without an injectable one.
var timeNow = time.Now

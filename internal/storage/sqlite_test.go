package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kalambet/mentormirror/internal/mentor"
	"github.com/kalambet/mentormirror/internal/style"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleProfile(tone string) style.StyleProfile {
	return style.StyleProfile{
		ToneVoice:          tone,
		SentenceStructure:  "short declaratives",
		VocabularyDiction:  "plain",
		RhetoricalPatterns: "analogy",
		UniqueElements:     "footnotes",
		ContentThemes:      "startups",
		AudienceEngagement: "direct address",
	}
}

// TestMigrationsIdempotent runs OpenSQLite twice on the same directory and
// verifies the migration is not re-applied.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("first OpenSQLite failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("second OpenSQLite failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestParseMigrationVersion(t *testing.T) {
	v, err := parseMigrationVersion("007_add_things.sql")
	if err != nil || v != 7 {
		t.Errorf("parseMigrationVersion = %d, %v; want 7, nil", v, err)
	}
	if _, err := parseMigrationVersion("nope.sql"); err == nil {
		t.Error("expected error for unnumbered migration")
	}
}

func TestSQLiteGetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "nobody")
	if !errors.Is(err, mentor.ErrNotFound) {
		t.Errorf("Get(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteUpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved, err := s.Upsert(ctx, mentor.Mentor{
		DisplayName:  "Paul Graham",
		StyleProfile: sampleProfile("conversational"),
		SourceURL:    "https://paulgraham.com/greatwork.html",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved.ID != "paul_graham" {
		t.Errorf("ID = %q, want %q", saved.ID, "paul_graham")
	}

	got, err := s.Get(ctx, "Paul Graham")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.DisplayName != "Paul Graham" {
		t.Errorf("DisplayName = %q", got.DisplayName)
	}
	if got.StyleProfile != sampleProfile("conversational") {
		t.Errorf("StyleProfile = %+v", got.StyleProfile)
	}
	if got.SourceURL != "https://paulgraham.com/greatwork.html" {
		t.Errorf("SourceURL = %q", got.SourceURL)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Errorf("timestamps not set: %+v", got)
	}
}

func TestSQLiteUpsertOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	s.now = func() time.Time { return first }
	if _, err := s.Upsert(ctx, mentor.Mentor{ID: "steve_jobs", DisplayName: "Steve Jobs", StyleProfile: sampleProfile("A")}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	s.now = func() time.Time { return second }
	got, err := s.Upsert(ctx, mentor.Mentor{ID: "steve_jobs", DisplayName: "Steve Jobs", StyleProfile: sampleProfile("B")})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if got.StyleProfile.ToneVoice != "B" {
		t.Errorf("ToneVoice = %q, want B", got.StyleProfile.ToneVoice)
	}
	if !got.UpdatedAt.Equal(second) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, second)
	}
	if !got.CreatedAt.Equal(first) {
		t.Errorf("CreatedAt = %v, want %v (preserved)", got.CreatedAt, first)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List returned %d mentors, want 1", len(all))
	}
}

func TestSQLiteUpsertRejectsEmptyID(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Upsert(context.Background(), mentor.Mentor{DisplayName: "   "})
	if !errors.Is(err, mentor.ErrInvalidID) {
		t.Errorf("Upsert error = %v, want ErrInvalidID", err)
	}
}

func TestSQLiteListOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Steve Jobs", "Eminem", "Marcus Aurelius"} {
		if _, err := s.Upsert(ctx, mentor.Mentor{DisplayName: name}); err != nil {
			t.Fatalf("Upsert(%s): %v", name, err)
		}
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"eminem", "marcus_aurelius", "steve_jobs"}
	if len(all) != len(want) {
		t.Fatalf("List returned %d mentors, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("List[%d].ID = %q, want %q", i, all[i].ID, id)
		}
	}
}

func TestOpenByDriver(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, "memory", "", "")
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	defer b.Close()
	if _, err := b.Upsert(ctx, mentor.Mentor{DisplayName: "Eminem"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	sq, err := Open(ctx, "sqlite", t.TempDir(), "")
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	sq.Close()

	if _, err := Open(ctx, "redis", "", ""); err == nil {
		t.Error("expected error for unknown driver")
	}
}

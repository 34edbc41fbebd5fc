package mentor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/mentormirror/internal/style"
)

func TestNormalizeID(t *testing.T) {
	tests := map[string]string{
		"Paul Graham":        "paul_graham",
		"  Marcus   Aurelius ": "marcus_aurelius",
		"Eminem":             "eminem",
		"sam_altman":         "sam_altman",
		"Ada\tLovelace":      "ada_lovelace",
		"   ":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeID(in), "NormalizeID(%q)", in)
	}
}

func TestHasVoice(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"eminem", true},
		{"Eminem", true},
		{"marcus_aurelius", true},
		{"Marcus Aurelius", true},
		{"marcus aurelius", true},
		{"SAM_ALTMAN", true},
		{"paul_graham", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasVoice(tt.id), "HasVoice(%q)", tt.id)
	}

	m := Mentor{ID: "paul_graham"}
	assert.False(t, m.HasVoice())
}

func TestPrepare(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	m, err := Prepare(Mentor{DisplayName: "Paul Graham"}, now)
	require.NoError(t, err)
	assert.Equal(t, "paul_graham", m.ID)
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, now, m.UpdatedAt)

	m, err = Prepare(Mentor{ID: "Sam Altman"}, now)
	require.NoError(t, err)
	assert.Equal(t, "sam_altman", m.ID)
	assert.Equal(t, "sam_altman", m.DisplayName)

	_, err = Prepare(Mentor{DisplayName: "  "}, now)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestMemoryStoreUpsertGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := style.StyleProfile{ToneVoice: "first"}
	_, err := s.Upsert(ctx, Mentor{ID: "paul_graham", DisplayName: "Paul Graham", StyleProfile: first})
	require.NoError(t, err)

	got, err := s.Get(ctx, "paul_graham")
	require.NoError(t, err)
	assert.Equal(t, first, got.StyleProfile)
	assert.Equal(t, "Paul Graham", got.DisplayName)

	second := style.StyleProfile{SentenceStructure: "second"}
	_, err = s.Upsert(ctx, Mentor{ID: "paul_graham", DisplayName: "PG", StyleProfile: second})
	require.NoError(t, err)

	got, err = s.Get(ctx, "paul_graham")
	require.NoError(t, err)
	assert.Equal(t, second, got.StyleProfile, "second upsert must overwrite, not merge")
	assert.Empty(t, got.StyleProfile.ToneVoice)
	assert.Equal(t, "PG", got.DisplayName)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Upsert(ctx, Mentor{ID: fmt.Sprintf("mentor_%d", i%5)})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.List(ctx)
		}()
	}
	wg.Wait()

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

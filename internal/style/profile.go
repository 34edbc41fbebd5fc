// Package style turns sample text into a seven-field style profile and uses
// such profiles to rewrite, restyle and generate text.
package style

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kalambet/mentormirror/internal/llm"
)

var (
	ErrStyleAnalysisFailed = errors.New("style analysis failed")
	ErrRewriteFailed       = errors.New("rewrite failed")
	ErrEmptyText           = errors.New("text is empty")
)

// StyleProfile describes a writing style. Every field is always serialized,
// empty when unknown.
type StyleProfile struct {
	ToneVoice          string `json:"toneVoice"`
	SentenceStructure  string `json:"sentenceStructure"`
	VocabularyDiction  string `json:"vocabularyDiction"`
	RhetoricalPatterns string `json:"rhetoricalPatterns"`
	UniqueElements     string `json:"uniqueElements"`
	ContentThemes      string `json:"contentThemes"`
	AudienceEngagement string `json:"audienceEngagement"`
}

// field pairs a display label with a pointer into a profile.
type field struct {
	label string
	ptr   *string
}

func (p *StyleProfile) fields() []field {
	return []field{
		{"Tone & Voice", &p.ToneVoice},
		{"Sentence Structure", &p.SentenceStructure},
		{"Vocabulary & Diction", &p.VocabularyDiction},
		{"Rhetorical Patterns", &p.RhetoricalPatterns},
		{"Unique Stylistic Elements", &p.UniqueElements},
		{"Content Themes", &p.ContentThemes},
		{"Audience Engagement", &p.AudienceEngagement},
	}
}

// IsEmpty reports whether every field is blank.
func (p StyleProfile) IsEmpty() bool {
	for _, f := range p.fields() {
		if strings.TrimSpace(*f.ptr) != "" {
			return false
		}
	}
	return true
}

// Describe renders the non-empty fields as labelled lines for use in prompts.
func (p StyleProfile) Describe() string {
	var sb strings.Builder
	for _, f := range p.fields() {
		v := strings.TrimSpace(*f.ptr)
		if v == "" {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", f.label, v)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// keyAliases maps normalized JSON keys to profile fields. Models tend to echo
// either the camelCase names or the category headings.
var keyAliases = map[string]string{
	"tonevoice":               "ToneVoice",
	"tone":                    "ToneVoice",
	"toneandvoice":            "ToneVoice",
	"sentencestructure":       "SentenceStructure",
	"vocabularydiction":       "VocabularyDiction",
	"vocabularyanddiction":    "VocabularyDiction",
	"vocabulary":              "VocabularyDiction",
	"rhetoricalpatterns":      "RhetoricalPatterns",
	"uniqueelements":          "UniqueElements",
	"uniquestylisticelements": "UniqueElements",
	"contentthemes":           "ContentThemes",
	"themes":                  "ContentThemes",
	"audienceengagement":      "AudienceEngagement",
}

func normalizeKey(k string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(k) {
		if r >= 'a' && r <= 'z' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (p *StyleProfile) set(name, value string) {
	switch name {
	case "ToneVoice":
		p.ToneVoice = value
	case "SentenceStructure":
		p.SentenceStructure = value
	case "VocabularyDiction":
		p.VocabularyDiction = value
	case "RhetoricalPatterns":
		p.RhetoricalPatterns = value
	case "UniqueElements":
		p.UniqueElements = value
	case "ContentThemes":
		p.ContentThemes = value
	case "AudienceEngagement":
		p.AudienceEngagement = value
	}
}

// Profile asks c to characterize the writing style of text by author.
// Malformed model output never fails the call: the raw response is kept in
// AudienceEngagement and the other fields are left empty.
func Profile(ctx context.Context, c llm.Completer, text, author string) (StyleProfile, error) {
	if strings.TrimSpace(author) == "" {
		author = UnknownAuthor
	}
	raw, err := c.Complete(ctx, profilePrompt(text, author))
	if err != nil {
		return StyleProfile{}, fmt.Errorf("%w: %w", ErrStyleAnalysisFailed, err)
	}

	p, err := ParseProfile(raw)
	if err != nil {
		slog.Warn("style profile response was not valid JSON, keeping raw output", "author", author, "error", err)
		return StyleProfile{AudienceEngagement: raw}, nil
	}
	return p, nil
}

// ParseProfile extracts a StyleProfile from a model response that should
// contain a JSON object, possibly wrapped in a markdown code fence.
func ParseProfile(raw string) (StyleProfile, error) {
	obj := FirstJSONObject(StripCodeFence(raw))
	if obj == "" {
		return StyleProfile{}, errors.New("no JSON object found")
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return StyleProfile{}, fmt.Errorf("decoding profile: %w", err)
	}

	var p StyleProfile
	matched := 0
	for k, v := range m {
		name, ok := keyAliases[normalizeKey(k)]
		if !ok {
			continue
		}
		p.set(name, flatten(v))
		matched++
	}
	if matched == 0 {
		return StyleProfile{}, errors.New("JSON object has none of the profile fields")
	}
	return p, nil
}

// flatten renders any JSON value as a single descriptive string.
func flatten(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(v, &arr); err == nil {
		parts := make([]string, 0, len(arr))
		for _, item := range arr {
			if f := flatten(item); f != "" {
				parts = append(parts, f)
			}
		}
		return strings.Join(parts, "; ")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if f := flatten(obj[k]); f != "" {
				parts = append(parts, k+": "+f)
			}
		}
		return strings.Join(parts, "; ")
	}

	if string(v) == "null" {
		return ""
	}
	return strings.TrimSpace(string(v))
}

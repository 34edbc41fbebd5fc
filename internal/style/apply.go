package style

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/mentormirror/internal/llm"
)

// RewriteFallback is returned when the model produces no text.
const RewriteFallback = "Failed to rewrite text"

// Apply rewrites text in the style of profile. With preserveTone the user's
// wording is kept and only narrated in the profiled voice; otherwise the text
// is rewritten to adopt the style while keeping its meaning.
func Apply(ctx context.Context, c llm.Completer, profile StyleProfile, text string, preserveTone bool) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	prompt := rewritePrompt(profile, text)
	if preserveTone {
		prompt = narratePrompt(profile, text)
	}

	out, err := c.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRewriteFailed, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return RewriteFallback, nil
	}
	return out, nil
}

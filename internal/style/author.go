package style

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kalambet/mentormirror/internal/llm"
)

// UnknownAuthor is returned whenever the author cannot be determined.
const UnknownAuthor = "Unknown Author"

// InferAuthor asks c who wrote text, looking only at its first 2,000
// characters. It never fails: errors and implausible answers yield
// UnknownAuthor.
func InferAuthor(ctx context.Context, c llm.Completer, text string) string {
	resp, err := c.Complete(ctx, authorPrompt(truncateRunes(text, authorSampleLength)))
	if err != nil {
		slog.Warn("author inference failed", "error", err)
		return UnknownAuthor
	}
	return cleanAuthor(resp)
}

// cleanAuthor trims quotes and whitespace and rejects answers longer than a
// name would be.
func cleanAuthor(resp string) string {
	name := strings.TrimSpace(resp)
	name = strings.Trim(name, `"'`+"`")
	name = strings.TrimSpace(name)

	if name == "" || len([]rune(name)) > maxAuthorLength {
		return UnknownAuthor
	}
	if strings.EqualFold(name, UnknownAuthor) {
		return UnknownAuthor
	}
	return name
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

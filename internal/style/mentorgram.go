package style

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/mentormirror/internal/llm"
)

var ErrMentorgramFailed = errors.New("mentor-gram generation failed")

// MentorgramTopics are used when the caller does not pick a topic.
var MentorgramTopics = []string{
	"building good habits",
	"making hard decisions",
	"personal growth",
	"overcoming challenges",
	"finding clarity",
}

// Mentorgram is a short daily message in a mentor's voice.
type Mentorgram struct {
	Date       string `json:"date"`
	Mentor     string `json:"mentor"`
	Topic      string `json:"topic"`
	Quote      string `json:"quote"`
	Action     string `json:"action"`
	Reflection string `json:"reflection"`
}

// GenerateMentorgram produces a quote, an action and a reflection question on
// topic in the voice of mentor. The three parts are requested concurrently;
// if any fails the whole mentor-gram fails.
func GenerateMentorgram(ctx context.Context, c llm.Completer, mentor string, profile StyleProfile, topic string) (Mentorgram, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = MentorgramTopics[rand.IntN(len(MentorgramTopics))]
	}

	m := Mentorgram{
		Date:   time.Now().Format("2006-01-02"),
		Mentor: mentor,
		Topic:  topic,
	}

	g, gctx := errgroup.WithContext(ctx)
	parts := []struct {
		prompt string
		dst    *string
	}{
		{quotePrompt(mentor, topic, profile), &m.Quote},
		{actionPrompt(mentor, topic, profile), &m.Action},
		{reflectionPrompt(mentor, topic, profile), &m.Reflection},
	}
	for _, p := range parts {
		g.Go(func() error {
			out, err := c.Complete(gctx, p.prompt)
			if err != nil {
				return err
			}
			*p.dst = strings.Trim(strings.TrimSpace(out), `"`)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Mentorgram{}, fmt.Errorf("%w: %w", ErrMentorgramFailed, err)
	}
	return m, nil
}

package style

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/mentormirror/internal/llm"
)

var (
	ErrComposeFailed = errors.New("compose failed")
	ErrEmptyTopic    = errors.New("topic is empty")
)

// Compose writes two or three new paragraphs about topic in the style of
// profile.
func Compose(ctx context.Context, c llm.Completer, profile StyleProfile, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	out, err := c.Complete(ctx, composePrompt(profile, topic))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrComposeFailed, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: %w", ErrComposeFailed, llm.ErrEmptyResponse)
	}
	return out, nil
}

// PromptKit names the reusable mentor prompts.
const (
	PromptDailyReflection   = "daily_reflection"
	PromptDecisionFramework = "decision_framework"
	PromptHabitFormation    = "habit_formation"
	PromptProblemSolving    = "problem_solving"
)

// PromptKit returns ready-to-use prompts that ask a model to coach in the
// voice described by profile. The result is deterministic.
func PromptKit(profile StyleProfile) map[string]string {
	style := describeOrPlaceholder(profile)
	return map[string]string{
		PromptDailyReflection: fmt.Sprintf(`Based on this writing style analysis:
%s

Generate a daily reflection prompt that sounds like this author would write it. Include:
1. A thought-provoking question in their voice
2. A brief context or example in their style
3. An actionable step for self-improvement`, style),

		PromptDecisionFramework: fmt.Sprintf(`Using this writing style:
%s

Create a decision-making framework that sounds like this author. Include:
1. Key principles they would emphasize
2. Questions they would ask when making decisions
3. Their approach to weighing tradeoffs`, style),

		PromptHabitFormation: fmt.Sprintf(`In the style of this analysis:
%s

Generate advice for building good habits that matches their tone and approach:
1. Their perspective on habit formation
2. Practical steps in their voice
3. How they would motivate someone to stay consistent`, style),

		PromptProblemSolving: fmt.Sprintf(`Using this writing style:
%s

Create a problem-solving methodology in their voice:
1. How they would approach breaking down complex problems
2. Their method for generating solutions
3. Their approach to implementation and iteration`, style),
	}
}

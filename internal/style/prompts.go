package style

import (
	"fmt"
	"strings"
)

const (
	authorSampleLength = 2000
	maxAuthorLength    = 50
)

func authorPrompt(sample string) string {
	return fmt.Sprintf(`Analyze the following text and try to determine who the author is based on:
- Any self-references or mentions of their own name
- Writing style and topics that might indicate a specific well-known author
- Any biographical details or personal anecdotes mentioned
- The overall voice and perspective

Text to analyze:
"""
%s
"""

Return ONLY the author's name (first and last name if available). If you cannot determine the author with reasonable confidence, return "%s".`, sample, UnknownAuthor)
}

func profilePrompt(text, author string) string {
	return fmt.Sprintf(`You are a literary style analyst. Analyze the following text by %s.

Return ONLY a JSON object, with no commentary, containing exactly these seven string fields:
{
  "toneVoice": "overall tone (formal/casual, optimistic/pessimistic, etc.)",
  "sentenceStructure": "sentence length, complexity, use of lists or bullets",
  "vocabularyDiction": "level of technical language, common word choices, jargon",
  "rhetoricalPatterns": "how arguments are presented, use of examples, storytelling style",
  "uniqueElements": "signature phrases, punctuation habits, paragraph structure",
  "contentThemes": "topics and concepts frequently discussed",
  "audienceEngagement": "how the author connects with readers (direct address, questions, etc.)"
}

Text to analyze:
"""
%s
"""`, author, text)
}

func rewritePrompt(profile StyleProfile, text string) string {
	return fmt.Sprintf(`You are an expert writing style editor. Rewrite the USER TEXT below so that it matches the style defined in the STYLE ANALYSIS.

Key instructions:
- Preserve the core message: the original meaning and key information MUST be maintained. Do not add new ideas or remove essential points.
- Adopt the style: use the tone, voice, sentence structure, vocabulary and rhetorical patterns from the style analysis.
- Be subtle: the result should read naturally, not as a caricature.

Return only the rewritten text.

STYLE ANALYSIS:
---
%s
---

USER TEXT:
---
%s
---`, describeOrPlaceholder(profile), text)
}

func narratePrompt(profile StyleProfile, text string) string {
	return fmt.Sprintf(`You are a narrator voicing the person described in the STYLE ANALYSIS.

Restate the USER TEXT exactly as that person would say it aloud. Keep the user's wording: do not paraphrase, reword, summarize or add content. You may only adjust punctuation, emphasis and pacing so that it sounds spoken in their voice.

Return only the narrated text.

STYLE ANALYSIS:
---
%s
---

USER TEXT:
---
%s
---`, describeOrPlaceholder(profile), text)
}

func composePrompt(profile StyleProfile, topic string) string {
	return fmt.Sprintf(`You are a writing style emulator. Based on the following style analysis, write content about "%s" that matches this exact writing style.

STYLE ANALYSIS:
%s

INSTRUCTIONS:
- Match the tone, sentence structure, and vocabulary patterns exactly
- Use the same rhetorical approaches and stylistic elements
- Maintain the same level of technical language and audience engagement
- Include similar content themes where relevant
- Keep the same paragraph structure and flow

Generate 2-3 paragraphs in this style.`, topic, describeOrPlaceholder(profile))
}

func quotePrompt(mentor, topic string, profile StyleProfile) string {
	return fmt.Sprintf(`Generate an inspirational quote that %s would say about "%s".
Use their exact writing style and voice. Make it personal and actionable.
Return only the quote.

Style notes:
%s`, mentor, topic, describeOrPlaceholder(profile))
}

func actionPrompt(mentor, topic string, profile StyleProfile) string {
	return fmt.Sprintf(`Based on %s's style and thinking, suggest one concrete action someone could take today related to "%s". Write it in their voice.
Return only the action.

Style notes:
%s`, mentor, topic, describeOrPlaceholder(profile))
}

func reflectionPrompt(mentor, topic string, profile StyleProfile) string {
	return fmt.Sprintf(`Create a self-reflection question that %s would ask about "%s".
Use their style of inquiry and make it thought-provoking.
Return only the question.

Style notes:
%s`, mentor, topic, describeOrPlaceholder(profile))
}

func describeOrPlaceholder(p StyleProfile) string {
	if d := p.Describe(); strings.TrimSpace(d) != "" {
		return d
	}
	return "(no style details available)"
}

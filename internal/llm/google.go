package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleClient completes prompts with a Gemini model.
type GoogleClient struct {
	apiKey      string
	model       string
	temperature float32
}

// NewGoogleClient creates a client for the given Gemini model.
func NewGoogleClient(apiKey, model string, temperature float64) *GoogleClient {
	return &GoogleClient{apiKey: apiKey, model: model, temperature: float32(temperature)}
}

// Complete opens a client for the call and closes it afterwards; clients are
// tied to the connection they were created with.
func (c *GoogleClient) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("google: creating client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("google: generating content: %w", err)
	}
	return candidateText(resp)
}

// candidateText joins the text parts of the first candidate. Only a missing
// candidate is an error; a candidate without text yields "".
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

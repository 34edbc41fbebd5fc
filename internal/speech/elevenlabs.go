package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultElevenLabsURL   = "https://api.elevenlabs.io/v1"
	DefaultModel           = "eleven_monolingual_v1"
	defaultStability       = 0.5
	defaultSimilarityBoost = 0.75
	maxAudioBytes          = 50 << 20
)

// ElevenLabsClient calls the ElevenLabs text-to-speech API.
type ElevenLabsClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsClient returns a client for the given model. An empty model
// selects DefaultModel.
func NewElevenLabsClient(apiKey, model string) *ElevenLabsClient {
	if model == "" {
		model = DefaultModel
	}
	return &ElevenLabsClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultElevenLabsURL,
		httpClient: &http.Client{},
	}
}

// WithBaseURL points the client at another endpoint (for testing).
func (c *ElevenLabsClient) WithBaseURL(baseURL string) *ElevenLabsClient {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type ttsErrorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

func (c *ElevenLabsClient) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: c.model,
		VoiceSettings: voiceSettings{
			Stability:       defaultStability,
			SimilarityBoost: defaultSimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SynthesisError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var e ttsErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Detail.Message != "" {
			msg = e.Detail.Message
		}
		return nil, &SynthesisError{Status: resp.StatusCode, Message: msg}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, &SynthesisError{Status: resp.StatusCode, Message: "reading audio: " + err.Error()}
	}
	return audio, nil
}

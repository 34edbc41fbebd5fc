package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	voiceID string
	text    string
	audio   []byte
	err     error
}

func (f *fakeSynth) Synthesize(_ context.Context, voiceID, text string) ([]byte, error) {
	f.voiceID, f.text = voiceID, text
	return f.audio, f.err
}

func TestRenderUnknownVoice(t *testing.T) {
	r := NewRenderer(&fakeSynth{}, nil, nil)

	_, err := r.Render(context.Background(), "hello", "paul_graham")
	assert.ErrorIs(t, err, ErrVoiceUnavailable)
}

func TestRenderWithoutCredentials(t *testing.T) {
	r := NewRenderer(nil, nil, nil)

	_, err := r.Render(context.Background(), "hello", "eminem")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, r.Configured())
}

func TestRenderEmptyText(t *testing.T) {
	r := NewRenderer(&fakeSynth{}, nil, nil)

	_, err := r.Render(context.Background(), "   ", "eminem")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestRenderResolvesVoiceVariants(t *testing.T) {
	synth := &fakeSynth{audio: []byte("mp3")}
	r := NewRenderer(synth, nil, nil)

	audio, err := r.Render(context.Background(), " Know thyself. ", "Marcus Aurelius")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
	assert.Equal(t, "pNInz6obpgDQGcFmaJgB", synth.voiceID)
	assert.Equal(t, "Know thyself.", synth.text)
}

func TestRenderWrapsPlainErrors(t *testing.T) {
	r := NewRenderer(&fakeSynth{err: errors.New("boom")}, nil, nil)

	_, err := r.Render(context.Background(), "hi", "eminem")
	assert.ErrorIs(t, err, ErrSpeechSynthesisFailed)
}

func TestElevenLabsSynthesize(t *testing.T) {
	var got ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("secret", "").WithBaseURL(srv.URL)
	audio, err := c.Synthesize(context.Background(), "voice-1", "hello")
	require.NoError(t, err)

	assert.Equal(t, []byte("ID3audio"), audio)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, DefaultModel, got.ModelID)
	assert.Equal(t, 0.5, got.VoiceSettings.Stability)
	assert.Equal(t, 0.75, got.VoiceSettings.SimilarityBoost)
}

func TestElevenLabsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("bad", "eleven_turbo_v2").WithBaseURL(srv.URL)
	_, err := c.Synthesize(context.Background(), "voice-1", "hello")

	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, http.StatusUnauthorized, synthErr.Status)
	assert.Equal(t, "Invalid API key", synthErr.Message)
	assert.ErrorIs(t, err, ErrSpeechSynthesisFailed)
}

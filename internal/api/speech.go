package api

import (
	"net/http"
	"strconv"

	"github.com/kalambet/mentormirror/internal/speech"
)

type speechRequest struct {
	Text     string `json:"text"`
	MentorID string `json:"mentorId"`
}

func handleSpeech(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req speechRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if !requireFields(w, [2]string{"text", req.Text}, [2]string{"mentorId", req.MentorID}) {
			return
		}

		renderer := deps.Speech
		if renderer == nil {
			renderer = speech.NewRenderer(nil, deps.Metrics, nil)
		}
		audio, err := renderer.Render(r.Context(), req.Text, req.MentorID)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
		w.WriteHeader(http.StatusOK)
		w.Write(audio)
	}
}

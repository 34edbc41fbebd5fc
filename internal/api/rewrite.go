package api

import (
	"net/http"
	"time"

	"github.com/kalambet/mentormirror/internal/style"
)

type rewriteRequest struct {
	Text            string `json:"text"`
	MentorID        string `json:"mentorId"`
	ServiceSelector string `json:"serviceSelector"`
	ModelID         string `json:"modelId"`
	PreserveTone    bool   `json:"preserveTone"`
}

type rewriteResponse struct {
	RewrittenText string `json:"rewrittenText"`
	MentorID      string `json:"mentorId"`
	OriginalText  string `json:"originalText"`
	PreserveTone  bool   `json:"preserveTone"`
}

// handleRewrite looks the mentor up before any capability is resolved, so an
// unknown mentor is a 404 even when no provider is configured.
func handleRewrite(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rewriteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if !requireFields(w, [2]string{"text", req.Text}, [2]string{"mentorId", req.MentorID}) {
			return
		}

		m, err := deps.Store.Get(r.Context(), req.MentorID)
		if err != nil {
			writeError(w, err)
			return
		}
		c, err := deps.LLM.Resolve(req.ServiceSelector, req.ModelID)
		if err != nil {
			writeError(w, err)
			return
		}

		out, err := style.Apply(r.Context(), c, m.StyleProfile, req.Text, req.PreserveTone)
		deps.Metrics.ObserveRewrite(err)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rewriteResponse{
			RewrittenText: out,
			MentorID:      m.ID,
			OriginalText:  req.Text,
			PreserveTone:  req.PreserveTone,
		})
	}
}

type generateRequest struct {
	MentorID        string `json:"mentorId"`
	Topic           string `json:"topic"`
	ServiceSelector string `json:"serviceSelector"`
	ModelID         string `json:"modelId"`
}

func handleCompose(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if !requireFields(w, [2]string{"mentorId", req.MentorID}, [2]string{"topic", req.Topic}) {
			return
		}

		m, err := deps.Store.Get(r.Context(), req.MentorID)
		if err != nil {
			writeError(w, err)
			return
		}
		c, err := deps.LLM.Resolve(req.ServiceSelector, req.ModelID)
		if err != nil {
			writeError(w, err)
			return
		}

		content, err := style.Compose(r.Context(), c, m.StyleProfile, req.Topic)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"mentorId": m.ID,
			"topic":    req.Topic,
			"content":  content,
		})
	}
}

func handleMentorgram(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if !requireFields(w, [2]string{"mentorId", req.MentorID}) {
			return
		}

		m, err := deps.Store.Get(r.Context(), req.MentorID)
		if err != nil {
			writeError(w, err)
			return
		}
		c, err := deps.LLM.Resolve(req.ServiceSelector, req.ModelID)
		if err != nil {
			writeError(w, err)
			return
		}

		gram, err := style.GenerateMentorgram(r.Context(), c, m.DisplayName, m.StyleProfile, req.Topic)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gram)
	}
}

func handleProviders(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"providers":   deps.LLM.Providers(r.Context()),
			"speech":      deps.Speech != nil && deps.Speech.Configured(),
			"generatedAt": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

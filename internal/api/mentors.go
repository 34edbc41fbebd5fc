package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/mentormirror/internal/mentor"
	"github.com/kalambet/mentormirror/internal/style"
)

// mentorSummary is one entry of the mentor list.
type mentorSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Status      string `json:"status"`
	HasVoice    bool   `json:"hasVoice"`
}

// mentorView is a full mentor with its derived voice flag.
type mentorView struct {
	mentor.Mentor
	HasVoice bool `json:"hasVoice"`
}

func viewOf(m mentor.Mentor) mentorView {
	return mentorView{Mentor: m, HasVoice: m.HasVoice()}
}

func handleListMentors(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := deps.Store.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

		out := make([]mentorSummary, 0, len(all))
		for _, m := range all {
			out = append(out, mentorSummary{
				ID:          m.ID,
				Name:        m.DisplayName,
				DisplayName: m.DisplayName,
				Status:      "ready",
				HasVoice:    m.HasVoice(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type createMentorRequest struct {
	AuthorName   string             `json:"authorName"`
	StyleProfile style.StyleProfile `json:"styleProfile"`
	MentorID     string             `json:"mentorId"`
	SourceURL    string             `json:"sourceUrl"`
}

func handleCreateMentor(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMentorRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.AuthorName) == "" && strings.TrimSpace(req.MentorID) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "authorName or mentorId is required")
			return
		}

		saved, err := deps.Store.Upsert(r.Context(), mentor.Mentor{
			ID:           req.MentorID,
			DisplayName:  strings.TrimSpace(req.AuthorName),
			StyleProfile: req.StyleProfile,
			SourceURL:    req.SourceURL,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"mentor":  viewOf(saved),
		})
	}
}

func handleGetMentor(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := deps.Store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(m))
	}
}

func handleMentorPrompts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := deps.Store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"mentorId": m.ID,
			"prompts":  style.PromptKit(m.StyleProfile),
		})
	}
}

package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kalambet/mentormirror/internal/pipeline"
)

// handleAnalyze runs an analysis and streams its events as server-sent
// events, one "data:" frame per event.
func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.Request
		if !decodeBody(w, r, &req) {
			return
		}
		if !requireFields(w, [2]string{"url", req.URL}) {
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		emit := func(ev pipeline.Event) error {
			payload, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			flusher.Flush()
			return r.Context().Err()
		}

		if _, err := deps.Analyzer.Run(r.Context(), req, emit); err != nil {
			slog.Debug("analysis stream ended with error", "url", req.URL, "error", err)
		}
	}
}

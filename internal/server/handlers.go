package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/correlation"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/funnel"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/sessionlog"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOperation runs one funnel operation. Apart from malformed request
// bodies it always answers 200 with real or fallback data.
func (s *Server) handleOperation(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}

		out, err := s.svc.Invoke(r.Context(), op, body)
		var de *funnel.DecodeError
		switch {
		case errors.As(err, &de):
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		case err != nil:
			zap.L().Error("server: invoke operation", zap.String("operation", op), zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleLogInteraction records a UI funnel event (page view, quiz answer,
// purchase, feedback) through the session log side channel.
func (s *Server) handleLogInteraction(w http.ResponseWriter, r *http.Request) {
	var entry sessionlog.SessionEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&entry); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	entry.Interaction = strings.TrimSpace(entry.Interaction)
	if entry.Interaction == "" {
		writeError(w, r, http.StatusBadRequest, "interaction is required")
		return
	}

	id, _ := correlation.FromContext(r.Context())
	s.logs.LogSession(r.Context(), id, entry)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "logged",
		"correlation_id": id,
	})
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/yegors/streamscribe/internal/session"
	"github.com/yegors/streamscribe/internal/storage/sqlite"
	"github.com/yegors/streamscribe/pkg/logger"
)

const defaultTranscriptionLimit = 50

// Handler serves the live transcript API
type Handler struct {
	session *session.Orchestrator
	storage *sqlite.TranscriptionStorage
	logger  *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(sess *session.Orchestrator, storage *sqlite.TranscriptionStorage, log *logger.Logger) *Handler {
	return &Handler{
		session: sess,
		storage: storage,
		logger:  log.Named("api-handler"),
	}
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetSession returns the current session metadata and state
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":         h.session.ID(),
		"url":        h.session.URL(),
		"state":      h.session.State().String(),
		"started_at": h.session.StartedAt().Format(time.RFC3339),
		"records":    len(h.session.Records()),
	})
}

// GetTranscriptions returns the most recent transcription records. Served
// from storage when persistence is enabled, otherwise from the in-memory
// output sequence.
func (h *Handler) GetTranscriptions(w http.ResponseWriter, r *http.Request) {
	limit := defaultTranscriptionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	if h.storage != nil {
		rows, err := h.storage.GetRecent(limit)
		if err != nil {
			h.logger.Error("Failed to query transcriptions", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, http.StatusOK, rows)
		return
	}

	records := h.session.Records()
	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	h.writeJSON(w, http.StatusOK, records)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dentalchat/intake-agent/pkg/logging"
)

// Handler exposes the intake conversation engine over HTTP.
type Handler struct {
	service Service
	logger  *logging.Logger
}

// NewHandler creates the intake HTTP handler.
func NewHandler(service Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("intake: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Start handles POST /chat/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.StartConversation(r.Context())
	if err != nil {
		h.logger.Error("failed to start conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start conversation")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Message handles POST /chat/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.service.ProcessMessage(r.Context(), req)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, ErrSessionFinished):
		writeJSON(w, http.StatusConflict, resp)
	case err != nil:
		h.logger.Error("failed to process message", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// Summary handles GET /chat/{sessionID}/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	summary, err := h.service.Summary(r.Context(), sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to build summary", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Stats handles GET /chat/debug/sessions.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	type statsProvider interface {
		Stats() (totalSessions, activeSessions int)
	}
	provider, ok := h.service.(statsProvider)
	if !ok {
		writeError(w, http.StatusNotFound, "stats unavailable")
		return
	}
	total, active := provider.Stats()
	writeJSON(w, http.StatusOK, map[string]int{
		"total_sessions":  total,
		"active_sessions": active,
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "intake-agent"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

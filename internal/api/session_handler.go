package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fennwick/glossa-api/internal/api/shared"
	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/platform/logger"
	"github.com/fennwick/glossa-api/internal/session"
)

// SessionHandler handles gaze session lifecycle HTTP requests.
type SessionHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *session.Manager, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SessionHandler")
	}
	if sessions == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("sessions cannot be nil for SessionHandler")
	}

	return &SessionHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_handler")),
	}
}

// OpenSession handles POST /sessions requests. Omitted languages fall back to
// auto-detection and the server default; an omitted fixation config uses the
// server defaults.
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req OpenSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode session request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid owner ID")
		return
	}

	var cfg *domain.FixationConfig
	if req.Fixation != nil {
		c := req.Fixation.ToDomain()
		cfg = &c
	}

	sess, err := h.sessions.Open(ownerID, req.SourceLang, req.TargetLang, cfg)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to open session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(sess))
}

// UpdateSessionConfig handles PUT /sessions/{id}/config requests. Applying a
// new fixation config resets any fixation in progress.
func (h *SessionHandler) UpdateSessionConfig(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid session ID")
		return
	}

	var req FixationConfigRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode config request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Session not found")
		return
	}

	if err := sess.UpdateConfig(req.ToDomain()); err != nil {
		HandleAPIError(w, r, err, "Invalid fixation configuration")
		return
	}

	log.Debug("session config updated", slog.String("session_id", sessionID.String()))

	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(sess))
}

// CloseSession handles DELETE /sessions/{id} requests.
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid session ID")
		return
	}

	if err := h.sessions.Close(sessionID); err != nil {
		HandleAPIError(w, r, err, "Failed to close session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func sessionToResponse(sess *session.Session) SessionResponse {
	cfg := sess.Config()
	sourceLang, targetLang := sess.Languages()

	return SessionResponse{
		ID:         sess.ID().String(),
		OwnerID:    sess.OwnerID().String(),
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Fixation: FixationConfigResponse{
			StabilityRadiusPx: cfg.StabilityRadiusPx,
			MinDurationMs:     cfg.MinDuration.Milliseconds(),
			MinConfidence:     cfg.MinConfidence,
		},
		CreatedAt: sess.CreatedAt(),
	}
}

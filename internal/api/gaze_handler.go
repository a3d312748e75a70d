package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fennwick/glossa-api/internal/api/shared"
	"github.com/fennwick/glossa-api/internal/lookup"
	"github.com/fennwick/glossa-api/internal/platform/logger"
	"github.com/fennwick/glossa-api/internal/session"
)

// FixationResolver resolves one confirmed fixation into a translation
// result, gated by the owner's memory.
type FixationResolver interface {
	HandleFixation(ctx context.Context, req lookup.Request, fixation lookup.Resetter) (*lookup.Result, error)
}

// Verify lookup.Service satisfies the resolver interface
var _ FixationResolver = (*lookup.Service)(nil)

// GazeHandler ingests gaze sample batches into a session's fixation
// detector and resolves confirmed fixations through the lookup pipeline.
type GazeHandler struct {
	sessions *session.Manager
	lookups  FixationResolver
	logger   *slog.Logger
}

// NewGazeHandler creates a new GazeHandler.
func NewGazeHandler(sessions *session.Manager, lookups FixationResolver, logger *slog.Logger) *GazeHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for GazeHandler")
	}
	if sessions == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("sessions cannot be nil for GazeHandler")
	}
	if lookups == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("lookups cannot be nil for GazeHandler")
	}

	return &GazeHandler{
		sessions: sessions,
		lookups:  lookups,
		logger:   logger.With(slog.String("component", "gaze_handler")),
	}
}

// IngestGaze handles POST /sessions/{id}/gaze requests.
//
// Samples are fed to the session's detector in order. The first confirmed
// fixation stops consumption: later samples in the batch predate the lookup
// outcome and would only re-arm the window the resolver just reset. A batch
// with no confirmed fixation returns triggered=false.
func (h *GazeHandler) IngestGaze(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid session ID")
		return
	}

	var req GazeBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode gaze batch", slog.String("error", err.Error()))
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

	var resp GazeBatchResponse
	for _, sample := range req.Samples {
		trigger, err := sess.ProcessSample(sample.ToDomain())
		if err != nil {
			HandleAPIError(w, r, err, "Invalid gaze sample")
			return
		}
		resp.Consumed++
		if trigger == nil {
			continue
		}

		resp.Triggered = true
		resp.Trigger = &TriggerResponse{
			X:           trigger.X,
			Y:           trigger.Y,
			Confidence:  trigger.Confidence,
			TimestampMs: trigger.Timestamp.UnixMilli(),
		}

		result, err := h.lookups.HandleFixation(
			r.Context(), sess.LookupRequest(*trigger, req.Capture), sess)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to resolve fixation")
			return
		}

		lookupResp := lookupResultToResponse(result)
		resp.Lookup = &lookupResp
		break
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

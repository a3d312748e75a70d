package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fennwick/glossa-api/internal/api/shared"
	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/domain/retention"
	"github.com/fennwick/glossa-api/internal/memory"
	"github.com/fennwick/glossa-api/internal/platform/logger"
)

// MemoryHandler handles fragment memory HTTP requests.
type MemoryHandler struct {
	memoryService memory.MemoryService
	logger        *slog.Logger
}

// NewMemoryHandler creates a new MemoryHandler.
func NewMemoryHandler(memoryService memory.MemoryService, logger *slog.Logger) *MemoryHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for MemoryHandler")
	}
	if memoryService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("memoryService cannot be nil for MemoryHandler")
	}

	return &MemoryHandler{
		memoryService: memoryService,
		logger:        logger.With(slog.String("component", "memory_handler")),
	}
}

// CheckMemory handles POST /owners/{ownerID}/memory/check requests.
// It decides whether the owner needs a fresh translation for the given text,
// returning the cached translation when they do not.
func (h *MemoryHandler) CheckMemory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, err := getPathUUID(r, "ownerID")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid owner ID")
		return
	}

	var req CheckMemoryRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode check request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	identity := domain.FragmentIdentity{
		OwnerID:    ownerID,
		SourceText: req.SourceText,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	}

	result, err := h.memoryService.CheckMemory(r.Context(), identity)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to check memory")
		return
	}

	log.Debug("memory check completed",
		slog.String("owner_id", ownerID.String()),
		slog.Bool("exists", result.Exists),
		slog.Bool("should_translate", result.ShouldTranslate))

	shared.RespondWithJSON(w, r, http.StatusOK, checkResultToResponse(result))
}

// CreateFragment handles POST /owners/{ownerID}/fragments requests.
// An identity tuple that already has a fragment is touched rather than
// duplicated; the response status distinguishes the two cases.
func (h *MemoryHandler) CreateFragment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, err := getPathUUID(r, "ownerID")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid owner ID")
		return
	}

	var req CreateFragmentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode create request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	identity := domain.FragmentIdentity{
		OwnerID:    ownerID,
		SourceText: req.SourceText,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	}

	fragment, created, err := h.memoryService.CreateOrTouch(
		r.Context(), identity, req.TranslatedText, req.Tags, req.Difficulty)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create fragment")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	log.Debug("fragment create-or-touch completed",
		slog.String("owner_id", ownerID.String()),
		slog.String("fragment_id", fragment.ID.String()),
		slog.Bool("created", created))

	shared.RespondWithJSON(w, r, status, fragmentToResponse(fragment))
}

// Reinforce handles POST /owners/{ownerID}/fragments/{id}/reinforce requests.
// It records one review outcome and returns the updated fragment.
func (h *MemoryHandler) Reinforce(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, err := getPathUUID(r, "ownerID")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid owner ID")
		return
	}
	fragmentID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid fragment ID")
		return
	}

	var req ReinforceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode reinforce request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	reinforcement := retention.Reinforcement{
		WasSuccessful:      req.Successful,
		ExplicitDifficulty: req.Difficulty,
	}
	if req.ResponseTimeMs != nil {
		d := time.Duration(*req.ResponseTimeMs) * time.Millisecond
		reinforcement.ResponseTime = &d
	}

	fragment, err := h.memoryService.RecordReinforcement(r.Context(), ownerID, fragmentID, reinforcement)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record reinforcement")
		return
	}

	log.Debug("reinforcement recorded",
		slog.String("fragment_id", fragmentID.String()),
		slog.Bool("successful", req.Successful),
		slog.String("status", string(fragment.Status)))

	shared.RespondWithJSON(w, r, http.StatusOK, fragmentToResponse(fragment))
}

// Exclude handles POST /owners/{ownerID}/fragments/exclude requests.
func (h *MemoryHandler) Exclude(w http.ResponseWriter, r *http.Request) {
	h.applyBulkStatus(w, r, h.memoryService.SetExcluded, "exclude")
}

// Master handles POST /owners/{ownerID}/fragments/master requests.
func (h *MemoryHandler) Master(w http.ResponseWriter, r *http.Request) {
	h.applyBulkStatus(w, r, h.memoryService.SetMastered, "master")
}

// applyBulkStatus implements the shared shape of the bulk status endpoints.
// Unknown and foreign IDs are skipped by the service, so the response count
// may be lower than the request count.
func (h *MemoryHandler) applyBulkStatus(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, ownerID uuid.UUID, fragmentIDs []uuid.UUID) (int64, error),
	operation string,
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, err := getPathUUID(r, "ownerID")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid owner ID")
		return
	}

	var req BulkStatusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode bulk status request",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	fragmentIDs := make([]uuid.UUID, 0, len(req.FragmentIDs))
	for _, raw := range req.FragmentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid fragment ID in list")
			return
		}
		fragmentIDs = append(fragmentIDs, id)
	}

	updated, err := apply(r.Context(), ownerID, fragmentIDs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update fragment status")
		return
	}

	log.Debug("bulk status applied",
		slog.String("operation", operation),
		slog.String("owner_id", ownerID.String()),
		slog.Int64("updated", updated))

	shared.RespondWithJSON(w, r, http.StatusOK, BulkStatusResponse{Updated: updated})
}

// DueForReview handles GET /owners/{ownerID}/reviews/due requests.
// An optional limit query parameter caps the result; 0 or absent means all.
func (h *MemoryHandler) DueForReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, err := getPathUUID(r, "ownerID")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid owner ID")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
	}

	items, err := h.memoryService.ItemsDueForReview(r.Context(), ownerID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list due reviews")
		return
	}

	response := make([]ReviewItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, ReviewItemResponse{
			Fragment:  fragmentToResponse(item.Fragment),
			Retention: item.Retention,
		})
	}

	log.Debug("due reviews listed",
		slog.String("owner_id", ownerID.String()),
		slog.Int("count", len(response)))

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

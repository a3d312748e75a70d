package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/domain/retention"
	"github.com/fennwick/glossa-api/internal/platform/logger"
	"github.com/fennwick/glossa-api/internal/store"
)

const (
	// defaultDifficulty is the calibration midpoint assigned when the
	// caller does not supply one.
	defaultDifficulty = 3.0

	// Strength bounds driving the status transitions: success above the
	// promotion bound moves a fragment to Learning, failure below the
	// demotion bound moves it to Forgotten.
	promoteStrength = 0.8
	demoteStrength  = 0.3

	// Fuzzy matching: candidates at or above the threshold are suggested,
	// capped per check. The scan limit bounds how many same-pair fragments
	// one check will tokenize.
	fuzzyMatchThreshold = 0.7
	maxSuggestions      = 5
	fuzzyScanLimit      = 500

	defaultPurgeHorizon        = 30 * 24 * time.Hour
	defaultPurgeRetentionFloor = 0.30
)

// PurgeConfig bounds the stale-fragment sweep. Zero values fall back to the
// package defaults.
type PurgeConfig struct {
	// Horizon is the minimum age before a fragment can be purged.
	Horizon time.Duration

	// RetentionFloor is the retention probability below which an old
	// Fresh or Forgotten fragment counts as stale.
	RetentionFloor float64
}

// Verify interface compliance at compile time
var _ MemoryService = (*memoryServiceImpl)(nil)

// memoryServiceImpl implements the MemoryService interface.
type memoryServiceImpl struct {
	fragments    store.FragmentStore
	db           *sql.DB // nil when the store is not SQL-backed
	retentionSvc retention.Service
	purge        PurgeConfig
	logger       *slog.Logger
}

// NewMemoryService creates a new MemoryService.
//
// db may be nil for stores without a database handle (the in-memory store);
// when present, read-modify-write operations run inside a transaction.
func NewMemoryService(
	fragments store.FragmentStore,
	db *sql.DB,
	retentionSvc retention.Service,
	purge PurgeConfig,
	logger *slog.Logger,
) (MemoryService, error) {
	if fragments == nil {
		return nil, errors.New("fragment store cannot be nil")
	}
	if retentionSvc == nil {
		return nil, errors.New("retention service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if purge.Horizon <= 0 {
		purge.Horizon = defaultPurgeHorizon
	}
	if purge.RetentionFloor <= 0 {
		purge.RetentionFloor = defaultPurgeRetentionFloor
	}

	return &memoryServiceImpl{
		fragments:    fragments,
		db:           db,
		retentionSvc: retentionSvc,
		purge:        purge,
		logger:       logger.With(slog.String("component", "memory_service")),
	}, nil
}

// withStore runs fn against the fragment store, inside a database
// transaction when the service is SQL-backed. The in-memory store executes
// directly; its operations are individually atomic.
func (s *memoryServiceImpl) withStore(
	ctx context.Context,
	fn func(ctx context.Context, fragments store.FragmentStore) error,
) error {
	if s.db == nil {
		return fn(ctx, s.fragments)
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.fragments.WithTx(tx))
	})
}

// CreateOrTouch implements MemoryService.CreateOrTouch.
func (s *memoryServiceImpl) CreateOrTouch(
	ctx context.Context,
	identity domain.FragmentIdentity,
	translatedText string,
	tags []string,
	difficulty *float64,
) (*domain.MemoryFragment, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := identity.Validate(); err != nil {
		log.Warn("create_or_touch called with invalid identity",
			slog.String("error", err.Error()))
		return nil, false, NewServiceError("create_or_touch", "invalid fragment identity", err)
	}

	now := time.Now().UTC()

	existing, err := s.fragments.GetByIdentity(ctx, identity)
	if err == nil {
		fragment, touchErr := s.touch(ctx, log, existing, now)
		return fragment, false, touchErr
	}
	if !store.IsNotFoundError(err) {
		log.Error("failed to look up fragment by identity",
			slog.String("error", err.Error()),
			slog.String("owner_id", identity.OwnerID.String()))
		return nil, false, NewServiceError("create_or_touch", "failed to look up fragment", err)
	}

	level := defaultDifficulty
	if difficulty != nil {
		level = *difficulty
	}

	// A new fragment enters the review cycle immediately: its first review
	// is scheduled one base interval out, not left to decay alone.
	firstDue := now.Add(s.retentionSvc.NextReviewInterval(0, 0, level))

	record := domain.RetentionRecord{
		InitialStrength:  1.0,
		CurrentStrength:  1.0,
		DifficultyLevel:  level,
		LastReinforcedAt: now,
		NextDueAt:        &firstDue,
	}

	fragment, err := domain.NewMemoryFragment(identity, translatedText, tags, record, now)
	if err != nil {
		log.Warn("failed to construct fragment",
			slog.String("error", err.Error()),
			slog.String("owner_id", identity.OwnerID.String()))
		return nil, false, NewServiceError("create_or_touch", "invalid fragment data", err)
	}

	err = s.fragments.Create(ctx, fragment)
	if err == nil {
		log.Info("created memory fragment",
			slog.String("fragment_id", fragment.ID.String()),
			slog.String("owner_id", fragment.OwnerID.String()),
			slog.String("source_lang", fragment.SourceLang),
			slog.String("target_lang", fragment.TargetLang))
		return fragment, true, nil
	}
	if !store.IsDuplicateError(err) {
		log.Error("failed to save fragment",
			slog.String("error", err.Error()),
			slog.String("owner_id", identity.OwnerID.String()))
		return nil, false, NewServiceError("create_or_touch", "failed to save fragment", err)
	}

	// Lost a creation race; the identity now resolves to the winner.
	// One re-read and touch, never a second record.
	log.Debug("fragment creation conflict, touching winner",
		slog.String("owner_id", identity.OwnerID.String()))

	existing, err = s.fragments.GetByIdentity(ctx, identity)
	if err != nil {
		log.Error("failed to re-read fragment after creation conflict",
			slog.String("error", err.Error()),
			slog.String("owner_id", identity.OwnerID.String()))
		return nil, false, NewServiceError(
			"create_or_touch", "failed to resolve fragment after conflict", err)
	}

	fragment, touchErr := s.touch(ctx, log, existing, now)
	return fragment, false, touchErr
}

// touch records a re-exposure on an existing fragment and returns it with
// its bumped access bookkeeping.
func (s *memoryServiceImpl) touch(
	ctx context.Context,
	log *slog.Logger,
	fragment *domain.MemoryFragment,
	now time.Time,
) (*domain.MemoryFragment, error) {
	if err := s.fragments.Touch(ctx, fragment.OwnerID, fragment.ID, now); err != nil {
		log.Error("failed to touch fragment",
			slog.String("error", err.Error()),
			slog.String("fragment_id", fragment.ID.String()))
		return nil, NewServiceError("create_or_touch", "failed to touch fragment", err)
	}

	fragment.AccessCount++
	fragment.LastAccessedAt = now

	log.Debug("touched existing fragment",
		slog.String("fragment_id", fragment.ID.String()),
		slog.Int("access_count", fragment.AccessCount))
	return fragment, nil
}

// CheckMemory implements MemoryService.CheckMemory.
func (s *memoryServiceImpl) CheckMemory(
	ctx context.Context,
	identity domain.FragmentIdentity,
) (*CheckResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := identity.Validate(); err != nil {
		return nil, NewServiceError("check_memory", "invalid fragment identity", err)
	}

	now := time.Now().UTC()

	fragment, err := s.fragments.GetByIdentity(ctx, identity)
	if err != nil {
		if store.IsNotFoundError(err) {
			return s.suggestNearMatches(ctx, log, identity)
		}
		log.Error("failed to look up fragment by identity",
			slog.String("error", err.Error()),
			slog.String("owner_id", identity.OwnerID.String()))
		return nil, NewServiceError("check_memory", "failed to look up fragment", err)
	}

	probability := s.retentionSvc.Retention(fragment.Retention, now)

	result := &CheckResult{
		Exists:    true,
		Fragment:  fragment,
		Retention: probability,
	}

	// Terminal statuses gate unconditionally; the decay curve only decides
	// for fragments still in the review cycle.
	if fragment.Status.IsTerminal() {
		result.ShouldTranslate = false
	} else {
		result.ShouldTranslate = !s.retentionSvc.IsRemembered(probability)
	}
	if !result.ShouldTranslate {
		result.CachedTranslation = fragment.TranslatedText
	}

	log.Debug("memory check",
		slog.String("fragment_id", fragment.ID.String()),
		slog.String("status", string(fragment.Status)),
		slog.Float64("retention", probability),
		slog.Bool("should_translate", result.ShouldTranslate))
	return result, nil
}

// suggestNearMatches handles the no-exact-match path of a memory check:
// fuzzy-match the owner's same-language-pair fragments and surface the
// closest ones.
func (s *memoryServiceImpl) suggestNearMatches(
	ctx context.Context,
	log *slog.Logger,
	identity domain.FragmentIdentity,
) (*CheckResult, error) {
	candidates, err := s.fragments.ListByLangPair(
		ctx, identity.OwnerID, identity.SourceLang, identity.TargetLang, fuzzyScanLimit)
	if err != nil {
		log.Error("failed to scan fragments for fuzzy match",
			slog.String("error", err.Error()),
			slog.String("owner_id", identity.OwnerID.String()))
		return nil, NewServiceError("check_memory", "failed to scan for near matches", err)
	}

	target := tokenSet(identity.SourceText)

	var suggestions []Suggestion
	for _, candidate := range candidates {
		similarity := jaccardSimilarity(target, tokenSet(candidate.SourceText))
		if similarity >= fuzzyMatchThreshold {
			suggestions = append(suggestions, Suggestion{
				Fragment:   candidate,
				Similarity: similarity,
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Similarity > suggestions[j].Similarity
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	log.Debug("memory check found no exact match",
		slog.String("owner_id", identity.OwnerID.String()),
		slog.Int("suggestions", len(suggestions)))

	return &CheckResult{
		Exists:          false,
		ShouldTranslate: true,
		Suggestions:     suggestions,
	}, nil
}

// RecordReinforcement implements MemoryService.RecordReinforcement.
func (s *memoryServiceImpl) RecordReinforcement(
	ctx context.Context,
	ownerID, fragmentID uuid.UUID,
	reinforcement retention.Reinforcement,
) (*domain.MemoryFragment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.MemoryFragment
	now := time.Now().UTC()

	err := s.withStore(ctx, func(ctx context.Context, fragments store.FragmentStore) error {
		fragment, err := fragments.GetByID(ctx, ownerID, fragmentID)
		if err != nil {
			if store.IsNotFoundError(err) {
				log.Warn("reinforcement for unknown fragment",
					slog.String("fragment_id", fragmentID.String()),
					slog.String("owner_id", ownerID.String()))
				return ErrFragmentNotFound
			}
			return fmt.Errorf("failed to load fragment: %w", err)
		}

		if fragment.Status.IsTerminal() {
			log.Warn("reinforcement rejected for terminal fragment",
				slog.String("fragment_id", fragmentID.String()),
				slog.String("status", string(fragment.Status)))
			return fmt.Errorf("%w: %s", ErrTerminalStatus, fragment.Status)
		}

		record, err := s.retentionSvc.Reinforce(fragment.Retention, reinforcement, now)
		if err != nil {
			return fmt.Errorf("failed to compute reinforcement: %w", err)
		}

		fragment.Retention = record
		fragment.Status = nextStatus(fragment.Status, reinforcement.WasSuccessful, record.CurrentStrength)

		if err := fragments.Update(ctx, fragment); err != nil {
			return fmt.Errorf("failed to save reinforced fragment: %w", err)
		}

		updated = fragment
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrFragmentNotFound) || errors.Is(err, ErrTerminalStatus) {
			return nil, err
		}
		log.Error("failed to record reinforcement",
			slog.String("error", err.Error()),
			slog.String("fragment_id", fragmentID.String()),
			slog.String("owner_id", ownerID.String()))
		return nil, NewServiceError("record_reinforcement", "failed to record reinforcement", err)
	}

	log.Info("recorded reinforcement",
		slog.String("fragment_id", updated.ID.String()),
		slog.String("owner_id", updated.OwnerID.String()),
		slog.Bool("successful", reinforcement.WasSuccessful),
		slog.Float64("strength", updated.Retention.CurrentStrength),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

// nextStatus applies the strength-driven promotion and demotion rules. A
// fragment that crosses neither bound keeps its current status.
func nextStatus(
	current domain.FragmentStatus,
	wasSuccessful bool,
	strength float64,
) domain.FragmentStatus {
	if wasSuccessful && strength > promoteStrength {
		return domain.FragmentStatusLearning
	}
	if !wasSuccessful && strength < demoteStrength {
		return domain.FragmentStatusForgotten
	}
	return current
}

// SetExcluded implements MemoryService.SetExcluded.
func (s *memoryServiceImpl) SetExcluded(
	ctx context.Context,
	ownerID uuid.UUID,
	fragmentIDs []uuid.UUID,
) (int64, error) {
	return s.setStatusBulk(ctx, "set_excluded", ownerID, fragmentIDs, domain.FragmentStatusExcluded, false)
}

// SetMastered implements MemoryService.SetMastered. Mastering clears the
// review schedule; nothing remains due for a mastered fragment.
func (s *memoryServiceImpl) SetMastered(
	ctx context.Context,
	ownerID uuid.UUID,
	fragmentIDs []uuid.UUID,
) (int64, error) {
	return s.setStatusBulk(ctx, "set_mastered", ownerID, fragmentIDs, domain.FragmentStatusMastered, true)
}

func (s *memoryServiceImpl) setStatusBulk(
	ctx context.Context,
	operation string,
	ownerID uuid.UUID,
	fragmentIDs []uuid.UUID,
	status domain.FragmentStatus,
	clearNextDue bool,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if ownerID == uuid.Nil {
		return 0, NewServiceError(operation, "invalid owner", domain.ErrEmptyFragmentOwnerID)
	}

	count, err := s.fragments.UpdateStatusBulk(ctx, ownerID, fragmentIDs, status, clearNextDue)
	if err != nil {
		log.Error("failed to update fragment status",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()),
			slog.String("status", string(status)))
		return 0, NewServiceError(operation, "failed to update fragment status", err)
	}

	log.Info("updated fragment status",
		slog.String("owner_id", ownerID.String()),
		slog.String("status", string(status)),
		slog.Int("requested", len(fragmentIDs)),
		slog.Int64("updated", count))
	return count, nil
}

// ItemsDueForReview implements MemoryService.ItemsDueForReview.
func (s *memoryServiceImpl) ItemsDueForReview(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]ReviewItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if ownerID == uuid.Nil {
		return nil, NewServiceError("items_due_for_review", "invalid owner", domain.ErrEmptyFragmentOwnerID)
	}

	now := time.Now().UTC()

	// The due filter needs computed retention, which stays out of the
	// store, so scan all active fragments and filter here.
	fragments, err := s.fragments.ListActive(ctx, ownerID, 0)
	if err != nil {
		log.Error("failed to list active fragments",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, NewServiceError("items_due_for_review", "failed to list fragments", err)
	}

	due := make([]ReviewItem, 0, len(fragments))
	for _, fragment := range fragments {
		probability := s.retentionSvc.Retention(fragment.Retention, now)
		scheduled := fragment.Retention.NextDueAt != nil && !fragment.Retention.NextDueAt.After(now)
		if scheduled || !s.retentionSvc.IsRemembered(probability) {
			due = append(due, ReviewItem{Fragment: fragment, Retention: probability})
		}
	}

	// Most overdue first: scheduled items by due time, then unscheduled
	// ones weakest first.
	sort.SliceStable(due, func(i, j int) bool {
		di := due[i].Fragment.Retention.NextDueAt
		dj := due[j].Fragment.Retention.NextDueAt
		switch {
		case di != nil && dj != nil:
			if !di.Equal(*dj) {
				return di.Before(*dj)
			}
		case di != nil:
			return true
		case dj != nil:
			return false
		}
		return due[i].Retention < due[j].Retention
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	log.Debug("listed due fragments",
		slog.String("owner_id", ownerID.String()),
		slog.Int("due", len(due)))
	return due, nil
}

// PurgeStale implements MemoryService.PurgeStale.
func (s *memoryServiceImpl) PurgeStale(ctx context.Context) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	cutoff := now.Add(-s.purge.Horizon)

	// Only these statuses are ever auto-purged. The same set guards the
	// delete, so a fragment promoted after the listing survives the sweep.
	purgeable := []domain.FragmentStatus{
		domain.FragmentStatusFresh,
		domain.FragmentStatusForgotten,
	}

	candidates, err := s.fragments.ListStaleCandidates(ctx, purgeable, cutoff, 0)
	if err != nil {
		log.Error("failed to list purge candidates",
			slog.String("error", err.Error()))
		return 0, NewServiceError("purge_stale", "failed to list purge candidates", err)
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, fragment := range candidates {
		if s.retentionSvc.Retention(fragment.Retention, now) < s.purge.RetentionFloor {
			ids = append(ids, fragment.ID)
		}
	}

	if len(ids) == 0 {
		log.Debug("no stale fragments to purge",
			slog.Int("candidates", len(candidates)))
		return 0, nil
	}

	deleted, err := s.fragments.DeleteStaleByIDs(ctx, ids, purgeable)
	if err != nil {
		log.Error("failed to delete stale fragments",
			slog.String("error", err.Error()),
			slog.Int("stale", len(ids)))
		return 0, NewServiceError("purge_stale", "failed to delete stale fragments", err)
	}

	log.Info("purged stale fragments",
		slog.Int("candidates", len(candidates)),
		slog.Int64("deleted", deleted))
	return deleted, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/platform/logger"
	"github.com/fennwick/glossa-api/internal/store"
	"github.com/google/uuid"
)

// fragmentColumns is the canonical column list for memory_fragments, in the
// order scanFragment expects.
const fragmentColumns = `id, owner_id, source_text, translated_text, source_lang, target_lang,
	status, tags, access_count, initial_strength, current_strength, difficulty_level,
	reinforce_count, successful_reinforce_count, last_reinforced_at, next_due_at,
	created_at, last_accessed_at`

// PostgresFragmentStore implements the store.FragmentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresFragmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFragmentStore creates a new PostgreSQL implementation of the FragmentStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresFragmentStore(db store.DBTX, logger *slog.Logger) *PostgresFragmentStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresFragmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "fragment_store")),
	}
}

// Ensure PostgresFragmentStore implements store.FragmentStore interface
var _ store.FragmentStore = (*PostgresFragmentStore)(nil)

// rowScanner abstracts over *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanFragment reads one memory_fragments row, in fragmentColumns order,
// into a domain fragment.
func scanFragment(row rowScanner) (*domain.MemoryFragment, error) {
	var fragment domain.MemoryFragment
	var status string
	var tagsJSON []byte
	var nextDue sql.NullTime

	err := row.Scan(
		&fragment.ID,
		&fragment.OwnerID,
		&fragment.SourceText,
		&fragment.TranslatedText,
		&fragment.SourceLang,
		&fragment.TargetLang,
		&status,
		&tagsJSON,
		&fragment.AccessCount,
		&fragment.Retention.InitialStrength,
		&fragment.Retention.CurrentStrength,
		&fragment.Retention.DifficultyLevel,
		&fragment.Retention.ReinforceCount,
		&fragment.Retention.SuccessfulReinforceCount,
		&fragment.Retention.LastReinforcedAt,
		&nextDue,
		&fragment.CreatedAt,
		&fragment.LastAccessedAt,
	)
	if err != nil {
		return nil, err
	}

	fragment.Status = domain.FragmentStatus(status)
	if nextDue.Valid {
		due := nextDue.Time
		fragment.Retention.NextDueAt = &due
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &fragment.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode fragment tags: %w", err)
		}
	}

	return &fragment, nil
}

// Create implements store.FragmentStore.Create
// It saves a new fragment to the database, handling domain validation.
// Returns validation errors from the domain MemoryFragment if data is invalid.
// Returns store.ErrFragmentExists if a fragment with the same identity
// (owner, source text, language pair) already exists.
func (s *PostgresFragmentStore) Create(ctx context.Context, fragment *domain.MemoryFragment) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate fragment data
	if err := fragment.Validate(); err != nil {
		log.Warn("fragment validation failed during create",
			slog.String("error", err.Error()),
			slog.String("fragment_id", fragment.ID.String()))
		return err
	}

	tagsJSON, err := json.Marshal(fragment.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode fragment tags: %w", err)
	}

	query := `
		INSERT INTO memory_fragments (
			id, owner_id, source_text, translated_text, source_lang, target_lang,
			status, tags, access_count, initial_strength, current_strength, difficulty_level,
			reinforce_count, successful_reinforce_count, last_reinforced_at, next_due_at,
			created_at, last_accessed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		fragment.ID,
		fragment.OwnerID,
		fragment.SourceText,
		fragment.TranslatedText,
		fragment.SourceLang,
		fragment.TargetLang,
		string(fragment.Status),
		tagsJSON,
		fragment.AccessCount,
		fragment.Retention.InitialStrength,
		fragment.Retention.CurrentStrength,
		fragment.Retention.DifficultyLevel,
		fragment.Retention.ReinforceCount,
		fragment.Retention.SuccessfulReinforceCount,
		fragment.Retention.LastReinforcedAt,
		fragment.Retention.NextDueAt,
		fragment.CreatedAt,
		fragment.LastAccessedAt,
	)

	if err != nil {
		// A duplicate identity is an expected outcome under concurrent
		// lookups of the same text; callers handle it by re-reading.
		if IsUniqueViolation(err) {
			log.Debug("fragment identity already exists",
				slog.String("fragment_id", fragment.ID.String()),
				slog.String("owner_id", fragment.OwnerID.String()))
			return fmt.Errorf("%w: %v", store.ErrFragmentExists, err)
		}

		log.Error("failed to create fragment",
			slog.String("error", err.Error()),
			slog.String("fragment_id", fragment.ID.String()),
			slog.String("owner_id", fragment.OwnerID.String()))
		return MapError(err)
	}

	log.Info("fragment created successfully",
		slog.String("fragment_id", fragment.ID.String()),
		slog.String("owner_id", fragment.OwnerID.String()),
		slog.String("source_lang", fragment.SourceLang),
		slog.String("target_lang", fragment.TargetLang))
	return nil
}

// GetByID implements store.FragmentStore.GetByID
// It retrieves a fragment by owner and unique ID.
// Returns store.ErrFragmentNotFound if the fragment does not exist.
func (s *PostgresFragmentStore) GetByID(
	ctx context.Context,
	ownerID, id uuid.UUID,
) (*domain.MemoryFragment, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving fragment by ID", slog.String("fragment_id", id.String()))

	query := `
		SELECT ` + fragmentColumns + `
		FROM memory_fragments
		WHERE id = $1 AND owner_id = $2
	`

	fragment, err := scanFragment(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("fragment not found", slog.String("fragment_id", id.String()))
			return nil, store.ErrFragmentNotFound
		}
		log.Error("failed to get fragment by ID",
			slog.String("error", err.Error()),
			slog.String("fragment_id", id.String()))
		return nil, err
	}

	return fragment, nil
}

// GetByIdentity implements store.FragmentStore.GetByIdentity
// It retrieves a fragment by its dedup key (owner, source text, language pair).
// Returns store.ErrFragmentNotFound if no fragment matches.
func (s *PostgresFragmentStore) GetByIdentity(
	ctx context.Context,
	identity domain.FragmentIdentity,
) (*domain.MemoryFragment, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := identity.Validate(); err != nil {
		log.Warn("fragment identity validation failed during lookup",
			slog.String("error", err.Error()),
			slog.String("owner_id", identity.OwnerID.String()))
		return nil, err
	}

	query := `
		SELECT ` + fragmentColumns + `
		FROM memory_fragments
		WHERE owner_id = $1 AND source_text = $2 AND source_lang = $3 AND target_lang = $4
	`

	fragment, err := scanFragment(s.db.QueryRowContext(
		ctx,
		query,
		identity.OwnerID,
		identity.SourceText,
		identity.SourceLang,
		identity.TargetLang,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("fragment not found by identity",
				slog.String("owner_id", identity.OwnerID.String()),
				slog.String("source_lang", identity.SourceLang),
				slog.String("target_lang", identity.TargetLang))
			return nil, store.ErrFragmentNotFound
		}
		log.Error("failed to get fragment by identity",
			slog.String("error", err.Error()),
			slog.String("owner_id", identity.OwnerID.String()))
		return nil, err
	}

	return fragment, nil
}

// Touch implements store.FragmentStore.Touch
// It increments a fragment's access count and refreshes its last accessed
// time without altering retention state.
// Returns store.ErrFragmentNotFound if the fragment does not exist.
func (s *PostgresFragmentStore) Touch(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("touching fragment",
		slog.String("fragment_id", id.String()),
		slog.Time("accessed_at", at))

	query := `
		UPDATE memory_fragments
		SET access_count = access_count + 1, last_accessed_at = $1
		WHERE id = $2 AND owner_id = $3
	`

	result, err := s.db.ExecContext(ctx, query, at, id, ownerID)
	if err != nil {
		log.Error("failed to touch fragment",
			slog.String("error", err.Error()),
			slog.String("fragment_id", id.String()))
		return MapError(err)
	}

	// Check if a row was actually updated
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("fragment_id", id.String()))
		return err
	}

	// If no rows were affected, the fragment didn't exist
	if rowsAffected == 0 {
		log.Debug("fragment not found for touch",
			slog.String("fragment_id", id.String()))
		return store.ErrFragmentNotFound
	}

	return nil
}

// Update implements store.FragmentStore.Update
// It saves changes to an existing fragment's mutable fields. Identity
// fields (owner, source text, language pair), initial strength, and
// creation time are never rewritten.
// Returns store.ErrFragmentNotFound if the fragment does not exist.
// Returns validation errors from the domain MemoryFragment if data is invalid.
func (s *PostgresFragmentStore) Update(ctx context.Context, fragment *domain.MemoryFragment) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate fragment data
	if err := fragment.Validate(); err != nil {
		log.Warn("fragment validation failed during update",
			slog.String("error", err.Error()),
			slog.String("fragment_id", fragment.ID.String()))
		return err
	}

	tagsJSON, err := json.Marshal(fragment.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode fragment tags: %w", err)
	}

	query := `
		UPDATE memory_fragments
		SET translated_text = $1,
			status = $2,
			tags = $3,
			access_count = $4,
			current_strength = $5,
			difficulty_level = $6,
			reinforce_count = $7,
			successful_reinforce_count = $8,
			last_reinforced_at = $9,
			next_due_at = $10,
			last_accessed_at = $11
		WHERE id = $12 AND owner_id = $13
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		fragment.TranslatedText,
		string(fragment.Status),
		tagsJSON,
		fragment.AccessCount,
		fragment.Retention.CurrentStrength,
		fragment.Retention.DifficultyLevel,
		fragment.Retention.ReinforceCount,
		fragment.Retention.SuccessfulReinforceCount,
		fragment.Retention.LastReinforcedAt,
		fragment.Retention.NextDueAt,
		fragment.LastAccessedAt,
		fragment.ID,
		fragment.OwnerID,
	)

	if err != nil {
		log.Error("failed to update fragment",
			slog.String("error", err.Error()),
			slog.String("fragment_id", fragment.ID.String()),
			slog.String("status", string(fragment.Status)))
		return MapError(err)
	}

	// Check if a row was actually updated
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("fragment_id", fragment.ID.String()))
		return err
	}

	// If no rows were affected, the fragment didn't exist
	if rowsAffected == 0 {
		log.Debug("fragment not found for update",
			slog.String("fragment_id", fragment.ID.String()))
		return store.ErrFragmentNotFound
	}

	log.Info("fragment updated successfully",
		slog.String("fragment_id", fragment.ID.String()),
		slog.String("status", string(fragment.Status)))
	return nil
}

// UpdateStatusBulk implements store.FragmentStore.UpdateStatusBulk
// It sets the status on the given fragments of one owner, optionally
// clearing their next due time. Fragments that do not exist or belong to
// another owner are skipped.
// Returns the number of fragments actually updated.
func (s *PostgresFragmentStore) UpdateStatusBulk(
	ctx context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
	status domain.FragmentStatus,
	clearNextDue bool,
) (int64, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return 0, nil
	}

	if !status.IsValid() {
		log.Warn("invalid status for bulk update", slog.String("status", string(status)))
		return 0, domain.ErrInvalidFragmentStatus
	}

	setClause := "status = $1"
	if clearNextDue {
		setClause += ", next_due_at = NULL"
	}

	args := make([]any, 0, len(ids)+2)
	args = append(args, string(status), ownerID)
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		UPDATE memory_fragments
		SET %s
		WHERE owner_id = $2 AND id IN (%s)
	`, setClause, strings.Join(placeholders, ", "))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to bulk update fragment status",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()),
			slog.String("status", string(status)))
		return 0, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return 0, err
	}

	log.Info("fragment status updated in bulk",
		slog.String("owner_id", ownerID.String()),
		slog.String("status", string(status)),
		slog.Int("requested", len(ids)),
		slog.Int64("updated", rowsAffected))
	return rowsAffected, nil
}

// ListByLangPair implements store.FragmentStore.ListByLangPair
// It retrieves all of an owner's fragments in one language pair, newest
// first. A limit of 0 means no limit.
// Returns an empty slice if no fragments match.
func (s *PostgresFragmentStore) ListByLangPair(
	ctx context.Context,
	ownerID uuid.UUID,
	sourceLang, targetLang string,
	limit int,
) ([]*domain.MemoryFragment, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("listing fragments by language pair",
		slog.String("owner_id", ownerID.String()),
		slog.String("source_lang", sourceLang),
		slog.String("target_lang", targetLang),
		slog.Int("limit", limit))

	query := `
		SELECT ` + fragmentColumns + `
		FROM memory_fragments
		WHERE owner_id = $1 AND source_lang = $2 AND target_lang = $3
		ORDER BY created_at DESC
	`
	args := []any{ownerID, sourceLang, targetLang}
	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}

	return s.queryFragments(ctx, log, query, args...)
}

// ListActive implements store.FragmentStore.ListActive
// It retrieves an owner's fragments whose status still schedules review
// (fresh, learning, forgotten), most overdue first. A limit of 0 means no
// limit.
// Returns an empty slice if no fragments match.
func (s *PostgresFragmentStore) ListActive(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.MemoryFragment, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("listing active fragments",
		slog.String("owner_id", ownerID.String()),
		slog.Int("limit", limit))

	query := `
		SELECT ` + fragmentColumns + `
		FROM memory_fragments
		WHERE owner_id = $1 AND status IN ($2, $3, $4)
		ORDER BY next_due_at ASC NULLS LAST, created_at ASC
	`
	args := []any{
		ownerID,
		string(domain.FragmentStatusFresh),
		string(domain.FragmentStatusLearning),
		string(domain.FragmentStatusForgotten),
	}
	if limit > 0 {
		query += " LIMIT $5"
		args = append(args, limit)
	}

	return s.queryFragments(ctx, log, query, args...)
}

// ListStaleCandidates implements store.FragmentStore.ListStaleCandidates
// It retrieves fragments across all owners that are in one of the given
// statuses and were created before the cutoff. The caller applies the
// retention filter. A limit of 0 means no limit.
// Returns an empty slice if no fragments match.
func (s *PostgresFragmentStore) ListStaleCandidates(
	ctx context.Context,
	statuses []domain.FragmentStatus,
	createdBefore time.Time,
	limit int,
) ([]*domain.MemoryFragment, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(statuses) == 0 {
		return []*domain.MemoryFragment{}, nil
	}

	log.Debug("listing stale fragment candidates",
		slog.Time("created_before", createdBefore),
		slog.Int("limit", limit))

	args := make([]any, 0, len(statuses)+1)
	args = append(args, createdBefore)
	placeholders := make([]string, len(statuses))
	for i, status := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, string(status))
	}

	query := fmt.Sprintf(`
		SELECT `+fragmentColumns+`
		FROM memory_fragments
		WHERE created_at < $1 AND status IN (%s)
		ORDER BY created_at ASC
	`, strings.Join(placeholders, ", "))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	return s.queryFragments(ctx, log, query, args...)
}

// DeleteStaleByIDs implements store.FragmentStore.DeleteStaleByIDs
// It removes the given fragments while they are still in one of the given
// statuses. The status predicate keeps the sweep from deleting fragments
// promoted between the candidate listing and the delete; IDs that no longer
// exist or have changed status are skipped.
// Returns the number of fragments actually deleted.
func (s *PostgresFragmentStore) DeleteStaleByIDs(
	ctx context.Context,
	ids []uuid.UUID,
	statuses []domain.FragmentStatus,
) (int64, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 || len(statuses) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(ids)+len(statuses))
	idPlaceholders := make([]string, len(ids))
	for i, id := range ids {
		idPlaceholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	statusPlaceholders := make([]string, len(statuses))
	for i, status := range statuses {
		statusPlaceholders[i] = fmt.Sprintf("$%d", len(ids)+i+1)
		args = append(args, string(status))
	}

	query := fmt.Sprintf(
		`DELETE FROM memory_fragments WHERE id IN (%s) AND status IN (%s)`,
		strings.Join(idPlaceholders, ", "),
		strings.Join(statusPlaceholders, ", "),
	)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to delete fragments",
			slog.String("error", err.Error()),
			slog.Int("requested", len(ids)))
		return 0, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected", slog.String("error", err.Error()))
		return 0, err
	}

	log.Info("fragments deleted",
		slog.Int("requested", len(ids)),
		slog.Int64("deleted", rowsAffected))
	return rowsAffected, nil
}

// WithTx implements store.FragmentStore.WithTx
// It returns a fragment store bound to the given transaction, for use
// inside store.RunInTransaction.
func (s *PostgresFragmentStore) WithTx(tx *sql.Tx) store.FragmentStore {
	return &PostgresFragmentStore{
		db:     tx,
		logger: s.logger,
	}
}

// queryFragments runs a SELECT over memory_fragments and scans every row.
func (s *PostgresFragmentStore) queryFragments(
	ctx context.Context,
	log *slog.Logger,
	query string,
	args ...any,
) ([]*domain.MemoryFragment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query fragments", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var fragments []*domain.MemoryFragment
	for rows.Next() {
		fragment, err := scanFragment(rows)
		if err != nil {
			log.Error("failed to scan fragment row",
				slog.String("error", err.Error()))
			return nil, err
		}
		fragments = append(fragments, fragment)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	// Return empty slice instead of nil if no fragments found
	if fragments == nil {
		fragments = []*domain.MemoryFragment{}
	}

	return fragments, nil
}

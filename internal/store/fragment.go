package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fennwick/glossa-api/internal/domain"
)

// FragmentStore defines the interface for memory fragment persistence.
//
// All read methods return copies: callers own the returned fragments and can
// mutate them freely without reaching into stored state. Writes go through
// explicit calls; no component holds a live reference it can mutate outside
// the store's API.
type FragmentStore interface {
	// Create saves a new fragment to the store.
	// Returns ErrFragmentExists if a fragment with the same identity tuple
	// already exists for the owner; callers implementing idempotent
	// re-exposure should then re-read by identity and touch the winner.
	// Returns validation errors wrapped in ErrInvalidEntity if the fragment
	// data is invalid.
	Create(ctx context.Context, fragment *domain.MemoryFragment) error

	// GetByID retrieves a fragment by owner and fragment ID.
	// Returns ErrFragmentNotFound if it does not exist or belongs to a
	// different owner.
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.MemoryFragment, error)

	// GetByIdentity retrieves a fragment by its identity tuple.
	// Returns ErrFragmentNotFound if no fragment matches.
	GetByIdentity(ctx context.Context, identity domain.FragmentIdentity) (*domain.MemoryFragment, error)

	// Touch records a re-exposure: bumps the fragment's access count and
	// sets its last-accessed time. Returns ErrFragmentNotFound if the
	// fragment does not exist.
	Touch(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error

	// Update persists the fragment's mutable state (status, retention
	// record, tags, access bookkeeping). The identity tuple and creation
	// time are immutable and never written.
	// Returns ErrFragmentNotFound if the fragment does not exist.
	Update(ctx context.Context, fragment *domain.MemoryFragment) error

	// UpdateStatusBulk sets the status on the given fragments of one owner,
	// optionally clearing their next due time (mastering clears it; nothing
	// remains scheduled for a mastered fragment). Fragments that do not
	// exist or belong to another owner are skipped. Returns the number of
	// fragments actually updated.
	UpdateStatusBulk(
		ctx context.Context,
		ownerID uuid.UUID,
		ids []uuid.UUID,
		status domain.FragmentStatus,
		clearNextDue bool,
	) (int64, error)

	// ListByLangPair retrieves all of an owner's fragments in one language
	// pair, for fuzzy matching against OCR output. A limit of 0 means no
	// limit.
	ListByLangPair(
		ctx context.Context,
		ownerID uuid.UUID,
		sourceLang, targetLang string,
		limit int,
	) ([]*domain.MemoryFragment, error)

	// ListActive retrieves an owner's fragments whose status still
	// schedules review (fresh, learning, forgotten), ordered by next due
	// time ascending with unscheduled fragments last. A limit of 0 means no
	// limit. Retention math stays out of the store; callers compute decay
	// over the returned records.
	ListActive(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.MemoryFragment, error)

	// ListStaleCandidates retrieves fragments across all owners that are in
	// one of the given statuses and were created before the cutoff. Used by
	// the purge sweep; the caller applies the retention filter. A limit of
	// 0 means no limit.
	ListStaleCandidates(
		ctx context.Context,
		statuses []domain.FragmentStatus,
		createdBefore time.Time,
		limit int,
	) ([]*domain.MemoryFragment, error)

	// DeleteStaleByIDs removes the given fragments, but only those still in
	// one of the given statuses. The status guard protects against the purge
	// sweep racing a promotion: a fragment mastered or excluded after being
	// listed as a candidate must survive the delete. IDs that no longer
	// exist or have moved out of the status set are skipped, not errors.
	// Returns the number of fragments actually deleted.
	DeleteStaleByIDs(
		ctx context.Context,
		ids []uuid.UUID,
		statuses []domain.FragmentStatus,
	) (int64, error)

	// WithTx returns a FragmentStore bound to the provided transaction so
	// multiple operations can commit atomically. The transaction is created
	// and managed by the caller, typically via store.RunInTransaction.
	WithTx(tx *sql.Tx) FragmentStore
}

package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/domain/retention"
)

// Common error types for MemoryService
var (
	// ErrFragmentNotFound indicates that the fragment does not exist or
	// belongs to a different owner.
	ErrFragmentNotFound = errors.New("memory fragment not found")

	// ErrTerminalStatus indicates an operation on a fragment whose status
	// is terminal (mastered or excluded). Terminal fragments reject
	// reinforcement; their state is frozen.
	ErrTerminalStatus = errors.New("fragment status is terminal")
)

// CheckResult is the outcome of a memory check for one identity tuple.
type CheckResult struct {
	// Exists reports whether an exact identity match was found.
	Exists bool

	// ShouldTranslate reports whether the caller needs a fresh translation.
	// False means the owner still remembers this text (or has mastered or
	// excluded it) and the cached translation suffices.
	ShouldTranslate bool

	// CachedTranslation carries the stored translation whenever
	// ShouldTranslate is false.
	CachedTranslation string

	// Retention is the computed probability that the fragment is still
	// remembered at check time. Zero when no exact match exists.
	Retention float64

	// Fragment is the exact match, nil when Exists is false.
	Fragment *domain.MemoryFragment

	// Suggestions lists near-duplicate fragments in the same language pair
	// when no exact match exists. Near-duplicates are surfaced, never
	// merged; merge policy belongs to the caller.
	Suggestions []Suggestion
}

// Suggestion is a fuzzy-matched fragment candidate.
type Suggestion struct {
	Fragment   *domain.MemoryFragment
	Similarity float64
}

// ReviewItem pairs a due fragment with its computed retention probability.
type ReviewItem struct {
	Fragment  *domain.MemoryFragment
	Retention float64
}

// MemoryService provides all fragment memory operations.
type MemoryService interface {
	// CreateOrTouch resolves an identity tuple to exactly one fragment.
	// If a matching fragment exists, its access count and last-accessed
	// time are bumped and it is otherwise returned unchanged (the supplied
	// translation is ignored; the stored one stands). Otherwise a new
	// Fresh fragment is created with a full-strength retention record,
	// the given difficulty (nil means the calibration midpoint, 3), and
	// its first review scheduled one base interval out.
	//
	// The boolean reports whether a new fragment was created. Creation
	// races resolve to the winner: a duplicate conflict triggers one
	// re-read and touch, never a second record.
	CreateOrTouch(
		ctx context.Context,
		identity domain.FragmentIdentity,
		translatedText string,
		tags []string,
		difficulty *float64,
	) (*domain.MemoryFragment, bool, error)

	// CheckMemory decides whether a fresh translation is needed for the
	// identity tuple. It is a pure read and never mutates state.
	//
	// An exact match in a terminal status (mastered, excluded) always
	// gates: ShouldTranslate is false regardless of elapsed time.
	// Otherwise the stored retention record decides: a fragment still
	// above the remembered threshold gates with its cached translation,
	// one below it requests a fresh translation. With no exact match,
	// same-language-pair fragments are fuzzy-matched by token-set overlap
	// and returned as suggestions.
	CheckMemory(ctx context.Context, identity domain.FragmentIdentity) (*CheckResult, error)

	// RecordReinforcement applies one review or re-exposure outcome to a
	// fragment: strength update, difficulty adjustment, counter
	// increments, and the next due time, per the retention model. A
	// successful reinforcement that lifts strength above the promotion
	// bound moves the fragment to Learning; a failure that drops it below
	// the demotion bound moves it to Forgotten.
	//
	// Returns ErrFragmentNotFound for unknown fragments and
	// ErrTerminalStatus for mastered or excluded ones.
	RecordReinforcement(
		ctx context.Context,
		ownerID, fragmentID uuid.UUID,
		reinforcement retention.Reinforcement,
	) (*domain.MemoryFragment, error)

	// SetExcluded marks the given fragments excluded: never translated
	// afresh again, never purged, review schedule left in place. Unknown
	// and foreign IDs are skipped. Returns the number updated.
	SetExcluded(ctx context.Context, ownerID uuid.UUID, fragmentIDs []uuid.UUID) (int64, error)

	// SetMastered marks the given fragments mastered and clears their
	// next due time; nothing further is scheduled for a mastered
	// fragment. Unknown and foreign IDs are skipped. Returns the number
	// updated.
	SetMastered(ctx context.Context, ownerID uuid.UUID, fragmentIDs []uuid.UUID) (int64, error)

	// ItemsDueForReview lists an owner's fragments that need review now:
	// computed retention below the remembered threshold, or a next due
	// time at or before now. Terminal fragments are never listed. Ordered
	// most overdue first; limit 0 means no limit.
	ItemsDueForReview(ctx context.Context, ownerID uuid.UUID, limit int) ([]ReviewItem, error)

	// PurgeStale deletes fragments that are Fresh or Forgotten, older
	// than the purge horizon, and decayed below the purge retention
	// floor. Learning, Mastered and Excluded fragments are never purged.
	// Returns the number deleted. Safe to run concurrently with ordinary
	// traffic.
	PurgeStale(ctx context.Context) (int64, error)
}

// ServiceError wraps errors from the memory service with operation context.
// Consumers differentiate error classes with errors.Is/errors.As instead of
// string matching.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("memory service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("memory service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

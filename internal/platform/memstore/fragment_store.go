// Package memstore provides an in-memory implementation of the fragment
// store. It backs local development without PostgreSQL and keeps service
// tests free of database infrastructure. All data is lost on restart.
package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/store"
	"github.com/google/uuid"
)

// identityKey indexes fragments by their dedup key.
type identityKey struct {
	ownerID    uuid.UUID
	sourceText string
	sourceLang string
	targetLang string
}

func keyOf(identity domain.FragmentIdentity) identityKey {
	return identityKey{
		ownerID:    identity.OwnerID,
		sourceText: identity.SourceText,
		sourceLang: identity.SourceLang,
		targetLang: identity.TargetLang,
	}
}

// FragmentStore is a thread-safe, map-backed store.FragmentStore.
// Fragments are deep-copied on the way in and out, so callers can never
// alias store internals.
type FragmentStore struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*domain.MemoryFragment
	byIdentity map[identityKey]uuid.UUID
}

// NewFragmentStore creates an empty in-memory fragment store.
func NewFragmentStore() *FragmentStore {
	return &FragmentStore{
		byID:       make(map[uuid.UUID]*domain.MemoryFragment),
		byIdentity: make(map[identityKey]uuid.UUID),
	}
}

// Ensure FragmentStore implements store.FragmentStore interface
var _ store.FragmentStore = (*FragmentStore)(nil)

// Create stores a new fragment.
// Returns store.ErrFragmentExists if a fragment with the same identity
// already exists, and store.ErrDuplicate if the ID itself is taken.
func (s *FragmentStore) Create(ctx context.Context, fragment *domain.MemoryFragment) error {
	if err := fragment.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[fragment.ID]; ok {
		return fmt.Errorf("%w: fragment ID %s", store.ErrDuplicate, fragment.ID)
	}
	key := keyOf(fragment.Identity())
	if _, ok := s.byIdentity[key]; ok {
		return store.ErrFragmentExists
	}

	s.byID[fragment.ID] = fragment.Clone()
	s.byIdentity[key] = fragment.ID
	return nil
}

// GetByID retrieves a fragment by owner and ID.
// Returns store.ErrFragmentNotFound if the fragment does not exist.
func (s *FragmentStore) GetByID(
	ctx context.Context,
	ownerID, id uuid.UUID,
) (*domain.MemoryFragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fragment, ok := s.byID[id]
	if !ok || fragment.OwnerID != ownerID {
		return nil, store.ErrFragmentNotFound
	}
	return fragment.Clone(), nil
}

// GetByIdentity retrieves a fragment by its dedup key.
// Returns store.ErrFragmentNotFound if no fragment matches.
func (s *FragmentStore) GetByIdentity(
	ctx context.Context,
	identity domain.FragmentIdentity,
) (*domain.MemoryFragment, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byIdentity[keyOf(identity)]
	if !ok {
		return nil, store.ErrFragmentNotFound
	}
	return s.byID[id].Clone(), nil
}

// Touch increments the fragment's access count and refreshes its last
// accessed time without altering retention state.
// Returns store.ErrFragmentNotFound if the fragment does not exist.
func (s *FragmentStore) Touch(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fragment, ok := s.byID[id]
	if !ok || fragment.OwnerID != ownerID {
		return store.ErrFragmentNotFound
	}

	fragment.AccessCount++
	fragment.LastAccessedAt = at
	return nil
}

// Update replaces a fragment's mutable fields. Identity fields, initial
// strength, and creation time keep their stored values.
// Returns store.ErrFragmentNotFound if the fragment does not exist.
func (s *FragmentStore) Update(ctx context.Context, fragment *domain.MemoryFragment) error {
	if err := fragment.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[fragment.ID]
	if !ok || current.OwnerID != fragment.OwnerID {
		return store.ErrFragmentNotFound
	}

	updated := fragment.Clone()
	updated.OwnerID = current.OwnerID
	updated.SourceText = current.SourceText
	updated.SourceLang = current.SourceLang
	updated.TargetLang = current.TargetLang
	updated.CreatedAt = current.CreatedAt
	updated.Retention.InitialStrength = current.Retention.InitialStrength

	s.byID[fragment.ID] = updated
	return nil
}

// UpdateStatusBulk sets the status on the given fragments of one owner,
// optionally clearing their next due time. Unknown or foreign IDs are
// skipped. Returns the number of fragments actually updated.
func (s *FragmentStore) UpdateStatusBulk(
	ctx context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
	status domain.FragmentStatus,
	clearNextDue bool,
) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if !status.IsValid() {
		return 0, domain.ErrInvalidFragmentStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for _, id := range ids {
		fragment, ok := s.byID[id]
		if !ok || fragment.OwnerID != ownerID {
			continue
		}
		fragment.Status = status
		if clearNextDue {
			fragment.Retention.NextDueAt = nil
		}
		updated++
	}
	return updated, nil
}

// ListByLangPair retrieves all of an owner's fragments in one language
// pair, newest first. A limit of 0 means no limit.
func (s *FragmentStore) ListByLangPair(
	ctx context.Context,
	ownerID uuid.UUID,
	sourceLang, targetLang string,
	limit int,
) ([]*domain.MemoryFragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fragments := s.collect(func(f *domain.MemoryFragment) bool {
		return f.OwnerID == ownerID && f.SourceLang == sourceLang && f.TargetLang == targetLang
	})

	sort.Slice(fragments, func(i, j int) bool {
		return fragments[i].CreatedAt.After(fragments[j].CreatedAt)
	})

	return truncate(fragments, limit), nil
}

// ListActive retrieves an owner's fragments whose status still schedules
// review (fresh, learning, forgotten), most overdue first with unscheduled
// fragments last. A limit of 0 means no limit.
func (s *FragmentStore) ListActive(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.MemoryFragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fragments := s.collect(func(f *domain.MemoryFragment) bool {
		return f.OwnerID == ownerID && !f.Status.IsTerminal()
	})

	sort.Slice(fragments, func(i, j int) bool {
		a, b := fragments[i].Retention.NextDueAt, fragments[j].Retention.NextDueAt
		switch {
		case a == nil && b == nil:
			return fragments[i].CreatedAt.Before(fragments[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return fragments[i].CreatedAt.Before(fragments[j].CreatedAt)
		default:
			return a.Before(*b)
		}
	})

	return truncate(fragments, limit), nil
}

// ListStaleCandidates retrieves fragments across all owners that are in
// one of the given statuses and were created before the cutoff, oldest
// first. A limit of 0 means no limit.
func (s *FragmentStore) ListStaleCandidates(
	ctx context.Context,
	statuses []domain.FragmentStatus,
	createdBefore time.Time,
	limit int,
) ([]*domain.MemoryFragment, error) {
	if len(statuses) == 0 {
		return []*domain.MemoryFragment{}, nil
	}

	wanted := make(map[domain.FragmentStatus]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fragments := s.collect(func(f *domain.MemoryFragment) bool {
		return wanted[f.Status] && f.CreatedAt.Before(createdBefore)
	})

	sort.Slice(fragments, func(i, j int) bool {
		return fragments[i].CreatedAt.Before(fragments[j].CreatedAt)
	})

	return truncate(fragments, limit), nil
}

// DeleteStaleByIDs removes the given fragments while they are still in one
// of the given statuses. Unknown IDs and fragments that have since moved to
// another status are skipped.
// Returns the number of fragments actually deleted.
func (s *FragmentStore) DeleteStaleByIDs(
	ctx context.Context,
	ids []uuid.UUID,
	statuses []domain.FragmentStatus,
) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	deletable := make(map[domain.FragmentStatus]bool, len(statuses))
	for _, status := range statuses {
		deletable[status] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		fragment, ok := s.byID[id]
		if !ok || !deletable[fragment.Status] {
			continue
		}
		delete(s.byID, id)
		delete(s.byIdentity, keyOf(fragment.Identity()))
		deleted++
	}
	return deleted, nil
}

// WithTx satisfies store.FragmentStore. The in-memory store has no
// transactions; every operation is already atomic under the mutex, so the
// store returns itself.
func (s *FragmentStore) WithTx(tx *sql.Tx) store.FragmentStore {
	return s
}

// Len reports the number of stored fragments.
func (s *FragmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// collect returns deep copies of every fragment matching the predicate.
// Callers must hold at least a read lock.
func (s *FragmentStore) collect(match func(*domain.MemoryFragment) bool) []*domain.MemoryFragment {
	var fragments []*domain.MemoryFragment
	for _, fragment := range s.byID {
		if match(fragment) {
			fragments = append(fragments, fragment.Clone())
		}
	}
	if fragments == nil {
		fragments = []*domain.MemoryFragment{}
	}
	return fragments
}

func truncate(
	fragments []*domain.MemoryFragment,
	limit int,
) []*domain.MemoryFragment {
	if limit > 0 && len(fragments) > limit {
		return fragments[:limit]
	}
	return fragments
}

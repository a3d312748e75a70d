package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFragment(t *testing.T, ownerID uuid.UUID, sourceText string) *domain.MemoryFragment {
	t.Helper()

	now := time.Now().UTC()
	fragment, err := domain.NewMemoryFragment(
		domain.FragmentIdentity{
			OwnerID:    ownerID,
			SourceText: sourceText,
			SourceLang: "es",
			TargetLang: "en",
		},
		"translated "+sourceText,
		nil,
		domain.RetentionRecord{
			InitialStrength:  0.5,
			CurrentStrength:  0.5,
			DifficultyLevel:  3,
			LastReinforcedAt: now,
		},
		now,
	)
	require.NoError(t, err)
	return fragment
}

func TestFragmentStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()

	fragment := newTestFragment(t, ownerID, "puerta")
	require.NoError(t, s.Create(ctx, fragment))
	assert.Equal(t, 1, s.Len())

	got, err := s.GetByID(ctx, ownerID, fragment.ID)
	require.NoError(t, err)
	assert.Equal(t, fragment.ID, got.ID)
	assert.Equal(t, "puerta", got.SourceText)

	byIdentity, err := s.GetByIdentity(ctx, fragment.Identity())
	require.NoError(t, err)
	assert.Equal(t, fragment.ID, byIdentity.ID)

	_, err = s.GetByID(ctx, ownerID, uuid.New())
	assert.ErrorIs(t, err, store.ErrFragmentNotFound)

	_, err = s.GetByID(ctx, uuid.New(), fragment.ID)
	assert.ErrorIs(t, err, store.ErrFragmentNotFound, "Lookups are owner-scoped")
}

func TestFragmentStore_DuplicateIdentity(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()

	fragment := newTestFragment(t, ownerID, "puerta")
	require.NoError(t, s.Create(ctx, fragment))

	dup := newTestFragment(t, ownerID, "puerta")
	err := s.Create(ctx, dup)
	assert.ErrorIs(t, err, store.ErrFragmentExists)
	assert.True(t, store.IsDuplicateError(err))

	// Same text for another owner is a distinct identity.
	other := newTestFragment(t, uuid.New(), "puerta")
	assert.NoError(t, s.Create(ctx, other))
}

func TestFragmentStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()

	fragment := newTestFragment(t, ownerID, "puerta")
	fragment.Tags = []string{"signage"}
	require.NoError(t, s.Create(ctx, fragment))

	// Mutating the original after Create must not affect the store.
	fragment.TranslatedText = "mutated"
	fragment.Tags[0] = "mutated"

	got, err := s.GetByID(ctx, ownerID, fragment.ID)
	require.NoError(t, err)
	assert.Equal(t, "translated puerta", got.TranslatedText)
	assert.Equal(t, []string{"signage"}, got.Tags)

	// Mutating a returned fragment must not affect later reads.
	got.Status = domain.FragmentStatusExcluded
	got.Tags[0] = "mutated"

	again, err := s.GetByID(ctx, ownerID, fragment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FragmentStatusFresh, again.Status)
	assert.Equal(t, []string{"signage"}, again.Tags)
}

func TestFragmentStore_Touch(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()

	fragment := newTestFragment(t, ownerID, "puerta")
	require.NoError(t, s.Create(ctx, fragment))

	at := time.Now().UTC().Add(time.Minute)
	require.NoError(t, s.Touch(ctx, ownerID, fragment.ID, at))

	got, err := s.GetByID(ctx, ownerID, fragment.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	assert.Equal(t, at, got.LastAccessedAt)
	assert.Equal(t, 0, got.Retention.ReinforceCount, "Touch leaves retention state alone")

	err = s.Touch(ctx, ownerID, uuid.New(), at)
	assert.ErrorIs(t, err, store.ErrFragmentNotFound)
}

func TestFragmentStore_UpdatePreservesImmutableFields(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()

	fragment := newTestFragment(t, ownerID, "puerta")
	require.NoError(t, s.Create(ctx, fragment))

	updated := fragment.Clone()
	updated.Status = domain.FragmentStatusLearning
	updated.TranslatedText = "doorway"
	updated.Retention.CurrentStrength = 0.8
	updated.Retention.InitialStrength = 0.9 // must not stick
	updated.CreatedAt = time.Now().UTC().Add(time.Hour)

	require.NoError(t, s.Update(ctx, updated))

	got, err := s.GetByID(ctx, ownerID, fragment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FragmentStatusLearning, got.Status)
	assert.Equal(t, "doorway", got.TranslatedText)
	assert.Equal(t, 0.8, got.Retention.CurrentStrength)
	assert.Equal(t, 0.5, got.Retention.InitialStrength, "Initial strength is immutable")
	assert.Equal(t, fragment.CreatedAt, got.CreatedAt, "Creation time is immutable")

	missing := newTestFragment(t, ownerID, "ventana")
	assert.ErrorIs(t, s.Update(ctx, missing), store.ErrFragmentNotFound)
}

func TestFragmentStore_UpdateStatusBulk(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()

	first := newTestFragment(t, ownerID, "puerta")
	due := time.Now().UTC().Add(time.Hour)
	first.Retention.NextDueAt = &due
	second := newTestFragment(t, ownerID, "ventana")
	foreign := newTestFragment(t, uuid.New(), "calle")

	require.NoError(t, s.Create(ctx, first))
	require.NoError(t, s.Create(ctx, second))
	require.NoError(t, s.Create(ctx, foreign))

	updated, err := s.UpdateStatusBulk(
		ctx,
		ownerID,
		[]uuid.UUID{first.ID, second.ID, foreign.ID, uuid.New()},
		domain.FragmentStatusMastered,
		true,
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	got, err := s.GetByID(ctx, ownerID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FragmentStatusMastered, got.Status)
	assert.Nil(t, got.Retention.NextDueAt, "Mastering clears the due date")

	untouched, err := s.GetByID(ctx, foreign.OwnerID, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FragmentStatusFresh, untouched.Status)

	_, err = s.UpdateStatusBulk(ctx, ownerID, []uuid.UUID{first.ID}, "archived", false)
	assert.ErrorIs(t, err, domain.ErrInvalidFragmentStatus)
}

func TestFragmentStore_ListActiveOrdering(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()
	now := time.Now().UTC()

	overdue := newTestFragment(t, ownerID, "puerta")
	overdueAt := now.Add(-2 * time.Hour)
	overdue.Retention.NextDueAt = &overdueAt

	upcoming := newTestFragment(t, ownerID, "ventana")
	upcomingAt := now.Add(4 * time.Hour)
	upcoming.Retention.NextDueAt = &upcomingAt

	unscheduled := newTestFragment(t, ownerID, "calle")

	mastered := newTestFragment(t, ownerID, "plaza")
	mastered.Status = domain.FragmentStatusMastered

	for _, f := range []*domain.MemoryFragment{upcoming, mastered, unscheduled, overdue} {
		require.NoError(t, s.Create(ctx, f))
	}

	got, err := s.ListActive(ctx, ownerID, 0)
	require.NoError(t, err)
	require.Len(t, got, 3, "Mastered fragments are not active")
	assert.Equal(t, overdue.ID, got[0].ID)
	assert.Equal(t, upcoming.ID, got[1].ID)
	assert.Equal(t, unscheduled.ID, got[2].ID, "Fragments without a due date sort last")

	limited, err := s.ListActive(ctx, ownerID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, overdue.ID, limited[0].ID)
}

func TestFragmentStore_ListByLangPair(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()

	spanish := newTestFragment(t, ownerID, "puerta")
	german := newTestFragment(t, ownerID, "tür")
	german.SourceLang = "de"

	require.NoError(t, s.Create(ctx, spanish))
	require.NoError(t, s.Create(ctx, german))

	got, err := s.ListByLangPair(ctx, ownerID, "es", "en", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, spanish.ID, got[0].ID)

	empty, err := s.ListByLangPair(ctx, ownerID, "fr", "en", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFragmentStore_StaleCandidatesAndDelete(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()
	now := time.Now().UTC()

	old := newTestFragment(t, ownerID, "puerta")
	old.CreatedAt = now.Add(-40 * 24 * time.Hour)
	recent := newTestFragment(t, ownerID, "ventana")
	oldLearning := newTestFragment(t, ownerID, "calle")
	oldLearning.CreatedAt = now.Add(-40 * 24 * time.Hour)
	oldLearning.Status = domain.FragmentStatusLearning

	for _, f := range []*domain.MemoryFragment{old, recent, oldLearning} {
		require.NoError(t, s.Create(ctx, f))
	}

	cutoff := now.Add(-30 * 24 * time.Hour)
	got, err := s.ListStaleCandidates(
		ctx,
		[]domain.FragmentStatus{domain.FragmentStatusFresh, domain.FragmentStatusForgotten},
		cutoff,
		0,
	)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, old.ID, got[0].ID)

	purgeable := []domain.FragmentStatus{domain.FragmentStatusFresh, domain.FragmentStatusForgotten}
	deleted, err := s.DeleteStaleByIDs(ctx, []uuid.UUID{old.ID, uuid.New()}, purgeable)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 2, s.Len())

	// Deleting also frees the identity for re-creation.
	again := newTestFragment(t, ownerID, "puerta")
	assert.NoError(t, s.Create(ctx, again))
}

func TestFragmentStore_DeleteStaleByIDsSkipsPromoted(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()

	stale := newTestFragment(t, ownerID, "puerta")
	promoted := newTestFragment(t, ownerID, "ventana")
	require.NoError(t, s.Create(ctx, stale))
	require.NoError(t, s.Create(ctx, promoted))

	// Promotion between listing and delete: the mastered fragment must
	// survive even though its ID is in the delete set.
	_, err := s.UpdateStatusBulk(
		ctx, ownerID, []uuid.UUID{promoted.ID}, domain.FragmentStatusMastered, true)
	require.NoError(t, err)

	purgeable := []domain.FragmentStatus{domain.FragmentStatusFresh, domain.FragmentStatusForgotten}
	deleted, err := s.DeleteStaleByIDs(ctx, []uuid.UUID{stale.ID, promoted.ID}, purgeable)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	survivor, err := s.GetByID(ctx, ownerID, promoted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FragmentStatusMastered, survivor.Status)

	// An empty status set deletes nothing.
	none, err := s.DeleteStaleByIDs(ctx, []uuid.UUID{promoted.ID}, nil)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestFragmentStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := NewFragmentStore()
	ctx := context.Background()
	ownerID := uuid.New()

	const writers = 8
	const perWriter = 20

	batches := make([][]*domain.MemoryFragment, writers)
	for w := 0; w < writers; w++ {
		batches[w] = make([]*domain.MemoryFragment, perWriter)
		for i := 0; i < perWriter; i++ {
			batches[w][i] = newTestFragment(t, ownerID, fmt.Sprintf("text-%d-%d", w, i))
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(batch []*domain.MemoryFragment) {
			defer wg.Done()
			for _, fragment := range batch {
				if err := s.Create(ctx, fragment); err != nil {
					t.Errorf("create failed: %v", err)
					return
				}
				if err := s.Touch(ctx, ownerID, fragment.ID, time.Now().UTC()); err != nil {
					t.Errorf("touch failed: %v", err)
					return
				}
				if _, err := s.ListActive(ctx, ownerID, 10); err != nil {
					t.Errorf("list failed: %v", err)
					return
				}
			}
		}(batches[w])
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, s.Len())
}

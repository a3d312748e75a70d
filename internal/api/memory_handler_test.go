package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/domain/retention"
	"github.com/fennwick/glossa-api/internal/memory"
)

// mockMemoryService is a function-field mock of memory.MemoryService.
type mockMemoryService struct {
	createOrTouchFn       func(ctx context.Context, identity domain.FragmentIdentity, translatedText string, tags []string, difficulty *float64) (*domain.MemoryFragment, bool, error)
	checkMemoryFn         func(ctx context.Context, identity domain.FragmentIdentity) (*memory.CheckResult, error)
	recordReinforcementFn func(ctx context.Context, ownerID, fragmentID uuid.UUID, reinforcement retention.Reinforcement) (*domain.MemoryFragment, error)
	setExcludedFn         func(ctx context.Context, ownerID uuid.UUID, fragmentIDs []uuid.UUID) (int64, error)
	setMasteredFn         func(ctx context.Context, ownerID uuid.UUID, fragmentIDs []uuid.UUID) (int64, error)
	itemsDueForReviewFn   func(ctx context.Context, ownerID uuid.UUID, limit int) ([]memory.ReviewItem, error)
	purgeStaleFn          func(ctx context.Context) (int64, error)
}

var _ memory.MemoryService = (*mockMemoryService)(nil)

func (m *mockMemoryService) CreateOrTouch(
	ctx context.Context,
	identity domain.FragmentIdentity,
	translatedText string,
	tags []string,
	difficulty *float64,
) (*domain.MemoryFragment, bool, error) {
	return m.createOrTouchFn(ctx, identity, translatedText, tags, difficulty)
}

func (m *mockMemoryService) CheckMemory(
	ctx context.Context,
	identity domain.FragmentIdentity,
) (*memory.CheckResult, error) {
	return m.checkMemoryFn(ctx, identity)
}

func (m *mockMemoryService) RecordReinforcement(
	ctx context.Context,
	ownerID, fragmentID uuid.UUID,
	reinforcement retention.Reinforcement,
) (*domain.MemoryFragment, error) {
	return m.recordReinforcementFn(ctx, ownerID, fragmentID, reinforcement)
}

func (m *mockMemoryService) SetExcluded(
	ctx context.Context,
	ownerID uuid.UUID,
	fragmentIDs []uuid.UUID,
) (int64, error) {
	return m.setExcludedFn(ctx, ownerID, fragmentIDs)
}

func (m *mockMemoryService) SetMastered(
	ctx context.Context,
	ownerID uuid.UUID,
	fragmentIDs []uuid.UUID,
) (int64, error) {
	return m.setMasteredFn(ctx, ownerID, fragmentIDs)
}

func (m *mockMemoryService) ItemsDueForReview(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]memory.ReviewItem, error) {
	return m.itemsDueForReviewFn(ctx, ownerID, limit)
}

func (m *mockMemoryService) PurgeStale(ctx context.Context) (int64, error) {
	return m.purgeStaleFn(ctx)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMemoryRouter mounts the handler on the routes it serves in production so
// chi URL parameters resolve the same way.
func newMemoryRouter(handler *MemoryHandler) *chi.Mux {
	router := chi.NewRouter()
	router.Route("/owners/{ownerID}", func(r chi.Router) {
		r.Post("/memory/check", handler.CheckMemory)
		r.Post("/fragments", handler.CreateFragment)
		r.Get("/reviews/due", handler.DueForReview)
		r.Post("/fragments/exclude", handler.Exclude)
		r.Post("/fragments/master", handler.Master)
		r.Post("/fragments/{id}/reinforce", handler.Reinforce)
	})
	return router
}

func testFragment(t *testing.T, ownerID uuid.UUID) *domain.MemoryFragment {
	t.Helper()

	now := time.Now().UTC()
	fragment, err := domain.NewMemoryFragment(
		domain.FragmentIdentity{
			OwnerID:    ownerID,
			SourceText: "bonjour",
			SourceLang: "fr",
			TargetLang: "en",
		},
		"hello",
		nil,
		domain.RetentionRecord{
			InitialStrength:  1.0,
			CurrentStrength:  1.0,
			DifficultyLevel:  3,
			LastReinforcedAt: now,
		},
		now,
	)
	require.NoError(t, err)
	return fragment
}

func TestCheckMemoryHandler(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	t.Run("cache hit gates translation", func(t *testing.T) {
		t.Parallel()

		fragment := testFragment(t, ownerID)
		service := &mockMemoryService{
			checkMemoryFn: func(ctx context.Context, identity domain.FragmentIdentity) (*memory.CheckResult, error) {
				assert.Equal(t, ownerID, identity.OwnerID)
				assert.Equal(t, "bonjour", identity.SourceText)
				return &memory.CheckResult{
					Exists:            true,
					ShouldTranslate:   false,
					CachedTranslation: "hello",
					Retention:         0.92,
					Fragment:          fragment,
				}, nil
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(CheckMemoryRequest{
			SourceText: "bonjour",
			SourceLang: "fr",
			TargetLang: "en",
		})
		req := httptest.NewRequest(
			http.MethodPost, "/owners/"+ownerID.String()+"/memory/check", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp CheckMemoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Exists)
		assert.False(t, resp.ShouldTranslate)
		assert.Equal(t, "hello", resp.CachedTranslation)
		assert.InDelta(t, 0.92, resp.Retention, 0.0001)
		require.NotNil(t, resp.Fragment)
		assert.Equal(t, fragment.ID.String(), resp.Fragment.ID)
	})

	t.Run("miss surfaces suggestions", func(t *testing.T) {
		t.Parallel()

		fragment := testFragment(t, ownerID)
		service := &mockMemoryService{
			checkMemoryFn: func(ctx context.Context, identity domain.FragmentIdentity) (*memory.CheckResult, error) {
				return &memory.CheckResult{
					Exists:          false,
					ShouldTranslate: true,
					Suggestions: []memory.Suggestion{
						{Fragment: fragment, Similarity: 0.8},
					},
				}, nil
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(CheckMemoryRequest{
			SourceText: "bonjour tout le monde",
			SourceLang: "fr",
			TargetLang: "en",
		})
		req := httptest.NewRequest(
			http.MethodPost, "/owners/"+ownerID.String()+"/memory/check", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp CheckMemoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.ShouldTranslate)
		require.Len(t, resp.Suggestions, 1)
		assert.InDelta(t, 0.8, resp.Suggestions[0].Similarity, 0.0001)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		req := httptest.NewRequest(
			http.MethodPost, "/owners/"+ownerID.String()+"/memory/check",
			bytes.NewReader([]byte(`{"source_text":"bonjour"}`)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed owner id rejected", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(CheckMemoryRequest{
			SourceText: "bonjour", SourceLang: "fr", TargetLang: "en",
		})
		req := httptest.NewRequest(
			http.MethodPost, "/owners/not-a-uuid/memory/check", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateFragmentHandler(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	t.Run("new fragment returns 201", func(t *testing.T) {
		t.Parallel()

		fragment := testFragment(t, ownerID)
		service := &mockMemoryService{
			createOrTouchFn: func(ctx context.Context, identity domain.FragmentIdentity, translatedText string, tags []string, difficulty *float64) (*domain.MemoryFragment, bool, error) {
				assert.Equal(t, "hello", translatedText)
				assert.Nil(t, difficulty)
				return fragment, true, nil
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(CreateFragmentRequest{
			SourceText:     "bonjour",
			TranslatedText: "hello",
			SourceLang:     "fr",
			TargetLang:     "en",
		})
		req := httptest.NewRequest(
			http.MethodPost, "/owners/"+ownerID.String()+"/fragments", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp FragmentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, fragment.ID.String(), resp.ID)
		assert.Equal(t, string(domain.FragmentStatusFresh), resp.Status)
	})

	t.Run("existing fragment returns 200", func(t *testing.T) {
		t.Parallel()

		fragment := testFragment(t, ownerID)
		service := &mockMemoryService{
			createOrTouchFn: func(ctx context.Context, identity domain.FragmentIdentity, translatedText string, tags []string, difficulty *float64) (*domain.MemoryFragment, bool, error) {
				return fragment, false, nil
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(CreateFragmentRequest{
			SourceText:     "bonjour",
			TranslatedText: "hello",
			SourceLang:     "fr",
			TargetLang:     "en",
		})
		req := httptest.NewRequest(
			http.MethodPost, "/owners/"+ownerID.String()+"/fragments", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("difficulty out of range rejected", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		badDifficulty := 9.0
		body, _ := json.Marshal(CreateFragmentRequest{
			SourceText:     "bonjour",
			TranslatedText: "hello",
			SourceLang:     "fr",
			TargetLang:     "en",
			Difficulty:     &badDifficulty,
		})
		req := httptest.NewRequest(
			http.MethodPost, "/owners/"+ownerID.String()+"/fragments", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReinforceHandler(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	fragmentID := uuid.New()

	t.Run("successful reinforcement", func(t *testing.T) {
		t.Parallel()

		fragment := testFragment(t, ownerID)
		service := &mockMemoryService{
			recordReinforcementFn: func(ctx context.Context, owner, fid uuid.UUID, reinforcement retention.Reinforcement) (*domain.MemoryFragment, error) {
				assert.Equal(t, ownerID, owner)
				assert.Equal(t, fragmentID, fid)
				assert.True(t, reinforcement.WasSuccessful)
				require.NotNil(t, reinforcement.ResponseTime)
				assert.Equal(t, 1200*time.Millisecond, *reinforcement.ResponseTime)
				return fragment, nil
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		responseTime := int64(1200)
		body, _ := json.Marshal(ReinforceRequest{
			Successful:     true,
			ResponseTimeMs: &responseTime,
		})
		req := httptest.NewRequest(
			http.MethodPost,
			"/owners/"+ownerID.String()+"/fragments/"+fragmentID.String()+"/reinforce",
			bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown fragment returns 404", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{
			recordReinforcementFn: func(ctx context.Context, owner, fid uuid.UUID, reinforcement retention.Reinforcement) (*domain.MemoryFragment, error) {
				return nil, memory.ErrFragmentNotFound
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(ReinforceRequest{Successful: false})
		req := httptest.NewRequest(
			http.MethodPost,
			"/owners/"+ownerID.String()+"/fragments/"+fragmentID.String()+"/reinforce",
			bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("terminal fragment returns 409", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{
			recordReinforcementFn: func(ctx context.Context, owner, fid uuid.UUID, reinforcement retention.Reinforcement) (*domain.MemoryFragment, error) {
				return nil, memory.ErrTerminalStatus
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(ReinforceRequest{Successful: true})
		req := httptest.NewRequest(
			http.MethodPost,
			"/owners/"+ownerID.String()+"/fragments/"+fragmentID.String()+"/reinforce",
			bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestBulkStatusHandlers(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	ids := []string{uuid.New().String(), uuid.New().String()}

	t.Run("exclude reports updated count", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{
			setExcludedFn: func(ctx context.Context, owner uuid.UUID, fragmentIDs []uuid.UUID) (int64, error) {
				assert.Len(t, fragmentIDs, 2)
				return 2, nil
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(BulkStatusRequest{FragmentIDs: ids})
		req := httptest.NewRequest(
			http.MethodPost, "/owners/"+ownerID.String()+"/fragments/exclude", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp BulkStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(2), resp.Updated)
	})

	t.Run("master skips unknown ids", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{
			setMasteredFn: func(ctx context.Context, owner uuid.UUID, fragmentIDs []uuid.UUID) (int64, error) {
				return 1, nil
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(BulkStatusRequest{FragmentIDs: ids})
		req := httptest.NewRequest(
			http.MethodPost, "/owners/"+ownerID.String()+"/fragments/master", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp BulkStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.Updated)
	})

	t.Run("empty id list rejected", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		body, _ := json.Marshal(BulkStatusRequest{FragmentIDs: nil})
		req := httptest.NewRequest(
			http.MethodPost, "/owners/"+ownerID.String()+"/fragments/exclude", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDueForReviewHandler(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	t.Run("lists due items with limit", func(t *testing.T) {
		t.Parallel()

		fragment := testFragment(t, ownerID)
		service := &mockMemoryService{
			itemsDueForReviewFn: func(ctx context.Context, owner uuid.UUID, limit int) ([]memory.ReviewItem, error) {
				assert.Equal(t, 5, limit)
				return []memory.ReviewItem{{Fragment: fragment, Retention: 0.3}}, nil
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		req := httptest.NewRequest(
			http.MethodGet, "/owners/"+ownerID.String()+"/reviews/due?limit=5", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp []ReviewItemResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.InDelta(t, 0.3, resp[0].Retention, 0.0001)
	})

	t.Run("empty list serializes as array", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{
			itemsDueForReviewFn: func(ctx context.Context, owner uuid.UUID, limit int) ([]memory.ReviewItem, error) {
				assert.Equal(t, 0, limit)
				return nil, nil
			},
		}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		req := httptest.NewRequest(
			http.MethodGet, "/owners/"+ownerID.String()+"/reviews/due", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("negative limit rejected", func(t *testing.T) {
		t.Parallel()

		service := &mockMemoryService{}
		router := newMemoryRouter(NewMemoryHandler(service, testLogger()))

		req := httptest.NewRequest(
			http.MethodGet, "/owners/"+ownerID.String()+"/reviews/due?limit=-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/session"
)

func newSessionRouter(t *testing.T) (*chi.Mux, *session.Manager) {
	t.Helper()

	manager, err := session.NewManager(domain.DefaultFixationConfig(), "en", testLogger())
	require.NoError(t, err)

	handler := NewSessionHandler(manager, testLogger())
	router := chi.NewRouter()
	router.Post("/sessions", handler.OpenSession)
	router.Put("/sessions/{id}/config", handler.UpdateSessionConfig)
	router.Delete("/sessions/{id}", handler.CloseSession)
	return router, manager
}

func TestOpenSessionHandler(t *testing.T) {
	t.Parallel()

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()

		router, manager := newSessionRouter(t)

		body, _ := json.Marshal(OpenSessionRequest{OwnerID: uuid.New().String()})
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "auto", resp.SourceLang)
		assert.Equal(t, "en", resp.TargetLang)
		assert.Equal(
			t, domain.DefaultFixationConfig().StabilityRadiusPx, resp.Fixation.StabilityRadiusPx)
		assert.Equal(t, 1, manager.Len())
	})

	t.Run("explicit fixation config", func(t *testing.T) {
		t.Parallel()

		router, _ := newSessionRouter(t)

		body, _ := json.Marshal(OpenSessionRequest{
			OwnerID:    uuid.New().String(),
			SourceLang: "ja",
			TargetLang: "de",
			Fixation: &FixationConfigRequest{
				StabilityRadiusPx: 30,
				MinDurationMs:     2000,
				MinConfidence:     0.7,
			},
		})
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ja", resp.SourceLang)
		assert.Equal(t, "de", resp.TargetLang)
		assert.Equal(t, float64(30), resp.Fixation.StabilityRadiusPx)
		assert.Equal(t, int64(2000), resp.Fixation.MinDurationMs)
	})

	t.Run("missing owner rejected", func(t *testing.T) {
		t.Parallel()

		router, _ := newSessionRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid fixation config rejected", func(t *testing.T) {
		t.Parallel()

		router, _ := newSessionRouter(t)

		body, _ := json.Marshal(OpenSessionRequest{
			OwnerID: uuid.New().String(),
			Fixation: &FixationConfigRequest{
				StabilityRadiusPx: -5,
				MinDurationMs:     1000,
			},
		})
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateSessionConfigHandler(t *testing.T) {
	t.Parallel()

	t.Run("applies new thresholds", func(t *testing.T) {
		t.Parallel()

		router, manager := newSessionRouter(t)
		sess, err := manager.Open(uuid.New(), "", "", nil)
		require.NoError(t, err)

		body, _ := json.Marshal(FixationConfigRequest{
			StabilityRadiusPx: 80,
			MinDurationMs:     500,
			MinConfidence:     0.6,
		})
		req := httptest.NewRequest(
			http.MethodPut, "/sessions/"+sess.ID().String()+"/config", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(80), sess.Config().StabilityRadiusPx)
	})

	t.Run("unknown session returns 404", func(t *testing.T) {
		t.Parallel()

		router, _ := newSessionRouter(t)

		body, _ := json.Marshal(FixationConfigRequest{
			StabilityRadiusPx: 80,
			MinDurationMs:     500,
		})
		req := httptest.NewRequest(
			http.MethodPut, "/sessions/"+uuid.New().String()+"/config", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCloseSessionHandler(t *testing.T) {
	t.Parallel()

	t.Run("close removes session", func(t *testing.T) {
		t.Parallel()

		router, manager := newSessionRouter(t)
		sess, err := manager.Open(uuid.New(), "", "", nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/"+sess.ID().String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 0, manager.Len())
	})

	t.Run("double close returns 404", func(t *testing.T) {
		t.Parallel()

		router, manager := newSessionRouter(t)
		sess, err := manager.Open(uuid.New(), "", "", nil)
		require.NoError(t, err)
		require.NoError(t, manager.Close(sess.ID()))

		req := httptest.NewRequest(http.MethodDelete, "/sessions/"+sess.ID().String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

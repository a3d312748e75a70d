package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fennwick/glossa-api/internal/domain"
)

// getPathUUID extracts and parses a UUID path parameter. It returns an error
// wrapping domain.ErrInvalidID when the parameter is missing or malformed, so
// callers can map it to a 400 with MapErrorToStatusCode.
func getPathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidID, param)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", domain.ErrInvalidID, param)
	}

	return id, nil
}

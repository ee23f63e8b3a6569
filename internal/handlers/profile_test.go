package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memProfiles struct {
	profiles map[uuid.UUID]*models.Profile
}

func (m *memProfiles) Get(_ context.Context, ownerID uuid.UUID) (*models.Profile, error) {
	p, ok := m.profiles[ownerID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) UpdateName(_ context.Context, ownerID uuid.UUID, name *string) (*models.Profile, error) {
	p, ok := m.profiles[ownerID]
	if !ok {
		return nil, database.ErrNotFound
	}
	p.Name = name
	return p, nil
}

func (m *memProfiles) Delete(_ context.Context, ownerID uuid.UUID) error {
	if _, ok := m.profiles[ownerID]; !ok {
		return database.ErrNotFound
	}
	delete(m.profiles, ownerID)
	return nil
}

func TestProfileHandler(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	store := &memProfiles{profiles: map[uuid.UUID]*models.Profile{owner: {ID: owner, Email: "a@example.com"}}}
	router := mux.NewRouter()
	NewProfileHandler(store, Options{}).RegisterRoutes(router.PathPrefix("/api/v1/profile").Subrouter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil), owner))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(newTestRequest(http.MethodPatch, "/api/v1/profile", map[string]string{"name": "  Kim  "}), owner))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.profiles[owner].Name)
	assert.Equal(t, "Kim", *store.profiles[owner].Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(newTestRequest(http.MethodPatch, "/api/v1/profile", map[string]string{"name": " "}), owner))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, store.profiles[owner].Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodDelete, "/api/v1/profile", nil), owner))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil), owner))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileHandler_Unauthenticated(t *testing.T) {
	t.Parallel()

	router := mux.NewRouter()
	NewProfileHandler(&memProfiles{}, Options{}).RegisterRoutes(router.PathPrefix("/api/v1/profile").Subrouter())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppmkconnect-core/internal/appstore"
	"ppmkconnect-core/internal/blob"
	"ppmkconnect-core/internal/bus"
	"ppmkconnect-core/internal/domain"
	"ppmkconnect-core/internal/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	router *mux.Router
	store  *appstore.Store
	tm     security.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := appstore.New(blob.NewBroker().Open(), bus.New(), nil)
	require.NoError(t, store.Load(context.Background()))

	tm := security.NewTokenManager(testSecret)
	router := mux.NewRouter()
	NewApplicationHandler(store).RegisterRoutes(router, tm)
	return &testServer{router: router, store: store, tm: tm}
}

func (s *testServer) do(t *testing.T, user *domain.CurrentUser, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != nil {
		token, err := s.tm.GenerateToken(*user, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

var (
	applicant = domain.CurrentUser{ID: "user-1", Name: "Aina", Email: "aina@example.com", Role: domain.RoleMember}
	reviewer  = domain.CurrentUser{ID: "rev-1", Name: "Farid", Email: "farid@example.com", Role: domain.RoleClubAdmin, ScopeIDs: []string{"club-1"}}
	outsider  = domain.CurrentUser{ID: "rev-2", Name: "Mei", Email: "mei@example.com", Role: domain.RoleClubAdmin, ScopeIDs: []string{"club-2"}}
)

func submitDraft() domain.ApplicationDraft {
	return domain.ApplicationDraft{
		ClubID:     "club-1",
		ClubName:   "Chess Club",
		Motivation: "I like chess",
		Skills:     []string{"openings"},
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t)

	t.Run("Missing token", func(t *testing.T) {
		rec := srv.do(t, nil, http.MethodGet, "/api/v1/applications", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/applications", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSubmitEndpoint(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		srv := newTestServer(t)
		rec := srv.do(t, &applicant, http.MethodPost, "/api/v1/applications", submitDraft())
		require.Equal(t, http.StatusCreated, rec.Code)

		var app domain.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
		assert.Equal(t, domain.ApplicationStatusPending, app.Status)
		assert.Equal(t, applicant.ID, app.ApplicantID)
	})

	t.Run("Duplicate pending conflicts", func(t *testing.T) {
		srv := newTestServer(t)
		srv.do(t, &applicant, http.MethodPost, "/api/v1/applications", submitDraft())
		rec := srv.do(t, &applicant, http.MethodPost, "/api/v1/applications", submitDraft())
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		srv := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", bytes.NewBufferString("{oops"))
		token, err := srv.tm.GenerateToken(applicant, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, &applicant, http.MethodPost, "/api/v1/applications", submitDraft())

	t.Run("Applicant sees own applications", func(t *testing.T) {
		rec := srv.do(t, &applicant, http.MethodGet, "/api/v1/applications", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var apps []domain.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
		assert.Len(t, apps, 1)
	})

	t.Run("Out-of-scope reviewer sees nothing", func(t *testing.T) {
		rec := srv.do(t, &outsider, http.MethodGet, "/api/v1/applications", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var apps []domain.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
		assert.Empty(t, apps)
	})

	t.Run("Club projection stays inside the visible set", func(t *testing.T) {
		rec := srv.do(t, &outsider, http.MethodGet, "/api/v1/applications?club_id=club-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var apps []domain.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
		assert.Empty(t, apps)
	})
}

func TestReviewEndpoints(t *testing.T) {
	submitted := func(t *testing.T, srv *testServer) domain.Application {
		rec := srv.do(t, &applicant, http.MethodPost, "/api/v1/applications", submitDraft())
		require.Equal(t, http.StatusCreated, rec.Code)
		var app domain.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
		return app
	}

	t.Run("Approve with feedback", func(t *testing.T) {
		srv := newTestServer(t)
		app := submitted(t, srv)

		rec := srv.do(t, &reviewer, http.MethodPost, "/api/v1/applications/"+app.ID+"/approve", reviewRequest{Feedback: "Welcome"})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		listed := srv.do(t, &reviewer, http.MethodGet, "/api/v1/applications", nil)
		var apps []domain.Application
		require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &apps))
		require.Len(t, apps, 1)
		assert.Equal(t, domain.ApplicationStatusApproved, apps[0].Status)
		assert.Equal(t, "Welcome", apps[0].Feedback)
	})

	t.Run("Out-of-scope reviewer forbidden", func(t *testing.T) {
		srv := newTestServer(t)
		app := submitted(t, srv)

		rec := srv.do(t, &outsider, http.MethodPost, "/api/v1/applications/"+app.ID+"/reject", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Second review conflicts", func(t *testing.T) {
		srv := newTestServer(t)
		app := submitted(t, srv)
		srv.do(t, &reviewer, http.MethodPost, "/api/v1/applications/"+app.ID+"/approve", nil)

		rec := srv.do(t, &reviewer, http.MethodPost, "/api/v1/applications/"+app.ID+"/reject", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Unknown id", func(t *testing.T) {
		srv := newTestServer(t)
		rec := srv.do(t, &reviewer, http.MethodPost, "/api/v1/applications/missing/approve", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdateAndDeleteEndpoints(t *testing.T) {
	t.Run("Patch content fields", func(t *testing.T) {
		srv := newTestServer(t)
		rec := srv.do(t, &applicant, http.MethodPost, "/api/v1/applications", submitDraft())
		var app domain.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))

		motivation := "Updated motivation"
		rec = srv.do(t, &applicant, http.MethodPatch, "/api/v1/applications/"+app.ID, domain.ApplicationUpdate{Motivation: &motivation})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		listed := srv.do(t, &applicant, http.MethodGet, "/api/v1/applications", nil)
		var apps []domain.Application
		require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &apps))
		require.Len(t, apps, 1)
		assert.Equal(t, motivation, apps[0].Motivation)
	})

	t.Run("Delete own pending application", func(t *testing.T) {
		srv := newTestServer(t)
		rec := srv.do(t, &applicant, http.MethodPost, "/api/v1/applications", submitDraft())
		var app domain.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))

		rec = srv.do(t, &applicant, http.MethodDelete, "/api/v1/applications/"+app.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("Reviewer cannot delete", func(t *testing.T) {
		srv := newTestServer(t)
		rec := srv.do(t, &applicant, http.MethodPost, "/api/v1/applications", submitDraft())
		var app domain.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))

		rec = srv.do(t, &reviewer, http.MethodDelete, "/api/v1/applications/"+app.ID, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

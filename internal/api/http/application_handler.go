// Package http is the JSON portal surface over the application store.
// Rendering lives elsewhere; these handlers only expose the store's
// operations and map its errors to status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"ppmkconnect-core/internal/appstore"
	"ppmkconnect-core/internal/domain"
	"ppmkconnect-core/internal/logger"
	"ppmkconnect-core/internal/security"
)

// ApplicationHandler exposes submit/review/update/delete and the
// authorization-filtered listings.
type ApplicationHandler struct {
	store *appstore.Store
}

func NewApplicationHandler(store *appstore.Store) *ApplicationHandler {
	return &ApplicationHandler{store: store}
}

// RegisterRoutes mounts the application endpoints under /api/v1 behind
// the auth middleware.
func (h *ApplicationHandler) RegisterRoutes(router *mux.Router, tm security.TokenManager) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(tm))

	api.HandleFunc("/applications", h.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/applications", h.HandleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/approve", h.HandleApprove).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/reject", h.HandleReject).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}", h.HandleUpdate).Methods(http.MethodPatch)
	api.HandleFunc("/applications/{id}", h.HandleDelete).Methods(http.MethodDelete)
}

// HandleList returns the caller's visible applications, optionally
// projected by applicant_id or club_id. Projections run over the
// visible set, so they cannot widen it.
func (h *ApplicationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := CurrentUserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var apps []domain.Application
	switch {
	case r.URL.Query().Get("applicant_id") != "":
		apps = h.store.ByApplicant(caller, r.URL.Query().Get("applicant_id"))
	case r.URL.Query().Get("club_id") != "":
		apps = h.store.ByClub(caller, r.URL.Query().Get("club_id"))
	default:
		apps = h.store.VisibleApplications(caller)
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *ApplicationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	caller, ok := CurrentUserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var draft domain.ApplicationDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	app, err := h.store.Submit(r.Context(), caller, draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

type reviewRequest struct {
	Feedback string `json:"feedback"`
}

func (h *ApplicationHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.store.Approve)
}

func (h *ApplicationHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.store.Reject)
}

func (h *ApplicationHandler) handleReview(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, caller domain.CurrentUser, id, feedback string) error,
) {
	caller, ok := CurrentUserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id := mux.Vars(r)["id"]

	var req reviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	if err := op(r.Context(), caller, id, req.Feedback); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ApplicationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := CurrentUserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id := mux.Vars(r)["id"]

	var patch domain.ApplicationUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.Update(r.Context(), caller, id, patch); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ApplicationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := CurrentUserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, appstore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, appstore.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, appstore.ErrDuplicatePending), errors.Is(err, appstore.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, appstore.ErrPersistence):
		logger.Error("persistence failure", "error", err)
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

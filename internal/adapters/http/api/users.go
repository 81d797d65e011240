package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/competemcgill/techgames/internal/domain/provision"
	"github.com/competemcgill/techgames/pkg/logger"
)

// UsersHandler handles account CRUD.
type UsersHandler struct {
	deps Dependencies
	mode provision.Mode
	log  logger.Logger
}

// userID returns the path id, answering 422 when it is malformed.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "userId")
	if err := validateUserID(id); err != nil {
		writeValidation(w, err)
		return "", false
	}
	return id, true
}

// HandleList handles GET /users requests.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.deps.ListAccounts(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleShow handles GET /users/{userId} requests.
func (h *UsersHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	acc, err := h.deps.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// HandleCreate handles POST /users requests.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeValidation(w, err)
		return
	}
	acc, err := h.deps.CreateAccount(r.Context(), *req.Email, *req.GithubUsername, *req.GithubToken, h.mode)
	if err != nil {
		writeDomainError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// HandleUpdate handles PUT /users/{userId} requests.
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeValidation(w, err)
		return
	}
	acc, err := h.deps.UpdateAccount(r.Context(), id, req.toUpdate())
	if err != nil {
		writeDomainError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// HandleDelete handles DELETE /users/{userId} requests.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.deps.DeleteAccount(r.Context(), id); err != nil {
		writeDomainError(r.Context(), w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

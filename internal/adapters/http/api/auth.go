package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/competemcgill/techgames/internal/domain/provision"
	"github.com/competemcgill/techgames/pkg/logger"
)

// AuthHandler handles the OAuth callback exchange.
type AuthHandler struct {
	deps Dependencies
	mode provision.Mode
	log  logger.Logger
}

// HandleGitHub handles POST /auth/github requests.
func (h *AuthHandler) HandleGitHub(w http.ResponseWriter, r *http.Request) {
	var req githubAuthRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeValidation(w, err)
		return
	}

	acc, err := h.deps.ResolveOrCreateFromOAuth(r.Context(), req.Code, req.RedirectURI, h.mode)
	if err != nil {
		writeDomainError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

const maxBodyBytes = 1 << 20

// decodeBody decodes a JSON body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return false
	}
	return true
}

func writeValidation(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBadRequest) {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeError(w, http.StatusUnprocessableEntity, "missing_params", err)
}

package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/competemcgill/techgames/pkg/logger"
)

// IdempotencyHeader names the optional submission key header.
const IdempotencyHeader = "Idempotency-Key"

// ScoresHandler handles score submission and history.
type ScoresHandler struct {
	deps Dependencies
	log  logger.Logger
}

// HandleUpdateScore handles POST /users/{userId}/updateScore requests.
func (h *ScoresHandler) HandleUpdateScore(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	outcomes, err := parseOutcomes(body)
	if err != nil {
		writeValidation(w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	ev, err := h.deps.SubmitScore(r.Context(), id, outcomes, key)
	if err != nil {
		writeDomainError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleHistory handles GET /users/{userId}/scores requests.
func (h *ScoresHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	evs, err := h.deps.ScoreHistory(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

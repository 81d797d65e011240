// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/competemcgill/techgames/internal/domain/model"
	"github.com/competemcgill/techgames/internal/domain/provision"
	"github.com/competemcgill/techgames/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ResolveOrCreateFromOAuth(ctx context.Context, code, redirectURI string, mode provision.Mode) (model.Account, error)
	CreateAccount(ctx context.Context, email, username, token string, mode provision.Mode) (model.Account, error)

	// SubmitScore records outcomes for an account. A non-empty key makes a
	// repeated submission fail with model.ErrDuplicateSubmission.
	SubmitScore(ctx context.Context, accountID string, outcomes model.Outcomes, key string) (model.ScoreEvent, error)
	ScoreHistory(ctx context.Context, accountID string) ([]model.ScoreEvent, error)

	GetAccount(ctx context.Context, id string) (model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	UpdateAccount(ctx context.Context, id string, upd model.AccountUpdate) (model.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	authHandler   *AuthHandler
	usersHandler  *UsersHandler
	scoresHandler *ScoresHandler
}

// Option configures a Server.
type Option func(*options)

type options struct {
	mode provision.Mode
	log  logger.Logger
}

// WithMode sets the provisioning mode passed to account creation.
func WithMode(m provision.Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{mode: provision.ModeDevelopment, log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler: NewHealthHandler(statsProvider),
		statsHandler:  NewStatsHandler(statsProvider),
		authHandler:   &AuthHandler{deps: deps, mode: o.mode, log: o.log},
		usersHandler:  &UsersHandler{deps: deps, mode: o.mode, log: o.log},
		scoresHandler: &ScoresHandler{deps: deps, log: o.log},
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Post("/auth/github", MetricsMiddleware(s.authHandler.HandleGitHub, "auth_github"))

	r.Route("/users", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.usersHandler.HandleList, "users_list"))
		r.Post("/", MetricsMiddleware(s.usersHandler.HandleCreate, "users_create"))
		r.Route("/{userId}", func(r chi.Router) {
			r.Get("/", MetricsMiddleware(s.usersHandler.HandleShow, "users_show"))
			r.Put("/", MetricsMiddleware(s.usersHandler.HandleUpdate, "users_update"))
			r.Delete("/", MetricsMiddleware(s.usersHandler.HandleDelete, "users_delete"))
			r.Post("/updateScore", MetricsMiddleware(s.scoresHandler.HandleUpdateScore, "users_update_score"))
			r.Get("/scores", MetricsMiddleware(s.scoresHandler.HandleHistory, "users_scores"))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps a service error onto a status. Client errors carry
// the kind as message; server errors never expose the cause.
func writeDomainError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	kind := model.KindOf(err)
	switch {
	case errors.Is(kind, model.ErrInvalidCredential):
		writeError(w, http.StatusBadRequest, "invalid_credential", kind)
	case errors.Is(kind, model.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, "duplicate_account", kind)
	case errors.Is(kind, model.ErrDuplicateSubmission):
		writeError(w, http.StatusConflict, "duplicate_submission", kind)
	case errors.Is(kind, model.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "not_found", kind)
	default:
		log.Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", errServer)
	}
}

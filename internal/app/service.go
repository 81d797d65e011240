// Package service wires the identity, provisioning and ledger components
// behind the operations used by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	repository "github.com/competemcgill/techgames/internal/adapters/repository"
	"github.com/competemcgill/techgames/internal/domain/dedupe"
	"github.com/competemcgill/techgames/internal/domain/identity"
	"github.com/competemcgill/techgames/internal/domain/ledger"
	"github.com/competemcgill/techgames/internal/domain/model"
	"github.com/competemcgill/techgames/internal/domain/provision"
	"github.com/competemcgill/techgames/pkg/logger"
	"github.com/competemcgill/techgames/pkg/metrics"
)

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// ErrMissingDependency is returned by Start when a required collaborator
// was not supplied.
var ErrMissingDependency = errors.New("missing service dependency")

// Provider is the external source-control provider.
type Provider interface {
	identity.Exchanger
	identity.ProfileFetcher
	provision.Forker
}

// Service implements the API dependencies for account provisioning and
// score recording.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	directory repository.Directory
	events    repository.EventStore
	provider  Provider
	deduper   dedupe.Deduper

	// Core components, built by Start
	resolver    *identity.Resolver
	provisioner *provision.Provisioner
	ledger      *ledger.Ledger

	// Configuration
	webURL       string
	templateRepo string
	clock        func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a new Service. Call Start before use.
func New(opts ...Option) *Service {
	s := &Service{
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the collaborators and builds the core components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	switch {
	case s.directory == nil:
		return errors.Join(ErrMissingDependency, errors.New("directory"))
	case s.events == nil:
		return errors.Join(ErrMissingDependency, errors.New("event store"))
	case s.provider == nil:
		return errors.Join(ErrMissingDependency, errors.New("provider"))
	}

	s.resolver = identity.NewResolver(s.provider, s.provider, s.directory,
		identity.WithLogger(s.logger.Named("identity")))
	s.provisioner = provision.New(s.provider, s.directory,
		provision.WithLogger(s.logger.Named("provision")),
		provision.WithWebURL(s.webURL),
		provision.WithTemplateRepo(s.templateRepo))
	s.ledger = ledger.New(s.events, ledger.WithClock(s.clock))

	s.started = true
	s.logger.Info(ctx, "account service started",
		logger.Bool("dedupe", s.deduper != nil))
	return nil
}

// Stop marks the service stopped. Collaborators are owned by the caller.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "account service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// ResolveOrCreateFromOAuth returns the account behind an OAuth code,
// provisioning one when the provider username is unseen.
func (s *Service) ResolveOrCreateFromOAuth(ctx context.Context, code, redirectURI string, mode provision.Mode) (model.Account, error) {
	if err := s.ready(); err != nil {
		return model.Account{}, err
	}

	out, err := s.resolver.Resolve(ctx, code, redirectURI)
	if err != nil {
		return model.Account{}, err
	}
	if out.Existing != nil {
		return *out.Existing, nil
	}
	return s.provisioner.FromOAuth(ctx, *out.Identity, mode)
}

// CreateAccount registers an account with an explicit email.
func (s *Service) CreateAccount(ctx context.Context, email, username, token string, mode provision.Mode) (model.Account, error) {
	if err := s.ready(); err != nil {
		return model.Account{}, err
	}
	return s.provisioner.Direct(ctx, provision.DirectRequest{
		Email:    email,
		Username: username,
		Token:    token,
	}, mode)
}

// RecordScore stores a score event and links it to the account. If linking
// fails the event stays behind unreferenced and an error is returned.
func (s *Service) RecordScore(ctx context.Context, accountID string, outcomes model.Outcomes) (model.ScoreEvent, error) {
	const op = "service.RecordScore"
	if err := s.ready(); err != nil {
		return model.ScoreEvent{}, err
	}

	acc, found, err := s.directory.Find(ctx, accountID)
	if err != nil {
		return model.ScoreEvent{}, model.Wrap(op, err)
	}
	if !found {
		return model.ScoreEvent{}, model.NewKind(op, model.ErrAccountNotFound)
	}

	floor, err := s.ledger.Latest(ctx, acc)
	if err != nil {
		return model.ScoreEvent{}, model.Wrap(op, err)
	}

	ev, err := s.ledger.Create(ctx, outcomes, floor)
	if err != nil {
		return model.ScoreEvent{}, model.Wrap(op, err)
	}

	linked, err := s.directory.AppendScoreRef(ctx, acc.ID, ev.ID)
	if err != nil || !linked {
		metrics.RecordOrphanedScoreEvent()
		s.logger.Warn(ctx, "score event left unreferenced",
			logger.String("account_id", acc.ID),
			logger.String("score_id", ev.ID),
			logger.Error(err))
		if err != nil {
			return model.ScoreEvent{}, model.Wrap(op, err)
		}
		return model.ScoreEvent{}, model.NewKind(op, model.ErrAccountNotFound)
	}

	s.logger.Debug(ctx, "score recorded",
		logger.String("account_id", acc.ID),
		logger.String("score_id", ev.ID),
		logger.Int("passed", outcomes.Passed()))
	return ev, nil
}

// SubmitScore is RecordScore guarded by an idempotency key. An empty key,
// or no deduper, records unconditionally. A key is forgotten again when
// recording fails so the evaluator can retry.
func (s *Service) SubmitScore(ctx context.Context, accountID string, outcomes model.Outcomes, key string) (model.ScoreEvent, error) {
	const op = "service.SubmitScore"
	if err := s.ready(); err != nil {
		return model.ScoreEvent{}, err
	}
	if key == "" || s.deduper == nil {
		return s.RecordScore(ctx, accountID, outcomes)
	}

	dedupeKey := accountID + ":" + key
	seen, err := s.deduper.SeenAndRecord(ctx, dedupeKey)
	if err != nil {
		return model.ScoreEvent{}, model.WrapKind(op, model.ErrDirectory, err)
	}
	if seen {
		metrics.RecordDuplicateSubmission()
		return model.ScoreEvent{}, model.NewKind(op, model.ErrDuplicateSubmission)
	}

	ev, err := s.RecordScore(ctx, accountID, outcomes)
	if err != nil {
		if uerr := s.deduper.Unrecord(ctx, dedupeKey); uerr != nil {
			s.logger.Warn(ctx, "failed to release submission key",
				logger.String("key", dedupeKey),
				logger.Error(uerr))
		}
		return model.ScoreEvent{}, err
	}
	return ev, nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, id string) (model.Account, error) {
	const op = "service.GetAccount"
	if err := s.ready(); err != nil {
		return model.Account{}, err
	}
	acc, found, err := s.directory.Find(ctx, id)
	if err != nil {
		return model.Account{}, model.Wrap(op, err)
	}
	if !found {
		return model.Account{}, model.NewKind(op, model.ErrAccountNotFound)
	}
	return acc, nil
}

// ListAccounts returns every account.
func (s *Service) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	accounts, err := s.directory.All(ctx)
	if err != nil {
		return nil, model.Wrap("service.ListAccounts", err)
	}
	metrics.UpdateAccountsTotal(len(accounts))
	return accounts, nil
}

// UpdateAccount changes mutable fields. The repository URL stays as it was
// at creation even when the username changes.
func (s *Service) UpdateAccount(ctx context.Context, id string, upd model.AccountUpdate) (model.Account, error) {
	const op = "service.UpdateAccount"
	if err := s.ready(); err != nil {
		return model.Account{}, err
	}
	if upd.Empty() {
		return s.GetAccount(ctx, id)
	}
	acc, found, err := s.directory.Update(ctx, id, upd)
	if err != nil {
		return model.Account{}, model.Wrap(op, err)
	}
	if !found {
		return model.Account{}, model.NewKind(op, model.ErrAccountNotFound)
	}
	return acc, nil
}

// DeleteAccount removes an account. Its score events are kept.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	const op = "service.DeleteAccount"
	if err := s.ready(); err != nil {
		return err
	}
	found, err := s.directory.Delete(ctx, id)
	if err != nil {
		return model.Wrap(op, err)
	}
	if !found {
		return model.NewKind(op, model.ErrAccountNotFound)
	}
	s.logger.Info(ctx, "account deleted", logger.String("account_id", id))
	return nil
}

// ScoreHistory returns an account's score events in submission order.
func (s *Service) ScoreHistory(ctx context.Context, id string) ([]model.ScoreEvent, error) {
	acc, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	evs, err := s.ledger.History(ctx, acc)
	if err != nil {
		return nil, model.Wrap("service.ScoreHistory", err)
	}
	return evs, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started": s.started,
		"dedupe":  s.deduper != nil,
	}
	if !s.started {
		return stats
	}

	if n, err := s.directory.Count(ctx); err == nil {
		stats["accounts"] = n
		metrics.UpdateAccountsTotal(int(n))
	} else {
		stats["accountsError"] = err.Error()
	}
	if s.deduper != nil {
		stats["dedupeSize"] = s.deduper.Size(ctx)
	}
	return stats
}

// Package identity resolves an OAuth authorization code to either an existing
// account or a new identity that still needs provisioning.
package identity

import (
	"context"
	"errors"

	"github.com/competemcgill/techgames/internal/domain/model"
	"github.com/competemcgill/techgames/pkg/logger"
	"github.com/competemcgill/techgames/pkg/metrics"
)

// Exchanger trades an authorization code for an access token.
type Exchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (string, error)
}

// ProfileFetcher returns the provider username owning a token.
type ProfileFetcher interface {
	Profile(ctx context.Context, token string) (string, error)
}

// AccountFinder looks accounts up by provider username.
type AccountFinder interface {
	FindByExternalUsername(ctx context.Context, username string) (model.Account, bool, error)
}

// NewIdentity is a provider identity with no local account yet.
type NewIdentity struct {
	Username string
	Token    string
}

// Outcome holds exactly one of Existing or Identity.
type Outcome struct {
	Existing *model.Account
	Identity *NewIdentity
}

// Resolver performs the code exchange and profile lookup. It never writes.
type Resolver struct {
	exchanger Exchanger
	profiles  ProfileFetcher
	accounts  AccountFinder
	log       logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver builds a Resolver.
func NewResolver(ex Exchanger, profiles ProfileFetcher, accounts AccountFinder, opts ...Option) *Resolver {
	r := &Resolver{
		exchanger: ex,
		profiles:  profiles,
		accounts:  accounts,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve exchanges code, fetches the profile and looks for a matching
// account.
func (r *Resolver) Resolve(ctx context.Context, code, redirectURI string) (Outcome, error) {
	const op = "identity.Resolve"

	token, err := r.exchanger.Exchange(ctx, code, redirectURI)
	if err != nil {
		return Outcome{}, r.fail(ctx, op, "token exchange failed", err)
	}
	if token == "" {
		return Outcome{}, r.fail(ctx, op, "token exchange returned no token", model.NewKind("identity.Exchange", model.ErrInvalidCredential))
	}

	login, err := r.profiles.Profile(ctx, token)
	if err != nil {
		return Outcome{}, r.fail(ctx, op, "profile fetch failed", err)
	}

	acc, found, err := r.accounts.FindByExternalUsername(ctx, login)
	if err != nil {
		return Outcome{}, r.fail(ctx, op, "account lookup failed", err)
	}
	if found {
		metrics.RecordOAuthResolution("existing")
		r.log.Debug(ctx, "resolved existing account", logger.String("account_id", acc.ID))
		return Outcome{Existing: &acc}, nil
	}

	metrics.RecordOAuthResolution("new")
	return Outcome{Identity: &NewIdentity{Username: login, Token: token}}, nil
}

// fail classifies err, defaulting to ErrExternalProvider for errors that
// carry no kind, and records the outcome.
func (r *Resolver) fail(ctx context.Context, op, msg string, err error) error {
	if model.KindOf(err) == nil {
		err = model.WrapKind(op, model.ErrExternalProvider, err)
	} else {
		err = model.Wrap(op, err)
	}

	outcome := "error"
	if errors.Is(err, model.ErrInvalidCredential) {
		outcome = "invalid_credential"
		r.log.Info(ctx, msg, logger.Error(err))
	} else {
		r.log.Warn(ctx, msg, logger.Error(err))
	}
	metrics.RecordOAuthResolution(outcome)
	return err
}

// Package provision turns resolved identities into stored accounts, forking
// the challenge template first when running in production.
package provision

import (
	"context"
	"strings"

	"github.com/competemcgill/techgames/internal/domain/identity"
	"github.com/competemcgill/techgames/internal/domain/model"
	"github.com/competemcgill/techgames/pkg/logger"
	"github.com/competemcgill/techgames/pkg/metrics"
)

// Forker forks the template repository into the account owning token.
type Forker interface {
	Fork(ctx context.Context, token string) error
}

// AccountStore is the part of the directory provisioning writes to.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (model.Account, bool, error)
	Create(ctx context.Context, acc *model.Account) error
}

// DirectRequest is an explicit registration with an email.
type DirectRequest struct {
	Email    string
	Username string
	Token    string
}

// Provisioner creates accounts through one of two entry points that share
// the fork-then-persist core.
type Provisioner struct {
	forker       Forker
	store        AccountStore
	webURL       string
	templateRepo string
	log          logger.Logger
}

// New builds a Provisioner.
func New(forker Forker, store AccountStore, opts ...Option) *Provisioner {
	p := &Provisioner{
		forker:       forker,
		store:        store,
		webURL:       "https://github.com",
		templateRepo: "techgames-api-challenge-template",
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.webURL = strings.TrimRight(p.webURL, "/")
	return p
}

// RepoURL is the fork location for username.
func (p *Provisioner) RepoURL(username string) string {
	return p.webURL + "/" + username + "/" + p.templateRepo
}

// FromOAuth provisions an account for an identity with no local account.
// Uniqueness of the username is left to the store.
func (p *Provisioner) FromOAuth(ctx context.Context, id identity.NewIdentity, mode Mode) (model.Account, error) {
	return p.provision(ctx, "provision.FromOAuth", model.Account{
		ExternalToken:    id.Token,
		ExternalUsername: id.Username,
		Origin:           model.OriginOAuth,
	}, mode)
}

// Direct provisions an account for an explicit registration. It rejects an
// email that is already registered and never checks the username.
func (p *Provisioner) Direct(ctx context.Context, req DirectRequest, mode Mode) (model.Account, error) {
	const op = "provision.Direct"

	existing, found, err := p.store.FindByEmail(ctx, req.Email)
	if err != nil {
		return model.Account{}, directoryErr(op, err)
	}
	if found {
		p.log.Info(ctx, "email already registered", logger.String("account_id", existing.ID))
		return model.Account{}, model.NewKind(op, model.ErrDuplicateAccount)
	}

	return p.provision(ctx, op, model.Account{
		Email:            req.Email,
		ExternalToken:    req.Token,
		ExternalUsername: req.Username,
		Origin:           model.OriginDirect,
	}, mode)
}

func (p *Provisioner) provision(ctx context.Context, op string, acc model.Account, mode Mode) (model.Account, error) {
	acc.ExternalRepoURL = p.RepoURL(acc.ExternalUsername)
	acc.ScoreRefs = []string{}

	forked := false
	if mode.Production() {
		if err := p.forker.Fork(ctx, acc.ExternalToken); err != nil {
			p.log.Info(ctx, "template fork rejected",
				logger.String("username", acc.ExternalUsername),
				logger.Error(err))
			return model.Account{}, model.WrapKind(op, model.ErrInvalidCredential, err)
		}
		forked = true
	}

	if err := p.store.Create(ctx, &acc); err != nil {
		if forked {
			// The fork is not undone.
			p.log.Error(ctx, "template forked but account was not saved",
				logger.String("username", acc.ExternalUsername),
				logger.String("repo", acc.ExternalRepoURL),
				logger.Error(err))
		}
		return model.Account{}, directoryErr(op, err)
	}

	metrics.RecordAccountProvisioned(string(acc.Origin))
	p.log.Info(ctx, "account provisioned",
		logger.String("account_id", acc.ID),
		logger.String("origin", string(acc.Origin)),
		logger.Bool("forked", forked))
	return acc, nil
}

// directoryErr keeps the kind the store reported and classifies anything
// unkinded as a directory failure.
func directoryErr(op string, err error) error {
	if model.KindOf(err) != nil {
		return model.Wrap(op, err)
	}
	return model.WrapKind(op, model.ErrDirectory, err)
}

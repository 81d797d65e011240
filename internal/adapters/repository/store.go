// Package repository persists accounts and score events.
package repository

import (
	"context"

	"github.com/competemcgill/techgames/internal/domain/model"
)

// Directory is the account store. Lookups report absence through the found
// flag; the error is reserved for storage failures (model.ErrDirectory) and
// uniqueness conflicts (model.ErrDuplicateAccount).
type Directory interface {
	FindByExternalUsername(ctx context.Context, username string) (model.Account, bool, error)
	FindByEmail(ctx context.Context, email string) (model.Account, bool, error)
	Find(ctx context.Context, id string) (model.Account, bool, error)

	// Create assigns acc.ID and timestamps, then inserts it.
	Create(ctx context.Context, acc *model.Account) error

	// Update applies the non-nil fields of upd. ExternalRepoURL never changes.
	Update(ctx context.Context, id string, upd model.AccountUpdate) (model.Account, bool, error)

	// AppendScoreRef adds scoreID to the end of the account's score list.
	// Concurrent appends to the same account are serialised.
	AppendScoreRef(ctx context.Context, id, scoreID string) (bool, error)

	// Delete removes the account. Its score events are kept.
	Delete(ctx context.Context, id string) (bool, error)

	All(ctx context.Context) ([]model.Account, error)
	Count(ctx context.Context) (int64, error)
}

// EventStore holds immutable score events. There is no update or delete.
type EventStore interface {
	CreateScore(ctx context.Context, ev *model.ScoreEvent) error

	// FindScores returns the events for ids in the order given. Unknown ids
	// are skipped.
	FindScores(ctx context.Context, ids []string) ([]model.ScoreEvent, error)
}

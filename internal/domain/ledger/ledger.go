// Package ledger creates immutable score events. Linking an event to its
// account is left to the caller.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/competemcgill/techgames/internal/domain/model"
	"github.com/competemcgill/techgames/pkg/metrics"
)

// Store persists and reads score events.
type Store interface {
	CreateScore(ctx context.Context, ev *model.ScoreEvent) error
	FindScores(ctx context.Context, ids []string) ([]model.ScoreEvent, error)
}

// Ledger is the append-only score event log.
type Ledger struct {
	store Store
	now   func() time.Time
	newID func() string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides event id assignment.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		if gen != nil {
			l.newID = gen
		}
	}
}

// New builds a Ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create stores a new event. Its timestamp is the current time, or notBefore
// if the clock is behind it, so an account's events never go back in time.
func (l *Ledger) Create(ctx context.Context, outcomes model.Outcomes, notBefore string) (model.ScoreEvent, error) {
	const op = "ledger.Create"

	ev := model.ScoreEvent{
		ID:        l.newID(),
		Outcomes:  outcomes,
		Timestamp: l.stamp(notBefore),
	}
	if err := l.store.CreateScore(ctx, &ev); err != nil {
		if model.KindOf(err) == nil {
			return model.ScoreEvent{}, model.WrapKind(op, model.ErrDirectory, err)
		}
		return model.ScoreEvent{}, model.Wrap(op, err)
	}
	metrics.RecordScoreEvent(outcomes.Passed())
	return ev, nil
}

func (l *Ledger) stamp(notBefore string) string {
	now := l.now()
	if notBefore != "" {
		if floor, err := model.ParseTimestamp(notBefore); err == nil && floor.After(now) {
			now = floor
		}
	}
	return model.FormatTimestamp(now)
}

// Latest returns the timestamp of acc's last referenced event, or "" when it
// has none or the event cannot be found.
func (l *Ledger) Latest(ctx context.Context, acc model.Account) (string, error) {
	last, ok := acc.LastScoreRef()
	if !ok {
		return "", nil
	}
	evs, err := l.store.FindScores(ctx, []string{last})
	if err != nil {
		return "", model.Wrap("ledger.Latest", err)
	}
	if len(evs) == 0 {
		return "", nil
	}
	return evs[0].Timestamp, nil
}

// History returns acc's events in submission order.
func (l *Ledger) History(ctx context.Context, acc model.Account) ([]model.ScoreEvent, error) {
	evs, err := l.store.FindScores(ctx, acc.ScoreRefs)
	if err != nil {
		return nil, model.Wrap("ledger.History", err)
	}
	return evs, nil
}

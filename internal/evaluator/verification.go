package evaluator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/competemcgill/techgames/internal/domain/model"
)

// verifyParticipant checks that the account references exactly the accepted
// runs, in submission order, with non-decreasing timestamps.
func verifyParticipant(ctx context.Context, c *client, p *Participant) error {
	acc, err := c.account(ctx, p.AccountID)
	if err != nil {
		return fmt.Errorf("fetch account %s: %w", p.AccountID, err)
	}
	evs, err := c.history(ctx, p.AccountID)
	if err != nil {
		return fmt.Errorf("fetch history %s: %w", p.AccountID, err)
	}

	var want []Submission
	for _, r := range p.Runs {
		if !r.Retry {
			want = append(want, r)
		}
	}
	if len(acc.ScoreRefs) != len(want) || len(evs) != len(want) {
		return fmt.Errorf("%w: account %s has %d refs and %d events, want %d",
			ErrVerification, p.AccountID, len(acc.ScoreRefs), len(evs), len(want))
	}
	return checkHistory(p.AccountID, acc.ScoreRefs, evs, want)
}

func checkHistory(accountID string, refs []string, evs []model.ScoreEvent, want []Submission) error {
	for i, ev := range evs {
		if ev.ID != refs[i] {
			return fmt.Errorf("%w: account %s event %d is %s, ref is %s", ErrVerification, accountID, i, ev.ID, refs[i])
		}
		if i > 0 && ev.Timestamp < evs[i-1].Timestamp {
			return fmt.Errorf("%w: account %s timestamp %s precedes %s", ErrVerification, accountID, ev.Timestamp, evs[i-1].Timestamp)
		}
		got, err := outcomeMap(ev.Outcomes)
		if err != nil {
			return err
		}
		for _, f := range OutcomeFields {
			if got[f] != want[i].Outcomes[f] {
				return fmt.Errorf("%w: account %s event %d field %s is %t", ErrVerification, accountID, i, f, got[f])
			}
		}
	}
	return nil
}

func outcomeMap(o model.Outcomes) (map[string]bool, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	m := make(map[string]bool, len(OutcomeFields))
	return m, json.Unmarshal(b, &m)
}

package evaluator

import (
	"fmt"
	"math/rand/v2"
)

// OutcomeFields lists the evaluator checks in payload order.
var OutcomeFields = []string{
	"liveness",
	"authenticate200", "authenticate403",
	"createAccount201", "createAccount400", "createAccount500",
	"indexArticles",
	"showArticles200", "showArticles404",
	"createArticles201", "createArticles400", "createArticles403",
	"updateArticles200", "updateArticles400", "updateArticles401", "updateArticles403", "updateArticles404",
	"deleteArticles200", "deleteArticles401", "deleteArticles403", "deleteArticles404",
}

// passBias is the chance that any single check passes.
const passBias = 0.7

// generateParticipants plans cfg.Accounts participants with their runs. The
// same seed always yields the same plan.
func generateParticipants(cfg *Config) []*Participant {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	out := make([]*Participant, cfg.Accounts)
	for i := range out {
		p := &Participant{
			Email:    fmt.Sprintf("evaluator+%s-%d@techgames.test", cfg.RunID, i),
			Username: fmt.Sprintf("evaluator-%s-%d", cfg.RunID, i),
		}
		for j := 0; j < cfg.RunsPerAccount; j++ {
			run := Submission{
				Key:      fmt.Sprintf("%s-%d-%d", cfg.RunID, i, j),
				Outcomes: randomOutcomes(rng),
			}
			p.Runs = append(p.Runs, run)
			if rng.Float64() < cfg.RetryRatio {
				p.Runs = append(p.Runs, Submission{Key: run.Key, Outcomes: run.Outcomes, Retry: true})
			}
		}
		out[i] = p
	}
	return out
}

func randomOutcomes(rng *rand.Rand) map[string]bool {
	o := make(map[string]bool, len(OutcomeFields))
	for _, f := range OutcomeFields {
		o[f] = rng.Float64() < passBias
	}
	return o
}

// expectedAccepted counts the runs the service should store.
func (p *Participant) expectedAccepted() int {
	n := 0
	for _, r := range p.Runs {
		if !r.Retry {
			n++
		}
	}
	return n
}

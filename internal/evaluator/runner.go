package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/competemcgill/techgames/pkg/logger"
)

// ErrVerification marks a history that does not match what was submitted.
var ErrVerification = errors.New("history verification failed")

// Run executes a complete evaluator pass against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()[:8]
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting evaluator run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("runID", cfg.RunID),
		logger.Int("accounts", cfg.Accounts),
		logger.Int("runsPerAccount", cfg.RunsPerAccount),
		logger.Float64("retryRatio", cfg.RetryRatio),
		logger.Int("workers", cfg.Workers))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	participants := generateParticipants(cfg)
	for _, p := range participants {
		acc, err := c.createAccount(ctx, p)
		if err != nil {
			return stats, fmt.Errorf("create account %s: %w", p.Email, err)
		}
		p.AccountID = acc.ID
		stats.AccountsCreated++
	}

	submitAll(ctx, c, cfg.Workers, participants, stats, log)

	for _, p := range participants {
		if err := verifyParticipant(ctx, c, p); err != nil {
			return stats, err
		}
		stats.HistoriesVerified++
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)
	return stats, nil
}

// submitAll hands whole participants to workers so each account's runs are
// submitted in order by a single goroutine.
func submitAll(ctx context.Context, c *client, workers int, participants []*Participant, stats *Stats, log logger.Logger) {
	var submitted, accepted, duplicate, failed int64

	jobs := make(chan *Participant, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				for _, run := range p.Runs {
					if ctx.Err() != nil {
						return
					}
					res := c.submit(ctx, p.AccountID, run)
					atomic.AddInt64(&submitted, 1)
					switch res {
					case resultAccepted:
						atomic.AddInt64(&accepted, 1)
					case resultDuplicate:
						atomic.AddInt64(&duplicate, 1)
					default:
						atomic.AddInt64(&failed, 1)
						log.Warn(ctx, "submission failed",
							logger.String("accountID", p.AccountID),
							logger.String("key", run.Key))
					}
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range participants {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()
	wg.Wait()

	stats.RunsSubmitted = int(submitted)
	stats.RunsAccepted = int(accepted)
	stats.RunsDuplicate = int(duplicate)
	stats.RunsFailed = int(failed)
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var runsPerSecond float64
	if stats.Duration > 0 {
		runsPerSecond = float64(stats.RunsSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "evaluator run completed",
		logger.Int("accountsCreated", stats.AccountsCreated),
		logger.Int("runsSubmitted", stats.RunsSubmitted),
		logger.Int("runsAccepted", stats.RunsAccepted),
		logger.Int("runsDuplicate", stats.RunsDuplicate),
		logger.Int("runsFailed", stats.RunsFailed),
		logger.Int("historiesVerified", stats.HistoriesVerified),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("runsPerSecond", runsPerSecond))
}

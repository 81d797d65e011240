package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/competemcgill/techgames/internal/evaluator"
	"github.com/competemcgill/techgames/pkg/logger"
)

// Default configuration constants.
const (
	defaultAccounts       = 50
	defaultRunsPerAccount = 10
	defaultRetryRatio     = 0.2
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:3000", "Base URL of the service")
		accounts  = flag.Int("accounts", defaultAccounts, "Number of participants to register")
		runs      = flag.Int("runs", defaultRunsPerAccount, "Evaluation runs per participant")
		retry     = flag.Float64("retry", defaultRetryRatio, "Share of runs re-sent with the same Idempotency-Key")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed      = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for generated outcomes")
		runID     = flag.String("run-id", "", "Tag for generated accounts (default: random)")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.InitWith(os.Stdout, *logFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &evaluator.Config{
		BaseURL:        *baseURL,
		Accounts:       *accounts,
		RunsPerAccount: *runs,
		RetryRatio:     *retry,
		Workers:        *workers,
		Timeout:        *timeout,
		Seed:           *seed,
		RunID:          *runID,
	}

	log := logger.Named("evaluator")
	if _, err := evaluator.Run(ctx, cfg, log); err != nil {
		log.Error(ctx, "evaluator run failed", logger.Error(err))
		os.Exit(1)
	}
}

package service

import (
	"time"

	repository "github.com/competemcgill/techgames/internal/adapters/repository"
	"github.com/competemcgill/techgames/internal/domain/dedupe"
	"github.com/competemcgill/techgames/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDirectory sets the account store.
func WithDirectory(d repository.Directory) Option {
	return func(s *Service) { s.directory = d }
}

// WithEventStore sets the score event store.
func WithEventStore(e repository.EventStore) Option {
	return func(s *Service) { s.events = e }
}

// WithStore sets a store that serves as both directory and event store.
func WithStore(st interface {
	repository.Directory
	repository.EventStore
}) Option {
	return func(s *Service) {
		s.directory = st
		s.events = st
	}
}

// WithProvider sets the external provider client.
func WithProvider(p Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithDeduper enables idempotency keys on score submissions.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) { s.deduper = d }
}

// WithRepoTemplate sets the web base URL and template repository name used
// to derive account repository URLs.
func WithRepoTemplate(webURL, repo string) Option {
	return func(s *Service) {
		s.webURL = webURL
		s.templateRepo = repo
	}
}

// WithClock overrides the clock used for score timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

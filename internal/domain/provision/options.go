package provision

import "github.com/competemcgill/techgames/pkg/logger"

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithWebURL sets the base of derived repository URLs.
func WithWebURL(u string) Option {
	return func(p *Provisioner) {
		if u != "" {
			p.webURL = u
		}
	}
}

// WithTemplateRepo sets the repository name used in derived URLs.
func WithTemplateRepo(name string) Option {
	return func(p *Provisioner) {
		if name != "" {
			p.templateRepo = name
		}
	}
}

// WithLogger sets the provisioner logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.log = l
		}
	}
}

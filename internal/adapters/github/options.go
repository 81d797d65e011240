package github

import (
	"net/http"
	"time"

	"github.com/competemcgill/techgames/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.oauth.Endpoint.TokenURL = u
		}
	}
}

// WithAPIURL overrides the REST API base URL.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = u
		}
	}
}

// WithTemplate sets the repository forked for new accounts.
func WithTemplate(owner, repo string) Option {
	return func(c *Client) {
		if owner != "" {
			c.templateOwner = owner
		}
		if repo != "" {
			c.templateRepo = repo
		}
	}
}

// WithTimeout bounds each outbound call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

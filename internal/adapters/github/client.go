// Package github talks to GitHub: OAuth code exchange, profile lookup and
// forking the challenge template.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/competemcgill/techgames/internal/domain/model"
	"github.com/competemcgill/techgames/pkg/logger"
	"github.com/competemcgill/techgames/pkg/metrics"
)

// Default endpoints.
const (
	DefaultTokenURL = "https://github.com/login/oauth/access_token"
	DefaultAPIURL   = "https://api.github.com"
)

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

// Client is a GitHub API client scoped to one OAuth app and one template
// repository.
type Client struct {
	oauth         *oauth2.Config
	http          *http.Client
	apiURL        string
	templateOwner string
	templateRepo  string
	timeout       time.Duration
	log           logger.Logger
}

// New creates a client for the OAuth app identified by clientID and secret.
func New(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		http:          &http.Client{},
		apiURL:        DefaultAPIURL,
		templateOwner: "Compete-McGill",
		templateRepo:  "techgames-api-challenge-template",
		timeout:       10 * time.Second,
		log:           logger.Discard(),
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL: DefaultTokenURL,
				// Fixed style: oauth2 would otherwise retry a failed exchange
				// with basic auth, sending the one-time code twice.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.apiURL = strings.TrimRight(c.apiURL, "/")
	return c
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) observe(call string, err error, start time.Time) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.RecordOutboundLatency(call, result, float64(time.Since(start).Microseconds())/1000)
}

// Exchange trades an authorization code for an access token.
//
// A response without a token, including GitHub's 200 replies carrying an
// error field, is ErrInvalidCredential. Transport failures and non-2xx
// statuses are ErrExternalProvider.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (token string, err error) {
	const op = "github.Exchange"
	start := time.Now()
	defer func() { c.observe("token_exchange", err, start) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var params []oauth2.AuthCodeOption
	if redirectURI != "" {
		params = append(params, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}
	tok, err := c.oauth.Exchange(ctx, code, params...)
	if err != nil {
		return "", model.WrapKind(op, classifyExchange(err), err)
	}
	if tok.AccessToken == "" {
		return "", model.NewKind(op, model.ErrInvalidCredential)
	}
	return tok.AccessToken, nil
}

func classifyExchange(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.ErrExternalProvider
	}
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.Response != nil && rErr.Response.StatusCode >= 200 && rErr.Response.StatusCode < 300 {
			return model.ErrInvalidCredential
		}
		return model.ErrExternalProvider
	}
	return model.ErrInvalidCredential
}

// authorized returns an HTTP client that sends token as a bearer header.
func (c *Client) authorized(ctx context.Context, token string) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

func (c *Client) do(ctx context.Context, token, method, path string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.authorized(ctx, token).Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

// Profile returns the login of the user owning token.
func (c *Client) Profile(ctx context.Context, token string) (login string, err error) {
	const op = "github.Profile"
	start := time.Now()
	defer func() { c.observe("profile", err, start) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	status, body, err := c.do(ctx, token, http.MethodGet, "/user", nil)
	if err != nil {
		return "", model.WrapKind(op, model.ErrExternalProvider, err)
	}
	if status < 200 || status >= 300 {
		return "", model.WrapKind(op, model.ErrExternalProvider, fmt.Errorf("status %d", status))
	}
	var user struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return "", model.WrapKind(op, model.ErrExternalProvider, err)
	}
	if user.Login == "" {
		return "", model.WrapKind(op, model.ErrExternalProvider, errors.New("profile has no login"))
	}
	return user.Login, nil
}

// Fork forks the template repository into the account owning token. Every
// failure is reported as ErrInvalidCredential: the token is the only input.
func (c *Client) Fork(ctx context.Context, token string) (err error) {
	const op = "github.Fork"
	start := time.Now()
	defer func() {
		c.observe("fork", err, start)
		if err != nil {
			metrics.RecordFork("failure")
		} else {
			metrics.RecordFork("success")
		}
	}()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	path := fmt.Sprintf("/repos/%s/%s/forks", url.PathEscape(c.templateOwner), url.PathEscape(c.templateRepo))
	status, _, err := c.do(ctx, token, http.MethodPost, path, []byte("{}"))
	if err != nil {
		c.log.Warn(ctx, "fork request failed", logger.Error(err))
		return model.WrapKind(op, model.ErrInvalidCredential, err)
	}
	if status < 200 || status >= 300 {
		c.log.Warn(ctx, "fork rejected", logger.Int("status", status))
		return model.WrapKind(op, model.ErrInvalidCredential, fmt.Errorf("status %d", status))
	}
	return nil
}

package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/competemcgill/techgames/internal/domain/model"
)

// IdempotencyHeader carries the per-run submission key.
const IdempotencyHeader = "Idempotency-Key"

// Submission results.
const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)

var errUnexpectedStatus = errors.New("unexpected status")

// client wraps http.Client with the service base URL.
type client struct {
	http *http.Client
	base string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, base: baseURL}
}

func (c *client) do(ctx context.Context, method, path string, body any, header http.Header) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// decode reads resp into v when the status matches want.
func decode(resp *http.Response, want int, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d %s", errUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return err
	}
	return decode(resp, http.StatusOK, nil)
}

// createAccount registers p through the direct path.
func (c *client) createAccount(ctx context.Context, p *Participant) (model.Account, error) {
	var acc model.Account
	resp, err := c.do(ctx, http.MethodPost, "/users", map[string]string{
		"email":          p.Email,
		"githubUsername": p.Username,
		"githubToken":    "evaluator-token",
	}, nil)
	if err != nil {
		return acc, err
	}
	return acc, decode(resp, http.StatusCreated, &acc)
}

// submit posts one run and classifies the response.
func (c *client) submit(ctx context.Context, accountID string, run Submission) string {
	h := http.Header{}
	h.Set(IdempotencyHeader, run.Key)
	resp, err := c.do(ctx, http.MethodPost, "/users/"+accountID+"/updateScore", run.Outcomes, h)
	if err != nil {
		return resultFailed
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated:
		return resultAccepted
	case http.StatusConflict:
		return resultDuplicate
	default:
		return resultFailed
	}
}

func (c *client) account(ctx context.Context, id string) (model.Account, error) {
	var acc model.Account
	resp, err := c.do(ctx, http.MethodGet, "/users/"+id, nil, nil)
	if err != nil {
		return acc, err
	}
	return acc, decode(resp, http.StatusOK, &acc)
}

func (c *client) history(ctx context.Context, id string) ([]model.ScoreEvent, error) {
	var evs []model.ScoreEvent
	resp, err := c.do(ctx, http.MethodGet, "/users/"+id+"/scores", nil, nil)
	if err != nil {
		return nil, err
	}
	return evs, decode(resp, http.StatusOK, &evs)
}

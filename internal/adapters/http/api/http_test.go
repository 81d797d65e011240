package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/competemcgill/techgames/internal/adapters/http/api"
	"github.com/competemcgill/techgames/internal/domain/model"
	"github.com/competemcgill/techgames/internal/domain/provision"
)

const validID = "4f9d8c1e-3b7a-4e6f-9a2b-1c0d5e7f8a9b"

const allOutcomes = `{"liveness":true,"authenticate200":true,"authenticate403":false,
"createAccount201":true,"createAccount400":false,"createAccount500":false,"indexArticles":true,
"showArticles200":false,"showArticles404":false,"createArticles201":false,"createArticles400":false,
"createArticles403":false,"updateArticles200":false,"updateArticles400":false,"updateArticles401":false,
"updateArticles403":false,"updateArticles404":false,"deleteArticles200":false,"deleteArticles401":false,
"deleteArticles403":false,"deleteArticles404":true}`

// mockDeps records the last call and returns canned results.
type mockDeps struct {
	account  model.Account
	accounts []model.Account
	event    model.ScoreEvent
	events   []model.ScoreEvent
	err      error

	lastMode     provision.Mode
	lastCode     string
	lastRedirect string
	lastEmail    string
	lastKey      string
	lastOutcomes model.Outcomes
	lastUpdate   model.AccountUpdate
	lastID       string
}

func (m *mockDeps) ResolveOrCreateFromOAuth(_ context.Context, code, redirectURI string, mode provision.Mode) (model.Account, error) {
	m.lastCode, m.lastRedirect, m.lastMode = code, redirectURI, mode
	return m.account, m.err
}

func (m *mockDeps) CreateAccount(_ context.Context, email, _, _ string, mode provision.Mode) (model.Account, error) {
	m.lastEmail, m.lastMode = email, mode
	return m.account, m.err
}

func (m *mockDeps) SubmitScore(_ context.Context, id string, outcomes model.Outcomes, key string) (model.ScoreEvent, error) {
	m.lastID, m.lastOutcomes, m.lastKey = id, outcomes, key
	return m.event, m.err
}

func (m *mockDeps) ScoreHistory(_ context.Context, id string) ([]model.ScoreEvent, error) {
	m.lastID = id
	return m.events, m.err
}

func (m *mockDeps) GetAccount(_ context.Context, id string) (model.Account, error) {
	m.lastID = id
	return m.account, m.err
}

func (m *mockDeps) ListAccounts(context.Context) ([]model.Account, error) {
	return m.accounts, m.err
}

func (m *mockDeps) UpdateAccount(_ context.Context, id string, upd model.AccountUpdate) (model.Account, error) {
	m.lastID, m.lastUpdate = id, upd
	return m.account, m.err
}

func (m *mockDeps) DeleteAccount(_ context.Context, id string) error {
	m.lastID = id
	return m.err
}

type mockStats struct {
	stats map[string]any
}

func (m *mockStats) GetStats(context.Context) map[string]any { return m.stats }

func newRouter(deps *mockDeps, stats api.StatsProvider, opts ...api.Option) http.Handler {
	r := chi.NewRouter()
	api.NewServer(deps, stats, opts...).Register(r)
	return r
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Health(t *testing.T) {
	Convey("Given a router over a started service", t, func() {
		stats := &mockStats{stats: map[string]any{"started": true, "accounts": 3}}
		h := newRouter(&mockDeps{}, stats)

		Convey("Then /healthz is ok", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("Then /stats returns the provider's stats", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"accounts":3`)
		})

		Convey("Then /metrics serves Prometheus text", func() {
			w := do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "techgames_")
		})

		Convey("Then unknown routes are 404 JSON", func() {
			w := do(h, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
		})
	})

	Convey("Given a router over a stopped service", t, func() {
		h := newRouter(&mockDeps{}, &mockStats{stats: map[string]any{"started": false}})

		Convey("Then /healthz is unavailable", func() {
			So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestServer_AuthGitHub(t *testing.T) {
	Convey("Given a router in production mode", t, func() {
		deps := &mockDeps{account: model.Account{ID: validID, ExternalUsername: "octocat", ExternalToken: "secret"}}
		h := newRouter(deps, nil, api.WithMode(provision.ModeProduction))

		Convey("When the exchange succeeds", func() {
			w := do(h, http.MethodPost, "/auth/github", `{"code":"abc","redirectUri":"http://x/cb"}`)

			Convey("Then the account is returned without its token", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"githubUsername":"octocat"`)
				So(w.Body.String(), ShouldNotContainSubstring, "secret")
				So(deps.lastCode, ShouldEqual, "abc")
				So(deps.lastRedirect, ShouldEqual, "http://x/cb")
				So(deps.lastMode, ShouldEqual, provision.ModeProduction)
			})
		})

		Convey("When the credential is invalid", func() {
			deps.err = model.NewKind("identity.Resolve", model.ErrInvalidCredential)
			w := do(h, http.MethodPost, "/auth/github", `{"code":"abc"}`)

			Convey("Then it is a 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "invalid_credential")
			})
		})

		Convey("When the provider fails", func() {
			deps.err = model.WrapKind("github.Profile", model.ErrExternalProvider, errors.New("dial tcp 10.0.0.1: refused"))
			w := do(h, http.MethodPost, "/auth/github", `{"code":"abc"}`)

			Convey("Then it is a generic 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w)["message"], ShouldEqual, "Server Error")
				So(w.Body.String(), ShouldNotContainSubstring, "10.0.0.1")
			})
		})

		Convey("When the code is missing", func() {
			w := do(h, http.MethodPost, "/auth/github", `{}`)

			Convey("Then it is a 422", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w)["code"], ShouldEqual, "missing_params")
				So(decodeError(w)["message"], ShouldEqual, "Invalid or missing 'code'")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(h, http.MethodPost, "/auth/github", `{nope`)

			Convey("Then it is a 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			})
		})
	})
}

func TestServer_Users(t *testing.T) {
	Convey("Given a router", t, func() {
		deps := &mockDeps{account: model.Account{ID: validID, Email: "a@b.co", ScoreRefs: []string{}}}
		h := newRouter(deps, nil)

		Convey("When creating a user", func() {
			w := do(h, http.MethodPost, "/users", `{"email":"a@b.co","githubToken":"t","githubUsername":"alice"}`)

			Convey("Then it is created in the default mode", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.lastEmail, ShouldEqual, "a@b.co")
				So(deps.lastMode, ShouldEqual, provision.ModeDevelopment)
			})
		})

		Convey("When creating a user with a bad email", func() {
			w := do(h, http.MethodPost, "/users", `{"email":"nope","githubToken":"t","githubUsername":"alice"}`)

			Convey("Then it is a 422 naming the field", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w)["message"], ShouldEqual, "Invalid or missing 'email'")
			})
		})

		Convey("When the email is taken", func() {
			deps.err = model.NewKind("provision.Direct", model.ErrDuplicateAccount)
			w := do(h, http.MethodPost, "/users", `{"email":"a@b.co","githubToken":"t","githubUsername":"alice"}`)

			Convey("Then it is a 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w)["code"], ShouldEqual, "duplicate_account")
			})
		})

		Convey("When listing users", func() {
			deps.accounts = []model.Account{deps.account}
			w := do(h, http.MethodGet, "/users", "")

			Convey("Then all are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(len(out), ShouldEqual, 1)
				So(out[0]["id"], ShouldEqual, validID)
			})
		})

		Convey("When showing a user with a malformed id", func() {
			w := do(h, http.MethodGet, "/users/not-an-id", "")

			Convey("Then it is a 422", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w)["message"], ShouldEqual, "Invalid or missing ':userId'")
			})
		})

		Convey("When showing a missing user", func() {
			deps.err = model.NewKind("service.GetAccount", model.ErrAccountNotFound)
			w := do(h, http.MethodGet, "/users/"+validID, "")

			Convey("Then it is a 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(deps.lastID, ShouldEqual, validID)
			})
		})

		Convey("When updating only the token", func() {
			w := do(h, http.MethodPut, "/users/"+validID, `{"githubToken":"new"}`)

			Convey("Then only the token is passed on", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastUpdate.Email, ShouldBeNil)
				So(deps.lastUpdate.ExternalUsername, ShouldBeNil)
				So(*deps.lastUpdate.ExternalToken, ShouldEqual, "new")
			})
		})

		Convey("When deleting a user", func() {
			w := do(h, http.MethodDelete, "/users/"+validID, "")

			Convey("Then it answers 204", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(deps.lastID, ShouldEqual, validID)
			})
		})

		Convey("When the directory fails", func() {
			deps.err = model.WrapKind("repository.All", model.ErrDirectory, errors.New("pq: connection refused"))
			w := do(h, http.MethodGet, "/users", "")

			Convey("Then it is a generic 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "pq")
			})
		})
	})
}

func TestServer_Scores(t *testing.T) {
	Convey("Given a router", t, func() {
		deps := &mockDeps{event: model.ScoreEvent{ID: "ev-1", Timestamp: "2026-01-01T00:00:00.000000000Z"}}
		h := newRouter(deps, nil)
		path := "/users/" + validID + "/updateScore"

		Convey("When every outcome is supplied", func() {
			w := do(h, http.MethodPost, path, allOutcomes, api.IdempotencyHeader, "run-7")

			Convey("Then the event is returned and the outcomes passed through", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, `"id":"ev-1"`)
				So(deps.lastID, ShouldEqual, validID)
				So(deps.lastKey, ShouldEqual, "run-7")
				So(deps.lastOutcomes.Liveness, ShouldBeTrue)
				So(deps.lastOutcomes.DeleteArticles404, ShouldBeTrue)
				So(deps.lastOutcomes.ShowArticles200, ShouldBeFalse)
				So(deps.lastOutcomes.Passed(), ShouldEqual, 5)
			})
		})

		Convey("When an outcome is missing", func() {
			body := strings.Replace(allOutcomes, `"deleteArticles404":true`, `"extra":true`, 1)
			w := do(h, http.MethodPost, path, body)

			Convey("Then it is a 422 naming the field", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w)["message"], ShouldEqual, "Invalid or missing 'deleteArticles404'")
			})
		})

		Convey("When an outcome is not a boolean", func() {
			body := strings.Replace(allOutcomes, `"liveness":true`, `"liveness":"yes"`, 1)
			w := do(h, http.MethodPost, path, body)

			Convey("Then it is a 422", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w)["message"], ShouldEqual, "Invalid or missing 'liveness'")
			})
		})

		Convey("When the account does not exist", func() {
			deps.err = model.NewKind("service.RecordScore", model.ErrAccountNotFound)
			w := do(h, http.MethodPost, path, allOutcomes)

			Convey("Then it is a 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the submission is a repeat", func() {
			deps.err = model.NewKind("service.SubmitScore", model.ErrDuplicateSubmission)
			w := do(h, http.MethodPost, path, allOutcomes, api.IdempotencyHeader, "run-7")

			Convey("Then it is a 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w)["code"], ShouldEqual, "duplicate_submission")
			})
		})

		Convey("When reading the history", func() {
			deps.events = []model.ScoreEvent{deps.event}
			w := do(h, http.MethodGet, "/users/"+validID+"/scores", "")

			Convey("Then the events are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"timestamp":"2026-01-01T00:00:00.000000000Z"`)
			})
		})
	})
}

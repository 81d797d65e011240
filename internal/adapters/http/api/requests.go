package api

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/competemcgill/techgames/internal/domain/model"
)

// outcomeFields lists every key a score submission must carry.
var outcomeFields = []string{
	"liveness",
	"authenticate200", "authenticate403",
	"createAccount201", "createAccount400", "createAccount500",
	"indexArticles",
	"showArticles200", "showArticles404",
	"createArticles201", "createArticles400", "createArticles403",
	"updateArticles200", "updateArticles400", "updateArticles401", "updateArticles403", "updateArticles404",
	"deleteArticles200", "deleteArticles401", "deleteArticles403", "deleteArticles404",
}

// validationError carries the user-facing message of a rejected field.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrValidation }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

func validateUserID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalid("Invalid or missing ':userId'")
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, "@")
}

// githubAuthRequest mirrors the OpenAPI schema for POST /auth/github.
type githubAuthRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

func (r githubAuthRequest) validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return invalid("Invalid or missing 'code'")
	}
	return nil
}

// createUserRequest mirrors the OpenAPI schema for POST /users.
type createUserRequest struct {
	Email          *string `json:"email"`
	GithubToken    *string `json:"githubToken"`
	GithubUsername *string `json:"githubUsername"`
}

func (r createUserRequest) validate() error {
	switch {
	case r.Email == nil || !validEmail(*r.Email):
		return invalid("Invalid or missing 'email'")
	case r.GithubToken == nil:
		return invalid("Invalid or missing 'githubToken'")
	case r.GithubUsername == nil || strings.TrimSpace(*r.GithubUsername) == "":
		return invalid("Invalid or missing 'githubUsername'")
	}
	return nil
}

// updateUserRequest mirrors the OpenAPI schema for PUT /users/{userId}.
// Every field is optional.
type updateUserRequest struct {
	Email          *string `json:"email"`
	GithubToken    *string `json:"githubToken"`
	GithubUsername *string `json:"githubUsername"`
}

func (r updateUserRequest) validate() error {
	if r.Email != nil && *r.Email != "" && !validEmail(*r.Email) {
		return invalid("Invalid 'email'")
	}
	if r.GithubUsername != nil && strings.TrimSpace(*r.GithubUsername) == "" {
		return invalid("Invalid 'githubUsername'")
	}
	return nil
}

func (r updateUserRequest) toUpdate() model.AccountUpdate {
	return model.AccountUpdate{
		Email:            r.Email,
		ExternalToken:    r.GithubToken,
		ExternalUsername: r.GithubUsername,
	}
}

// parseOutcomes requires every outcome key to be present as a boolean.
// null is rejected.
func parseOutcomes(body []byte) (model.Outcomes, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Outcomes{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	for _, field := range outcomeFields {
		v, ok := raw[field]
		if !ok {
			return model.Outcomes{}, invalid("Invalid or missing '%s'", field)
		}
		var b *bool
		if err := json.Unmarshal(v, &b); err != nil || b == nil {
			return model.Outcomes{}, invalid("Invalid or missing '%s'", field)
		}
	}
	var out model.Outcomes
	if err := json.Unmarshal(body, &out); err != nil {
		return model.Outcomes{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return out, nil
}

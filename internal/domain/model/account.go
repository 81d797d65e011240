// Package model contains domain models passed between layers.
package model

import "time"

// Origin records which creation path produced an account.
type Origin string

const (
	// OriginOAuth marks accounts provisioned from a GitHub OAuth callback.
	OriginOAuth Origin = "oauth"
	// OriginDirect marks accounts created with an explicit email.
	OriginDirect Origin = "direct"
)

// Account is one competition participant.
type Account struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	ExternalToken    string    `json:"-"`
	ExternalUsername string    `json:"githubUsername"`
	ExternalRepoURL  string    `json:"githubRepo"`
	ScoreRefs        []string  `json:"scores"`
	Origin           Origin    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// LastScoreRef returns the most recently appended score id.
func (a Account) LastScoreRef() (string, bool) {
	if len(a.ScoreRefs) == 0 {
		return "", false
	}
	return a.ScoreRefs[len(a.ScoreRefs)-1], true
}

// AccountUpdate carries the mutable fields of an account. Nil fields are left
// untouched. ExternalRepoURL is absent on purpose: it is fixed at creation.
type AccountUpdate struct {
	Email            *string
	ExternalToken    *string
	ExternalUsername *string
}

// Empty reports whether the update changes nothing.
func (u AccountUpdate) Empty() bool {
	return u.Email == nil && u.ExternalToken == nil && u.ExternalUsername == nil
}

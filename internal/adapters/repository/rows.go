package repository

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/competemcgill/techgames/internal/domain/model"
)

// accountRow is the stored form of model.Account. Email and OAuthUsername are
// NULL when absent so their unique indexes only constrain real values.
type accountRow struct {
	ID            string         `gorm:"primaryKey;size:36"`
	Email         *string        `gorm:"uniqueIndex"`
	OAuthUsername *string        `gorm:"column:oauth_username;uniqueIndex"`
	Token         string         `gorm:"column:github_token"`
	Username      string         `gorm:"column:github_username;index"`
	RepoURL       string         `gorm:"column:github_repo"`
	ScoreRefs     datatypes.JSON `gorm:"column:score_refs"`
	Origin        string         `gorm:"size:16"`
	CreatedAt     time.Time      `gorm:"autoCreateTime:false"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime:false"`
}

func (accountRow) TableName() string { return "accounts" }

// scoreRow is the stored form of model.ScoreEvent.
type scoreRow struct {
	ID         string         `gorm:"primaryKey;size:36"`
	Outcomes   model.Outcomes `gorm:"embedded"`
	RecordedAt string         `gorm:"column:recorded_at;size:40"`
}

func (scoreRow) TableName() string { return "score_events" }

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func encodeRefs(refs []string) (datatypes.JSON, error) {
	if refs == nil {
		refs = []string{}
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func decodeRefs(raw datatypes.JSON) ([]string, error) {
	refs := []string{}
	if len(raw) == 0 {
		return refs, nil
	}
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func newAccountRow(acc *model.Account) (accountRow, error) {
	refs, err := encodeRefs(acc.ScoreRefs)
	if err != nil {
		return accountRow{}, err
	}
	row := accountRow{
		ID:        acc.ID,
		Email:     nullable(acc.Email),
		Token:     acc.ExternalToken,
		Username:  acc.ExternalUsername,
		RepoURL:   acc.ExternalRepoURL,
		ScoreRefs: refs,
		Origin:    string(acc.Origin),
		CreatedAt: acc.CreatedAt,
		UpdatedAt: acc.UpdatedAt,
	}
	if acc.Origin == model.OriginOAuth {
		row.OAuthUsername = nullable(acc.ExternalUsername)
	}
	return row, nil
}

func (r accountRow) toModel() (model.Account, error) {
	refs, err := decodeRefs(r.ScoreRefs)
	if err != nil {
		return model.Account{}, err
	}
	return model.Account{
		ID:               r.ID,
		Email:            deref(r.Email),
		ExternalToken:    r.Token,
		ExternalUsername: r.Username,
		ExternalRepoURL:  r.RepoURL,
		ScoreRefs:        refs,
		Origin:           model.Origin(r.Origin),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

func newScoreRow(ev *model.ScoreEvent) scoreRow {
	return scoreRow{ID: ev.ID, Outcomes: ev.Outcomes, RecordedAt: ev.Timestamp}
}

func (r scoreRow) toModel() model.ScoreEvent {
	return model.ScoreEvent{ID: r.ID, Outcomes: r.Outcomes, Timestamp: r.RecordedAt}
}

package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/competemcgill/techgames/internal/domain/model"
	"github.com/competemcgill/techgames/pkg/logger"
	"github.com/competemcgill/techgames/pkg/metrics"
)

const (
	entityAccount = "account"
	entityScore   = "score"
)

// Store implements Directory and EventStore on top of GORM.
type Store struct {
	db    *gorm.DB
	log   logger.Logger
	newID func() string
	now   func() time.Time
}

var (
	_ Directory  = (*Store)(nil)
	_ EventStore = (*Store)(nil)
)

// NewStore wraps an open database. Call Migrate before first use.
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		log:   logger.Discard(),
		newID: defaultID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) observe(entity, op, result string, start time.Time) {
	metrics.RecordDirectoryOperation(entity, op, result, float64(time.Since(start).Microseconds())/1000)
}

func resultOf(err error, found bool) string {
	switch {
	case err != nil:
		return "error"
	case !found:
		return "not_found"
	default:
		return "success"
	}
}

func (s *Store) findOne(ctx context.Context, op string, query string, arg any) (model.Account, bool, error) {
	start := time.Now()
	var row accountRow
	err := s.db.WithContext(ctx).Where(query, arg).Order("created_at asc").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.observe(entityAccount, op, "not_found", start)
		return model.Account{}, false, nil
	}
	if err != nil {
		s.observe(entityAccount, op, "error", start)
		return model.Account{}, false, model.WrapKind("repository."+op, model.ErrDirectory, err)
	}
	acc, err := row.toModel()
	s.observe(entityAccount, op, resultOf(err, true), start)
	if err != nil {
		return model.Account{}, false, model.WrapKind("repository."+op, model.ErrDirectory, err)
	}
	return acc, true, nil
}

// FindByExternalUsername returns the earliest account with the given GitHub
// username.
func (s *Store) FindByExternalUsername(ctx context.Context, username string) (model.Account, bool, error) {
	if username == "" {
		return model.Account{}, false, nil
	}
	return s.findOne(ctx, "find_by_username", "github_username = ?", username)
}

// FindByEmail returns the account registered with email.
func (s *Store) FindByEmail(ctx context.Context, email string) (model.Account, bool, error) {
	if email == "" {
		return model.Account{}, false, nil
	}
	return s.findOne(ctx, "find_by_email", "email = ?", email)
}

// Find returns the account with the given id.
func (s *Store) Find(ctx context.Context, id string) (model.Account, bool, error) {
	if id == "" {
		return model.Account{}, false, nil
	}
	return s.findOne(ctx, "find", "id = ?", id)
}

func (s *Store) Create(ctx context.Context, acc *model.Account) error {
	const op = "repository.Create"
	start := time.Now()

	now := s.now().UTC()
	acc.ID = s.newID()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	if acc.ScoreRefs == nil {
		acc.ScoreRefs = []string{}
	}

	row, err := newAccountRow(acc)
	if err != nil {
		s.observe(entityAccount, "create", "error", start)
		return model.WrapKind(op, model.ErrDirectory, err)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		err = classify(op, err)
		result := "error"
		if errors.Is(err, model.ErrDuplicateAccount) {
			result = "conflict"
		}
		s.observe(entityAccount, "create", result, start)
		s.log.Debug(ctx, "account insert rejected",
			logger.String("username", acc.ExternalUsername),
			logger.String("result", result),
			logger.Error(err))
		acc.ID = ""
		return err
	}
	s.observe(entityAccount, "create", "success", start)
	return nil
}

func (s *Store) Update(ctx context.Context, id string, upd model.AccountUpdate) (model.Account, bool, error) {
	const op = "repository.Update"
	start := time.Now()

	var out model.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row accountRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&row).Error; err != nil {
			return err
		}

		changes := map[string]any{"updated_at": s.now().UTC()}
		if upd.Email != nil {
			row.Email = nullable(*upd.Email)
			changes["email"] = row.Email
		}
		if upd.ExternalToken != nil {
			row.Token = *upd.ExternalToken
			changes["github_token"] = row.Token
		}
		if upd.ExternalUsername != nil {
			row.Username = *upd.ExternalUsername
			changes["github_username"] = row.Username
			if row.Origin == string(model.OriginOAuth) {
				row.OAuthUsername = nullable(row.Username)
				changes["oauth_username"] = row.OAuthUsername
			}
		}
		row.UpdatedAt = changes["updated_at"].(time.Time)

		if err := tx.Model(&accountRow{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		acc, err := row.toModel()
		if err != nil {
			return err
		}
		out = acc
		return nil
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.observe(entityAccount, "update", "not_found", start)
		return model.Account{}, false, nil
	case err != nil:
		err = classify(op, err)
		s.observe(entityAccount, "update", "error", start)
		return model.Account{}, false, err
	}
	s.observe(entityAccount, "update", "success", start)
	return out, true, nil
}

func (s *Store) AppendScoreRef(ctx context.Context, id, scoreID string) (bool, error) {
	const op = "repository.AppendScoreRef"
	start := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row accountRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "score_refs").Where("id = ?", id).Take(&row).Error; err != nil {
			return err
		}
		refs, err := decodeRefs(row.ScoreRefs)
		if err != nil {
			return err
		}
		raw, err := encodeRefs(append(refs, scoreID))
		if err != nil {
			return err
		}
		return tx.Model(&accountRow{}).Where("id = ?", id).Updates(map[string]any{
			"score_refs": raw,
			"updated_at": s.now().UTC(),
		}).Error
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.observe(entityAccount, "append_score", "not_found", start)
		return false, nil
	case err != nil:
		s.observe(entityAccount, "append_score", "error", start)
		s.log.Error(ctx, "append score ref failed",
			logger.String("account_id", id),
			logger.String("score_id", scoreID),
			logger.Error(err))
		return false, model.WrapKind(op, model.ErrDirectory, err)
	}
	s.observe(entityAccount, "append_score", "success", start)
	return true, nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	const op = "repository.Delete"
	start := time.Now()

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&accountRow{})
	if res.Error != nil {
		s.observe(entityAccount, "delete", "error", start)
		return false, model.WrapKind(op, model.ErrDirectory, res.Error)
	}
	found := res.RowsAffected > 0
	s.observe(entityAccount, "delete", resultOf(nil, found), start)
	return found, nil
}

// All returns every account, oldest first.
func (s *Store) All(ctx context.Context) ([]model.Account, error) {
	const op = "repository.All"
	start := time.Now()

	var rows []accountRow
	if err := s.db.WithContext(ctx).Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		s.observe(entityAccount, "list", "error", start)
		return nil, model.WrapKind(op, model.ErrDirectory, err)
	}
	out := make([]model.Account, 0, len(rows))
	for _, row := range rows {
		acc, err := row.toModel()
		if err != nil {
			s.observe(entityAccount, "list", "error", start)
			return nil, model.WrapKind(op, model.ErrDirectory, err)
		}
		out = append(out, acc)
	}
	s.observe(entityAccount, "list", "success", start)
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&accountRow{}).Count(&n).Error; err != nil {
		return 0, model.WrapKind("repository.Count", model.ErrDirectory, err)
	}
	return n, nil
}

func (s *Store) CreateScore(ctx context.Context, ev *model.ScoreEvent) error {
	const op = "repository.CreateScore"
	start := time.Now()

	row := newScoreRow(ev)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.observe(entityScore, "create", "error", start)
		return model.WrapKind(op, model.ErrDirectory, err)
	}
	s.observe(entityScore, "create", "success", start)
	return nil
}

func (s *Store) FindScores(ctx context.Context, ids []string) ([]model.ScoreEvent, error) {
	const op = "repository.FindScores"
	if len(ids) == 0 {
		return []model.ScoreEvent{}, nil
	}
	start := time.Now()

	var rows []scoreRow
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		s.observe(entityScore, "find", "error", start)
		return nil, model.WrapKind(op, model.ErrDirectory, err)
	}
	byID := make(map[string]scoreRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]model.ScoreEvent, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row.toModel())
		}
	}
	s.observe(entityScore, "find", "success", start)
	return out, nil
}

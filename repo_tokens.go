package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserTokens is the storage behind the session registry
type UserTokens interface {
	repository.Repository[*UserToken]

	Insert(ctx context.Context, record *UserToken) (*UserToken, error)
	GetByToken(ctx context.Context, token string) (*UserToken, error)
	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type userTokens struct {
	repository.Repository[*UserToken]
	db *bun.DB
}

var _ UserTokens = (*userTokens)(nil)

// NewUserTokensRepository returns the bun backed session token store
func NewUserTokensRepository(db *bun.DB) UserTokens {
	repo := repository.NewRepository[*UserToken](db, repository.ModelHandlers[*UserToken]{
		NewRecord: func() *UserToken { return &UserToken{} },
		GetID: func(t *UserToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *UserToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &userTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *userTokens) Insert(ctx context.Context, record *UserToken) (*UserToken, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *userTokens) GetByToken(ctx context.Context, token string) (*UserToken, error) {
	record := &UserToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, map[string]any{"column": "token"})
	}
	return record, nil
}

func (r *userTokens) DeleteByToken(ctx context.Context, token string) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*UserToken)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *userTokens) DeleteByID(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*UserToken)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *userTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*UserToken)(nil)).
		Where("expiry < ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

const pgUniqueViolation = "23505"

// Users is the user store
type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	FindConflicts(ctx context.Context, username, email string) ([]*User, error)
	FindConflictsTx(ctx context.Context, tx bun.IDB, username, email string) ([]*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error)
	GetByVerifyTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)

	SetResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiry time.Time) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	SetVerifyTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error
	MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository returns the bun backed user store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts the user. A store level uniqueness violation is
// reported as ErrDuplicateUsername or ErrDuplicateEmail.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	a.prepareDefaults(user)

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		if dup := duplicateFromStoreError(err); dup != nil {
			return nil, dup
		}
		return nil, err
	}
	return user, nil
}

func (a *users) prepareDefaults(user *User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = RoleCustomer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = a.now().UTC()
	}
}

func (a *users) FindConflicts(ctx context.Context, username, email string) ([]*User, error) {
	return a.FindConflictsTx(ctx, a.db, username, email)
}

// FindConflictsTx runs a single lookup matching either username or email
func (a *users) FindConflictsTx(ctx context.Context, tx bun.IDB, username, email string) ([]*User, error) {
	var records []*User
	err := tx.NewSelect().
		Model(&records).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.username = ?", username).
				WhereOr("?TableAlias.email = ?", email)
		}).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) && !repository.IsRecordNotFound(err) {
		return nil, err
	}
	return records, nil
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	return a.getOne(ctx, tx, "username", username)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.getOne(ctx, tx, "email", email)
}

// GetByVerifyTokenTx matches a pending verification token or one that was
// already consumed.
func (a *users) GetByVerifyTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.email_verify_token = ?", token).
				WhereOr("?TableAlias.used_verify_token = ?", token)
		}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, map[string]any{"column": "email_verify_token"})
	}
	return record, nil
}

// GetByResetTokenTx matches the token exactly and requires its expiry to
// be strictly after now.
func (a *users) GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.reset_token = ?", token).
		Where("?TableAlias.reset_token_expiry > ?", now).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, map[string]any{"column": "reset_token"})
	}
	return record, nil
}

func (a *users) getOne(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, map[string]any{"column": column})
	}
	return record, nil
}

func (a *users) SetResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiry time.Time) error {
	record := &User{ID: id, ResetToken: &token, ResetTokenExpiry: &expiry}
	return a.updateColumns(ctx, tx, record, "reset_token", "reset_token_expiry")
}

// ResetPasswordTx stores the new hash and clears the reset token together
// with its expiry.
func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	record := &User{ID: id, PasswordHash: passwordHash}
	return a.updateColumns(ctx, tx, record, "password_hash", "reset_token", "reset_token_expiry")
}

func (a *users) SetVerifyTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error {
	record := &User{ID: id, EmailVerifyToken: &token}
	return a.updateColumns(ctx, tx, record, "email_verify_token")
}

// MarkEmailVerifiedTx sets the verified flag and moves token from the
// pending column to the consumed one.
func (a *users) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error {
	record := &User{ID: id, EmailVerified: true, UsedVerifyToken: &token}
	return a.updateColumns(ctx, tx, record, "is_email_verified", "email_verify_token", "used_verify_token")
}

func (a *users) updateColumns(ctx context.Context, tx bun.IDB, record *User, columns ...string) error {
	res, err := tx.NewUpdate().
		Model(record).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": record.ID.String(),
			})
	}
	return nil
}

func notFoundOr(err error, meta map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return repository.NewRecordNotFound().WithMetadata(meta)
	}
	return err
}

// duplicateFromStoreError maps sqlite and postgres unique violations on the
// users table to the domain duplicate errors. It returns nil for any other
// error.
func duplicateFromStoreError(err error) error {
	if err == nil {
		return nil
	}

	var detail string
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return nil
		}
		detail = pgErr.ConstraintName + " " + pgErr.Detail
	} else if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		detail = err.Error()
	} else {
		return nil
	}

	switch {
	case strings.Contains(detail, "username"):
		return ErrDuplicateUsername
	case strings.Contains(detail, "email"):
		return ErrDuplicateEmail
	default:
		return nil
	}
}

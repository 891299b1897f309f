package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// SessionRegistry tracks which issued tokens are still usable. Signed
// token verification alone can not revoke a token before its own expiry,
// the registry can.
type SessionRegistry interface {
	Record(ctx context.Context, token string, userID uuid.UUID, expiry time.Time) (*UserToken, error)
	// Find returns (nil, nil) when the token has no live entry
	Find(ctx context.Context, token string) (*UserToken, error)
	Revoke(ctx context.Context, token string) error
	// PurgeIfExpired deletes record when it is past its expiry and
	// reports whether it did.
	PurgeIfExpired(ctx context.Context, record *UserToken) (bool, error)
}

type SessionRegistryImpl struct {
	tokens UserTokens
	logger Logger
	now    func() time.Time
}

var _ SessionRegistry = (*SessionRegistryImpl)(nil)

// NewSessionRegistry returns a registry backed by the token store
func NewSessionRegistry(tokens UserTokens, logger Logger) *SessionRegistryImpl {
	return &SessionRegistryImpl{
		tokens: tokens,
		logger: normalizeLogger(logger),
		now:    time.Now,
	}
}

// WithClock overrides the clock used for expiry checks
func (r *SessionRegistryImpl) WithClock(now func() time.Time) *SessionRegistryImpl {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *SessionRegistryImpl) Record(ctx context.Context, token string, userID uuid.UUID, expiry time.Time) (*UserToken, error) {
	record := &UserToken{
		Token:     token,
		UserID:    userID,
		Expiry:    expiry.UTC(),
		CreatedAt: r.now().UTC(),
	}

	created, err := r.tokens.Insert(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record session")
	}
	return created, nil
}

func (r *SessionRegistryImpl) Find(ctx context.Context, token string) (*UserToken, error) {
	record, err := r.tokens.GetByToken(ctx, token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to lookup session")
	}
	return record, nil
}

// Revoke deletes the entry for token. Revoking an unknown token is not an
// error.
func (r *SessionRegistryImpl) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	n, err := r.tokens.DeleteByToken(ctx, token)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke session")
	}
	r.logger.Debug("session revoked", "rows", n)
	return nil
}

func (r *SessionRegistryImpl) PurgeIfExpired(ctx context.Context, record *UserToken) (bool, error) {
	if record == nil || !record.Expired(r.now()) {
		return false, nil
	}

	if _, err := r.tokens.DeleteByID(ctx, record.ID); err != nil {
		return true, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to purge expired session")
	}
	return true, nil
}

// PurgeExpired removes every expired entry. It runs once at startup so
// sessions that expired while the process was down do not linger.
func (r *SessionRegistryImpl) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := r.tokens.DeleteExpired(ctx, r.now())
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to purge expired sessions")
	}
	return n, nil
}

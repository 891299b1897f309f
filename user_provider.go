package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// UserLookup is a store we can use to retrieve users
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// UserProvider resolves the user behind an authenticated identity
type UserProvider struct {
	store  UserLookup
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserLookup) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// FindByIdentity loads the user the identity was issued to. A token whose
// user row is gone yields ErrUserNotFound.
func (u *UserProvider) FindByIdentity(ctx context.Context, identity Identity) (*User, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	user, err := u.store.GetByUsername(ctx, identity.Username())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			u.logger.Warn("authenticated identity without user", "username", identity.Username())
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}

	return user, nil
}

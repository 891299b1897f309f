package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username string `json:"username" example:"alice" doc:"Unique username."`
	Email    string `json:"email" example:"alice@example.com" doc:"Unique email."`
	Password string `json:"password" example:"some_secret_word" doc:"Password."`
	Phone    string `json:"phone" example:"+1 555 0100 200" doc:"Phone number."`

	OnResponse func(user *User) `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserHandler struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager, hasher PasswordHasher, notifier Notifier) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		hasher:   hasher,
		notifier: notifier,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Users().FindConflictsTx(ctx, tx, event.Username, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing users")
		}
		if dup := duplicateOf(existing, event.Username, event.Email); dup != nil {
			return dup
		}

		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		verifyToken, err := newOpaqueToken()
		if err != nil {
			return err
		}

		record := &User{
			Username:         event.Username,
			Email:            event.Email,
			PasswordHash:     hash,
			Phone:            event.Phone,
			Balance:          SignupBonus,
			Role:             RoleCustomer,
			EmailVerifyToken: &verifyToken,
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, record); err != nil {
			if IsDuplicateError(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if user.EmailVerifyToken != nil {
		if err := h.notifier.SendVerificationEmail(ctx, user.Email, user.Username, *user.EmailVerifyToken); err != nil {
			h.logger.Warn("verification notification failed after registration", "username", user.Username, "error", err)
		}
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventRegistered,
		UserID:    user.ID.String(),
		Username:  user.Username,
	})

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

// duplicateOf reports a username collision before an email collision
func duplicateOf(existing []*User, username, email string) error {
	emailTaken := false
	for _, u := range existing {
		if u.Username == username {
			return ErrDuplicateUsername
		}
		if u.Email == email {
			emailTaken = true
		}
	}
	if emailTaken {
		return ErrDuplicateEmail
	}
	return nil
}

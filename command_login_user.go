package auth

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type LoginUserMessage struct {
	Username string `json:"username" example:"alice" doc:"Username, matched exactly."`
	Password string `json:"password" example:"some_secret_word" doc:"Password."`

	OnResponse func(resp *LoginUserResponse) `json:"-"`
}

func (e LoginUserMessage) Type() string { return "user.login" }

type LoginUserResponse struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

type LoginUserHandler struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	tokens   TokenService
	sessions SessionRegistry
	activity ActivitySink
	logger   Logger

	// compared against for unknown usernames
	dummyHash string
}

// NewLoginUserHandler creates a handler with sane defaults.
func NewLoginUserHandler(repo RepositoryManager, hasher PasswordHasher, tokens TokenService, sessions SessionRegistry) *LoginUserHandler {
	return &LoginUserHandler{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		sessions:  sessions,
		activity:  noopActivitySink{},
		logger:    defLogger{},
		dummyHash: PlaceholderPasswordHash(hasher),
	}
}

// WithActivitySink sets the sink used to emit login events.
func (h *LoginUserHandler) WithActivitySink(sink ActivitySink) *LoginUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *LoginUserHandler) WithLogger(logger Logger) *LoginUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *LoginUserHandler) Execute(ctx context.Context, event LoginUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginUserHandler) execute(ctx context.Context, event LoginUserMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByUsername(ctx, event.Username)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for login")
		}
		// burn a comparison so unknown users cost the same as wrong passwords
		_ = h.hasher.ComparePasswordAndHash(event.Password, h.dummyHash)
		h.recordFailure(ctx, event.Username, "unknown_user")
		return ErrInvalidCredentials
	}

	if err := h.hasher.ComparePasswordAndHash(event.Password, user.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			h.logger.Error("password comparison failed", "username", user.Username, "error", err)
		}
		h.recordFailure(ctx, event.Username, "invalid_password")
		return ErrInvalidCredentials
	}

	token, expiresAt, err := h.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue token")
	}

	if _, err := h.sessions.Record(ctx, token, user.ID, expiresAt); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record session")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		Username:  user.Username,
	})

	if event.OnResponse != nil {
		event.OnResponse(&LoginUserResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			User:      user,
		})
	}

	return nil
}

func (h *LoginUserHandler) recordFailure(ctx context.Context, username, reason string) {
	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Username:  username,
		Metadata: map[string]any{
			"reason": reason,
		},
	})
}

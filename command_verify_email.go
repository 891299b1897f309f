package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Token string `json:"token" example:"9f2c...e1" doc:"Verification token from the notification link."`

	OnResponse func(resp *VerifyEmailResponse) `json:"-"`
}

func (e VerifyEmailMessage) Type() string { return "user.verification.confirm" }

type VerifyEmailResponse struct {
	User            *User
	AlreadyVerified bool
}

// VerifyEmailHandler confirms an email address. Confirming an address
// that is already verified succeeds with AlreadyVerified set.
type VerifyEmailHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewVerifyEmailHandler creates a handler with sane defaults.
func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit verification events.
func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	resp := &VerifyEmailResponse{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByVerifyTokenTx(ctx, tx, event.Token)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidVerificationToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for verification")
		}
		resp.User = user

		if user.EmailVerified {
			resp.AlreadyVerified = true
			return nil
		}

		if err := h.repo.Users().MarkEmailVerifiedTx(ctx, tx, user.ID, event.Token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email as verified")
		}
		user.EmailVerified = true
		user.EmailVerifyToken = nil
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify email")
	}

	if !resp.AlreadyVerified {
		recordActivity(ctx, h.activity, h.logger, ActivityEvent{
			EventType: ActivityEventEmailVerified,
			UserID:    resp.User.ID.String(),
			Username:  resp.User.Username,
		})
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type LogoutUserMessage struct {
	Token string `json:"-"`
}

func (e LogoutUserMessage) Type() string { return "user.logout" }

// LogoutUserHandler revokes the session named by the token. Logging out
// without a token, or with one that is already gone, succeeds.
type LogoutUserHandler struct {
	sessions SessionRegistry
	tokens   TokenService
	activity ActivitySink
	logger   Logger
}

// NewLogoutUserHandler creates a handler with sane defaults. tokens is
// only used to attribute the activity event and may be nil.
func NewLogoutUserHandler(sessions SessionRegistry, tokens TokenService) *LogoutUserHandler {
	return &LogoutUserHandler{
		sessions: sessions,
		tokens:   tokens,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit logout events.
func (h *LogoutUserHandler) WithActivitySink(sink ActivitySink) *LogoutUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *LogoutUserHandler) WithLogger(logger Logger) *LogoutUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *LogoutUserHandler) Execute(ctx context.Context, event LogoutUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during logout",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *LogoutUserHandler) execute(ctx context.Context, event LogoutUserMessage) error {
	if event.Token == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.sessions.Revoke(ctx, event.Token); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke session")
	}

	activity := ActivityEvent{EventType: ActivityEventLogout}
	if h.tokens != nil {
		if claims, err := h.tokens.Verify(event.Token); err == nil {
			activity.Username = claims.Username()
		}
	}
	recordActivity(ctx, h.activity, h.logger, activity)

	return nil
}

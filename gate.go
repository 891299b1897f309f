package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/kodbank/go-bank-auth/middleware/jwtware"
)

// Gate authenticates requests against the token issuer and the session
// registry.
type Gate struct {
	tokens   TokenService
	sessions SessionRegistry
	cfg      Config
	activity ActivitySink
	logger   Logger
}

var _ jwtware.TokenValidator = (*Gate)(nil)

// NewGate creates a gate with sane defaults.
func NewGate(tokens TokenService, sessions SessionRegistry, cfg Config) *Gate {
	return &Gate{
		tokens:   tokens,
		sessions: sessions,
		cfg:      cfg,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit session expiry events.
func (g *Gate) WithActivitySink(sink ActivitySink) *Gate {
	g.activity = normalizeActivitySink(sink)
	return g
}

// WithLogger overrides the logger used by the gate.
func (g *Gate) WithLogger(logger Logger) *Gate {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Authenticate runs the gate over a raw token:
//   - empty token fails with ErrUnauthenticated
//   - signature or structure failure fails with ErrInvalidToken
//   - no registry entry fails with ErrInvalidToken
//   - an expired registry entry is purged and fails with ErrTokenExpired
//
// A token past its own exp claim still reaches the registry so its entry
// is purged on first use. The returned Identity comes from the verified
// claims, not the registry.
func (g *Gate) Authenticate(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := g.tokens.Verify(raw)
	if errors.Is(err, ErrTokenExpired) {
		return nil, g.expireSession(ctx, raw)
	}
	if err != nil {
		g.logger.Debug("gate rejected token signature", "error", err)
		return nil, ErrInvalidToken
	}

	record, err := g.sessions.Find(ctx, raw)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return nil, ErrInvalidToken
	}

	purged, err := g.sessions.PurgeIfExpired(ctx, record)
	if purged {
		if err != nil {
			g.logger.Error("failed to purge expired session", "error", err)
		}
		g.sessionExpired(ctx, record, claims.Username())
		return nil, ErrTokenExpired
	}

	return claims, nil
}

// expireSession handles a signed token whose exp claim passed. Unknown
// tokens stay ErrInvalidToken so revoked sessions do not report expiry.
func (g *Gate) expireSession(ctx context.Context, raw string) error {
	record, err := g.sessions.Find(ctx, raw)
	if err != nil {
		return err
	}

	if record == nil {
		return ErrInvalidToken
	}

	if err := g.sessions.Revoke(ctx, raw); err != nil {
		g.logger.Error("failed to purge expired session", "error", err)
	}
	g.sessionExpired(ctx, record, "")
	return ErrTokenExpired
}

func (g *Gate) sessionExpired(ctx context.Context, record *UserToken, username string) {
	recordActivity(ctx, g.activity, g.logger, ActivityEvent{
		EventType: ActivityEventSessionExpired,
		UserID:    record.UserID.String(),
		Username:  username,
	})
}

// Validate implements jwtware.TokenValidator
func (g *Gate) Validate(ctx context.Context, raw string) (jwtware.AuthClaims, error) {
	identity, err := g.Authenticate(ctx, raw)
	if err != nil {
		return nil, err
	}

	claims, ok := identity.(jwtware.AuthClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenLookup is the extraction order: bearer header, then cookie
func (g *Gate) TokenLookup() string {
	return "header:" + fiber.HeaderAuthorization + ",cookie:" + cookieName(g.cfg)
}

// Middleware protects the routes registered after it
func (g *Gate) Middleware() fiber.Handler {
	return jwtware.New(jwtware.Config{
		TokenLookup:    g.TokenLookup(),
		AuthScheme:     "Bearer",
		ContextKey:     LocalsIdentityKey,
		TokenValidator: g,
		ErrorHandler:   g.errorHandler,
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			if identity, ok := claims.(Identity); ok {
				return WithIdentity(ctx, identity)
			}
			return ctx
		},
	})
}

// errorHandler hands the error to the app error handler so the response
// uses the common envelope.
func (g *Gate) errorHandler(c *fiber.Ctx, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return ErrUnauthenticated
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "authentication failed")
}

func cookieName(cfg Config) string {
	if cfg == nil || cfg.GetCookieName() == "" {
		return DefaultCookieName
	}
	return cfg.GetCookieName()
}

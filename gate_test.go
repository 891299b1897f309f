package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/kodbank/go-bank-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	login := env.login(t, "alice", "secret123")

	identity, err := env.gate.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username())
	assert.Equal(t, auth.RoleCustomer, identity.Role())
}

func TestGateAuthenticateRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")

	// signed by us but never recorded in the registry
	unrecorded, _, err := env.tokens.Issue("alice", auth.RoleCustomer)
	require.NoError(t, err)

	revoked := env.login(t, "alice", "secret123").Token
	require.NoError(t, env.sessions.Revoke(ctx, revoked))

	_, err = env.gate.Authenticate(ctx, "")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = env.gate.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = env.gate.Authenticate(ctx, unrecorded)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = env.gate.Authenticate(ctx, revoked)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestGateAuthenticateNaturalExpiryPurgesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	login := env.login(t, "alice", "secret123")

	env.clock.Advance(2 * time.Hour)

	_, err := env.gate.Authenticate(ctx, login.Token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)

	record, err := env.sessions.Find(ctx, login.Token)
	require.NoError(t, err)
	assert.Nil(t, record, "expired session must be removed on first use")
	assert.Equal(t, auth.ActivityEventSessionExpired, env.sink.last().EventType)

	_, err = env.gate.Authenticate(ctx, login.Token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestGateAuthenticateExpiredRevokedToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	login := env.login(t, "alice", "secret123")
	require.NoError(t, env.sessions.Revoke(ctx, login.Token))

	env.clock.Advance(2 * time.Hour)

	_, err := env.gate.Authenticate(ctx, login.Token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestGateAuthenticateExpiredRegistryEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "alice")

	token, _, err := env.tokens.Issue("alice", auth.RoleCustomer)
	require.NoError(t, err)
	_, err = env.sessions.Record(ctx, token, user.ID, env.clock.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = env.gate.Authenticate(ctx, token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)

	record, err := env.sessions.Find(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, record, "expired entry must be purged on detection")

	assert.Equal(t, auth.ActivityEventSessionExpired, env.sink.last().EventType)

	_, err = env.gate.Authenticate(ctx, token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "a purged entry is no longer known")
}

func TestGateTokenLookup(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "header:Authorization,cookie:token", env.gate.TokenLookup())

	env.cfg.cookieName = "kb_session"
	assert.Equal(t, "header:Authorization,cookie:kb_session", env.gate.TokenLookup())
}

func newGateApp(env *testEnv) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: auth.NewErrorHandler(env.cfg, nopLogger{}),
	})
	app.Get("/me", env.gate.Middleware(), func(c *fiber.Ctx) error {
		identity, ok := auth.IdentityFromRequest(c)
		if !ok {
			return auth.ErrUnauthenticated
		}
		fromCtx, ok := auth.IdentityFromContext(c.UserContext())
		if !ok || fromCtx.Username() != identity.Username() {
			return auth.ErrUnauthenticated
		}
		return c.SendString(identity.Username())
	})
	return app
}

func decodeEnvelope(t *testing.T, res *http.Response) auth.Envelope {
	t.Helper()
	defer res.Body.Close()

	var env auth.Envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return env
}

func TestGateMiddleware(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	token := env.login(t, "alice", "secret123").Token
	app := newGateApp(env)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.Equal(t, "alice", string(body))
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: token})

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("bearer wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: "garbage"})

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("no token", func(t *testing.T) {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

		body := decodeEnvelope(t, res)
		assert.False(t, body.Success)
		assert.Equal(t, auth.ErrUnauthenticated.Message, body.Message)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer garbage")

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

		body := decodeEnvelope(t, res)
		assert.Equal(t, auth.ErrInvalidToken.Message, body.Message)
	})
}

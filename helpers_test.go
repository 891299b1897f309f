package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	auth "github.com/kodbank/go-bank-auth"
	"github.com/kodbank/go-bank-auth/persistence"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const testSigningKey = "test-signing-key"

type testConfig struct {
	signingKey  string
	lifetime    time.Duration
	issuer      string
	cookieName  string
	cookieAge   time.Duration
	frontendURL string
	production  bool
	development bool
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:  testSigningKey,
		lifetime:    time.Hour,
		issuer:      "kodbank-test",
		cookieName:  auth.DefaultCookieName,
		cookieAge:   7 * 24 * time.Hour,
		frontendURL: "http://localhost:3000",
		development: true,
	}
}

func (c *testConfig) GetSigningKey() string             { return c.signingKey }
func (c *testConfig) GetTokenExpiration() time.Duration { return c.lifetime }
func (c *testConfig) GetIssuer() string                 { return c.issuer }
func (c *testConfig) GetCookieName() string             { return c.cookieName }
func (c *testConfig) GetCookieMaxAge() time.Duration    { return c.cookieAge }
func (c *testConfig) GetFrontendURL() string            { return c.frontendURL }
func (c *testConfig) IsProduction() bool                { return c.production }
func (c *testConfig) IsDevelopment() bool               { return c.development }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// newTestDB returns a migrated in memory sqlite database private to t
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := persistence.Open(persistence.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, persistence.Migrate(context.Background(), db))
	return db.DB
}

type sentMail struct {
	email    string
	username string
	token    string
}

type captureNotifier struct {
	mu     sync.Mutex
	verify []sentMail
	reset  []sentMail
	err    error
}

func (n *captureNotifier) SendVerificationEmail(_ context.Context, email, username, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verify = append(n.verify, sentMail{email: email, username: username, token: token})
	return n.err
}

func (n *captureNotifier) SendPasswordResetEmail(_ context.Context, email, username, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset = append(n.reset, sentMail{email: email, username: username, token: token})
	return n.err
}

func (n *captureNotifier) lastVerify(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.verify, "no verification notification sent")
	return n.verify[len(n.verify)-1]
}

func (n *captureNotifier) lastReset(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.reset, "no reset notification sent")
	return n.reset[len(n.reset)-1]
}

type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) last() auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return auth.ActivityEvent{}
	}
	return s.events[len(s.events)-1]
}

// testClock is a settable clock shared by the components under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	cfg      *testConfig
	db       *bun.DB
	repo     auth.RepositoryManager
	hasher   *auth.BcryptHasher
	tokens   *auth.TokenServiceImpl
	sessions *auth.SessionRegistryImpl
	notifier *captureNotifier
	sink     *recordingSink
	clock    *testClock
	flows    *auth.Flows
	gate     *auth.Gate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	clock := newTestClock()

	tokens, err := auth.NewTokenServiceFromConfig(cfg, nopLogger{})
	require.NoError(t, err)
	tokens.WithClock(clock.Now)

	sessions := auth.NewSessionRegistry(repo.UserTokens(), nopLogger{}).WithClock(clock.Now)

	env := &testEnv{
		cfg:      cfg,
		db:       db,
		repo:     repo,
		hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
		tokens:   tokens,
		sessions: sessions,
		notifier: &captureNotifier{},
		sink:     &recordingSink{},
		clock:    clock,
	}

	env.flows = auth.NewFlows(auth.FlowDeps{
		Repo:     repo,
		Hasher:   env.hasher,
		Tokens:   tokens,
		Sessions: sessions,
		Notifier: env.notifier,
		Activity: env.sink,
		Logger:   nopLogger{},
	})
	env.flows.ForgotPassword.WithClock(clock.Now)
	env.flows.ResetPassword.WithClock(clock.Now)

	env.gate = auth.NewGate(tokens, sessions, cfg).
		WithActivitySink(env.sink).
		WithLogger(nopLogger{})

	return env
}

func validRegistration(username string) auth.RegisterUserMessage {
	return auth.RegisterUserMessage{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
		Phone:    "+1 555 010 0200",
	}
}

func (e *testEnv) register(t *testing.T, username string) *auth.User {
	t.Helper()

	var user *auth.User
	msg := validRegistration(username)
	msg.OnResponse = func(u *auth.User) { user = u }
	require.NoError(t, e.flows.Register.Execute(context.Background(), msg))
	require.NotNil(t, user)
	return user
}

func (e *testEnv) login(t *testing.T, username, password string) *auth.LoginUserResponse {
	t.Helper()

	var resp *auth.LoginUserResponse
	err := e.flows.Login.Execute(context.Background(), auth.LoginUserMessage{
		Username:   username,
		Password:   password,
		OnResponse: func(r *auth.LoginUserResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

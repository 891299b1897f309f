package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/kodbank/go-bank-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService(t *testing.T) {
	ts, err := auth.NewTokenService([]byte(testSigningKey), 2*time.Hour, "kodbank", nopLogger{})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ts.Lifetime())

	ts, err = auth.NewTokenService([]byte(testSigningKey), 0, "", nil)
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultTokenLifetime, ts.Lifetime())

	ts, err = auth.NewTokenService(nil, time.Hour, "", nil)
	assert.ErrorIs(t, err, auth.ErrMissingSigningKey)
	assert.Nil(t, ts)
}

func TestNewTokenServiceFromConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.signingKey = ""

	_, err := auth.NewTokenServiceFromConfig(cfg, nil)
	assert.ErrorIs(t, err, auth.ErrMissingSigningKey)
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	clock := newTestClock()
	ts, err := auth.NewTokenService([]byte(testSigningKey), time.Hour, "kodbank", nopLogger{})
	require.NoError(t, err)
	ts.WithClock(clock.Now)

	token, expiresAt, err := ts.Issue("alice", auth.RoleCustomer)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.Now().Add(time.Hour).Unix(), expiresAt.Unix())

	claims, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, "alice", claims.Subject())
	assert.Equal(t, auth.RoleCustomer, claims.Role())
	assert.Equal(t, "kodbank", claims.Issuer)
	assert.Equal(t, expiresAt.Unix(), claims.Expires().Unix())
	assert.Equal(t, clock.Now().Unix(), claims.IssuedAtTime().Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestTokenServiceIssuesDistinctTokens(t *testing.T) {
	clock := newTestClock()
	ts, err := auth.NewTokenService([]byte(testSigningKey), time.Hour, "", nil)
	require.NoError(t, err)
	ts.WithClock(clock.Now)

	first, _, err := ts.Issue("alice", auth.RoleCustomer)
	require.NoError(t, err)
	second, _, err := ts.Issue("alice", auth.RoleCustomer)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenServiceVerifyExpired(t *testing.T) {
	clock := newTestClock()
	ts, err := auth.NewTokenService([]byte(testSigningKey), time.Minute, "", nil)
	require.NoError(t, err)
	ts.WithClock(clock.Now)

	token, _, err := ts.Issue("alice", auth.RoleCustomer)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	claims, err := ts.Verify(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	assert.Nil(t, claims)
}

func TestTokenServiceVerifyRejects(t *testing.T) {
	clock := newTestClock()
	ts, err := auth.NewTokenService([]byte(testSigningKey), time.Hour, "kodbank", nopLogger{})
	require.NoError(t, err)
	ts.WithClock(clock.Now)

	other, err := auth.NewTokenService([]byte("another-key"), time.Hour, "kodbank", nopLogger{})
	require.NoError(t, err)
	other.WithClock(clock.Now)

	foreignIssuer, err := auth.NewTokenService([]byte(testSigningKey), time.Hour, "someone-else", nopLogger{})
	require.NoError(t, err)
	foreignIssuer.WithClock(clock.Now)

	valid, _, err := ts.Issue("alice", auth.RoleCustomer)
	require.NoError(t, err)

	wrongKey, _, err := other.Issue("alice", auth.RoleCustomer)
	require.NoError(t, err)

	wrongIssuer, _, err := foreignIssuer.Issue("alice", auth.RoleCustomer)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": clock.Now().Add(time.Hour).Unix(),
		"iss": "kodbank",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := ts.SignClaims(&auth.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", Issuer: "kodbank"},
		Name:             "alice",
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
		{name: "wrong signing key", token: wrongKey},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "tampered signature", token: tampered},
		{name: "alg none", token: unsigned},
		{name: "missing expiry", token: noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ts.Verify(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestSessionClaimsFallbacks(t *testing.T) {
	claims := &auth.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "bob"},
		UserRole:         "superuser",
	}

	assert.Equal(t, "bob", claims.Username())
	assert.Equal(t, auth.RoleCustomer, claims.Role())
	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAtTime().IsZero())
}

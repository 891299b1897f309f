package ratelimit

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	auth "github.com/kodbank/go-bank-auth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedApp(cfg Config) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.NewErrorHandler(nil, nil)})
	app.Use(New(cfg))
	app.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return s, client
}

func TestLimiterRejectsOverMax(t *testing.T) {
	app := newLimitedApp(Config{Max: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/ping", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	var body auth.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "Too many requests from this IP, please try again later.", body.Message)
}

func TestLimiterNextSkips(t *testing.T) {
	app := newLimitedApp(Config{
		Max:    1,
		Window: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return true
		},
	})

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/ping", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestRedisStorageRoundTrip(t *testing.T) {
	s, client := newRedis(t)
	storage := NewRedisStorage(client, "test:")
	defer storage.Close()

	val, err := storage.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, storage.Set("a", []byte("1"), time.Minute))
	require.NoError(t, storage.Set("b", []byte("2"), 0))

	val, err = storage.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)
	assert.True(t, s.Exists("test:a"))

	s.FastForward(2 * time.Minute)
	val, err = storage.Get("a")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, storage.Delete("b"))
	assert.False(t, s.Exists("test:b"))
}

func TestRedisStorageResetKeepsForeignKeys(t *testing.T) {
	s, client := newRedis(t)
	storage := NewRedisStorage(client, "test:")
	defer storage.Close()

	require.NoError(t, storage.Set("a", []byte("1"), 0))
	require.NoError(t, storage.Set("b", []byte("2"), 0))
	require.NoError(t, s.Set("other:key", "x"))

	require.NoError(t, storage.Reset())
	assert.False(t, s.Exists("test:a"))
	assert.False(t, s.Exists("test:b"))
	assert.True(t, s.Exists("other:key"))
}

func TestLimiterSharesRedisCounters(t *testing.T) {
	_, client := newRedis(t)
	storage := NewRedisStorage(client, "")
	defer storage.Close()

	first := newLimitedApp(Config{Max: 2, Window: time.Minute, Storage: storage})
	second := newLimitedApp(Config{Max: 2, Window: time.Minute, Storage: storage})

	resp, err := first.Test(httptest.NewRequest("GET", "/api/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = second.Test(httptest.NewRequest("GET", "/api/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = first.Test(httptest.NewRequest("GET", "/api/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

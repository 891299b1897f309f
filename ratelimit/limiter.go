// Package ratelimit limits requests per client IP with a fixed window.
// Counters live in memory unless a shared storage is supplied.
package ratelimit

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/utils"
	auth "github.com/kodbank/go-bank-auth"
)

const (
	DefaultMax    = 100
	DefaultWindow = 15 * time.Minute
)

type Config struct {
	Max    int
	Window time.Duration

	// Storage holds the counters, nil keeps them in process memory
	Storage fiber.Storage

	// Next skips the limiter when it returns true
	Next func(c *fiber.Ctx) bool
}

// New returns the limiter middleware. Rejected requests fail with
// auth.ErrTooManyRequests so the app error handler renders the envelope.
func New(cfg Config) fiber.Handler {
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	return limiter.New(limiter.Config{
		Next:       cfg.Next,
		Max:        cfg.Max,
		Expiration: cfg.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.CopyString(c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return auth.ErrTooManyRequests
		},
		Storage:           cfg.Storage,
		LimiterMiddleware: limiter.FixedWindow{},
	})
}

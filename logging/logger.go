// Package logging builds the zap logger used by the service and adapts it
// to the key/value logger contract of the auth package.
package logging

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	auth "github.com/kodbank/go-bank-auth"
	"go.uber.org/zap"
)

type Config struct {
	Development bool
}

// New returns a sugared zap logger, development or production flavored
func New(cfg Config) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.Development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// ZapLogger implements auth.Logger on top of a sugared logger
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ auth.Logger = (*ZapLogger)(nil)

// NewZapLogger wraps sugar. A nil sugar logs nothing.
func NewZapLogger(sugar *zap.SugaredLogger) *ZapLogger {
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}
	return &ZapLogger{sugar: sugar}
}

// Named returns a child logger scoped to name
func (z *ZapLogger) Named(name string) *ZapLogger {
	return &ZapLogger{sugar: z.sugar.Named(name)}
}

func (z *ZapLogger) Debug(msg string, args ...any) {
	z.sugar.Debugw(msg, args...)
}

func (z *ZapLogger) Info(msg string, args ...any) {
	z.sugar.Infow(msg, args...)
}

func (z *ZapLogger) Warn(msg string, args ...any) {
	z.sugar.Warnw(msg, args...)
}

func (z *ZapLogger) Error(msg string, args ...any) {
	z.sugar.Errorw(msg, args...)
}

// Sync flushes buffered entries
func (z *ZapLogger) Sync() error {
	return z.sugar.Sync()
}

// RequestLogger logs one line per request. Failed requests are logged with
// the status the error handler will render.
func RequestLogger(logger auth.Logger) fiber.Handler {
	if logger == nil {
		logger = NewZapLogger(nil)
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		// fiber reuses request buffers, copy anything the sink may keep
		fields := []any{
			"method", utils.CopyString(c.Method()),
			"path", utils.CopyString(c.Path()),
			"ip", utils.CopyString(c.IP()),
			"latency", latency,
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			fields = append(fields, "request_id", rid)
		}

		if err != nil {
			fields = append(fields, "status", auth.StatusCode(err), "error", err)
			logger.Warn("HTTP Request Error", fields...)
			return err
		}

		fields = append(fields, "status", c.Response().StatusCode())
		logger.Info("HTTP Request", fields...)
		return nil
	}
}

// Package server assembles the fiber application: middleware chain, the
// auth and user routes, health, metrics and the JSON error envelope.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	auth "github.com/kodbank/go-bank-auth"
	"github.com/kodbank/go-bank-auth/logging"
	"github.com/kodbank/go-bank-auth/metrics"
	"github.com/kodbank/go-bank-auth/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	AppName          = "KodBank API"
	HealthMessage    = "KodBank API is running"
	defaultFrontend  = "http://localhost:3000"
	defaultBodyLimit = 1 << 20
)

// Options are the already wired collaborators the app is built from
type Options struct {
	Config       auth.Config
	Logger       auth.Logger
	Auth         *auth.AuthController
	Users        *auth.UserController
	Gate         *auth.Gate
	RateLimit    ratelimit.Config
	Metrics      *metrics.Collectors
	Gatherer     prometheus.Gatherer
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Now stamps the health response, time.Now when nil
	Now func() time.Time
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// New builds the fiber app
func New(opts Options) *fiber.App {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	app := fiber.New(fiber.Config{
		AppName:      AppName,
		ErrorHandler: auth.NewErrorHandler(opts.Config, opts.Logger),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		BodyLimit:    defaultBodyLimit,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logging.RequestLogger(opts.Logger))
	if opts.Metrics != nil {
		app.Use(opts.Metrics.Middleware())
	}
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     frontendOrigin(opts.Config),
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,OPTIONS",
	}))

	app.Get("/health", healthHandler(opts.Now)).Name("health")
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(opts.Gatherer))).Name("metrics")
	}

	api := app.Group("/api", ratelimit.New(opts.RateLimit))
	auth.RegisterAuthRoutes(api.Group("/auth"), opts.Auth)
	auth.RegisterUserRoutes(api.Group("/user"), opts.Gate, opts.Users)

	app.Use(auth.NotFoundHandler)

	return app
}

func healthHandler(now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(HealthResponse{
			Success:   true,
			Message:   HealthMessage,
			Timestamp: now().UTC().Format(time.RFC3339),
		})
	}
}

func frontendOrigin(cfg auth.Config) string {
	if cfg == nil || cfg.GetFrontendURL() == "" {
		return defaultFrontend
	}
	return cfg.GetFrontendURL()
}

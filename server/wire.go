package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	auth "github.com/kodbank/go-bank-auth"
	"github.com/kodbank/go-bank-auth/activitymap"
	"github.com/kodbank/go-bank-auth/config"
	"github.com/kodbank/go-bank-auth/metrics"
	"github.com/kodbank/go-bank-auth/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

// Deps are the process level resources the service is wired over. Config,
// DB and Logger are required, the rest have defaults.
type Deps struct {
	Config   *config.Config
	DB       *bun.DB
	Logger   auth.Logger
	Storage  fiber.Storage
	Notifier auth.Notifier
	Hasher   auth.PasswordHasher
	Registry *prometheus.Registry
}

// Service is the wired application
type Service struct {
	App      *fiber.App
	Repo     auth.RepositoryManager
	Sessions *auth.SessionRegistryImpl
	Tokens   *auth.TokenServiceImpl
	Registry *prometheus.Registry
}

// Build wires repositories, the auth core, the flows and the HTTP app
func Build(deps Deps) (*Service, error) {
	if deps.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("server: database is required")
	}

	cfg := deps.Config
	logger := deps.Logger

	repo := auth.NewRepositoryManager(deps.DB)
	if err := repo.Validate(); err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenServiceFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(cfg.BcryptCost)
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = auth.NewLogNotifier(cfg.GetFrontendURL(), logger)
	}

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	collectors := metrics.New()
	collectors.Register(registry)

	activity := auth.MultiActivitySink{
		activitymap.NewLogSink(logger),
		collectors,
	}

	sessions := auth.NewSessionRegistry(repo.UserTokens(), logger)

	flows := auth.NewFlows(auth.FlowDeps{
		Repo:     repo,
		Hasher:   hasher,
		Tokens:   tokens,
		Sessions: sessions,
		Notifier: notifier,
		Activity: activity,
		Logger:   logger,
	})

	gate := auth.NewGate(tokens, sessions, cfg).
		WithActivitySink(activity).
		WithLogger(logger)

	users := auth.NewUserProvider(repo.Users()).WithLogger(logger)

	app := New(Options{
		Config: cfg,
		Logger: logger,
		Auth:   auth.NewAuthController(cfg, flows, auth.WithControllerLogger(logger)),
		Users:  auth.NewUserController(users),
		Gate:   gate,
		RateLimit: ratelimit.Config{
			Max:     cfg.RateLimit.MaxRequests,
			Window:  cfg.RateLimit.Window,
			Storage: deps.Storage,
		},
		Metrics:      collectors,
		Gatherer:     registry,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	return &Service{
		App:      app,
		Repo:     repo,
		Sessions: sessions,
		Tokens:   tokens,
		Registry: registry,
	}, nil
}

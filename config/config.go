// Package config loads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	auth "github.com/kodbank/go-bank-auth"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type ServerCfg struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseCfg struct {
	Driver string
	URL    string
}

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitCfg struct {
	Window      time.Duration
	MaxRequests int
}

// Config is the resolved service configuration. It implements auth.Config.
type Config struct {
	Env         string
	FrontendURL string
	BcryptCost  int

	JWTSecret    string
	JWTExpiry    time.Duration
	JWTIssuer    string
	CookieName   string
	CookieMaxAge time.Duration

	Server    ServerCfg
	Database  DatabaseCfg
	Redis     RedisCfg
	RateLimit RateLimitCfg
}

var _ auth.Config = (*Config)(nil)

var defaults = map[string]any{
	"APP_ENV":                 EnvDevelopment,
	"PORT":                    "5000",
	"FRONTEND_URL":            "http://localhost:3000",
	"JWT_SECRET":              "",
	"JWT_EXPIRY":              "7d",
	"JWT_ISSUER":              "kodbank",
	"COOKIE_NAME":             auth.DefaultCookieName,
	"COOKIE_MAX_AGE":          "7d",
	"BCRYPT_COST":             10,
	"DATABASE_DRIVER":         "sqlite",
	"DATABASE_URL":            "file:kodbank.db?cache=shared",
	"REDIS_ADDR":              "",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"RATE_LIMIT_WINDOW_MS":    900000,
	"RATE_LIMIT_MAX_REQUESTS": 100,
	"READ_TIMEOUT_SECONDS":    15,
	"WRITE_TIMEOUT_SECONDS":   15,
}

// Load reads envFiles (".env" when none are given) into the process
// environment, without overriding variables already set, and resolves the
// configuration. A missing JWT_SECRET is an error.
func Load(envFiles ...string) (*Config, error) {
	// the .env file is optional
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{
		Env:          strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		FrontendURL:  strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		BcryptCost:   v.GetInt("BCRYPT_COST"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTExpiry:    auth.ParseLifetime(v.GetString("JWT_EXPIRY")),
		JWTIssuer:    v.GetString("JWT_ISSUER"),
		CookieName:   v.GetString("COOKIE_NAME"),
		CookieMaxAge: auth.ParseLifetime(v.GetString("COOKIE_MAX_AGE")),
		Server: ServerCfg{
			Port:         v.GetString("PORT"),
			ReadTimeout:  time.Duration(v.GetInt("READ_TIMEOUT_SECONDS")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("WRITE_TIMEOUT_SECONDS")) * time.Second,
		},
		Database: DatabaseCfg{
			Driver: v.GetString("DATABASE_DRIVER"),
			URL:    v.GetString("DATABASE_URL"),
		},
		Redis: RedisCfg{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitCfg{
			Window:      time.Duration(v.GetInt64("RATE_LIMIT_WINDOW_MS")) * time.Millisecond,
			MaxRequests: v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		},
	}

	if cfg.Env == "" {
		cfg.Env = EnvDevelopment
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = 15 * time.Minute
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		cfg.RateLimit.MaxRequests = 100
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service can not start without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return auth.ErrMissingSigningKey
	}
	return nil
}

// Addr is the listen address
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func (c *Config) GetSigningKey() string {
	return c.JWTSecret
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.JWTExpiry
}

func (c *Config) GetIssuer() string {
	return c.JWTIssuer
}

func (c *Config) GetCookieName() string {
	return c.CookieName
}

func (c *Config) GetCookieMaxAge() time.Duration {
	return c.CookieMaxAge
}

func (c *Config) GetFrontendURL() string {
	return c.FrontendURL
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

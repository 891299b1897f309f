// Package metrics exposes prometheus collectors for auth activity and HTTP
// traffic.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	auth "github.com/kodbank/go-bank-auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups the service metrics
type Collectors struct {
	Activity        *prometheus.CounterVec
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New() *Collectors {
	return &Collectors{
		Activity: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kodbank_auth_events_total",
				Help: "Total number of auth activity events by type.",
			},
			[]string{"event"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (c *Collectors) Register(registry prometheus.Registerer) {
	registry.MustRegister(c.Activity, c.RequestCount, c.RequestDuration)
}

// Record implements auth.ActivitySink
func (c *Collectors) Record(_ context.Context, event auth.ActivityEvent) error {
	c.Activity.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

var _ auth.ActivitySink = (*Collectors)(nil)

// Middleware observes every request. The path label is the matched route
// pattern so ids in urls do not explode cardinality.
func (c *Collectors) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			status = auth.StatusCode(err)
		}

		path := "unmatched"
		if route := ctx.Route(); route != nil && status != fiber.StatusNotFound {
			path = route.Path
		}

		labels := []string{utils.CopyString(ctx.Method()), path, strconv.Itoa(status)}
		c.RequestCount.WithLabelValues(labels...).Inc()
		c.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

func Handler(registry prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

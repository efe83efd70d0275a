package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/learnweb/moodleoverflow/core/user"
)

// capabilityMiddleware guards an endpoint behind a role capability.
func capabilityMiddleware(cap user.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.HasCapability(cap) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

var (
	reqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "moodleoverflow_request_duration_seconds",
		Help: "HTTP request latencies.",
	}, []string{"method", "path", "status"})

	reqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodleoverflow_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "path", "status"})
)

func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				if herr, ok := err.(*echo.HTTPError); ok {
					status = herr.Code
				}
			}
			labels := []string{ctx.Request().Method, ctx.Path(), strconv.Itoa(status)}
			reqDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			reqTotal.WithLabelValues(labels...).Inc()
			return err
		}
	}
}

func metricsHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

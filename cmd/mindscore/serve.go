package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/hyp3rd/mindscore"
	"github.com/hyp3rd/mindscore/internal/config"
	"github.com/hyp3rd/mindscore/pkg/middleware"
)

func serveSubcommand(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := flags.load()
			if err != nil {
				return err
			}

			if addr != "" {
				settings.API.Addr = addr
			}

			return serve(cmd.Context(), settings)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides api.addr")

	return cmd
}

func serve(parent context.Context, settings *config.Settings) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openService(ctx, settings)
	if err != nil {
		return err
	}

	svc, err = instrument(svc, settings.Telemetry)
	if err != nil {
		_ = svc.Stop(context.Background())

		return err
	}

	opts := []mindscore.APIHTTPOption{
		mindscore.WithAPILogger(log.Log),
	}

	if settings.API.ReadTimeout > 0 {
		opts = append(opts, mindscore.WithAPIReadTimeout(time.Duration(settings.API.ReadTimeout)))
	}

	if settings.API.WriteTimeout > 0 {
		opts = append(opts, mindscore.WithAPIWriteTimeout(time.Duration(settings.API.WriteTimeout)))
	}

	if settings.Telemetry.Prometheus {
		opts = append(opts, mindscore.WithAPIMetrics(promhttp.Handler()))
	}

	if settings.API.UserHeader != "" {
		opts = append(opts, mindscore.WithAPIAuth(headerUser(settings.API.UserHeader)))
	}

	server := mindscore.NewAPIHTTPServer(settings.API.Addr, opts...)

	// requests in flight when the signal arrives still complete
	err = server.Start(context.WithoutCancel(ctx), svc)
	if err != nil {
		_ = svc.Stop(context.Background())

		return err
	}

	log.WithFields(log.Fields{
		"addr":    server.Address(),
		"backend": settings.Backend,
	}).Info("serving")

	<-ctx.Done()

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(settings.API.ShutdownTimeout))
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		log.WithError(err).Warn("api shutdown")
	}

	return svc.Stop(shutdownCtx)
}

// instrument wraps svc with the logging middleware and the enabled telemetry.
func instrument(svc mindscore.Service, telemetry config.Telemetry) (mindscore.Service, error) {
	middlewares := []mindscore.Middleware{
		func(next mindscore.Service) mindscore.Service {
			return middleware.NewLoggingMiddleware(next, log.Log)
		},
	}

	if telemetry.Prometheus {
		middlewares = append(middlewares, func(next mindscore.Service) mindscore.Service {
			return middleware.NewPrometheusMiddleware(next, prometheus.DefaultRegisterer)
		})
	}

	if telemetry.Tracing {
		middlewares = append(middlewares, func(next mindscore.Service) mindscore.Service {
			return middleware.NewOTelTracingMiddleware(next, otel.Tracer("mindscore"))
		})

		metered, err := middleware.NewOTelMetricsMiddleware(svc, otel.Meter("mindscore"))
		if err != nil {
			return svc, err
		}

		svc = metered
	}

	return mindscore.ApplyMiddleware(svc, middlewares...), nil
}

// headerUser trusts the user id set by the proxy in front of the API.
func headerUser(header string) func(fiber.Ctx) error {
	return func(c fiber.Ctx) error {
		if id := c.Get(header); id != "" {
			c.Locals(mindscore.UserIDLocal, id)
		}

		return nil
	}
}

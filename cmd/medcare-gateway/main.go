package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"medcare-gateway/internal/client"
	"medcare-gateway/internal/config"
	"medcare-gateway/internal/handler"
	"medcare-gateway/internal/metrics"
	"medcare-gateway/internal/middleware"
	"medcare-gateway/internal/resource"
	"medcare-gateway/internal/response"
	"medcare-gateway/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "1.0.0"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("medcare-gateway"),
		kong.Description("API gateway for the medical care platform with mock-data fallback."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			newEnvelopeBuilder,
			newCatalog,
			metrics.New,
			newEcho,
			client.NewBackendClient,
			service.NewProxyService,
			resource.NewIDGenerator,
			handler.NewDispatchers,
			handler.NewHealthHandler,
		),
		fx.Invoke(
			logConfigSummary,
			handler.RegisterRoutes,
			handler.RegisterMetrics,
			startSeedWatcher,
			startServer,
		),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h).With("env", cfg.App.Environment)
}

func newEnvelopeBuilder(cfg *config.Config) *response.Builder {
	return response.NewBuilder(cfg.App.Development())
}

func newCatalog(cfg *config.Config, logger *slog.Logger) (*resource.Catalog, error) {
	return resource.NewCatalog(cfg.Fixtures.Dir, logger)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, envelope *response.Builder) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewErrorHandler(envelope, logger)

	// Inbound timeouts to mitigate slow-client attacks. Writes must outlive
	// the upstream deadline so a fallback can still be sent.
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = cfg.Upstream.Timeout() + 20*time.Second
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	// Metrics wraps CORS so preflights are counted. CORS and security
	// headers precede BodyLimit and the rate limiter so their rejections
	// still carry them.
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m))
	}
	e.Use(middleware.CORS())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Server.RateLimit.RequestsPerSecond))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func logConfigSummary(cfg *config.Config, logger *slog.Logger) {
	cfg.LogSummary(logger)
}

func startSeedWatcher(lc fx.Lifecycle, cfg *config.Config, catalog *resource.Catalog, logger *slog.Logger) error {
	if !cfg.Fixtures.Watch {
		return nil
	}

	w, err := resource.NewWatcher(catalog, logger, resource.DefaultDebounce)
	if err != nil {
		return fmt.Errorf("seed watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				w.Run(ctx)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return w.Close()
		},
	})
	return nil
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server", "addr", addr, "version", version)
			go func() {
				if err := e.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}

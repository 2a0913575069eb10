package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/myphotos/backend/internal/config"
	"github.com/myphotos/backend/internal/db"
	"github.com/myphotos/backend/internal/handlers"
	"github.com/myphotos/backend/internal/httpserver"
	"github.com/myphotos/backend/internal/logging"
	"github.com/myphotos/backend/internal/metrics"
	"github.com/myphotos/backend/internal/middleware"
)

const sessionSweepInterval = 10 * time.Minute

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	recorder := metrics.NewRecorder()

	svc, err := buildDependencies(ctx, pool, cfg, logger, recorder)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("release dependencies", "error", err)
		}
	}()

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, svc.Handlers)

	handler := middleware.RequestLogger(logger)(recorder.Middleware(mux))
	srv := httpserver.New(cfg.AppPort, handler)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "port", cfg.AppPort)
		defer logger.Info("http server stopped")
		return srv.Run(gctx)
	})

	if svc.Sweeper != nil {
		g.Go(func() error {
			sweepSessions(gctx, logger, svc.Sweeper, sessionSweepInterval)
			return nil
		})
	}

	return g.Wait()
}

// sweepSessions deletes expired refresh sessions every interval until ctx ends.
func sweepSessions(ctx context.Context, logger *slog.Logger, sweeper sessionSweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sweeper.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("session sweep failed", "error", err)
				}
				continue
			}
			if removed > 0 {
				logger.Info("expired sessions removed", "count", removed)
			}
		}
	}
}

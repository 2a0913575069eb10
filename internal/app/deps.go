package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/myphotos/backend/internal/auth"
	"github.com/myphotos/backend/internal/config"
	"github.com/myphotos/backend/internal/db"
	"github.com/myphotos/backend/internal/friendships"
	"github.com/myphotos/backend/internal/handlers"
	"github.com/myphotos/backend/internal/metrics"
	"github.com/myphotos/backend/internal/middleware"
	"github.com/myphotos/backend/internal/photos"
	"github.com/myphotos/backend/internal/repositories"
	"github.com/myphotos/backend/internal/storage"
	"github.com/myphotos/backend/internal/users"
)

const rateLimiterIdleTTL = 10 * time.Minute

type sessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// services holds everything serve needs besides the database pool.
type services struct {
	Handlers handlers.Dependencies
	// Sweeper is nil when the session backend expires entries itself.
	Sweeper sessionSweeper

	closers []func() error
}

// Close releases connections opened while building the services.
func (s *services) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*services, error) {
	svc := &services{}

	userRepo := repositories.NewPostgresUserRepository(pool)
	engine := friendships.NewEngine(repositories.NewPostgresFriendshipStore(pool), friendships.EngineConfig{
		Logger:  logger,
		Metrics: recorder,
	})

	blobs, err := buildStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessionStore, err := buildSessionStore(ctx, pool, cfg, svc)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	manager := auth.NewManager(auth.ManagerConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, sessionStore)

	policy := photos.NewPolicy(engine, recorder)
	photoService := photos.NewService(policy, users.NewCachingLookup(userRepo, cfg.UserCacheTTL), repositories.NewPostgresImageRepository(pool), blobs)

	svc.Handlers = handlers.Dependencies{
		Users:          userRepo,
		Sessions:       manager,
		Tokens:         manager,
		Friends:        engine,
		Photos:         photoService,
		AuthLimiter:    middleware.NewKeyedRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.AuthRateBurst, rateLimiterIdleTTL),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if recorder != nil {
		svc.Handlers.Metrics = recorder.Handler()
	}
	if pinger, ok := pool.(handlers.Pinger); ok {
		svc.Handlers.Health = pinger
	}

	return svc, nil
}

func buildStorage(ctx context.Context, cfg config.Config) (photos.BlobStorage, error) {
	switch cfg.StorageBackend {
	case "disk":
		return storage.NewDiskStorage(cfg.PhotosDir)
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func buildSessionStore(ctx context.Context, pool db.Pool, cfg config.Config, svc *services) (auth.SessionStore, error) {
	switch cfg.SessionBackend {
	case "postgres":
		store := repositories.NewPostgresSessionStore(pool)
		svc.Sweeper = store
		return store, nil
	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		svc.closers = append(svc.closers, client.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return auth.NewRedisSessionStore(client), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

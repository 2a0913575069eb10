package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/myphotos/backend/internal/config"
	"github.com/myphotos/backend/internal/metrics"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		JWTIssuer:      "myphotos",
		AccessTTL:      time.Minute,
		RefreshTTL:     time.Hour,
		SessionBackend: "postgres",
		StorageBackend: "disk",
		PhotosDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
		UserCacheTTL:   time.Minute,
		AuthRateLimit:  10,
		AuthRateWindow: time.Minute,
		AuthRateBurst:  5,
	}
}

func TestBuildDependencies(t *testing.T) {
	svc, err := buildDependencies(context.Background(), fakePool{}, testConfig(t), slog.Default(), metrics.NewRecorder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.Close()

	deps := svc.Handlers
	if deps.Users == nil {
		t.Fatal("expected user repository to be configured")
	}
	if deps.Sessions == nil || deps.Tokens == nil {
		t.Fatal("expected session manager to be configured")
	}
	if deps.Friends == nil {
		t.Fatal("expected relationship engine to be configured")
	}
	if deps.Photos == nil {
		t.Fatal("expected photo service to be configured")
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected auth rate limiter to be configured")
	}
	if deps.Metrics == nil {
		t.Fatal("expected metrics handler to be configured")
	}
	if deps.MaxUploadBytes != 1<<20 {
		t.Fatalf("expected upload limit to be copied, got %d", deps.MaxUploadBytes)
	}
	if svc.Sweeper == nil {
		t.Fatal("expected postgres sessions to be swept")
	}
}

func TestBuildDependenciesS3Storage(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = "s3"
	cfg.S3Bucket = "test-bucket"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.S3Region = "us-east-1"

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	svc, err := buildDependencies(context.Background(), fakePool{}, cfg, slog.Default(), metrics.NewRecorder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.Close()

	if svc.Handlers.Photos == nil {
		t.Fatal("expected photo service to be configured")
	}
}

func TestBuildDependenciesRejectsUnknownBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = "tape"
	if _, err := buildDependencies(context.Background(), fakePool{}, cfg, slog.Default(), metrics.NewRecorder()); err == nil {
		t.Fatal("expected unknown storage backend to fail")
	}

	cfg = testConfig(t)
	cfg.SessionBackend = "memcached"
	if _, err := buildDependencies(context.Background(), fakePool{}, cfg, slog.Default(), metrics.NewRecorder()); err == nil {
		t.Fatal("expected unknown session backend to fail")
	}
}

type sweeperStub struct {
	calls chan time.Time
}

func (s sweeperStub) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.calls <- now
	return 2, nil
}

func TestSweepSessionsRunsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := sweeperStub{calls: make(chan time.Time, 8)}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	done := make(chan struct{})
	go func() {
		sweepSessions(ctx, logger, stub, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-stub.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the sweeper to run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the sweeper to stop after cancel")
	}

	if !strings.Contains(buf.String(), "expired sessions removed") {
		t.Fatalf("expected sweep to be logged, got %q", buf.String())
	}
}

func TestRootCommandRejectsUnknownMigrateCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCommand(&out)
	root.SetArgs([]string{"migrate", "down"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected migrate down to be rejected")
	}

	root = newRootCommand(&out)
	root.SetArgs([]string{"seed"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected seed without a name to fail")
	}
}

func TestSeedFileName(t *testing.T) {
	if got := seedFileName("dev"); got != "dev_seed.sql" {
		t.Fatalf("expected dev_seed.sql got %q", got)
	}
	if got := seedFileName("custom.sql"); got != "custom.sql" {
		t.Fatalf("expected custom.sql got %q", got)
	}
}

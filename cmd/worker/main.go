package main

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"turntable/internal/pkg/logger"
	"turntable/internal/pkg/shutdown"
	"turntable/internal/storage"
	"turntable/internal/worker"
	"turntable/internal/worker/renderer"
	"turntable/internal/worker/util"
)

func main() {
	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "turntable-worker",
		AddSource:   util.BoolEnv("LOG_SOURCE", false),
	})

	dbURL := util.MustEnv("DATABASE_URL")
	redisAddr := util.MustEnv("REDIS_ADDR")
	storageRoot := util.Env("STORAGE_LOCAL_ROOT", "/data")
	queueName := util.Env("JOB_QUEUE_NAME", "turntable:jobs")

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, util.DurationEnv("SHUTDOWN_TIMEOUT", 2*time.Minute))

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.RegisterSimple("postgres", pool.Close)

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})

	sp, err := storage.NewProvider(ctx)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}

	backend, err := renderer.New(renderer.Options{
		Kind:    util.Env("RENDER_BACKEND", renderer.KindHTTP),
		BaseURL: util.Env("RENDERER_HTTP_BASEURL", ""),
		Bin:     util.Env("F3D_BIN", "f3d"),
		Root:    storageRoot,
	})
	if err != nil {
		log.LogFatal("failed to configure render backend", err)
	}

	deps := worker.Deps{
		Pool:         pool,
		RDB:          rdb,
		Backend:      backend,
		SP:           sp,
		StorageRoot:  storageRoot,
		CleanupLocal: util.BoolEnv("CLEANUP_LOCAL", false),
		QueueName:    queueName,
		CancelPoll:   util.DurationEnv("CANCEL_POLL_INTERVAL", 2*time.Second),
		Log:          log,
	}

	// The running job gets until the shutdown timeout to observe cancellation
	// before redis and postgres close underneath it.
	runDone := make(chan struct{})
	shutdownMgr.Register("worker", func(ctx context.Context) error {
		select {
		case <-runDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	go func() {
		log.Info("turntable worker started",
			"queue", queueName,
			"storage", sp.Provider(),
			"backend", util.Env("RENDER_BACKEND", renderer.KindHTTP),
		)
		err := worker.Run(shutdownMgr.Context(), deps)
		close(runDone)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("worker stopped", "error", err.Error())
			shutdownMgr.Shutdown()
		}
	}()

	shutdownMgr.Wait()
}

package worker

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"turntable/internal/pkg/logger"
	"turntable/internal/ports"
	"turntable/internal/scene"
)

type Deps struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
	// Backend renders frames; cmd/worker picks it from RENDER_BACKEND.
	Backend      scene.Backend
	SP           ports.StorageProvider
	StorageRoot  string
	CleanupLocal bool
	QueueName    string
	// CancelPoll is how often a running job's cancel flag is checked.
	CancelPoll time.Duration
	Log        *logger.Logger
}

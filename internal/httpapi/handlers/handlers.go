package handlers

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"turntable/internal/pkg/logger"
	"turntable/internal/ports"
	"turntable/internal/repositories"
)

// JobQueue is the part of the worker queue the API uses.
type JobQueue interface {
	Push(ctx context.Context, jobID string) error
	RequestCancel(ctx context.Context, jobID string) error
	Ping(ctx context.Context) error
}

type Deps struct {
	Pool  *pgxpool.Pool
	Queue JobQueue
	SP    ports.StorageProvider
	Log   *logger.Logger
	// PublicURL prefixes content links handed out when storage cannot sign URLs.
	PublicURL string
}

type Handler struct {
	pool    *pgxpool.Pool
	objects *repositories.ObjectRepository
	queue   JobQueue
	sp      ports.StorageProvider
	log     *logger.Logger

	publicURL string
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		pool:    d.Pool,
		objects: repositories.NewObjectRepository(d.Pool),
		queue:   d.Queue,
		sp:      d.SP,
		log:     log.WithComponent("api"),

		publicURL: strings.TrimRight(d.PublicURL, "/"),
	}
}

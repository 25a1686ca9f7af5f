package processor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
	"turntable/internal/pkg/logger"
	"turntable/internal/ports"
	"turntable/internal/repositories"
	"turntable/internal/scene"
)

type Deps struct {
	Pool         *pgxpool.Pool
	Objects      *repositories.ObjectRepository
	Backend      scene.Backend
	StorageRoot  string
	CleanupLocal bool
	SP           ports.StorageProvider
	Log          *logger.Logger
}

type Processor struct {
	pool    *pgxpool.Pool
	objects *repositories.ObjectRepository
	backend scene.Backend
	log     *logger.Logger

	jobParser     *JobParser
	inputHandler  *InputHandler
	outputHandler *OutputHandler
	planner       *orbit.Planner
	cleanup       *Cleanup
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	objects := d.Objects
	if objects == nil {
		objects = repositories.NewObjectRepository(d.Pool)
	}

	return &Processor{
		pool:    d.Pool,
		objects: objects,
		backend: d.Backend,
		log:     log,

		jobParser:     NewJobParser(d.StorageRoot),
		inputHandler:  NewInputHandler(d.Pool, d.SP, d.StorageRoot),
		outputHandler: NewOutputHandler(d.Pool, d.SP, d.StorageRoot, d.CleanupLocal),
		planner:       orbit.New(orbit.Deps{Log: d.Log, OutputRoot: d.StorageRoot}),
		cleanup:       NewCleanup(d.StorageRoot, d.CleanupLocal, d.SP),
	}
}

// ProcessJob runs one queued orbit job to completion and records the
// outcome in jobs.status.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	// 1. Load and parse the job
	log.Debug("fetching job params")
	paramsJSON, err := p.fetchJobParams(ctx, jobID)
	if err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.fetch", "failed to fetch job params"))
	}

	parsed, err := p.jobParser.Parse(jobID, paramsJSON)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}
	cfg := parsed.Config
	if parsed.RequestedOutput != "" {
		log.Warn("ignoring client output_path", "output_path", parsed.RequestedOutput)
	}

	// 2. Resolve the object
	obj, err := p.objects.GetByName(ctx, cfg.ObjectName)
	if err != nil {
		if errors.IsNotFound(err) {
			err = errors.WrapWithCode(err, errors.CodeConfiguration, "processor.object", "unknown object").
				WithField("field", "object_name")
		}
		return p.failJob(ctx, jobID, err)
	}
	log = log.WithObject(obj.Name)

	// 3. Mark as running
	if err := p.markJobRunning(ctx, jobID); err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.status", "failed to mark job as running"))
	}

	// 4. Make the mesh available to the backend
	mesh, err := p.inputHandler.MaterializeMesh(ctx, jobID, obj.Name, obj.MeshAssetID)
	if err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.inputs", "failed to materialize mesh"))
	}
	if mesh == "" {
		mesh = obj.Name
	}

	// 5. Orbit
	adapter := NewRendererAdapter(p.backend, p.outputHandler, jobID)
	sc, err := scene.ForObject(scene.Object{
		Name:       obj.Name,
		Location:   obj.Location,
		Mesh:       mesh,
		FrameStart: obj.FrameStart,
		FrameEnd:   obj.FrameEnd,
	}, adapter)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	log.Info("starting orbit",
		"frames", cfg.NumFrames,
		"radius", cfg.Radius,
	)
	if _, err := p.planner.Run(ctx, sc, cfg); err != nil {
		p.cleanupJob(log, jobID)
		if errors.IsCanceled(err) {
			return p.cancelJob(ctx, jobID, err)
		}
		return p.failJob(ctx, jobID, err)
	}
	log.Debug("orbit completed", "frames", adapter.Registered())

	// 6. Clean up and finish
	p.cleanupJob(log, jobID)
	return p.markJobDone(ctx, jobID)
}

func (p *Processor) cleanupJob(log *logger.Logger, jobID string) {
	if err := p.cleanup.CleanupJob(jobID); err != nil {
		log.Warn("cleanup failed", "error", err.Error())
	}
}

func (p *Processor) fetchJobParams(ctx context.Context, jobID string) (string, error) {
	var paramsJSON string
	err := p.pool.QueryRow(ctx,
		`SELECT params_json::text FROM jobs WHERE id=$1`,
		jobID,
	).Scan(&paramsJSON)
	if err != nil {
		return "", fmt.Errorf("job not found: %w", err)
	}
	return paramsJSON, nil
}

func (p *Processor) markJobRunning(ctx context.Context, jobID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status=$2, started_at=NOW(), finished_at=NULL, error_text=NULL, error_code=NULL, frames_done=0
		 WHERE id=$1`,
		jobID, StatusRunning,
	)
	return err
}

func (p *Processor) markJobDone(ctx context.Context, jobID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status=$2, finished_at=NOW() WHERE id=$1`,
		jobID, StatusDone,
	)
	return err
}

func (p *Processor) cancelJob(ctx context.Context, jobID string, cause error) error {
	p.log.FromContext(ctx).WithJobID(jobID).Info("job canceled")

	// The job context is already done; the status write must outlive it.
	_, _ = p.pool.Exec(context.WithoutCancel(ctx),
		`UPDATE jobs SET status=$2, finished_at=NOW(), error_code=$3 WHERE id=$1`,
		jobID, StatusCanceled, string(errors.CodeCanceled),
	)
	return cause
}

func (p *Processor) failJob(ctx context.Context, jobID string, cause error) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	msg := ""
	code := errors.GetCode(cause)
	if cause != nil {
		msg = truncateText(cause.Error(), maxErrorText)

		var typed *errors.Error
		if errors.As(cause, &typed) {
			log.Error("job failed",
				"code", string(typed.Code),
				"op", typed.Op,
				"message", typed.Message,
				"fields", errors.GetFields(cause),
			)
		} else {
			log.Error("job failed", "error", msg)
		}
	}

	_, _ = p.pool.Exec(context.WithoutCancel(ctx),
		`UPDATE jobs SET status=$2, finished_at=NOW(), error_text=$3, error_code=$4 WHERE id=$1`,
		jobID, StatusFailed, msg, string(code),
	)

	return cause
}

// CancelQueued marks a job canceled before any work was done on it.
func (p *Processor) CancelQueued(ctx context.Context, jobID string) error {
	return p.cancelJob(ctx, jobID, errors.Canceled(context.Canceled, "processor.queue"))
}

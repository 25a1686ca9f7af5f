package worker

import (
	"context"
	"time"

	"turntable/internal/pkg/errors"
	"turntable/internal/pkg/logger"
	"turntable/internal/worker/processor"
	"turntable/internal/worker/queue"
)

const defaultCancelPoll = 2 * time.Second

func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	q := queue.NewRedisQueue(d.RDB, d.QueueName)

	p := processor.New(processor.Deps{
		Pool:         d.Pool,
		Backend:      d.Backend,
		StorageRoot:  d.StorageRoot,
		CleanupLocal: d.CleanupLocal,
		SP:           d.SP,
		Log:          log,
	})

	poll := d.CancelPoll
	if poll <= 0 {
		poll = defaultCancelPoll
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		popCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		jobID, err := q.Pop(popCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}
			if popCtx.Err() != nil {
				// Idle timeout, nothing queued.
				continue
			}

			log.Warn("queue pop error, retrying",
				"error", err.Error(),
			)
			time.Sleep(1 * time.Second)
			continue
		}

		if jobID == "" {
			continue
		}

		runJob(ctx, log, q, p, jobID, poll)
	}
}

func runJob(ctx context.Context, log *logger.Logger, q *queue.RedisQueue, p *processor.Processor, jobID string, poll time.Duration) {
	jobCtx, cancel := context.WithCancel(logger.ContextWithJobID(ctx, jobID))
	defer cancel()
	jobLog := log.WithJobID(jobID)

	defer func() {
		if err := q.ClearCancel(context.WithoutCancel(ctx), jobID); err != nil {
			jobLog.Warn("failed to clear cancel flag", "error", err.Error())
		}
	}()

	if canceled, err := q.IsCanceled(jobCtx, jobID); err == nil && canceled {
		jobLog.Info("job canceled while queued")
		_ = p.CancelQueued(jobCtx, jobID)
		return
	}

	done := make(chan struct{})
	defer close(done)
	go watchCancel(jobCtx, q, jobID, poll, cancel, done, jobLog)

	jobLog.Info("processing job")
	startTime := time.Now()

	if err := p.ProcessJob(jobCtx, jobID); err != nil {
		if errors.IsCanceled(err) {
			jobLog.Info("job canceled",
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
			return
		}
		jobLog.Error("job failed",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
		return
	}
	jobLog.Info("job completed",
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
}

// watchCancel polls the job's cancel flag and cancels the job context when
// it is set. The planner sees the cancellation before its next frame.
func watchCancel(ctx context.Context, q *queue.RedisQueue, jobID string, every time.Duration, cancel context.CancelFunc, done <-chan struct{}, log *logger.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			canceled, err := q.IsCanceled(ctx, jobID)
			if err != nil {
				log.Warn("cancel check failed", "error", err.Error())
				continue
			}
			if canceled {
				log.Info("cancel requested")
				cancel()
				return
			}
		}
	}
}

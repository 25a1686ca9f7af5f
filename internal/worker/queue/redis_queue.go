package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CancelTTL bounds how long an unconsumed cancel flag lingers.
const CancelTTL = 24 * time.Hour

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

// Push enqueues a job id (LPUSH, consumed FIFO by Pop).
func (q *RedisQueue) Push(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.queueName, jobID).Err()
}

// Pop blocks until an element exists (BRPOP) or ctx ends.
func (q *RedisQueue) Pop(ctx context.Context) (string, error) {
	res, err := q.rdb.BRPop(ctx, 0, q.queueName).Result()
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

func (q *RedisQueue) cancelKey(jobID string) string {
	return q.queueName + ":cancel:" + jobID
}

// RequestCancel flags a job for cancellation. A running worker stops it
// before its next frame; a queued job is dropped when popped.
func (q *RedisQueue) RequestCancel(ctx context.Context, jobID string) error {
	return q.rdb.Set(ctx, q.cancelKey(jobID), "1", CancelTTL).Err()
}

func (q *RedisQueue) IsCanceled(ctx context.Context, jobID string) (bool, error) {
	err := q.rdb.Get(ctx, q.cancelKey(jobID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (q *RedisQueue) ClearCancel(ctx context.Context, jobID string) error {
	return q.rdb.Del(ctx, q.cancelKey(jobID)).Err()
}

// Ping checks the Redis connection.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

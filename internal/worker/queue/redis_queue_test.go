package queue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func unreachableQueue(t *testing.T) *RedisQueue {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisQueue(rdb, "turntable:jobs")
}

func TestCancelKey(t *testing.T) {
	q := NewRedisQueue(nil, "turntable:jobs")
	if got := q.cancelKey("job_1"); got != "turntable:jobs:cancel:job_1" {
		t.Errorf("unexpected cancel key %q", got)
	}
}

func TestUnreachableRedisSurfacesErrors(t *testing.T) {
	q := unreachableQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := q.Ping(ctx); err == nil {
		t.Error("expected ping error")
	}
	if err := q.Push(ctx, "job_1"); err == nil {
		t.Error("expected push error")
	}
	canceled, err := q.IsCanceled(ctx, "job_1")
	if err == nil || canceled {
		t.Errorf("expected error and no cancel, got %v, %v", canceled, err)
	}
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueFull is returned by Push when a bounded queue cannot accept more jobs.
var ErrQueueFull = errors.New("notification queue is full")

// Queue carries email jobs from request handlers to workers.
type Queue interface {
	Push(ctx context.Context, job EmailJob) error
	// Pop blocks until a job is available or ctx is done.
	Pop(ctx context.Context) (*EmailJob, error)
}

// defaultPushWait bounds how long Push waits for a free slot in a full MemoryQueue.
const defaultPushWait = 2 * time.Second

// MemoryQueue is an in-process bounded queue. Jobs are lost on restart.
type MemoryQueue struct {
	jobs     chan EmailJob
	pushWait time.Duration
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{jobs: make(chan EmailJob, size), pushWait: defaultPushWait}
}

// SetPushWait changes how long Push blocks on a full buffer. Zero disables waiting.
func (q *MemoryQueue) SetPushWait(d time.Duration) {
	q.pushWait = d
}

// Push waits up to pushWait for workers to free a slot, then returns ErrQueueFull.
func (q *MemoryQueue) Push(ctx context.Context, job EmailJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
	}
	if q.pushWait <= 0 {
		return ErrQueueFull
	}

	timer := time.NewTimer(q.pushWait)
	defer timer.Stop()
	select {
	case q.jobs <- job:
		return nil
	case <-timer.C:
		return ErrQueueFull
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrQueueFull, ctx.Err())
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (*EmailJob, error) {
	select {
	case job := <-q.jobs:
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports buffered jobs.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

// RedisQueue stores jobs in a Redis list (LPUSH producer, BRPOP consumer),
// so queued emails survive restarts and can be drained by any instance.
type RedisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, pollTimeout: 5 * time.Second}
}

func (q *RedisQueue) Push(ctx context.Context, job EmailJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode email job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push email job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*EmailJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		// result[0] is the key, result[1] the payload
		var job EmailJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			return nil, fmt.Errorf("failed to decode email job: %w", err)
		}
		return &job, nil
	}
}

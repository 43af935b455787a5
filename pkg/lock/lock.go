package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PipelineLocker serializes orchestration calls per pipeline so that an
// in-flight deploy cannot interleave with a concurrent pause or delete.
// Acquire blocks until the pipeline's lock is held or ctx/timeout expires
// and returns a release function.
type PipelineLocker interface {
	Acquire(ctx context.Context, pipelineID uint) (release func(), err error)
}

// --------------------- In-process keyed mutex ---------------------

// KeyedMutex is the single-instance locker: one mutex per pipeline ID.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uint]*entry)}
}

func (k *KeyedMutex) Acquire(ctx context.Context, pipelineID uint) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[pipelineID]
	if !ok {
		e = &entry{}
		k.locks[pipelineID] = e
	}
	e.refs++
	k.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-ctx.Done():
		// The goroutine above still holds or will hold the mutex; make sure
		// it is released and the refcount dropped once it gets there.
		go func() {
			<-acquired
			e.mu.Unlock()
			k.drop(pipelineID, e)
		}()
		return nil, ctx.Err()
	}

	return func() {
		e.mu.Unlock()
		k.drop(pipelineID, e)
	}, nil
}

func (k *KeyedMutex) drop(pipelineID uint, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, pipelineID)
	}
	k.mu.Unlock()
}

// --------------------- Redis-backed keyed lock ---------------------

// RedisLocker implements PipelineLocker with a Redis SetNX lock per pipeline,
// for deployments running more than one control plane replica.
type RedisLocker struct {
	client         *redis.Client
	keyPrefix      string
	lockTTL        time.Duration
	acquireTimeout time.Duration
}

// NewRedisLocker creates a RedisLocker.
//   - keyPrefix: prefix for lock keys (e.g. "connect_bridge:pipeline_lock")
//   - ttl: how long a lock is held before auto-expiry (prevents deadlock)
//   - acquireTimeout: max time to wait when trying to acquire a lock
func NewRedisLocker(client *redis.Client, keyPrefix string, ttl, acquireTimeout time.Duration) *RedisLocker {
	return &RedisLocker{
		client:         client,
		keyPrefix:      keyPrefix,
		lockTTL:        ttl,
		acquireTimeout: acquireTimeout,
	}
}

// releaseScript atomically checks that the lock value matches before deleting,
// preventing a client from releasing a lock it no longer owns.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

func (l *RedisLocker) Acquire(ctx context.Context, pipelineID uint) (func(), error) {
	key := fmt.Sprintf("%s:%d", l.keyPrefix, pipelineID)
	lockID := uuid.New().String()
	deadline := time.Now().Add(l.acquireTimeout)
	backoff := 50 * time.Millisecond

	for {
		ok, err := l.client.SetNX(ctx, key, lockID, l.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			release := func() {
				rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				_, _ = releaseScript.Run(rctx, l.client, []string{key}, lockID).Result()
			}
			return release, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout acquiring pipeline lock %d after %s", pipelineID, l.acquireTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		// exponential backoff, max 500ms
		backoff *= 2
		if backoff > 500*time.Millisecond {
			backoff = 500 * time.Millisecond
		}
	}
}

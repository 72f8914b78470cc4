package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	lockRetryInterval = 50 * time.Millisecond
	defaultLockTTL    = 30 * time.Second
)

// assignmentLocker serializes plagiarism checks per assignment so two
// concurrent submissions to the same assignment cannot miss each other's
// just-written text or embedding. A redis advisory lock covers multi-node
// deployments; a keyed in-process mutex covers the single-node case when
// redis is not configured.
type assignmentLocker struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	mu    sync.Mutex
	local map[uint]*localLock
}

type localLock struct {
	mu   sync.Mutex
	refs int
}

func newAssignmentLocker(redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) *assignmentLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &assignmentLocker{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.With().Str("component", "assignment_locker").Logger(),
		local:  make(map[uint]*localLock),
	}
}

// Lock blocks until the per-assignment lock is held or the context ends,
// and returns the release function. When the context ends before the redis
// lock is acquired the check proceeds under the in-process lock only;
// stalling the whole request on a lost lock would be worse than the race.
func (l *assignmentLocker) Lock(ctx context.Context, assignmentID uint) func() {
	entry := l.acquireLocal(assignmentID)

	releaseRedis := func() {}
	if l.redis != nil {
		releaseRedis = l.acquireRedis(ctx, assignmentID)
	}

	return func() {
		releaseRedis()
		l.releaseLocal(assignmentID, entry)
	}
}

func (l *assignmentLocker) acquireLocal(assignmentID uint) *localLock {
	l.mu.Lock()
	entry, ok := l.local[assignmentID]
	if !ok {
		entry = &localLock{}
		l.local[assignmentID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return entry
}

func (l *assignmentLocker) releaseLocal(assignmentID uint, entry *localLock) {
	entry.mu.Unlock()

	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.local, assignmentID)
	}
	l.mu.Unlock()
}

func (l *assignmentLocker) acquireRedis(ctx context.Context, assignmentID uint) func() {
	key := fmt.Sprintf("plagiarism:lock:assignment:%d", assignmentID)
	token := uuid.NewString()

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			l.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("redis lock unavailable, proceeding with local lock only")
			return func() {}
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			l.logger.Warn().Uint("assignment_id", assignmentID).Msg("gave up waiting for redis lock")
			return func() {}
		case <-time.After(lockRetryInterval):
		}
	}

	return func() {
		// Only release a lock this caller still owns; an expired lock may
		// have been re-acquired by another node.
		current, err := l.redis.Get(context.Background(), key).Result()
		if err == nil && current == token {
			if err := l.redis.Del(context.Background(), key).Err(); err != nil {
				l.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to release redis lock")
			}
		}
	}
}

// Package scheduler runs the periodic publish sweep for scheduled job postings.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"signalx/internal/common/logger"
)

// LockKey guards the sweep across replicas.
const LockKey = "signalx:lock:publish-sweep"

// Publisher is satisfied by jobs.Service.
type Publisher interface {
	PublishDue(ctx context.Context) (int, error)
}

// Scheduler wraps robfig/cron and owns the publish sweep.
type Scheduler struct {
	cron      *cron.Cron
	publisher Publisher
	rdb       redis.Cmdable
	spec      string
	timeout   time.Duration
	logger    logger.Logger
}

// New builds a scheduler. rdb may be nil on a single replica, in which
// case the sweep runs without a lock.
func New(publisher Publisher, rdb redis.Cmdable, spec string, timeout time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		publisher: publisher,
		rdb:       rdb,
		spec:      spec,
		timeout:   timeout,
		logger:    log.With(map[string]interface{}{"component": "scheduler"}),
	}
}

// Start registers the sweep and starts the cron loop. One sweep runs
// immediately so postings due during downtime go out without waiting a tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", map[string]interface{}{"spec": s.spec})

	go s.Sweep(ctx)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped", nil)
}

// Sweep publishes every due posting once. It returns the number published,
// or -1 when another replica holds the lock.
func (s *Scheduler) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	release, ok := s.acquire(ctx)
	if !ok {
		return -1
	}
	defer release()

	n, err := s.publisher.PublishDue(ctx)
	if err != nil {
		s.logger.Error("publish sweep failed", map[string]interface{}{"error": err})
		return 0
	}
	s.logger.Debug("publish sweep complete", map[string]interface{}{"published": n})
	return n
}

func (s *Scheduler) acquire(ctx context.Context) (func(), bool) {
	if s.rdb == nil {
		return func() {}, true
	}
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, LockKey, token, s.timeout).Result()
	if err != nil {
		// Without redis the sweep still runs; the publish update itself is idempotent.
		s.logger.Warn("sweep lock unavailable", map[string]interface{}{"error": err})
		return func() {}, true
	}
	if !ok {
		s.logger.Debug("sweep lock held elsewhere, skipping", nil)
		return nil, false
	}
	return func() {
		if err := releaseLock.Run(context.Background(), s.rdb, []string{LockKey}, token).Err(); err != nil {
			s.logger.Warn("sweep lock release failed", map[string]interface{}{"error": err})
		}
	}, true
}

// releaseLock deletes the lock only while it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

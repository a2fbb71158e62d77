package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/models"
	"github.com/noah-isme/wellbeing-api/pkg/jobs"
)

const sweepJobType = "session_sweep"

type sessionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// SessionCleanup runs expired session sweeps and records them in the audit trail.
type SessionCleanup struct {
	sessions sessionSweeper
	audit    *auditTrail
	logger   *zap.Logger
}

// NewSessionCleanup constructs the cleanup use case.
func NewSessionCleanup(sessions sessionSweeper, audit auditRepository, logger *zap.Logger) *SessionCleanup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionCleanup{sessions: sessions, audit: newAuditTrail(audit, logger), logger: logger}
}

// Run performs one sweep. trigger names the caller (http, cli, scheduler).
func (c *SessionCleanup) Run(ctx context.Context, trigger string) (int64, error) {
	removed, err := c.sessions.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	c.audit.record(ctx, "", models.AuditActionSessionSweep, "sessions", models.ClientMeta{}, map[string]interface{}{
		"removed": removed,
		"trigger": trigger,
	})
	return removed, nil
}

// SessionSweeper schedules cleanup runs on a background job queue.
type SessionSweeper struct {
	cleanup  *SessionCleanup
	queue    *jobs.Queue
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSessionSweeper builds a sweeper firing every interval.
func NewSessionSweeper(cleanup *SessionCleanup, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	s := &SessionSweeper{cleanup: cleanup, interval: interval, logger: logger}
	s.queue = jobs.NewQueue("session-sweeper", s.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: 2,
		RetryDelay: 30 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the queue and the ticker. Stop must be called to release them.
func (s *SessionSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.queue.Start(ctx)
	go func() {
		defer close(s.done)
		s.queue.Every(ctx, s.interval, sweepJobType)
	}()
	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
}

// Trigger enqueues an immediate sweep.
func (s *SessionSweeper) Trigger() error {
	return s.queue.Enqueue(jobs.Job{Type: sweepJobType})
}

// Stop halts scheduling and waits for in-flight sweeps.
func (s *SessionSweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.queue.Stop()
}

func (s *SessionSweeper) handle(ctx context.Context, job jobs.Job) error {
	_, err := s.cleanup.Run(ctx, "scheduler")
	return err
}

// Package janitor runs periodic cleanup jobs on a cron schedule.
package janitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/agent_studio/internal/app/system"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// DefaultSchedule purges every fifteen minutes.
const DefaultSchedule = "@every 15m"

// SessionPurger removes expired sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

var _ system.Service = (*Janitor)(nil)

// Janitor is a lifecycle-managed cron runner.
type Janitor struct {
	schedule string
	sessions SessionPurger
	timeout  time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// New creates a janitor. An empty schedule uses DefaultSchedule.
func New(schedule string, sessions SessionPurger, log *logger.Logger) (*Janitor, error) {
	if log == nil {
		log = logger.NewDefault("janitor")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return &Janitor{schedule: schedule, sessions: sessions, timeout: time.Minute, log: log}, nil
}

func (j *Janitor) Name() string { return "janitor" }

func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)))
	if _, err := c.AddFunc(j.schedule, func() { j.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule janitor: %w", err)
	}
	c.Start()

	j.cron, j.cancel, j.running = c, cancel, true
	j.log.WithField("schedule", j.schedule).Info("janitor started")
	return nil
}

func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	c, cancel := j.cron, j.cancel
	j.cron, j.cancel, j.running = nil, nil, false
	j.mu.Unlock()

	cancel()
	done := c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	j.log.Info("janitor stopped")
	return nil
}

// RunOnce executes every cleanup job immediately.
func (j *Janitor) RunOnce(ctx context.Context) {
	if j.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	removed, err := j.sessions.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		j.log.WithError(err).Warn("purge expired sessions failed")
		return
	}
	j.log.WithField("removed", removed).Debug("janitor run complete")
}

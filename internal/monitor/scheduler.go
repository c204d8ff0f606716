// internal/monitor/scheduler.go
package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the audit on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	auditor *Auditor
	logger  *zap.Logger

	mu   sync.Mutex
	last Report
	runs int
}

// NewScheduler registers the audit under spec (standard 5-field cron or a
// descriptor such as "@every 1h").
func NewScheduler(ctx context.Context, spec string, auditor *Auditor, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		auditor: auditor,
		logger:  logger.Named("scheduler"),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunNow(ctx) }); err != nil {
		return nil, fmt.Errorf("register audit task: %w", err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Audit scheduler started")
}

// Stop stops the scheduler and waits for a running audit to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Audit scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes the audit immediately (manual trigger / run on start).
func (s *Scheduler) RunNow(ctx context.Context) {
	report, err := s.auditor.Run(ctx)
	if err != nil {
		s.logger.Error("Audit run failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.last = report
	s.runs++
	s.mu.Unlock()
}

// Last returns the latest successful report and the number of runs.
func (s *Scheduler) Last() (Report, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.runs
}

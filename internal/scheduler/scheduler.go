// Package scheduler runs periodic full syncs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caixahub/caixahub/internal/service"
	"github.com/robfig/cron/v3"
)

// DefaultSpec syncs every 6 hours.
const DefaultSpec = "0 */6 * * *"

// DefaultTimeout bounds one full sync pass.
const DefaultTimeout = 30 * time.Minute

// Syncer runs a sync across all eligible accounts.
type Syncer interface {
	SyncAll(ctx context.Context, progress func(done, total int)) (*service.SyncResult, error)
}

// Config holds scheduler settings.
type Config struct {
	// Spec is a standard 5-field cron expression.
	Spec string
	// Timeout bounds each sync pass.
	Timeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Spec == "" {
		out.Spec = DefaultSpec
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}

// Scheduler triggers periodic syncs. Overlapping runs are skipped rather
// than queued.
type Scheduler struct {
	cron   *cron.Cron
	syncer Syncer
	logger *slog.Logger
	cfg    Config
}

// New creates a scheduler. Jobs are registered on Start.
func New(syncer Syncer, cfg Config) *Scheduler {
	logger := slog.Default().With("component", "scheduler")
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{logger}),
			cron.Recover(cronLogger{logger}),
		)),
		syncer: syncer,
		logger: logger,
		cfg:    cfg.withDefaults(),
	}
}

// Start registers the sync job and begins the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Spec, s.runSync)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.cfg.Spec, err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", "spec", s.cfg.Spec)
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	s.logger.Info("Scheduled sync starting")

	result, err := s.syncer.SyncAll(ctx, nil)
	if err != nil {
		s.logger.Error("Scheduled sync failed", "error", err)
		return
	}

	s.logger.Info("Scheduled sync complete",
		"accounts", result.Accounts,
		"created", result.Created,
		"updated", result.Updated,
		"failures", len(result.Errors))
}

// cronLogger adapts slog to the cron logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

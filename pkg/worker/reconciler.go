package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/internal/service/eventlog"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

type ReconcilerConfig struct {
	PollInterval       time.Duration
	StalenessThreshold time.Duration
	EventRetention     time.Duration
	BatchSize          int
}

// Reconciler is the cleanup loop behind the at-most-once guarantee: a
// job stuck in working means its executor died mid-flight. Since the
// send may or may not have happened, the job flips to failed rather
// than being retried here; operators decide whether to reschedule.
type Reconciler struct {
	jobs    repository.JobRepository
	events  *eventlog.Logger
	logs    repository.EventLogRepository
	config  ReconcilerConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewReconciler(
	jobs repository.JobRepository,
	events *eventlog.Logger,
	logs repository.EventLogRepository,
	config ReconcilerConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Reconciler {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.StalenessThreshold <= 0 {
		config.StalenessThreshold = 15 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	return &Reconciler{
		jobs:    jobs,
		events:  events,
		logs:    logs,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.logger.Info("Starting job reconciler")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Shutting down job reconciler")
			return
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				r.logger.Error(err, "Reconciler sweep failed")
			}
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) error {
	if r.metrics != nil {
		r.metrics.ReconcilerSweeps.Inc()
	}

	if err := r.recoverStaleJobs(ctx); err != nil {
		return err
	}
	return r.pruneEventLogs(ctx)
}

func (r *Reconciler) recoverStaleJobs(ctx context.Context) error {
	cutoff := time.Now().Add(-r.config.StalenessThreshold)
	stale, err := r.jobs.ListStaleWorking(ctx, cutoff, r.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale jobs: %w", err)
	}

	for _, job := range stale {
		if err := r.jobs.SetStatus(ctx, job.ID, model.DeliveryStatusFailed); err != nil {
			r.logger.Error(err, "Failed to fail stale job", "job_id", job.ID.String())
			continue
		}
		if r.metrics != nil {
			r.metrics.StaleJobsRecovered.Inc()
		}
		r.events.LogOne(ctx, model.EventStatusRetried, model.EventKeyDelivery, job.EntityID, model.EventData{
			JobID: job.ID.String(),
			Error: "job stuck in working state past staleness threshold",
		})
		r.logger.Info("Recovered stale job",
			"job_id", job.ID.String(),
			"job_type", string(job.JobType))
	}
	return nil
}

func (r *Reconciler) pruneEventLogs(ctx context.Context) error {
	if r.config.EventRetention <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-r.config.EventRetention)
	deleted, err := r.logs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune event logs: %w", err)
	}
	if deleted > 0 {
		r.logger.Info("Pruned event logs", "deleted", deleted)
	}
	return nil
}

package core

// maintenance.go runs periodic housekeeping for the pipeline:
//  1. Delete reports nobody retrieved within the retention window
//  2. Report staging batches left unresolved for too long
//  3. Discard stale batches that were never populated
//
// A populated batch awaits the submitter's decision and is only logged and
// counted. A batch still unpopulated past the stale age belongs to a run
// that died mid-staging; nobody can commit it, so it is discarded.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// MaintenanceConfig holds the schedule and thresholds of the maintenance job.
type MaintenanceConfig struct {
	Schedule        string        // cron spec (default: "@every 1h")
	ReportRetention time.Duration // default: 7 days
	StaleBatchAge   time.Duration // default: 3 days
}

// Maintenance schedules the housekeeping job with cron.
type Maintenance struct {
	cron    *cron.Cron
	reports ReportStore
	staging StagingStore
	metrics *Metrics
	cfg     MaintenanceConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewMaintenance creates the scheduler. Call Start to register the job.
func NewMaintenance(reports ReportStore, staging StagingStore, metrics *Metrics, cfg MaintenanceConfig, logger *slog.Logger) *Maintenance {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1h"
	}
	if cfg.ReportRetention <= 0 {
		cfg.ReportRetention = 7 * 24 * time.Hour
	}
	if cfg.StaleBatchAge <= 0 {
		cfg.StaleBatchAge = 3 * 24 * time.Hour
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintenance{
		cron:    cron.New(),
		reports: reports,
		staging: staging,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers the job and starts the cron scheduler.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc(m.cfg.Schedule, func() {
		m.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", m.cfg.Schedule, err)
	}
	m.cron.Start()
	m.logger.Info("maintenance scheduler started",
		"schedule", m.cfg.Schedule,
		"report_retention", m.cfg.ReportRetention,
		"stale_batch_age", m.cfg.StaleBatchAge,
	)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
	m.logger.Info("maintenance scheduler stopped")
}

// MaintenanceResult summarises one housekeeping cycle.
type MaintenanceResult struct {
	ReportsPurged    int64
	StaleBatches     []BatchSummary
	OrphansDiscarded int
}

// RunOnce performs one purge and stale-batch check. Failures are logged and
// do not stop the other task.
func (m *Maintenance) RunOnce(ctx context.Context) MaintenanceResult {
	start := m.now()
	var res MaintenanceResult

	purged, err := m.reports.PurgeOlderThan(ctx, start.Add(-m.cfg.ReportRetention))
	if err != nil {
		m.logger.Error("report purge failed", "error", err)
	} else {
		res.ReportsPurged = purged
		m.metrics.ReportsPurged.Add(float64(purged))
		if purged > 0 {
			m.logger.Info("purged unread reports", "reports_purged", purged)
		}
	}

	stale, err := m.staging.StaleBatches(ctx, start.Add(-m.cfg.StaleBatchAge))
	if err != nil {
		m.logger.Error("stale batch check failed", "error", err)
	} else {
		res.StaleBatches = stale
		m.metrics.StaleBatches.Set(float64(len(stale)))
		for _, b := range stale {
			age := start.Sub(b.CreatedAt).Round(time.Minute)
			if b.Populated {
				m.logger.Warn("staging batch awaiting decision",
					"stage_id", b.BatchID,
					"submission_id", b.SubmissionID,
					"age", age,
				)
				continue
			}
			if _, err := m.staging.Resolve(ctx, b.SubmitterID, b.BatchID, DecisionDiscard); err != nil {
				m.logger.Error("discard orphaned batch failed", "stage_id", b.BatchID, "error", err)
				continue
			}
			res.OrphansDiscarded++
			m.metrics.BatchesResolved.WithLabelValues("orphaned").Inc()
			m.logger.Warn("discarded orphaned staging batch",
				"stage_id", b.BatchID,
				"submission_id", b.SubmissionID,
				"age", age,
			)
		}
	}

	m.logger.Debug("maintenance completed", "duration_ms", time.Since(start).Milliseconds())
	return res
}

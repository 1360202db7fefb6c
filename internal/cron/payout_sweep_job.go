package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mercata/mercata-backend/internal/payouts"
	"github.com/mercata/mercata-backend/pkg/logger"
)

const payoutSweepJobName = "payout_sweep"

// PayoutSweepJob drives the automatic payout sweep from the cron worker.
type PayoutSweepJob struct {
	scheduler payouts.Scheduler
	logg      *logger.Logger
}

// NewPayoutSweepJob builds the payout sweep job.
func NewPayoutSweepJob(scheduler payouts.Scheduler, logg *logger.Logger) (*PayoutSweepJob, error) {
	if scheduler == nil {
		return nil, fmt.Errorf("payout scheduler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PayoutSweepJob{scheduler: scheduler, logg: logg}, nil
}

// Name identifies the job in logs and metrics.
func (j *PayoutSweepJob) Name() string {
	return payoutSweepJobName
}

// Run executes one sweep. Per-store failures are already isolated inside the
// scheduler; the aggregated error only marks the cycle as failed in metrics.
func (j *PayoutSweepJob) Run(ctx context.Context) error {
	report, err := j.scheduler.Sweep(ctx, time.Now())
	if err != nil {
		return err
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":       report.Due,
		"processed": report.Processed,
		"skipped":   report.Skipped,
	})
	j.logg.Info(logCtx, "payout sweep job finished")
	return nil
}

package cron

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mercata/mercata-backend/internal/payouts"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
)

func TestPayoutSweepJob_runsSweepAndReportsClean(t *testing.T) {
	scheduler := &fakeScheduler{
		report: &payouts.SweepReport{Due: 3, Processed: 2, Skipped: 1},
	}
	job := newPayoutSweepJobTest(t, scheduler)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scheduler.calls != 1 {
		t.Fatalf("expected 1 sweep, got %d", scheduler.calls)
	}
	if job.Name() != "payout_sweep" {
		t.Fatalf("unexpected job name: %s", job.Name())
	}
}

func TestPayoutSweepJob_aggregatedSweepErrorFailsTheCycle(t *testing.T) {
	scheduler := &fakeScheduler{
		report: &payouts.SweepReport{Due: 1, Failed: 1},
		err:    pkgerrors.New(pkgerrors.CodeGateway, "processor rejected payout"),
	}
	job := newPayoutSweepJobTest(t, scheduler)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep error to surface")
	}
}

func newPayoutSweepJobTest(t *testing.T, scheduler payouts.Scheduler) *PayoutSweepJob {
	t.Helper()
	job, err := NewPayoutSweepJob(scheduler, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewPayoutSweepJob: %v", err)
	}
	return job
}

type fakeScheduler struct {
	report *payouts.SweepReport
	err    error
	calls  int
}

func (f *fakeScheduler) Sweep(ctx context.Context, now time.Time) (*payouts.SweepReport, error) {
	f.calls++
	return f.report, f.err
}

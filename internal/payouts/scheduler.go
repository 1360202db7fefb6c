package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/metrics"
)

// SweepReport summarizes one pass over the stores due for automatic payouts.
type SweepReport struct {
	Due       int
	Processed int
	Skipped   int
	Failed    int
	Errors    map[uuid.UUID]string
}

// Scheduler finds stores whose next_payout_at has arrived and runs the
// executor for each.
type Scheduler interface {
	Sweep(ctx context.Context, now time.Time) (*SweepReport, error)
}

type scheduler struct {
	repo     Repository
	executor Executor
	logg     *logger.Logger
	metrics  *metrics.PayoutSweepMetrics
}

// NewScheduler wires the payout sweep.
func NewScheduler(repo Repository, exec Executor, logg *logger.Logger, m *metrics.PayoutSweepMetrics) (Scheduler, error) {
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if exec == nil {
		return nil, fmt.Errorf("payout executor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if m == nil {
		return nil, fmt.Errorf("sweep metrics required")
	}
	return &scheduler{repo: repo, executor: exec, logg: logg, metrics: m}, nil
}

// Sweep runs each due store in isolation: one store's failure or panic never
// blocks the rest of the batch. The aggregated error carries every per-store
// failure for the caller's log line.
func (s *scheduler) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	due, err := s.repo.ListDueAutomatic(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{
		Due:    len(due),
		Errors: map[uuid.UUID]string{},
	}
	var sweepErr error

	for _, settings := range due {
		result, runErr := s.runOne(ctx, settings.StoreID, now)
		if runErr != nil {
			report.Failed++
			report.Errors[settings.StoreID] = runErr.Error()
			sweepErr = multierr.Append(sweepErr, fmt.Errorf("store %s: %w", settings.StoreID, runErr))
			s.metrics.IncFailed()
			s.logg.Error(s.logg.WithStoreID(ctx, settings.StoreID.String()), "payout sweep store failed", runErr)
			continue
		}
		switch result.Outcome {
		case OutcomeCompleted:
			report.Processed++
			s.metrics.AddProcessed(result.AmountCents)
		case OutcomeSkipped:
			report.Skipped++
			s.metrics.IncSkipped()
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"store_id": settings.StoreID.String(),
				"reason":   result.SkipReason,
			})
			s.logg.Info(logCtx, "payout skipped")
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"due":       report.Due,
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	})
	s.logg.Info(logCtx, "payout sweep finished")

	return report, sweepErr
}

func (s *scheduler) runOne(ctx context.Context, storeID uuid.UUID, now time.Time) (result *ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during payout execution: %v", r)
		}
	}()
	return s.executor.Execute(ctx, storeID, now)
}

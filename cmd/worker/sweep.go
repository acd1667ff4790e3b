package main

import (
	"context"
	"slices"

	"retailhub/internal/domain/reconcile"
	"retailhub/pkg/logger"
)

// StoreLister lists the stores one source knows about.
type StoreLister interface {
	StoreIDs(ctx context.Context) ([]string, error)
}

type inventoryValidator interface {
	ReconcileStore(ctx context.Context, storeID string, productIDs ...string) (*reconcile.Report, error)
}

type creditValidator interface {
	Validate(ctx context.Context, storeID string, saleIDs ...string) (*reconcile.Report, error)
}

// Sweeper validates every store any of Stores reports. Credits is optional.
type Sweeper struct {
	Stores    []StoreLister
	Inventory inventoryValidator
	Credits   creditValidator
}

// SweepResult counts what one sweep found.
type SweepResult struct {
	Stores        int
	Discrepancies int
	Failures      int
}

// Sweep runs a validate pass over every store and logs each drifted one.
// A failing store does not stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context) SweepResult {
	var res SweepResult

	stores, failures := s.storeIDs(ctx)
	res.Failures += failures

	for _, storeID := range stores {
		if ctx.Err() != nil {
			return res
		}
		res.Stores++
		s.check(ctx, &res, storeID, "inventory", func() (*reconcile.Report, error) {
			return s.Inventory.ReconcileStore(ctx, storeID)
		})
		if s.Credits != nil {
			s.check(ctx, &res, storeID, "credits", func() (*reconcile.Report, error) {
				return s.Credits.Validate(ctx, storeID)
			})
		}
	}

	logger.Info(ctx, "reconcile sweep finished",
		"stores", res.Stores, "discrepancies", res.Discrepancies, "failures", res.Failures)
	return res
}

// storeIDs returns the sorted union of every lister. A failing lister is
// logged and skipped.
func (s *Sweeper) storeIDs(ctx context.Context) ([]string, int) {
	var (
		all      []string
		failures int
	)
	for _, l := range s.Stores {
		ids, err := l.StoreIDs(ctx)
		if err != nil {
			logger.Error(ctx, "reconcile sweep: list stores", "error", err)
			failures++
			continue
		}
		all = append(all, ids...)
	}
	slices.Sort(all)
	return slices.Compact(all), failures
}

func (s *Sweeper) check(ctx context.Context, res *SweepResult, storeID, subject string, run func() (*reconcile.Report, error)) {
	report, err := run()
	if err != nil {
		res.Failures++
		logger.Error(ctx, "reconcile sweep failed", "subject", subject, "store_id", storeID, "error", err)
		return
	}
	if report.Consistent() {
		return
	}
	res.Discrepancies += len(report.Discrepancies)
	logger.Warn(ctx, "reconcile drift detected",
		"subject", subject,
		"store_id", storeID,
		"checked", report.Checked,
		"discrepancies", len(report.Discrepancies),
		"by_kind", report.CountByKind(),
	)
}

package reconcile

import (
	"context"
	"fmt"
	"time"

	"retailhub/internal/core/tx"
	"retailhub/pkg/logger"
)

// Engine runs validate and repair for one Subject.
type Engine[K comparable, T any] struct {
	subject Subject[K, T]
	txm     tx.Manager
	audit   AuditSink
	now     func() time.Time
}

// NewEngine creates an engine. audit may be nil, in which case repairs are
// only logged.
func NewEngine[K comparable, T any](subject Subject[K, T], txm tx.Manager, audit AuditSink) *Engine[K, T] {
	return &Engine[K, T]{subject: subject, txm: txm, audit: audit, now: time.Now}
}

// Validate diffs keys, or every key of the scope when none are given.
func (e *Engine[K, T]) Validate(ctx context.Context, scope Scope, keys ...K) (*Report, error) {
	keys, err := e.resolveKeys(ctx, scope, keys)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Subject:       e.subject.Name(),
		StoreID:       scope.StoreID,
		Discrepancies: []Discrepancy{},
		GeneratedAt:   e.now().UTC(),
	}
	for _, key := range keys {
		diffs, err := e.diff(ctx, scope, key)
		if err != nil {
			return nil, fmt.Errorf("%s %v: %w", e.subject.Name(), key, err)
		}
		report.Checked++
		report.Discrepancies = append(report.Discrepancies, diffs...)
	}

	if !report.Consistent() {
		logger.Info(ctx, "reconciliation found discrepancies",
			"subject", report.Subject,
			"store_id", scope.StoreID,
			"checked", report.Checked,
			"discrepancies", len(report.Discrepancies),
		)
	}
	return report, nil
}

// Repair fixes keys, or every key of the scope when none are given. Each key
// is handled in its own transaction, so one failure does not stop the rest.
func (e *Engine[K, T]) Repair(ctx context.Context, scope Scope, actor string, keys ...K) (*RepairResult, error) {
	if actor == "" {
		return nil, ErrActorRequired
	}
	keys, err := e.resolveKeys(ctx, scope, keys)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{Subject: e.subject.Name(), StoreID: scope.StoreID, Actor: actor, Items: []RepairItem{}}
	for _, key := range keys {
		item := e.repairKey(ctx, scope, actor, key)
		switch item.Outcome {
		case OutcomeRepaired:
			result.Repaired++
		case OutcomeSkipped:
			result.Skipped++
		case OutcomeFailed:
			result.Failed++
		}
		result.Items = append(result.Items, item)
	}

	logger.Info(ctx, "reconciliation repair finished",
		"subject", result.Subject,
		"store_id", scope.StoreID,
		"actor", actor,
		"repaired", result.Repaired,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

func (e *Engine[K, T]) repairKey(ctx context.Context, scope Scope, actor string, key K) RepairItem {
	item := RepairItem{Key: fmt.Sprint(key), Outcome: OutcomeClean}

	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		expected, hasExpected, err := e.subject.Expected(ctx, scope, key)
		if err != nil {
			return fmt.Errorf("expected state: %w", err)
		}
		actual, hasActual, err := e.subject.Actual(ctx, scope, key)
		if err != nil {
			return fmt.Errorf("actual state: %w", err)
		}

		diffs := e.subject.Diff(key, expected, hasExpected, actual, hasActual)
		item.Discrepancies = diffs
		if len(diffs) == 0 {
			item.Outcome = OutcomeClean
			return nil
		}
		for _, d := range diffs {
			if !d.Repairable {
				item.Outcome = OutcomeSkipped
				return nil
			}
		}

		if err := e.subject.Apply(ctx, scope, key, expected); err != nil {
			return fmt.Errorf("apply: %w", err)
		}
		entry := AuditEntry{
			Subject:       e.subject.Name(),
			Key:           item.Key,
			StoreID:       scope.StoreID,
			Actor:         actor,
			Discrepancies: diffs,
			At:            e.now().UTC(),
		}
		if e.audit != nil {
			if err := e.audit.RecordRepair(ctx, entry); err != nil {
				return fmt.Errorf("audit: %w", err)
			}
		}
		item.Outcome = OutcomeRepaired
		return nil
	})
	if err != nil {
		item.Outcome = OutcomeFailed
		item.Error = err.Error()
		logger.Error(ctx, "reconciliation repair failed", "subject", e.subject.Name(), "key", item.Key, "error", err)
		return item
	}

	if item.Outcome == OutcomeRepaired {
		logger.Info(ctx, "reconciliation repaired", "subject", e.subject.Name(), "key", item.Key, "actor", actor)
	}
	return item
}

func (e *Engine[K, T]) diff(ctx context.Context, scope Scope, key K) ([]Discrepancy, error) {
	expected, hasExpected, err := e.subject.Expected(ctx, scope, key)
	if err != nil {
		return nil, fmt.Errorf("expected state: %w", err)
	}
	actual, hasActual, err := e.subject.Actual(ctx, scope, key)
	if err != nil {
		return nil, fmt.Errorf("actual state: %w", err)
	}
	return e.subject.Diff(key, expected, hasExpected, actual, hasActual), nil
}

func (e *Engine[K, T]) resolveKeys(ctx context.Context, scope Scope, keys []K) ([]K, error) {
	if len(keys) > 0 {
		return keys, nil
	}
	all, err := e.subject.Keys(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list %s keys: %w", e.subject.Name(), err)
	}
	return all, nil
}

package inventory

import (
	"context"
	"fmt"
	"slices"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
	"retailhub/pkg/logger"
)

// MaxBatchItems caps a single batch.
const MaxBatchItems = 500

// BatchRequest records several movements from one originating call.
type BatchRequest struct {
	// BatchID correlates the movements. Generated when empty.
	BatchID string `json:"batchId,omitempty"`
	// IdempotencyKey derives "<key>:<index>" for each item.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	// Atomic records all items in one transaction: all or nothing.
	Atomic bool              `json:"atomic"`
	Items  []MovementRequest `json:"items"`
}

// ItemResult is the outcome of one batch item. Exactly one of Movement and Err is set.
type ItemResult struct {
	Index    int
	Movement *entity.Movement
	Err      error
}

type BatchResult struct {
	BatchID  string
	Atomic   bool
	Items    []ItemResult
	Recorded int
	Failed   int
}

// Failures returns the items that were not recorded.
func (b *BatchResult) Failures() []ItemResult {
	var out []ItemResult
	for _, it := range b.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// RecordBatch records every item of req.
//
// By default items are independent: a failed item does not undo or block the
// others, and the result lists each outcome. With Atomic set, a failure of
// any item rolls back the whole batch and is returned as the error.
func (r *Recorder) RecordBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if len(req.Items) == 0 {
		return nil, apperror.NewValidation("batch has no items").WithDetail("field", "items")
	}
	if len(req.Items) > MaxBatchItems {
		return nil, apperror.NewValidation("batch too large").
			WithDetail("items", len(req.Items)).
			WithDetail("max", MaxBatchItems)
	}
	if req.BatchID == "" {
		req.BatchID = id.New().String()
	}

	items := make([]MovementRequest, len(req.Items))
	for i, item := range req.Items {
		item.BatchID = req.BatchID
		if req.IdempotencyKey != "" && item.IdempotencyKey == "" {
			item.IdempotencyKey = fmt.Sprintf("%s:%d", req.IdempotencyKey, i)
		}
		items[i] = item
	}

	var (
		res *BatchResult
		err error
	)
	if req.Atomic {
		res, err = r.recordAtomic(ctx, req.BatchID, items)
	} else {
		res = r.recordIndependent(ctx, req.BatchID, items)
	}
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement batch recorded",
		"batch_id", res.BatchID,
		"atomic", res.Atomic,
		"recorded", res.Recorded,
		"failed", res.Failed,
	)
	return res, nil
}

func (r *Recorder) recordIndependent(ctx context.Context, batchID string, items []MovementRequest) *BatchResult {
	res := &BatchResult{BatchID: batchID, Items: make([]ItemResult, len(items))}
	for i, item := range items {
		m, err := r.RecordMovement(ctx, item)
		res.Items[i] = ItemResult{Index: i, Movement: m, Err: err}
		if err != nil {
			res.Failed++
			logger.Warn(ctx, "batch item not recorded", "batch_id", batchID, "index", i, "error", err)
			continue
		}
		res.Recorded++
	}
	return res
}

func (r *Recorder) recordAtomic(ctx context.Context, batchID string, items []MovementRequest) (*BatchResult, error) {
	keys := make([]entity.ScopeKey, 0, len(items))
	for i := range items {
		items[i].normalize()
		if err := items[i].Validate(r.cfg.EnforceSign); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("index", i)
			}
			return nil, err
		}
		keys = append(keys, items[i].Key())
	}
	// Lock in one global order so two atomic batches sharing keys cannot deadlock.
	slices.SortFunc(keys, func(a, b entity.ScopeKey) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	keys = slices.Compact(keys)

	var recorded []*entity.Movement
	err := r.retry(ctx, entity.ScopeKey{StoreID: items[0].StoreID}, func() error {
		recorded = recorded[:0]
		return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			for _, key := range keys {
				if err := r.repo.LockKey(ctx, key); err != nil {
					return fmt.Errorf("lock %s: %w", key, err)
				}
			}
			for i := range items {
				m, err := r.appendLocked(ctx, &items[i])
				if err != nil {
					return fmt.Errorf("batch item %d: %w", i, err)
				}
				recorded = append(recorded, m)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	res := &BatchResult{BatchID: batchID, Atomic: true, Items: make([]ItemResult, len(recorded)), Recorded: len(recorded)}
	for i, m := range recorded {
		res.Items[i] = ItemResult{Index: i, Movement: m}
	}
	return res, nil
}

package inventory

import (
	"context"
	"fmt"
	"time"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
	"retailhub/internal/core/tx"
	"retailhub/internal/core/types"
	"retailhub/pkg/logger"
)

// Config tunes the write path.
type Config struct {
	// MaxRetries bounds how often a conflicting write is replayed from the read.
	MaxRetries int
	// EnforceSign rejects quantities whose sign contradicts the movement type.
	EnforceSign bool
}

func DefaultConfig() Config {
	return Config{MaxRetries: 5, EnforceSign: true}
}

// Recorder appends movements to the ledger.
//
// Each movement is written in its own transaction: lock the scoping key, read
// the latest balance, append the new record. Writers of the same key are
// serialized by the lock; the unique (key, sequence) constraint catches any
// writer that slips past it, and that write is replayed.
type Recorder struct {
	repo   Repository
	txm    tx.Manager
	events EventPublisher
	cfg    Config
	now    func() time.Time
}

// NewRecorder wires the recorder. events may be nil.
func NewRecorder(repo Repository, txm tx.Manager, events EventPublisher, cfg Config) *Recorder {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Recorder{
		repo:   repo,
		txm:    txm,
		events: events,
		cfg:    cfg,
		now:    time.Now,
	}
}

// RecordMovement validates req and appends it to its chain.
//
// With an IdempotencyKey already used in the store, the original movement is
// returned unchanged. Persistence failures are returned without retrying.
func (r *Recorder) RecordMovement(ctx context.Context, req MovementRequest) (*entity.Movement, error) {
	req.normalize()
	if err := req.Validate(r.cfg.EnforceSign); err != nil {
		return nil, err
	}

	var recorded *entity.Movement
	err := r.retry(ctx, req.Key(), func() error {
		return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			m, err := r.appendLocked(ctx, &req)
			if err != nil {
				return err
			}
			recorded = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "movement recorded",
		"movement_id", recorded.ID,
		"key", req.Key().String(),
		"type", recorded.MovementType,
		"quantity", recorded.Quantity.String(),
		"new_stock", recorded.NewStock.String(),
	)
	return recorded, nil
}

// appendLocked runs the read-compute-write sequence. It must be called inside
// a transaction.
func (r *Recorder) appendLocked(ctx context.Context, req *MovementRequest) (*entity.Movement, error) {
	key := req.Key()
	if err := r.repo.LockKey(ctx, key); err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	if req.IdempotencyKey != "" {
		existing, err := r.repo.FindByIdempotencyKey(ctx, req.StoreID, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("find by idempotency key: %w", err)
		}
		if existing != nil {
			if !req.sameIntent(existing) {
				return nil, apperror.NewConflict("idempotency key was used for a different movement").
					WithDetail("idempotencyKey", req.IdempotencyKey).
					WithDetail("movementId", existing.ID)
			}
			return existing, nil
		}
	}

	prev, err := r.repo.Latest(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("latest movement of %s: %w", key, err)
	}

	m, err := r.build(req, prev)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Append(ctx, m); err != nil {
		return nil, fmt.Errorf("append movement: %w", err)
	}

	if r.events != nil {
		if err := r.events.Publish(ctx, movementRecorded(m)); err != nil {
			return nil, fmt.Errorf("publish movement event: %w", err)
		}
	}
	return m, nil
}

func (r *Recorder) build(req *MovementRequest, prev *entity.Movement) (*entity.Movement, error) {
	m := &entity.Movement{
		ID:            id.New(),
		ProductID:     req.ProductID,
		WarehouseID:   req.WarehouseID,
		StoreID:       req.StoreID,
		Sequence:      1,
		MovementType:  req.MovementType,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		TotalValue:    req.TotalValue,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		UserID:        req.UserID,
		CreatedAt:     r.now().UTC().Truncate(time.Microsecond),
	}
	if m.TotalValue.IsZero() {
		m.TotalValue = types.LineValue(req.UnitCost, req.Quantity)
	}
	if req.BatchID != "" {
		m.BatchID = &req.BatchID
	}
	if req.IdempotencyKey != "" {
		m.IdempotencyKey = &req.IdempotencyKey
	}
	if req.Notes != "" {
		m.Notes = &req.Notes
	}

	if prev != nil {
		m.Sequence = prev.Sequence + 1
		m.PreviousStock = prev.NewStock
		// createdAt orders reconstruction, so it never goes backwards within a chain.
		if m.CreatedAt.Before(prev.CreatedAt) {
			m.CreatedAt = prev.CreatedAt
		}
	}
	newStock, err := m.PreviousStock.Add(m.Quantity)
	if err != nil {
		return nil, apperror.NewValidation("resulting stock is out of range").
			WithDetail("previousStock", m.PreviousStock.String()).
			WithDetail("quantity", m.Quantity.String())
	}
	m.NewStock = newStock
	return m, nil
}

// retry replays fn while it fails with CONCURRENT_MODIFICATION. Inside an
// outer transaction there is nothing safe to replay, so fn runs once.
func (r *Recorder) retry(ctx context.Context, key entity.ScopeKey, fn func() error) error {
	attempts := r.cfg.MaxRetries + 1
	if t, ok := r.txm.(tx.InTransaction); ok && t.InTransaction(ctx) {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !apperror.IsConcurrentModification(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Debug(ctx, "ledger write conflict", "key", key.String(), "attempt", attempt)
	}

	logger.Warn(ctx, "ledger write conflict retries exhausted", "key", key.String(), "attempts", attempts)
	return err
}

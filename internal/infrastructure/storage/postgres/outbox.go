package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/id"
	"retailhub/internal/domain/inventory"
	"retailhub/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage is one row of the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	StoreID       string       `db:"store_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher writes events to the outbox table inside the caller's
// transaction, so an event exists exactly when its movement does.
type OutboxPublisher struct {
	txManager *TxManager
}

func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

var _ inventory.EventPublisher = (*OutboxPublisher)(nil)

// Publish must be called inside a transaction.
func (p *OutboxPublisher) Publish(ctx context.Context, event inventory.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return apperror.NewInternal(fmt.Errorf("outbox publish requires transaction context"))
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, store_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id.New(), aggregateType(event.Type), event.AggregateID, event.StoreID, event.Type, payload, OutboxStatusPending, occurred)
	if err != nil {
		return MapError(fmt.Errorf("insert outbox message: %w", err))
	}
	return nil
}

// aggregateType is the event type's prefix: "inventory.movement_recorded"
// belongs to "inventory".
func aggregateType(eventType string) string {
	prefix, _, _ := strings.Cut(eventType, ".")
	return prefix
}

// OutboxHandler delivers one message. An error schedules a retry.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay drains pending messages. Several relays may run at once; rows
// are claimed with FOR UPDATE SKIP LOCKED.
type OutboxRelay struct {
	txManager  *TxManager
	batchSize  int
	maxRetries int
	handler    OutboxHandler
}

func NewOutboxRelay(txManager *TxManager, batchSize, maxRetries int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxRelay{
		txManager:  txManager,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		handler:    handler,
	}
}

// ProcessBatch claims up to batchSize due messages, delivers them and
// records the outcome, all in one transaction. It returns the number
// delivered.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var messages []*OutboxMessage
		err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, `
			SELECT id, aggregate_type, aggregate_id, store_id, event_type, payload, status,
			       retry_count, last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= now())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, OutboxStatusPending, r.batchSize)
		if err != nil {
			return MapError(fmt.Errorf("fetch outbox messages: %w", err))
		}

		for _, msg := range messages {
			if err := r.processMessage(ctx, msg); err != nil {
				logger.Warn(ctx, "outbox delivery failed",
					"message_id", msg.ID,
					"event_type", msg.EventType,
					"retry_count", msg.RetryCount+1,
					"error", err,
				)
				continue
			}
			processed++
		}
		return nil
	})
	return processed, err
}

func (r *OutboxRelay) processMessage(ctx context.Context, msg *OutboxMessage) error {
	q := r.txManager.GetQuerier(ctx)

	if err := r.handler.Handle(ctx, msg); err != nil {
		nextRetry := time.Now().UTC().Add(backoff(msg.RetryCount))
		status := OutboxStatusPending
		if msg.RetryCount+1 >= r.maxRetries {
			status = OutboxStatusFailed
		}
		_, updateErr := q.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = $3
			WHERE id = $4
		`, err.Error(), nextRetry, status, msg.ID)
		if updateErr != nil {
			return MapError(fmt.Errorf("update failed message: %w", updateErr))
		}
		return err
	}

	_, err := q.Exec(ctx, `
		UPDATE sys_outbox
		SET status = $1, published_at = $2
		WHERE id = $3
	`, OutboxStatusPublished, time.Now().UTC(), msg.ID)
	if err != nil {
		return MapError(fmt.Errorf("mark message published: %w", err))
	}
	return nil
}

// backoff grows linearly with the retry count, capped at an hour.
func backoff(retries int) time.Duration {
	d := time.Duration(retries+1) * time.Minute
	if d > time.Hour {
		return time.Hour
	}
	return d
}

// PurgePublished deletes published messages older than age.
func (r *OutboxRelay) PurgePublished(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_outbox
		WHERE status = $1 AND published_at < $2
	`, OutboxStatusPublished, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, MapError(fmt.Errorf("purge outbox: %w", err))
	}
	return tag.RowsAffected(), nil
}

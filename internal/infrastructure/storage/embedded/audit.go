package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"retailhub/internal/core/id"
	"retailhub/internal/domain/reconcile"
)

// AuditLog stores applied repairs as plain JSON.
type AuditLog struct {
	txm *TxManager
}

func NewAuditLog(txm *TxManager) *AuditLog {
	return &AuditLog{txm: txm}
}

var _ reconcile.AuditSink = (*AuditLog)(nil)

func (a *AuditLog) RecordRepair(ctx context.Context, entry reconcile.AuditEntry) error {
	changes, err := json.Marshal(entry.Discrepancies)
	if err != nil {
		return fmt.Errorf("marshal discrepancies: %w", err)
	}

	row := auditRow{
		ID:        id.New().String(),
		Subject:   entry.Subject,
		EntityKey: entry.Key,
		StoreID:   entry.StoreID,
		Actor:     entry.Actor,
		Changes:   string(changes),
		CreatedAt: entry.At,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := a.txm.conn(ctx).Create(&row).Error; err != nil {
		return mapError(fmt.Errorf("insert audit record: %w", err))
	}
	return nil
}

// AuditEntry is one stored repair as read back.
type AuditEntry struct {
	Subject   string                  `json:"subject"`
	Key       string                  `json:"key"`
	StoreID   string                  `json:"storeId"`
	Actor     string                  `json:"actor"`
	Changes   []reconcile.Discrepancy `json:"changes"`
	CreatedAt time.Time               `json:"createdAt"`
}

// History returns the newest repairs of one entity.
func (a *AuditLog) History(ctx context.Context, storeID, subject, key string, limit int) ([]AuditEntry, error) {
	var rows []auditRow
	err := a.txm.conn(ctx).
		Where("store_id = ? AND subject = ? AND entity_key = ?", storeID, subject, key).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, mapError(fmt.Errorf("query audit history: %w", err))
	}

	entries := make([]AuditEntry, len(rows))
	for i, row := range rows {
		entries[i] = AuditEntry{
			Subject:   row.Subject,
			Key:       row.EntityKey,
			StoreID:   row.StoreID,
			Actor:     row.Actor,
			CreatedAt: row.CreatedAt,
		}
		if err := json.Unmarshal([]byte(row.Changes), &entries[i].Changes); err != nil {
			return nil, fmt.Errorf("decode audit changes: %w", err)
		}
	}
	return entries, nil
}

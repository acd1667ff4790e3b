package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"retailhub/internal/core/id"
	"retailhub/internal/domain/reconcile"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRecord is one stored repair.
type AuditRecord struct {
	ID                id.ID           `db:"id"`
	Subject           string          `db:"subject"`
	EntityKey         string          `db:"entity_key"`
	StoreID           string          `db:"store_id"`
	Actor             string          `db:"actor"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService stores reconciliation repairs. Large change sets are
// compressed with zstd.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 4 * 1024,
	}, nil
}

var _ reconcile.AuditSink = (*AuditService)(nil)

// RecordRepair runs in the repair's transaction, so a failed audit write
// rolls the repair back.
func (s *AuditService) RecordRepair(ctx context.Context, entry reconcile.AuditEntry) error {
	changes, err := json.Marshal(entry.Discrepancies)
	if err != nil {
		return fmt.Errorf("marshal discrepancies: %w", err)
	}

	rec := AuditRecord{
		ID:              id.New(),
		Subject:         entry.Subject,
		EntityKey:       entry.Key,
		StoreID:         entry.StoreID,
		Actor:           entry.Actor,
		Changes:         changes,
		CompressionAlgo: CompressionNone,
		CreatedAt:       entry.At,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.compress(&rec)

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_reconcile_audit (
			id, subject, entity_key, store_id, actor,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID, rec.Subject, rec.EntityKey, rec.StoreID, rec.Actor,
		rec.Changes, rec.ChangesCompressed, rec.CompressionAlgo, rec.CreatedAt,
	)
	if err != nil {
		return MapError(fmt.Errorf("insert audit record: %w", err))
	}
	return nil
}

func (s *AuditService) compress(rec *AuditRecord) {
	if len(rec.Changes) <= s.compressThreshold {
		return
	}
	rec.ChangesCompressed = s.encoder.EncodeAll(rec.Changes, nil)
	rec.Changes = nil
	rec.CompressionAlgo = CompressionZstd
}

func (s *AuditService) decompress(rec *AuditRecord) error {
	if rec.CompressionAlgo != CompressionZstd || len(rec.ChangesCompressed) == 0 {
		return nil
	}
	raw, err := s.decoder.DecodeAll(rec.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	rec.Changes = raw
	rec.ChangesCompressed = nil
	return nil
}

// History returns the newest repairs of one entity, decompressed.
func (s *AuditService) History(ctx context.Context, storeID, subject, key string, limit int) ([]AuditRecord, error) {
	var records []AuditRecord
	err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &records, `
		SELECT id, subject, entity_key, store_id, actor,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_reconcile_audit
		WHERE store_id = $1 AND subject = $2 AND entity_key = $3
		ORDER BY created_at DESC
		LIMIT $4
	`, storeID, subject, key, limit)
	if err != nil {
		return nil, MapError(fmt.Errorf("query audit history: %w", err))
	}

	for i := range records {
		if err := s.decompress(&records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

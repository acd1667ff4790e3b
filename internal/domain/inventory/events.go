package inventory

import (
	"context"
	"time"

	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
)

const EventMovementRecorded = "inventory.movement_recorded"

// Event is published in the same transaction as the movement it describes.
type Event struct {
	Type        string
	AggregateID id.ID
	StoreID     string
	Payload     any
	OccurredAt  time.Time
}

// EventPublisher writes events to a transactional outbox.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// MovementRecordedPayload is the outbox body of EventMovementRecorded.
type MovementRecordedPayload struct {
	MovementID    id.ID               `json:"movementId"`
	ProductID     string              `json:"productId"`
	WarehouseID   string              `json:"warehouseId"`
	StoreID       string              `json:"storeId"`
	MovementType  entity.MovementType `json:"movementType"`
	Quantity      string              `json:"quantity"`
	PreviousStock string              `json:"previousStock"`
	NewStock      string              `json:"newStock"`
	ReferenceID   string              `json:"referenceId"`
	BatchID       *string             `json:"batchId,omitempty"`
}

func movementRecorded(m *entity.Movement) Event {
	return Event{
		Type:        EventMovementRecorded,
		AggregateID: m.ID,
		StoreID:     m.StoreID,
		OccurredAt:  m.CreatedAt,
		Payload: MovementRecordedPayload{
			MovementID:    m.ID,
			ProductID:     m.ProductID,
			WarehouseID:   m.WarehouseID,
			StoreID:       m.StoreID,
			MovementType:  m.MovementType,
			Quantity:      m.Quantity.String(),
			PreviousStock: m.PreviousStock.String(),
			NewStock:      m.NewStock.String(),
			ReferenceID:   m.ReferenceID,
			BatchID:       m.BatchID,
		},
	}
}

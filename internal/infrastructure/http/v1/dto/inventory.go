package dto

import (
	"retailhub/internal/core/entity"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/inventory"
)

// MovementResponse is a recorded movement. CachedStock is set when the
// caller asked for the product's cached stock to be synced.
type MovementResponse struct {
	*entity.Movement
	CachedStock *types.Quantity `json:"cachedStock,omitempty"`
}

type BatchItemResponse struct {
	Index    int              `json:"index"`
	Movement *entity.Movement `json:"movement,omitempty"`
	Error    *ErrorBody       `json:"error,omitempty"`
}

type BatchResponse struct {
	BatchID  string              `json:"batchId"`
	Atomic   bool                `json:"atomic"`
	Recorded int                 `json:"recorded"`
	Failed   int                 `json:"failed"`
	Items    []BatchItemResponse `json:"items"`
}

func FromBatchResult(r *inventory.BatchResult) BatchResponse {
	resp := BatchResponse{
		BatchID:  r.BatchID,
		Atomic:   r.Atomic,
		Recorded: r.Recorded,
		Failed:   r.Failed,
		Items:    make([]BatchItemResponse, len(r.Items)),
	}
	for i, it := range r.Items {
		resp.Items[i] = BatchItemResponse{
			Index:    it.Index,
			Movement: it.Movement,
			Error:    NewErrorBody(it.Err),
		}
	}
	return resp
}

// ListMovementsQuery filters GET /inventory/movements.
type ListMovementsQuery struct {
	ProductID   string   `form:"productId"`
	WarehouseID string   `form:"warehouseId"`
	Types       []string `form:"type"`
	Limit       int      `form:"limit"`
	After       string   `form:"after"`
}

func (q ListMovementsQuery) Filter(storeID string) inventory.Filter {
	f := inventory.Filter{ProductID: q.ProductID, StoreID: storeID, WarehouseID: q.WarehouseID}
	for _, t := range q.Types {
		f.Types = append(f.Types, entity.MovementType(t))
	}
	return f
}

package inventory

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
	"retailhub/internal/core/types"
)

type SummaryQuery struct {
	ProductID   string
	StoreID     string
	WarehouseID string
	Limit       int
	Offset      int
}

// Summary aggregates a product's movements. History is newest-first.
type Summary struct {
	ProductID      string             `json:"productId"`
	StoreID        string             `json:"storeId"`
	WarehouseID    string             `json:"warehouseId,omitempty"`
	CurrentStock   types.Quantity     `json:"currentStock"`
	Warehouses     []WarehouseBalance `json:"warehouses"`
	ByType         []TypeTotal        `json:"byType"`
	TotalMovements int64              `json:"totalMovements"`
	History        []entity.Movement  `json:"history"`
	Limit          int                `json:"limit"`
	Offset         int                `json:"offset"`
}

// GetMovementSummary returns totals per movement type, the current balance
// and one page of history. An empty WarehouseID summarizes the whole store.
func (i *Inspector) GetMovementSummary(ctx context.Context, q SummaryQuery) (*Summary, error) {
	if q.ProductID == "" {
		return nil, apperror.NewRequiredField("productId")
	}
	if q.StoreID == "" {
		return nil, apperror.NewRequiredField("storeId")
	}
	q.Limit = clampPage(q.Limit)
	if q.Offset < 0 {
		q.Offset = 0
	}
	f := Filter{ProductID: q.ProductID, StoreID: q.StoreID, WarehouseID: q.WarehouseID}

	totals, err := i.repo.TotalsByType(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("totals by type: %w", err)
	}
	balances, err := i.repo.Balances(ctx, q.ProductID, q.StoreID)
	if err != nil {
		return nil, fmt.Errorf("warehouse balances: %w", err)
	}
	history, err := i.repo.List(ctx, ListOptions{Filter: f, Order: OrderDesc, Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	s := &Summary{
		ProductID:   q.ProductID,
		StoreID:     q.StoreID,
		WarehouseID: q.WarehouseID,
		Warehouses:  []WarehouseBalance{},
		ByType:      fillTypes(totals),
		History:     history,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if s.History == nil {
		s.History = []entity.Movement{}
	}
	for _, t := range s.ByType {
		s.TotalMovements += t.Count
	}
	for _, b := range balances {
		if q.WarehouseID != "" && b.WarehouseID != q.WarehouseID {
			continue
		}
		s.Warehouses = append(s.Warehouses, b)
		s.CurrentStock += b.Stock
	}
	return s, nil
}

// fillTypes returns one row per movement type in enum order, zero-filled.
func fillTypes(totals []TypeTotal) []TypeTotal {
	byType := make(map[entity.MovementType]TypeTotal, len(totals))
	for _, t := range totals {
		byType[t.MovementType] = t
	}
	out := make([]TypeTotal, 0, len(entity.MovementTypes))
	for _, mt := range entity.MovementTypes {
		t, ok := byType[mt]
		if !ok {
			t = TypeTotal{MovementType: mt}
		}
		out = append(out, t)
	}
	return out
}

// IterOptions narrows ProductMovements.
type IterOptions struct {
	WarehouseID string
	Types       []entity.MovementType
	// After resumes after a previously seen position.
	After *Cursor
	// PageSize is the number of rows fetched per round trip.
	PageSize int
}

// ProductMovements yields the product's movements oldest-first. Rows are
// fetched page by page as the caller ranges; each range starts over from
// the beginning (or opts.After), so the sequence can be consumed repeatedly.
// An error is yielded once and ends the sequence.
func (i *Inspector) ProductMovements(ctx context.Context, productID, storeID string, opts IterOptions) iter.Seq2[entity.Movement, error] {
	size := clampPage(opts.PageSize)
	f := Filter{ProductID: productID, StoreID: storeID, WarehouseID: opts.WarehouseID, Types: opts.Types}

	return func(yield func(entity.Movement, error) bool) {
		if productID == "" || storeID == "" {
			yield(entity.Movement{}, apperror.NewValidation("productId and storeId are required"))
			return
		}
		after := opts.After
		for {
			page, err := i.repo.List(ctx, ListOptions{Filter: f, Order: OrderAsc, After: after, Limit: size})
			if err != nil {
				yield(entity.Movement{}, fmt.Errorf("list movements: %w", err))
				return
			}
			for _, m := range page {
				if !yield(m, nil) {
					return
				}
			}
			if len(page) < size {
				return
			}
			after = CursorOf(&page[len(page)-1])
		}
	}
}

// ListPage returns up to limit movements after the cursor, oldest-first,
// and the cursor of the next page ("" at the end).
func (i *Inspector) ListPage(ctx context.Context, f Filter, after string, limit int) ([]entity.Movement, string, error) {
	if f.ProductID == "" || f.StoreID == "" {
		return nil, "", apperror.NewValidation("productId and storeId are required")
	}
	limit = clampPage(limit)
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", err
	}
	page, err := i.repo.List(ctx, ListOptions{Filter: f, Order: OrderAsc, After: cur, Limit: limit})
	if err != nil {
		return nil, "", fmt.Errorf("list movements: %w", err)
	}
	next := ""
	if len(page) == limit {
		next = EncodeCursor(CursorOf(&page[len(page)-1]))
	}
	if page == nil {
		page = []entity.Movement{}
	}
	return page, next, nil
}

func clampPage(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%d|%d|%s", c.CreatedAt.UnixMicro(), c.Sequence, c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token from EncodeCursor. "" yields nil.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	invalid := apperror.NewValidation("invalid cursor").WithDetail("field", "after")

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, invalid
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return nil, invalid
	}
	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, invalid
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, invalid
	}
	mid, err := id.Parse(parts[2])
	if err != nil {
		return nil, invalid
	}
	return &Cursor{CreatedAt: time.UnixMicro(micros).UTC(), Sequence: seq, ID: mid}, nil
}

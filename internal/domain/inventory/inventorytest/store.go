// Package inventorytest provides an in-memory ledger store for tests.
//
// Store implements inventory.Repository and tx.Manager. Writes made inside a
// transaction stay private until commit, so rollbacks discard them. In
// ModeSerial, transactions run one at a time. In ModeOptimistic they overlap
// and conflicting appends fail with CONCURRENT_MODIFICATION, which exercises
// the recorder's retry path.
package inventorytest

import (
	"cmp"
	"context"
	"runtime"
	"slices"
	"sync"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/inventory"
)

type Mode int

const (
	ModeSerial Mode = iota
	ModeOptimistic
)

type Store struct {
	mode Mode

	// serial is held for the whole transaction in ModeSerial.
	serial sync.Mutex

	mu        sync.Mutex
	movements []entity.Movement
	failWhen  func(m *entity.Movement) error
	appends   int
}

func NewStore(mode Mode) *Store {
	return &Store{mode: mode}
}

type txKey struct{}

type txState struct {
	pending []entity.Movement
}

// FailWhen makes Append return the hook's error for matching movements.
func (s *Store) FailWhen(hook func(m *entity.Movement) error) {
	s.mu.Lock()
	s.failWhen = hook
	s.mu.Unlock()
}

// Tamper edits committed movements in place, simulating corrupted data.
func (s *Store) Tamper(fn func(ms []entity.Movement)) {
	s.mu.Lock()
	fn(s.movements)
	s.mu.Unlock()
}

// Seed inserts movements as-is, bypassing the chain computation.
func (s *Store) Seed(ms ...entity.Movement) {
	s.mu.Lock()
	s.movements = append(s.movements, ms...)
	s.mu.Unlock()
}

// All returns a copy of every committed movement.
func (s *Store) All() []entity.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.movements)
}

// Appends counts successful Append calls, committed or not.
func (s *Store) Appends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}

func (s *Store) InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.InTransaction(ctx) {
		return fn(ctx)
	}
	if s.mode == ModeSerial {
		s.serial.Lock()
		defer s.serial.Unlock()
	}

	st := &txState{}
	if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range st.pending {
		if s.conflictLocked(&st.pending[i]) {
			return apperror.NewConcurrentModification("inventory_movement", st.pending[i].Key().String())
		}
	}
	s.movements = append(s.movements, st.pending...)
	return nil
}

func (s *Store) LockKey(context.Context, entity.ScopeKey) error {
	return nil
}

func (s *Store) Latest(ctx context.Context, key entity.ScopeKey) (*entity.Movement, error) {
	var latest *entity.Movement
	for _, m := range s.visible(ctx) {
		if m.Key() != key {
			continue
		}
		if latest == nil || m.Sequence > latest.Sequence {
			m := m
			latest = &m
		}
	}
	if s.mode == ModeOptimistic {
		// Widen the window between read and write.
		runtime.Gosched()
	}
	return latest, nil
}

func (s *Store) Append(ctx context.Context, m *entity.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWhen != nil {
		if err := s.failWhen(m); err != nil {
			return err
		}
	}
	if s.conflictLocked(m) {
		return apperror.NewConcurrentModification("inventory_movement", m.Key().String())
	}

	st, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		s.movements = append(s.movements, *m)
	} else {
		for _, p := range st.pending {
			if p.Key() == m.Key() && p.Sequence == m.Sequence {
				return apperror.NewConcurrentModification("inventory_movement", m.Key().String())
			}
		}
		st.pending = append(st.pending, *m)
	}
	s.appends++
	return nil
}

// conflictLocked reports a committed record with the same (key, sequence)
// or the same idempotency key.
func (s *Store) conflictLocked(m *entity.Movement) bool {
	for _, c := range s.movements {
		if c.Key() == m.Key() && c.Sequence == m.Sequence {
			return true
		}
		if m.IdempotencyKey != nil && c.IdempotencyKey != nil &&
			c.StoreID == m.StoreID && *c.IdempotencyKey == *m.IdempotencyKey {
			return true
		}
	}
	return false
}

func (s *Store) FindByIdempotencyKey(ctx context.Context, storeID, key string) (*entity.Movement, error) {
	for _, m := range s.visible(ctx) {
		if m.StoreID == storeID && m.IdempotencyKey != nil && *m.IdempotencyKey == key {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (s *Store) SumQuantity(ctx context.Context, f inventory.Filter) (types.Quantity, error) {
	var sum types.Quantity
	for _, m := range s.matching(ctx, f) {
		sum += m.Quantity
	}
	return sum, nil
}

func (s *Store) Count(ctx context.Context, f inventory.Filter) (int64, error) {
	return int64(len(s.matching(ctx, f))), nil
}

func (s *Store) TotalsByType(ctx context.Context, f inventory.Filter) ([]inventory.TypeTotal, error) {
	byType := map[entity.MovementType]*inventory.TypeTotal{}
	var out []inventory.TypeTotal
	for _, m := range s.matching(ctx, f) {
		t, ok := byType[m.MovementType]
		if !ok {
			t = &inventory.TypeTotal{MovementType: m.MovementType}
			byType[m.MovementType] = t
		}
		t.Count++
		t.Quantity += m.Quantity
	}
	for _, t := range byType {
		out = append(out, *t)
	}
	return out, nil
}

func (s *Store) Balances(ctx context.Context, productID, storeID string) ([]inventory.WarehouseBalance, error) {
	latest := map[string]entity.Movement{}
	for _, m := range s.matching(ctx, inventory.Filter{ProductID: productID, StoreID: storeID}) {
		if cur, ok := latest[m.WarehouseID]; !ok || m.Sequence > cur.Sequence {
			latest[m.WarehouseID] = m
		}
	}
	out := make([]inventory.WarehouseBalance, 0, len(latest))
	for wh, m := range latest {
		out = append(out, inventory.WarehouseBalance{
			WarehouseID:    wh,
			Stock:          m.NewStock,
			Sequence:       m.Sequence,
			LastMovementAt: m.CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b inventory.WarehouseBalance) int { return cmp.Compare(a.WarehouseID, b.WarehouseID) })
	return out, nil
}

func (s *Store) List(ctx context.Context, opts inventory.ListOptions) ([]entity.Movement, error) {
	rows := s.matching(ctx, opts.Filter)
	slices.SortFunc(rows, compareMovements)
	if opts.Order == inventory.OrderDesc {
		slices.Reverse(rows)
	}

	if opts.After != nil && opts.Order == inventory.OrderAsc {
		pivot := entity.Movement{CreatedAt: opts.After.CreatedAt, Sequence: opts.After.Sequence, ID: opts.After.ID}
		idx := len(rows)
		for i := range rows {
			if compareMovements(rows[i], pivot) > 0 {
				idx = i
				break
			}
		}
		rows = rows[idx:]
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[opts.Offset:]
	}
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	return rows, nil
}

func (s *Store) ProductIDs(ctx context.Context, storeID string) ([]string, error) {
	var ids []string
	for _, m := range s.visible(ctx) {
		if m.StoreID == storeID && !slices.Contains(ids, m.ProductID) {
			ids = append(ids, m.ProductID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) StoreIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for _, m := range s.visible(ctx) {
		if !slices.Contains(ids, m.StoreID) {
			ids = append(ids, m.StoreID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// visible returns committed rows plus the pending rows of ctx's transaction.
func (s *Store) visible(ctx context.Context) []entity.Movement {
	s.mu.Lock()
	rows := slices.Clone(s.movements)
	s.mu.Unlock()
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		rows = append(rows, st.pending...)
	}
	return rows
}

func (s *Store) matching(ctx context.Context, f inventory.Filter) []entity.Movement {
	var out []entity.Movement
	for _, m := range s.visible(ctx) {
		if m.ProductID != f.ProductID || m.StoreID != f.StoreID {
			continue
		}
		if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID {
			continue
		}
		if len(f.Types) > 0 && !slices.Contains(f.Types, m.MovementType) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func compareMovements(a, b entity.Movement) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Sequence, b.Sequence); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

var (
	_ inventory.Repository = (*Store)(nil)
)

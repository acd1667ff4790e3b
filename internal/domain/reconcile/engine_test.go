package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterSubject reconciles cached integer counters against derived totals.
type counterSubject struct {
	mu       sync.Mutex
	expected map[string]int
	cached   map[string]int
	failKey  string
}

func newCounterSubject() *counterSubject {
	return &counterSubject{expected: map[string]int{}, cached: map[string]int{}}
}

func (s *counterSubject) Name() string { return "counter" }

func (s *counterSubject) Keys(context.Context, Scope) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var keys []string
	for k := range s.expected {
		seen[k] = true
		keys = append(keys, k)
	}
	for k := range s.cached {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *counterSubject) Expected(_ context.Context, _ Scope, key string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.expected[key]
	return v, ok, nil
}

func (s *counterSubject) Actual(_ context.Context, _ Scope, key string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cached[key]
	return v, ok, nil
}

func (s *counterSubject) Diff(key string, exp int, hasExp bool, act int, hasAct bool) []Discrepancy {
	switch {
	case hasExp && !hasAct:
		return []Discrepancy{{Key: key, Kind: KindMissingRecord, Field: "cached", Expected: fmt.Sprint(exp), Repairable: true}}
	case !hasExp && hasAct:
		return []Discrepancy{{Key: key, Kind: KindMissingRecord, Field: "source", Actual: fmt.Sprint(act), Reason: "orphan"}}
	case hasExp && exp != act:
		return []Discrepancy{{Key: key, Kind: KindAmountMismatch, Field: "value", Expected: fmt.Sprint(exp), Actual: fmt.Sprint(act), Repairable: true}}
	}
	return nil
}

func (s *counterSubject) Apply(_ context.Context, _ Scope, key string, exp int) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached[key] = exp
	return nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type memAudit struct {
	entries []AuditEntry
}

func (a *memAudit) RecordRepair(_ context.Context, e AuditEntry) error {
	a.entries = append(a.entries, e)
	return nil
}

func seeded() *counterSubject {
	s := newCounterSubject()
	s.expected["a"] = 10
	s.cached["a"] = 10
	s.expected["b"] = 5
	s.cached["b"] = 7
	s.expected["c"] = 3
	s.cached["orphan"] = 1
	return s
}

func TestEngine_Validate(t *testing.T) {
	subject := seeded()
	engine := NewEngine[string, int](subject, passthroughTx{}, nil)

	report, err := engine.Validate(context.Background(), Scope{StoreID: "S1"})
	require.NoError(t, err)

	assert.Equal(t, "counter", report.Subject)
	assert.Equal(t, 4, report.Checked)
	assert.False(t, report.Consistent())
	assert.Equal(t, map[Kind]int{KindAmountMismatch: 1, KindMissingRecord: 2}, report.CountByKind())

	// Validate never writes.
	assert.Equal(t, 7, subject.cached["b"])
	_, hasC := subject.cached["c"]
	assert.False(t, hasC)
}

func TestEngine_ValidateSelectedKeys(t *testing.T) {
	engine := NewEngine[string, int](seeded(), passthroughTx{}, nil)

	report, err := engine.Validate(context.Background(), Scope{StoreID: "S1"}, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.True(t, report.Consistent())
}

func TestEngine_Repair(t *testing.T) {
	subject := seeded()
	audit := &memAudit{}
	engine := NewEngine[string, int](subject, passthroughTx{}, audit)
	ctx := context.Background()

	result, err := engine.Repair(ctx, Scope{StoreID: "S1"}, "ops@store")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Repaired)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 5, subject.cached["b"])
	assert.Equal(t, 3, subject.cached["c"])
	assert.Equal(t, 1, subject.cached["orphan"], "orphans are reported, not repaired")

	require.Len(t, audit.entries, 2)
	assert.Equal(t, "ops@store", audit.entries[0].Actor)
	assert.Equal(t, "S1", audit.entries[0].StoreID)

	t.Run("second run is a no-op", func(t *testing.T) {
		again, err := engine.Repair(ctx, Scope{StoreID: "S1"}, "ops@store")
		require.NoError(t, err)
		assert.Equal(t, 0, again.Repaired)
		assert.Equal(t, 1, again.Skipped)
		assert.Len(t, audit.entries, 2)
	})
}

func TestEngine_RepairFailureIsolated(t *testing.T) {
	subject := seeded()
	subject.failKey = "b"
	engine := NewEngine[string, int](subject, passthroughTx{}, nil)

	result, err := engine.Repair(context.Background(), Scope{StoreID: "S1"}, "ops")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Repaired)
	for _, item := range result.Items {
		if item.Key == "b" {
			assert.Equal(t, OutcomeFailed, item.Outcome)
			assert.Contains(t, item.Error, "disk full")
		}
	}
	assert.Equal(t, 3, subject.cached["c"])
}

func TestEngine_RepairRequiresActor(t *testing.T) {
	engine := NewEngine[string, int](seeded(), passthroughTx{}, nil)
	_, err := engine.Repair(context.Background(), Scope{StoreID: "S1"}, "")
	assert.ErrorIs(t, err, ErrActorRequired)
}

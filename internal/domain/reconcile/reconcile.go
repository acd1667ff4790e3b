// Package reconcile compares a derived source of truth with a cached copy.
//
// Reconciliation runs in three phases. Validate is read only and produces a
// Report. Repair is invoked explicitly; it re-validates every key inside its
// own transaction, overwrites the cached copy with the derived value and
// audits the change. Running Repair twice is a no-op the second time.
package reconcile

import (
	"context"
	"errors"
	"time"
)

// Kind classifies a discrepancy.
type Kind string

const (
	KindMissingRecord  Kind = "missing_record"
	KindAmountMismatch Kind = "amount_mismatch"
	KindStatusMismatch Kind = "status_mismatch"
)

// Scope bounds a run to one store.
type Scope struct {
	StoreID string `json:"storeId"`
}

// Discrepancy is one difference between expected and actual state.
type Discrepancy struct {
	Key      string `json:"key"`
	Kind     Kind   `json:"kind"`
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	// Repairable is false when overwriting the cached copy cannot fix it.
	Repairable bool   `json:"repairable"`
	Reason     string `json:"reason,omitempty"`
}

// Subject adapts one kind of cached state to the engine.
//
// Expected derives the true state from its source; Actual reads the cached
// copy. The bool results report whether the record exists at all.
type Subject[K comparable, T any] interface {
	Name() string
	Keys(ctx context.Context, scope Scope) ([]K, error)
	Expected(ctx context.Context, scope Scope, key K) (T, bool, error)
	Actual(ctx context.Context, scope Scope, key K) (T, bool, error)
	Diff(key K, expected T, hasExpected bool, actual T, hasActual bool) []Discrepancy
	// Apply overwrites the cached copy of key with expected.
	Apply(ctx context.Context, scope Scope, key K, expected T) error
}

// Report is the result of a validate run.
type Report struct {
	Subject       string        `json:"subject"`
	StoreID       string        `json:"storeId"`
	Checked       int           `json:"checked"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	GeneratedAt   time.Time     `json:"generatedAt"`
}

// Consistent reports whether no discrepancy was found.
func (r *Report) Consistent() bool { return len(r.Discrepancies) == 0 }

// CountByKind tallies discrepancies per kind.
func (r *Report) CountByKind() map[Kind]int {
	out := make(map[Kind]int)
	for _, d := range r.Discrepancies {
		out[d.Kind]++
	}
	return out
}

// Outcome is what Repair did with one key.
type Outcome string

const (
	OutcomeRepaired Outcome = "repaired"
	OutcomeClean    Outcome = "clean"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

type RepairItem struct {
	Key           string        `json:"key"`
	Outcome       Outcome       `json:"outcome"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
	Error         string        `json:"error,omitempty"`
}

type RepairResult struct {
	Subject  string       `json:"subject"`
	StoreID  string       `json:"storeId"`
	Actor    string       `json:"actor"`
	Items    []RepairItem `json:"items"`
	Repaired int          `json:"repaired"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
}

// AuditEntry describes one applied repair.
type AuditEntry struct {
	Subject       string
	Key           string
	StoreID       string
	Actor         string
	Discrepancies []Discrepancy
	At            time.Time
}

// AuditSink persists applied repairs. It runs in the repair's transaction.
type AuditSink interface {
	RecordRepair(ctx context.Context, entry AuditEntry) error
}

// ErrActorRequired is returned by Repair without an actor.
var ErrActorRequired = errors.New("reconcile: repair requires an actor")

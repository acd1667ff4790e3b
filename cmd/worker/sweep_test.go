package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"retailhub/internal/domain/reconcile"
)

type storeList []string

func (s storeList) StoreIDs(context.Context) ([]string, error) { return s, nil }

type failingStores struct{}

func (failingStores) StoreIDs(context.Context) ([]string, error) {
	return nil, errors.New("db down")
}

type stubInventory map[string]*reconcile.Report

func (s stubInventory) ReconcileStore(_ context.Context, storeID string, _ ...string) (*reconcile.Report, error) {
	if r, ok := s[storeID]; ok {
		return r, nil
	}
	return nil, errors.New("boom")
}

type stubCredits struct{ calls []string }

func (s *stubCredits) Validate(_ context.Context, storeID string, _ ...string) (*reconcile.Report, error) {
	s.calls = append(s.calls, storeID)
	return &reconcile.Report{Subject: "credit_accounts", StoreID: storeID}, nil
}

func TestSweep_CountsDriftAndFailures(t *testing.T) {
	credits := &stubCredits{}
	s := &Sweeper{
		Stores: []StoreLister{storeList{"S1", "S2", "S3"}},
		Inventory: stubInventory{
			"S1": {StoreID: "S1", Checked: 2},
			"S2": {StoreID: "S2", Checked: 2, Discrepancies: []reconcile.Discrepancy{
				{Key: "P1", Kind: reconcile.KindAmountMismatch},
				{Key: "P2", Kind: reconcile.KindAmountMismatch},
			}},
		},
		Credits: credits,
	}

	res := s.Sweep(context.Background())

	assert.Equal(t, SweepResult{Stores: 3, Discrepancies: 2, Failures: 1}, res)
	assert.Equal(t, []string{"S1", "S2", "S3"}, credits.calls)
}

func TestSweep_StoreListingFails(t *testing.T) {
	s := &Sweeper{Stores: []StoreLister{failingStores{}}, Inventory: stubInventory{}}

	res := s.Sweep(context.Background())

	assert.Equal(t, SweepResult{Failures: 1}, res)
}

func TestSweep_UnionOfStoreSources(t *testing.T) {
	ok := &reconcile.Report{Checked: 1}

	tests := []struct {
		name       string
		sources    []StoreLister
		wantCalls  []string
		wantResult SweepResult
	}{
		{
			name: "stores without movements are still swept",
			sources: []StoreLister{
				storeList{"S2"},
				storeList{"S1", "S2"},
				storeList{"S3", "S1"},
			},
			wantCalls:  []string{"S1", "S2", "S3"},
			wantResult: SweepResult{Stores: 3},
		},
		{
			name:       "one failing source",
			sources:    []StoreLister{failingStores{}, storeList{"S3"}},
			wantCalls:  []string{"S3"},
			wantResult: SweepResult{Stores: 1, Failures: 1},
		},
		{
			name:       "no sources",
			wantResult: SweepResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			credits := &stubCredits{}
			s := &Sweeper{
				Stores:    tt.sources,
				Inventory: stubInventory{"S1": ok, "S2": ok, "S3": ok},
				Credits:   credits,
			}

			assert.Equal(t, tt.wantResult, s.Sweep(context.Background()))
			assert.Equal(t, tt.wantCalls, credits.calls)
		})
	}
}

func TestSweep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Sweeper{Stores: []StoreLister{storeList{"S1"}}, Inventory: stubInventory{}}

	assert.Equal(t, SweepResult{}, s.Sweep(ctx))
}

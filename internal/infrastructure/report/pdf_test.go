package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/internal/domain/reconcile"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		report *reconcile.Report
	}{
		{
			name:   "consistent",
			report: &reconcile.Report{Subject: "inventory.cached_stock", StoreID: "S1", Checked: 1200},
		},
		{
			name: "with discrepancies",
			report: &reconcile.Report{
				Subject: "credits.account",
				StoreID: "S1",
				Checked: 3,
				Discrepancies: []reconcile.Discrepancy{
					{Key: "SALE-1", Kind: reconcile.KindAmountMismatch, Field: "paid", Expected: "30.00", Actual: "0.00", Repairable: true},
					{Key: "SALE-9", Kind: reconcile.KindMissingRecord, Field: "sale", Expected: "absent", Actual: "present"},
				},
			},
		},
	}

	r := NewPDFRenderer("de-DE")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.report.GeneratedAt = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
			pdf, err := r.Render(context.Background(), tt.report)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
		})
	}
}

func TestLocaleNumbers(t *testing.T) {
	assert.Equal(t, "1.200", NewPDFRenderer("de-DE").printer.Sprintf("%d", 1200))
	assert.Equal(t, "1,200", NewPDFRenderer("not a tag").printer.Sprintf("%d", 1200))
}

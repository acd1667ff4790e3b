package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in      string
		want    Quantity
		wantErr bool
	}{
		{"25", NewQuantity(25), false},
		{"-3", NewQuantity(-3), false},
		{"+1.5", Quantity(15_000), false},
		{"0.00019", Quantity(1), false},
		{".5", Quantity(5_000), false},
		{"1e2", NewQuantity(100), false},
		{"922337203685477", NewQuantity(922_337_203_685_477), false},
		{"-922337203685477.5807", Quantity(-math.MaxInt64), false},
		{"", 0, true},
		{"abc", 0, true},
		{"-", 0, true},
		{".", 0, true},
		{"--5", 0, true},
		{"+-3", 0, true},
		{"1.-5", 0, true},
		{"1.2.3", 0, true},
		{"1 000", 0, true},
		{"1000000000000000", 0, true},
		{"922337203685478", 0, true},
		{"922337203685477.5808", 0, true},
		{"9223372036854775807", 0, true},
		{"1e300", 0, true},
		{"-1e15", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQuantity_OverflowIsTyped(t *testing.T) {
	for _, in := range []string{"1000000000000000", "1e300"} {
		_, err := ParseQuantity(in)
		assert.ErrorIs(t, err, ErrQuantityOverflow, in)
	}
}

func TestQuantityAdd(t *testing.T) {
	tests := []struct {
		name    string
		q, d    Quantity
		want    Quantity
		wantErr bool
	}{
		{"positive", NewQuantity(5), NewQuantity(3), NewQuantity(8), false},
		{"negative", NewQuantity(5), NewQuantity(-8), NewQuantity(-3), false},
		{"at max", Quantity(math.MaxInt64 - 1), Quantity(1), Quantity(math.MaxInt64), false},
		{"past max", Quantity(math.MaxInt64 - 1), Quantity(2), 0, true},
		{"past min", Quantity(math.MinInt64 + 1), Quantity(-2), 0, true},
		{"large chain", NewQuantity(900_000_000_000_000), NewQuantity(900_000_000_000_000), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.q.Add(tt.d)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrQuantityOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuantityJSON_RejectsOutOfRange(t *testing.T) {
	var payload struct {
		A Quantity `json:"a"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"a": 1000000000000000}`), &payload))
	assert.Error(t, json.Unmarshal([]byte(`{"a": "--5"}`), &payload))
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "25", NewQuantity(25).String())
	assert.Equal(t, "-3.5", Quantity(-35_000).String())
	assert.Equal(t, "0.0001", Quantity(1).String())
}

func TestQuantityJSON(t *testing.T) {
	var payload struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 10, "b": "-2.25"}`), &payload))
	assert.Equal(t, NewQuantity(10), payload.A)
	assert.Equal(t, Quantity(-22_500), payload.B)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 10, "b": -2.25}`, string(out))
}

func TestLineValue(t *testing.T) {
	got := LineValue(MustMoney("2.50"), NewQuantity(-4))
	assert.True(t, got.Equal(MustMoney("10")), got.String())
}

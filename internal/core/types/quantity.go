package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// QuantityScale is the fixed-point factor of Quantity (4 fractional digits).
const QuantityScale int64 = 10_000

// Quantity is a signed stock amount stored as a scaled integer.
// The database column is BIGINT; JSON is a plain number.
type Quantity int64

// NewQuantity returns n whole units.
func NewQuantity(n int64) Quantity { return Quantity(n * QuantityScale) }

// NewQuantityFromFloat64 rounds v to 4 fractional digits.
func NewQuantityFromFloat64(v float64) Quantity {
	return Quantity(math.Round(v * float64(QuantityScale)))
}

// maxWhole is the largest whole part that still fits once scaled.
const maxWhole = math.MaxInt64 / QuantityScale

// ErrQuantityOverflow is returned when an amount does not fit in a Quantity.
var ErrQuantityOverflow = errors.New("quantity out of range")

// ParseQuantity parses "12", "-3.5" or "0.0001". Digits past the fourth are truncated.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse quantity: %w", err)
		}
		scaled := math.Round(f * float64(QuantityScale))
		if math.IsNaN(scaled) || math.Abs(scaled) >= math.MaxInt64 {
			return 0, fmt.Errorf("parse quantity %q: %w", s, ErrQuantityOverflow)
		}
		return Quantity(scaled), nil
	}

	sign := int64(1)
	switch s[0] {
	case '-':
		sign, s = -1, s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" || !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("parse quantity: invalid syntax %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 4 {
		frac = frac[:4]
	}
	frac += strings.Repeat("0", 4-len(frac))

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > maxWhole {
		return 0, fmt.Errorf("parse quantity %q: %w", s, ErrQuantityOverflow)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity fraction: %w", err)
	}
	if w*QuantityScale > math.MaxInt64-f {
		return 0, fmt.Errorf("parse quantity %q: %w", s, ErrQuantityOverflow)
	}
	return Quantity(sign * (w*QuantityScale + f)), nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Add returns q+d, or ErrQuantityOverflow when the sum does not fit.
func (q Quantity) Add(d Quantity) (Quantity, error) {
	if (d > 0 && q > math.MaxInt64-d) || (d < 0 && q < math.MinInt64-d) {
		return 0, ErrQuantityOverflow
	}
	return q + d, nil
}

func (q Quantity) Scaled() int64 { return int64(q) }

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

// Decimal converts to an exact decimal for money arithmetic.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), -4) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// String trims trailing zeros: 25, -3.5, 0.0001.
func (q Quantity) String() string {
	v := int64(q)
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	whole, frac := v/QuantityScale, v%QuantityScale
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	return strings.TrimRight(fmt.Sprintf("%s%d.%04d", sign, whole, frac), "0")
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseQuantity(raw)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// Value stores the scaled integer.
func (q Quantity) Value() (driver.Value, error) {
	return int64(q), nil
}

// Scan reads a scaled integer column.
func (q *Quantity) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*q = 0
	case int64:
		*q = Quantity(v)
	case int32:
		*q = Quantity(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scan quantity: %w", err)
		}
		*q = Quantity(n)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("scan quantity: %w", err)
		}
		*q = Quantity(n)
	default:
		return fmt.Errorf("scan quantity: unsupported type %T", src)
	}
	return nil
}

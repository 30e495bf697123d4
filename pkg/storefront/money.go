package storefront

import (
	"bytes"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vitrine/storefront_sdk_go/pkg/storefront/schema"
)

func init() {
	// Product rules compare prices as numbers.
	schema.RegisterType(func(v reflect.Value) any {
		m, _ := v.Interface().(Money)
		return m.InexactFloat64()
	}, Money{})
}

// Money is a decimal amount that travels as a JSON number. It also accepts
// quoted numbers, which the API uses for order totals.
type Money struct {
	decimal.Decimal
}

// NewMoney parses s ("99.90").
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

// MoneyFromFloat converts f.
func MoneyFromFloat(f float64) Money {
	return Money{decimal.NewFromFloat(f)}
}

// MustMoney is NewMoney for constants; it panics on bad input.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	return m.Decimal.UnmarshalJSON(b)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{m.Decimal.Add(o.Decimal)}
}

// Times returns m × n.
func (m Money) Times(n int) Money {
	return Money{m.Decimal.Mul(decimal.NewFromInt(int64(n)))}
}

// BRL formats m as Brazilian reais, e.g. "R$ 1.234,56".
func (m Money) BRL() string {
	return FormatBRL(m.Decimal)
}

// FormatBRL formats d with two decimals, "." as thousands separator and ","
// as decimal separator.
func FormatBRL(d decimal.Decimal) string {
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

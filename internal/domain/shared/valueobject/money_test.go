package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("100.50"), PEN)
	require.NoError(t, err)
	assert.Equal(t, PEN, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.RequireFromString("100.5")))

	for _, code := range []Currency{"", "XXXX", "S/"} {
		_, err := NewMoney(decimal.NewFromInt(1), code)
		assert.Error(t, err, "currency %q", code)
	}

	_, err = NewMoney(decimal.NewFromInt(1), "GBP")
	assert.NoError(t, err, "valid ISO codes are accepted even when unsupported")

	assert.Panics(t, func() { MustMoney(decimal.NewFromInt(1), "") })
}

func TestRoundAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10"},
		{"0.1", "0.1"},
		{"-2.345", "-2.35"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundAmount(decimal.RequireFromString(tt.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestWithinEpsilon(t *testing.T) {
	assert.True(t, WithinEpsilon(decimal.RequireFromString("0.30"), decimal.NewFromFloat(0.1).Add(decimal.NewFromFloat(0.2))))
	assert.True(t, WithinEpsilon(decimal.RequireFromString("10.000"), decimal.RequireFromString("10.009")))
	assert.False(t, WithinEpsilon(decimal.RequireFromString("10.00"), decimal.RequireFromString("10.01")))
}

func TestIsEffectivelyZero(t *testing.T) {
	assert.True(t, IsEffectivelyZero(decimal.Zero))
	assert.True(t, IsEffectivelyZero(decimal.RequireFromString("0.004")))
	assert.False(t, IsEffectivelyZero(decimal.RequireFromString("0.005")))
	assert.False(t, IsEffectivelyZero(decimal.RequireFromString("0.01")))
}

func TestSumAmounts(t *testing.T) {
	assert.True(t, SumAmounts().IsZero())
	got := SumAmounts(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"), decimal.RequireFromString("0.004"))
	assert.Equal(t, "0.3", got.String())
	got = SumAmounts(decimal.RequireFromString("33.335"), decimal.RequireFromString("33.335"))
	assert.Equal(t, "66.67", got.String(), "rounded once after an exact sum")
}

func TestFixedAmount(t *testing.T) {
	assert.Equal(t, "7.10", FixedAmount(decimal.RequireFromString("7.1")))
	assert.Equal(t, "0.00", FixedAmount(decimal.Zero))
	assert.Equal(t, "1250.00", FixedAmount(decimal.RequireFromString("1250")))
}

func TestMoney_StringAndJSON(t *testing.T) {
	m := MustMoney(decimal.RequireFromString("2599.905"), PEN)
	assert.Equal(t, "2599.91 PEN", m.String())
	assert.Equal(t, "2599.91", m.Rounded().String())

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"2599.91","currency":"PEN","symbol":"S/"}`, string(data))

	yen := MustMoney(decimal.RequireFromString("1500.4"), "JPY")
	data, err = json.Marshal(yen)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"1500","currency":"JPY","symbol":"JPY"}`, string(data))
	assert.Equal(t, "1500 JPY", yen.String())
}

func TestCurrency_Symbol(t *testing.T) {
	assert.Equal(t, "S/", PEN.Symbol())
	assert.Equal(t, "$", USD.Symbol())
	assert.Equal(t, "€", EUR.Symbol())
	assert.Equal(t, "GBP", Currency("GBP").Symbol())
}

func TestCurrency_MinorUnitPlaces(t *testing.T) {
	for _, c := range SupportedCurrencies() {
		assert.Equal(t, int32(2), c.MinorUnitPlaces(), c.String())
	}
	assert.Equal(t, int32(0), Currency("JPY").MinorUnitPlaces())
	assert.Equal(t, int32(2), Currency("???").MinorUnitPlaces())
}

func TestParseCurrency(t *testing.T) {
	c, ok := ParseCurrency(" pen ")
	assert.True(t, ok)
	assert.Equal(t, PEN, c)

	_, ok = ParseCurrency("")
	assert.False(t, ok)

	_, ok = ParseCurrency("XXXX")
	assert.False(t, ok)
}

func TestCurrencyOrDefault(t *testing.T) {
	assert.Equal(t, USD, CurrencyOrDefault("usd", PEN))
	assert.Equal(t, PEN, CurrencyOrDefault("", PEN))
	assert.Equal(t, PEN, CurrencyOrDefault("S/", PEN))
	assert.Equal(t, EUR, CurrencyOrDefault("GBP", EUR))
}

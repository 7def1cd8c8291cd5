package valueobject

import (
	"strings"

	"golang.org/x/text/currency"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	PEN Currency = "PEN" // Peruvian Sol (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = PEN

// defaultMinorUnitPlaces applies when CLDR has no rounding data for a code
const defaultMinorUnitPlaces int32 = 2

var symbols = map[Currency]string{
	PEN: "S/",
	USD: "$",
	EUR: "€",
}

// SupportedCurrencies returns the currencies the back-office trades in
func SupportedCurrencies() []Currency {
	return []Currency{PEN, USD, EUR}
}

// IsSupported reports whether the currency is one of the supported set
func (c Currency) IsSupported() bool {
	_, ok := symbols[c]
	return ok
}

// String returns the ISO code
func (c Currency) String() string {
	return string(c)
}

// Symbol returns the display symbol for the currency.
// Unknown codes fall back to the ISO code itself.
func (c Currency) Symbol() string {
	if s, ok := symbols[c]; ok {
		return s
	}
	return string(c)
}

// MinorUnitPlaces returns the number of decimal places of the currency's minor unit,
// taken from CLDR rounding data
func (c Currency) MinorUnitPlaces() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return defaultMinorUnitPlaces
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// ParseCurrency parses an ISO 4217 code (case-insensitive).
// Returns false if the code is not a valid ISO currency.
func ParseCurrency(code string) (Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", false
	}
	return Currency(unit.String()), true
}

// CurrencyOrDefault returns the parsed supported currency or the fallback when the
// code is missing, malformed or outside the supported set
func CurrencyOrDefault(code string, fallback Currency) Currency {
	c, ok := ParseCurrency(code)
	if !ok || !c.IsSupported() {
		return fallback
	}
	return c
}

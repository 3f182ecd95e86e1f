package enums

import "strings"

// Currency is the ISO 4217 code a wallet is denominated in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

var currencies = set[Currency]{CurrencyUSD, CurrencyEUR, CurrencyGBP}

func (c Currency) String() string { return string(c) }

// Lower is the form the payout provider expects.
func (c Currency) Lower() string { return strings.ToLower(string(c)) }

func (c Currency) IsValid() bool { return currencies.has(c) }

// ParseCurrency accepts any letter case.
func ParseCurrency(value string) (Currency, error) {
	return currencies.parse("currency", value, true)
}

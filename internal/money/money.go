// Package money converts between decimal amount strings used at the API edge
// and the integer minor units stored by the ledger.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a wallet is provisioned without one.
const DefaultCurrency = "XAF"

// MaxMinor bounds any single amount in minor units. It leaves headroom below
// the int64 limit so balances can absorb many maximal credits.
const MaxMinor int64 = 1 << 62

// ErrInvalidAmount is returned for malformed or over-precise amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// exponents lists currencies whose minor unit is not two decimals.
var exponents = map[string]int32{
	"XAF": 0,
	"XOF": 0,
	"JPY": 0,
	"UGX": 0,
	"RWF": 0,
	"KWD": 3,
	"BHD": 3,
}

// Exponent returns the number of decimals of a currency's minor unit.
func Exponent(currency string) int32 {
	if exp, ok := exponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// ToMinor parses a decimal string ("1500.50") into minor units of currency.
func ToMinor(amount, currency string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	scaled := d.Shift(Exponent(currency))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more precision than %s allows", ErrInvalidAmount, amount, strings.ToUpper(currency))
	}
	if scaled.Abs().GreaterThan(decimal.NewFromInt(MaxMinor)) {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, amount)
	}
	return scaled.IntPart(), nil
}

// FromMinor renders minor units as a fixed-point decimal string.
func FromMinor(minor int64, currency string) string {
	exp := Exponent(currency)
	return decimal.New(minor, -exp).StringFixed(exp)
}

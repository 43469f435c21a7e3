package core

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencySymbol prefixes every rendered amount.
const CurrencySymbol = "₹"

var rupeePrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatRupees renders an amount with the rupee symbol and Indian digit
// grouping, keeping at most two fraction digits.
func FormatRupees(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	f := d.Round(2).InexactFloat64()
	return sign + CurrencySymbol + rupeePrinter.Sprintf("%v", number.Decimal(f, number.MaxFractionDigits(2)))
}

// AmountFromFloat converts a JSON number into a positive decimal amount
// rounded to paise.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	d := decimal.NewFromFloat(f).Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

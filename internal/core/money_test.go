package core

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatRupees(t *testing.T) {
	cases := []struct {
		in  decimal.Decimal
		out string
	}{
		{decimal.NewFromInt(450), "₹450"},
		{decimal.NewFromInt(46970), "₹46,970"},
		{decimal.NewFromInt(50000), "₹50,000"},
		{decimal.RequireFromString("12.5"), "₹12.5"},
		{decimal.NewFromInt(-3030), "-₹3,030"},
		{decimal.Zero, "₹0"},
	}
	for _, tc := range cases {
		if got := FormatRupees(tc.in); got != tc.out {
			t.Fatalf("FormatRupees(%s) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestAmountFromFloat(t *testing.T) {
	cases := []struct {
		in  float64
		out string
		ok  bool
	}{
		{450, "450", true},
		{80.25, "80.25", true},
		{0.005, "0.01", true},
		{0, "", false},
		{-10, "", false},
		{0.001, "", false},
		{math.NaN(), "", false},
		{math.Inf(1), "", false},
	}
	for _, tc := range cases {
		got, err := AmountFromFloat(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%v expected ErrInvalidAmount, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%v expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
		}
	}
}

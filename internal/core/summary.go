package core

import "github.com/shopspring/decimal"

// MonthSummary aggregates one user's expenses for a month bucket.
type MonthSummary struct {
	Month      string
	Expenses   []Expense
	ByCategory map[string]decimal.Decimal
	Total      decimal.Decimal
	Count      int
}

// RemainingCash is income minus spend for a month. Remaining may be negative.
type RemainingCash struct {
	Income    decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// CategoryTotal holds the expenses matching a category filter and their sum.
type CategoryTotal struct {
	Expenses []Expense
	Total    decimal.Decimal
}

// Summarize folds expenses into a MonthSummary.
func Summarize(month string, expenses []Expense) MonthSummary {
	s := MonthSummary{
		Month:      month,
		Expenses:   expenses,
		ByCategory: make(map[string]decimal.Decimal),
		Total:      decimal.Zero,
		Count:      len(expenses),
	}
	for _, e := range expenses {
		s.ByCategory[e.Category] = s.ByCategory[e.Category].Add(e.Amount)
		s.Total = s.Total.Add(e.Amount)
	}
	return s
}

// SumAmounts returns the exact sum of the expense amounts.
func SumAmounts(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Remaining computes the balance of income against spent.
func Remaining(income, spent decimal.Decimal) RemainingCash {
	return RemainingCash{
		Income:    income,
		Spent:     spent,
		Remaining: income.Sub(spent),
	}
}

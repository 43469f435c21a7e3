package tools

import (
	"time"

	"github.com/shopspring/decimal"

	"hisaab/internal/core"
)

type ExpenseView struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Month       string    `json:"month"`
	Date        time.Time `json:"date"`
}

// ExpenseLine is the compact form used by get_all_expenses.
type ExpenseLine struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"` // YYYY-MM-DD
}

type IncomeResult struct {
	Success   bool    `json:"success"`
	Income    float64 `json:"income"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
	Message   string  `json:"message"`
}

type AddExpenseResult struct {
	Success   bool        `json:"success"`
	Expense   ExpenseView `json:"expense"`
	Remaining float64     `json:"remaining"`
	Message   string      `json:"message"`
}

type RemainingResult struct {
	Income    float64 `json:"income"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
	Message   string  `json:"message"`
}

type MonthSummaryResult struct {
	Total        float64            `json:"total"`
	CategoryWise map[string]float64 `json:"categoryWise"`
	Count        int                `json:"count"`
	Expenses     []ExpenseView      `json:"expenses"`
	Month        string             `json:"month"`
	Message      string             `json:"message"`
}

type CategoryTotalResult struct {
	Total    float64       `json:"total"`
	Count    int           `json:"count"`
	Expenses []ExpenseView `json:"expenses"`
	Month    string        `json:"month"`
	Message  string        `json:"message"`
}

type RecentExpensesResult struct {
	Expenses []ExpenseView `json:"expenses"`
	Total    int           `json:"total"`
	Message  string        `json:"message"`
}

type AllExpensesResult struct {
	Month         string        `json:"month"`
	MonthlyIncome float64       `json:"monthlyIncome"`
	Expenses      []ExpenseLine `json:"expenses"`
}

type DeleteResult struct {
	Success bool        `json:"success"`
	Deleted ExpenseView `json:"deleted"`
}

type UpdateResult struct {
	Success bool        `json:"success"`
	Updated ExpenseView `json:"updated"`
}

func number(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func viewOf(e core.Expense) ExpenseView {
	return ExpenseView{
		ID:          e.ID,
		Amount:      number(e.Amount),
		Category:    e.Category,
		Description: e.Description,
		Month:       e.Month,
		Date:        e.Date,
	}
}

func viewsOf(expenses []core.Expense) []ExpenseView {
	out := make([]ExpenseView, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, viewOf(e))
	}
	return out
}

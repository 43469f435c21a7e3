package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/shopspring/decimal"

	"hisaab/internal/core"
)

const (
	defaultRecentLimit = 10
	// maxMonthOffset is a hundred years either way.
	maxMonthOffset = 1200
)

var monthOffsetParam = jsonschema.Definition{
	Type:        jsonschema.Integer,
	Description: "0 for current month, -1 for last month, -2 for 2 months ago",
}

func (b *Toolbox) currentMonth() string {
	return core.MonthKey(b.now())
}

// resolveMonth turns a month offset into the bucket key and its label.
func (b *Toolbox) resolveMonth(offset int) (string, string) {
	t := core.ShiftMonth(b.now(), offset)
	return core.MonthKey(t), core.MonthLabel(t)
}

func wholeNumber(tool, field string, v *float64, def int) (int, error) {
	if v == nil {
		return def, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || math.Trunc(*v) != *v || math.Abs(*v) > 1<<53 {
		return 0, invalid(tool, "%s must be a whole number", field)
	}
	return int(*v), nil
}

func monthOffset(tool string, v *float64) (int, error) {
	offset, err := wholeNumber(tool, "monthOffset", v, 0)
	if err != nil {
		return 0, err
	}
	if offset > maxMonthOffset || offset < -maxMonthOffset {
		return 0, invalid(tool, "monthOffset must be between -%d and %d", maxMonthOffset, maxMonthOffset)
	}
	return offset, nil
}

func requiredAmount(tool string, v *float64) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, invalid(tool, "amount is required")
	}
	amount, err := core.AmountFromFloat(*v)
	if err != nil {
		return decimal.Zero, invalid(tool, "amount must be a positive number")
	}
	return amount, nil
}

func (b *Toolbox) setMonthlyIncome() Tool {
	const name = "set_monthly_income"
	return Tool{
		Name:        name,
		Description: "Set or update monthly income/budget for the user",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"amount": {Type: jsonschema.Number, Description: "Monthly income amount in rupees"},
			},
			Required: []string{"amount"},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				Amount *float64 `json:"amount"`
			}
			if err := decodeArgs(name, raw, &args); err != nil {
				return nil, err
			}
			amount, err := requiredAmount(name, args.Amount)
			if err != nil {
				return nil, err
			}

			if _, err := b.store.SetMonthlyIncome(ctx, b.userID, amount); err != nil {
				return nil, err
			}
			cash, err := b.store.GetRemainingCash(ctx, b.userID, b.currentMonth())
			if err != nil {
				return nil, err
			}

			return IncomeResult{
				Success:   true,
				Income:    number(amount),
				Spent:     number(cash.Spent),
				Remaining: number(cash.Remaining),
				Message: fmt.Sprintf("Income set to %s. Remaining: %s",
					core.FormatRupees(amount), core.FormatRupees(cash.Remaining)),
			}, nil
		},
	}
}

func (b *Toolbox) addExpense() Tool {
	const name = "add_expense"
	return Tool{
		Name:        name,
		Description: "Add a new expense with category and amount",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"category":    {Type: jsonschema.String, Description: "Category like sabji, pooja_saman, bijli_bill, etc"},
				"amount":      {Type: jsonschema.Number, Description: "Expense amount in rupees"},
				"description": {Type: jsonschema.String, Description: "Optional description"},
			},
			Required: []string{"category", "amount"},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				Category    string   `json:"category"`
				Amount      *float64 `json:"amount"`
				Description string   `json:"description"`
			}
			if err := decodeArgs(name, raw, &args); err != nil {
				return nil, err
			}
			category := strings.TrimSpace(args.Category)
			if category == "" {
				return nil, invalid(name, "category is required")
			}
			amount, err := requiredAmount(name, args.Amount)
			if err != nil {
				return nil, err
			}
			description := strings.TrimSpace(args.Description)
			if description == "" {
				description = category
			}

			expense, err := b.store.AddExpense(ctx, b.userID, core.NewExpense{
				Amount:      amount,
				Category:    category,
				Description: description,
			})
			if err != nil {
				return nil, err
			}
			cash, err := b.store.GetRemainingCash(ctx, b.userID, b.currentMonth())
			if err != nil {
				return nil, err
			}

			return AddExpenseResult{
				Success:   true,
				Expense:   viewOf(expense),
				Remaining: number(cash.Remaining),
				Message: fmt.Sprintf("%s added to %s. Remaining: %s",
					core.FormatRupees(expense.Amount), category, core.FormatRupees(cash.Remaining)),
			}, nil
		},
	}
}

func (b *Toolbox) getRemainingCash() Tool {
	const name = "get_remaining_cash"
	return Tool{
		Name:        name,
		Description: "Get remaining cash/balance for current month",
		Parameters: jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: map[string]jsonschema.Definition{},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct{}
			if err := decodeArgs(name, raw, &args); err != nil {
				return nil, err
			}
			cash, err := b.store.GetRemainingCash(ctx, b.userID, b.currentMonth())
			if err != nil {
				return nil, err
			}
			return RemainingResult{
				Income:    number(cash.Income),
				Spent:     number(cash.Spent),
				Remaining: number(cash.Remaining),
				Message: fmt.Sprintf("Income: %s, Spent: %s, Remaining: %s",
					core.FormatRupees(cash.Income), core.FormatRupees(cash.Spent), core.FormatRupees(cash.Remaining)),
			}, nil
		},
	}
}

func (b *Toolbox) getMonthSummary() Tool {
	const name = "get_month_summary"
	return Tool{
		Name:        name,
		Description: "Get complete expense summary for a specific month",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"monthOffset": monthOffsetParam,
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				MonthOffset *float64 `json:"monthOffset"`
			}
			if err := decodeArgs(name, raw, &args); err != nil {
				return nil, err
			}
			offset, err := monthOffset(name, args.MonthOffset)
			if err != nil {
				return nil, err
			}
			month, label := b.resolveMonth(offset)

			summary, err := b.store.GetMonthSummary(ctx, b.userID, month)
			if err != nil {
				return nil, err
			}

			byCategory := make(map[string]float64, len(summary.ByCategory))
			for category, total := range summary.ByCategory {
				byCategory[category] = number(total)
			}
			return MonthSummaryResult{
				Total:        number(summary.Total),
				CategoryWise: byCategory,
				Count:        summary.Count,
				Expenses:     viewsOf(summary.Expenses),
				Month:        label,
				Message: fmt.Sprintf("%s: Total spent %s across %d expenses",
					label, core.FormatRupees(summary.Total), summary.Count),
			}, nil
		},
	}
}

func (b *Toolbox) getCategoryTotal() Tool {
	const name = "get_category_total"
	return Tool{
		Name:        name,
		Description: "Get total amount spent in a specific category",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"category":    {Type: jsonschema.String, Description: "Category name like sabji, pooja_saman, etc"},
				"monthOffset": monthOffsetParam,
			},
			Required: []string{"category"},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				Category    string   `json:"category"`
				MonthOffset *float64 `json:"monthOffset"`
			}
			if err := decodeArgs(name, raw, &args); err != nil {
				return nil, err
			}
			category := strings.TrimSpace(args.Category)
			if core.NormalizeCategory(category) == "" {
				return nil, invalid(name, "category is required")
			}
			offset, err := monthOffset(name, args.MonthOffset)
			if err != nil {
				return nil, err
			}
			month, label := b.resolveMonth(offset)

			result, err := b.store.GetCategoryTotal(ctx, b.userID, category, month)
			if err != nil {
				return nil, err
			}
			return CategoryTotalResult{
				Total:    number(result.Total),
				Count:    len(result.Expenses),
				Expenses: viewsOf(result.Expenses),
				Month:    label,
				Message: fmt.Sprintf("%s: %s spent in %s (%d transactions)",
					category, core.FormatRupees(result.Total), label, len(result.Expenses)),
			}, nil
		},
	}
}

func (b *Toolbox) listRecentExpenses() Tool {
	const name = "list_recent_expenses"
	return Tool{
		Name:        name,
		Description: "List recent expenses from current month",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"limit": {Type: jsonschema.Integer, Description: "Number of expenses to show"},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				Limit *float64 `json:"limit"`
			}
			if err := decodeArgs(name, raw, &args); err != nil {
				return nil, err
			}
			limit, err := wholeNumber(name, "limit", args.Limit, defaultRecentLimit)
			if err != nil {
				return nil, err
			}
			if limit <= 0 {
				return nil, invalid(name, "limit must be greater than zero")
			}

			expenses, err := b.store.GetMonthExpenses(ctx, b.userID, b.currentMonth())
			if err != nil {
				return nil, err
			}
			recent := expenses[:min(limit, len(expenses))]

			return RecentExpensesResult{
				Expenses: viewsOf(recent),
				Total:    len(expenses),
				Message:  fmt.Sprintf("Showing %d of %d expenses", len(recent), len(expenses)),
			}, nil
		},
	}
}

func (b *Toolbox) getAllExpenses() Tool {
	const name = "get_all_expenses"
	return Tool{
		Name:        name,
		Description: "Get all expenses with user income for any analysis, comparison, or calculation",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"monthOffset": monthOffsetParam,
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				MonthOffset *float64 `json:"monthOffset"`
			}
			if err := decodeArgs(name, raw, &args); err != nil {
				return nil, err
			}
			offset, err := monthOffset(name, args.MonthOffset)
			if err != nil {
				return nil, err
			}
			month, _ := b.resolveMonth(offset)

			income := 0.0
			user, err := b.store.GetUser(ctx, b.userID)
			switch {
			case err == nil:
				income = number(user.MonthlyIncome)
			case !errors.Is(err, core.ErrNotFound):
				return nil, err
			}

			expenses, err := b.store.GetMonthExpenses(ctx, b.userID, month)
			if err != nil {
				return nil, err
			}
			lines := make([]ExpenseLine, 0, len(expenses))
			for _, e := range expenses {
				lines = append(lines, ExpenseLine{
					ID:          e.ID,
					Amount:      number(e.Amount),
					Category:    e.Category,
					Description: e.Description,
					Date:        e.Date.In(b.now().Location()).Format(time.DateOnly),
				})
			}

			return AllExpensesResult{
				Month:         month,
				MonthlyIncome: income,
				Expenses:      lines,
			}, nil
		},
	}
}

func (b *Toolbox) deleteExpense() Tool {
	const name = "delete_expense"
	return Tool{
		Name:        name,
		Description: "Delete a specific expense by ID",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"expenseId": {Type: jsonschema.String, Description: "The ID of the expense to delete"},
			},
			Required: []string{"expenseId"},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				ExpenseID string `json:"expenseId"`
			}
			if err := decodeArgs(name, raw, &args); err != nil {
				return nil, err
			}
			id := strings.TrimSpace(args.ExpenseID)
			if id == "" {
				return nil, invalid(name, "expenseId is required")
			}

			deleted, err := b.store.DeleteExpense(ctx, id)
			if errors.Is(err, core.ErrNotFound) {
				return nil, invalid(name, "no expense with id %q", id)
			}
			if err != nil {
				return nil, err
			}
			return DeleteResult{Success: true, Deleted: viewOf(deleted)}, nil
		},
	}
}

func (b *Toolbox) updateExpense() Tool {
	const name = "update_expense"
	return Tool{
		Name:        name,
		Description: "Update an existing expense",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"expenseId":   {Type: jsonschema.String, Description: "The ID of expense to update"},
				"amount":      {Type: jsonschema.Number, Description: "New amount"},
				"category":    {Type: jsonschema.String, Description: "New category"},
				"description": {Type: jsonschema.String, Description: "New description"},
			},
			Required: []string{"expenseId"},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				ExpenseID   string   `json:"expenseId"`
				Amount      *float64 `json:"amount"`
				Category    *string  `json:"category"`
				Description *string  `json:"description"`
			}
			if err := decodeArgs(name, raw, &args); err != nil {
				return nil, err
			}
			id := strings.TrimSpace(args.ExpenseID)
			if id == "" {
				return nil, invalid(name, "expenseId is required")
			}

			var patch core.ExpensePatch
			if args.Amount != nil {
				amount, err := requiredAmount(name, args.Amount)
				if err != nil {
					return nil, err
				}
				patch.Amount = &amount
			}
			if args.Category != nil {
				if core.NormalizeCategory(*args.Category) == "" {
					return nil, invalid(name, "category cannot be empty")
				}
				patch.Category = args.Category
			}
			patch.Description = args.Description
			if err := patch.Validate(); err != nil {
				return nil, invalid(name, "%v", err)
			}

			updated, err := b.store.UpdateExpense(ctx, id, patch)
			if errors.Is(err, core.ErrNotFound) {
				return nil, invalid(name, "no expense with id %q", id)
			}
			if err != nil {
				return nil, err
			}
			return UpdateResult{Success: true, Updated: viewOf(updated)}, nil
		},
	}
}

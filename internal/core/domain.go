package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	User struct {
		ID            string
		ExternalID    string // chat platform identity
		Name          string
		MonthlyIncome decimal.Decimal
		CreatedAt     time.Time
	}

	Expense struct {
		ID          string
		UserID      string
		Amount      decimal.Decimal
		Category    string
		Description string
		Month       string // YYYY-MM bucket
		Date        time.Time
	}

	// NewExpense is the input for inserting an expense. Month is optional and
	// defaults to the current calendar month of the store's clock.
	NewExpense struct {
		Amount      decimal.Decimal
		Category    string
		Description string
		Month       string
	}

	// ExpensePatch carries the fields to overwrite; nil fields are left alone.
	ExpensePatch struct {
		Amount      *decimal.Decimal
		Category    *string
		Description *string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrEmptyPatch       = errors.New("nothing to update")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// NormalizeCategory lowercases the category and joins its words with
// underscores, so "Bijli Bill" and "bijli_bill" land in the same bucket.
func NormalizeCategory(category string) string {
	return strings.Join(strings.Fields(strings.ToLower(category)), "_")
}

func (e NewExpense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if NormalizeCategory(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Month != "" {
		if _, err := ParseMonth(e.Month); err != nil {
			return err
		}
	}
	return nil
}

func (p ExpensePatch) Validate() error {
	if p.Amount == nil && p.Category == nil && p.Description == nil {
		return ErrEmptyPatch
	}
	if p.Amount != nil && !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.Category != nil && NormalizeCategory(*p.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

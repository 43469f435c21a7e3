package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hisaab/internal/core"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromEnv(context.Background(), "  ", "Expenses")
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	for _, key := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		old, had := os.LookupEnv(key)
		os.Unsetenv(key)
		if had {
			defer os.Setenv(key, old)
		}
	}

	_, err := NewFromEnv(context.Background(), "sheet-id", "")
	if err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Expenses", known: map[string]bool{}}
	e := core.Expense{ID: "e-1", Month: "2024-03"}

	if err := c.UpsertExpense(context.Background(), e); err == nil {
		t.Error("UpsertExpense should fail without a service")
	}
	if err := c.RemoveExpense(context.Background(), e); err == nil {
		t.Error("RemoveExpense should fail without a service")
	}
}

func TestSheetFor(t *testing.T) {
	c := &Client{sheetBase: "Expenses"}

	got, err := c.sheetFor(core.Expense{Month: "2024-03"})
	if err != nil {
		t.Fatalf("sheetFor() error = %v", err)
	}
	if got != "2024 Expenses" {
		t.Errorf("sheetFor() = %q, want %q", got, "2024 Expenses")
	}

	if _, err := c.sheetFor(core.Expense{Month: "March"}); err == nil {
		t.Error("sheetFor() should reject a malformed month")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Expenses", 2024, "2024 Expenses"},
		{"  Expenses ", 2025, "2025 Expenses"},
		{"2023 Expenses", 2025, "2023 Expenses"},
		{"", 2025, ""},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
				t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
			}
		})
	}
}

func TestExpenseRow(t *testing.T) {
	e := core.Expense{
		ID:          "e-1",
		UserID:      "u-1",
		Amount:      decimal.RequireFromString("450.50"),
		Category:    "sabji",
		Description: "mandi",
		Month:       "2024-03",
		Date:        time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}

	row := expenseRow(e)

	if len(row) != len(header) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(header))
	}
	if row[0] != "e-1" || row[1] != "2024-03-15" || row[3] != "sabji" {
		t.Errorf("unexpected row %v", row)
	}
	if row[5] != 450.5 {
		t.Errorf("amount = %v, want 450.5", row[5])
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"ID"},
		{"e-1"},
		{},
		{" e-2 "},
	}

	tests := []struct {
		id   string
		want int
	}{
		{"e-1", 2},
		{"e-2", 4},
		{"e-3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := findRow(values, tt.id); got != tt.want {
				t.Errorf("findRow(%q) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}

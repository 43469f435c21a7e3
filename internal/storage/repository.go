package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hisaab/internal/core"
	"hisaab/internal/log"

	_ "modernc.org/sqlite"
)

// Fixed width so that ORDER BY on the text column is chronological.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const expenseColumns = "id, user_id, amount, category, description, month, date"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	o := BuildOptions(opts...)
	return &SQLiteRepository{db: db, now: o.Now}, nil
}

func sqliteDSN(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return Unavailable("ping", err)
	}
	return nil
}

// GetOrCreateUser inserts the user on first sight and otherwise returns the
// stored record untouched.
func (r *SQLiteRepository) GetOrCreateUser(ctx context.Context, externalID, name string) (core.User, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultUserName
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, external_id, name, monthly_income, created_at)
		VALUES (?, ?, ?, '0', ?)
		ON CONFLICT(external_id) DO NOTHING`,
		uuid.NewString(), externalID, name, formatTimestamp(r.now()))
	if err != nil {
		return core.User{}, Unavailable("upsert user", err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, monthly_income, created_at FROM users WHERE external_id = ?`, externalID)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, Unavailable("read user", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, userID string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, monthly_income, created_at FROM users WHERE id = ?`, userID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, NotFound("user", userID)
	}
	if err != nil {
		return core.User{}, Unavailable("get user", err)
	}
	return u, nil
}

func (r *SQLiteRepository) SetMonthlyIncome(ctx context.Context, userID string, amount decimal.Decimal) (core.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET monthly_income = ? WHERE id = ?`, amount.String(), userID)
	if err != nil {
		return core.User{}, Unavailable("set monthly income", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.User{}, NotFound("user", userID)
	}
	return r.GetUser(ctx, userID)
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, userID string, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	now := r.now()
	month := e.Month
	if month == "" {
		month = core.MonthKey(now)
	}
	expense := core.Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      e.Amount,
		Category:    core.NormalizeCategory(e.Category),
		Description: e.Description,
		Month:       month,
		Date:        now.UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.UserID, expense.Amount.String(), expense.Category,
		expense.Description, expense.Month, formatTimestamp(now))
	if err != nil {
		return core.Expense{}, Unavailable("create expense", err)
	}

	logger().DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, expense.ID,
		log.FieldUserID, userID,
		"category", expense.Category,
		"amount", expense.Amount.String(),
		log.FieldMonth, expense.Month)

	return expense, nil
}

func (r *SQLiteRepository) GetMonthExpenses(ctx context.Context, userID, month string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE user_id = ? AND month = ?
		ORDER BY date DESC, rowid DESC`, userID, month)
	if err != nil {
		return nil, Unavailable("get month expenses", err)
	}
	return collectExpenses(rows)
}

// GetCategoryTotal matches every category containing the normalized filter,
// so "bill" covers both "bijli_bill" and "pani_bill".
func (r *SQLiteRepository) GetCategoryTotal(ctx context.Context, userID, category, month string) (core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE user_id = ? AND month = ? AND instr(category, ?) > 0
		ORDER BY date DESC, rowid DESC`, userID, month, core.NormalizeCategory(category))
	if err != nil {
		return core.CategoryTotal{}, Unavailable("get category total", err)
	}
	expenses, err := collectExpenses(rows)
	if err != nil {
		return core.CategoryTotal{}, err
	}
	return core.CategoryTotal{Expenses: expenses, Total: core.SumAmounts(expenses)}, nil
}

func (r *SQLiteRepository) GetMonthSummary(ctx context.Context, userID, month string) (core.MonthSummary, error) {
	expenses, err := r.GetMonthExpenses(ctx, userID, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.Summarize(month, expenses), nil
}

func (r *SQLiteRepository) GetRemainingCash(ctx context.Context, userID, month string) (core.RemainingCash, error) {
	income := decimal.Zero
	u, err := r.GetUser(ctx, userID)
	switch {
	case err == nil:
		income = u.MonthlyIncome
	case !errors.Is(err, core.ErrNotFound):
		return core.RemainingCash{}, err
	}

	summary, err := r.GetMonthSummary(ctx, userID, month)
	if err != nil {
		return core.RemainingCash{}, err
	}
	return core.Remaining(income, summary.Total), nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, expenseID string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, expenseID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, NotFound("expense", expenseID)
	}
	if err != nil {
		return core.Expense{}, Unavailable("get expense", err)
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, expenseID string) (core.Expense, error) {
	e, err := r.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, expenseID)
	if err != nil {
		return core.Expense{}, Unavailable("delete expense", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Expense{}, NotFound("expense", expenseID)
	}

	logger().DebugContext(ctx, "Expense deleted from SQLite",
		log.FieldExpenseID, expenseID,
		log.FieldUserID, e.UserID)
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, expenseID string, p core.ExpensePatch) (core.Expense, error) {
	if err := p.Validate(); err != nil {
		return core.Expense{}, err
	}

	var (
		sets []string
		args []any
	)
	if p.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, p.Amount.String())
	}
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, core.NormalizeCategory(*p.Category))
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	args = append(args, expenseID)

	res, err := r.db.ExecContext(ctx, `UPDATE expenses SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return core.Expense{}, Unavailable("update expense", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Expense{}, NotFound("expense", expenseID)
	}
	return r.GetExpense(ctx, expenseID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.MonthlyIncome, &createdAt); err != nil {
		return core.User{}, err
	}
	t, err := parseTimestamp(createdAt)
	if err != nil {
		return core.User{}, err
	}
	u.CreatedAt = t
	return u, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Description, &e.Month, &date); err != nil {
		return core.Expense{}, err
	}
	t, err := parseTimestamp(date)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = t
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, Unavailable("scan expense", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable("iterate expenses", err)
	}
	return expenses, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func logger() *slog.Logger {
	return log.ForComponent(log.ComponentStorage)
}

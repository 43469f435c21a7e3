// Package postgres implements storage.Store on PostgreSQL through gorm.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"hisaab/internal/core"
	"hisaab/internal/storage"
)

type userRow struct {
	ID            string          `gorm:"primaryKey;type:text"`
	ExternalID    string          `gorm:"uniqueIndex;not null"`
	Name          string          `gorm:"not null;default:User"`
	MonthlyIncome decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

type expenseRow struct {
	ID          string          `gorm:"primaryKey;type:text"`
	UserID      string          `gorm:"not null;index:idx_expenses_user_month"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Category    string          `gorm:"not null"`
	Description string          `gorm:"not null;default:''"`
	Month       string          `gorm:"not null;index:idx_expenses_user_month"`
	Date        time.Time       `gorm:"not null;index"`
	// Seq orders expenses that share a timestamp by insertion.
	Seq int64 `gorm:"type:bigserial;not null;<-:false"`

	User userRow `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (expenseRow) TableName() string { return "expenses" }

func (r userRow) toDomain() core.User {
	return core.User{
		ID:            r.ID,
		ExternalID:    r.ExternalID,
		Name:          r.Name,
		MonthlyIncome: r.MonthlyIncome,
		CreatedAt:     r.CreatedAt,
	}
}

func (r expenseRow) toDomain() core.Expense {
	return core.Expense{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		Category:    r.Category,
		Description: r.Description,
		Month:       r.Month,
		Date:        r.Date.UTC(),
	}
}

const newestFirst = "date DESC, seq DESC"

type Repository struct {
	db    *gorm.DB
	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.Store = (*Repository)(nil)

// New connects with lib/pq, hands the pool to gorm and migrates the schema.
func New(databaseURL string, opts ...storage.Option) (*Repository, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	if err := db.AutoMigrate(&userRow{}, &expenseRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	o := storage.BuildOptions(opts...)
	return &Repository{db: db, sqlDB: sqlDB, now: o.Now}, nil
}

func (r *Repository) Close() error {
	return r.sqlDB.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.sqlDB.PingContext(ctx); err != nil {
		return storage.Unavailable("ping", err)
	}
	return nil
}

func (r *Repository) GetOrCreateUser(ctx context.Context, externalID, name string) (core.User, error) {
	if strings.TrimSpace(name) == "" {
		name = storage.DefaultUserName
	}
	row := userRow{
		ID:            uuid.NewString(),
		ExternalID:    externalID,
		Name:          name,
		MonthlyIncome: decimal.Zero,
		CreatedAt:     r.now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return core.User{}, storage.Unavailable("upsert user", err)
	}

	var stored userRow
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&stored).Error; err != nil {
		return core.User{}, storage.Unavailable("read user", err)
	}
	return stored.toDomain(), nil
}

func (r *Repository) GetUser(ctx context.Context, userID string) (core.User, error) {
	var row userRow
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.User{}, storage.NotFound("user", userID)
	}
	if err != nil {
		return core.User{}, storage.Unavailable("get user", err)
	}
	return row.toDomain(), nil
}

func (r *Repository) SetMonthlyIncome(ctx context.Context, userID string, amount decimal.Decimal) (core.User, error) {
	res := r.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", userID).Update("monthly_income", amount)
	if res.Error != nil {
		return core.User{}, storage.Unavailable("set monthly income", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.User{}, storage.NotFound("user", userID)
	}
	return r.GetUser(ctx, userID)
}

func (r *Repository) AddExpense(ctx context.Context, userID string, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	now := r.now()
	month := e.Month
	if month == "" {
		month = core.MonthKey(now)
	}
	row := expenseRow{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      e.Amount,
		Category:    core.NormalizeCategory(e.Category),
		Description: e.Description,
		Month:       month,
		Date:        now.UTC(),
	}
	if err := r.db.WithContext(ctx).Omit("User").Create(&row).Error; err != nil {
		return core.Expense{}, storage.Unavailable("create expense", err)
	}
	return row.toDomain(), nil
}

func (r *Repository) GetMonthExpenses(ctx context.Context, userID, month string) ([]core.Expense, error) {
	var rows []expenseRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, month).
		Order(newestFirst).
		Find(&rows).Error
	if err != nil {
		return nil, storage.Unavailable("get month expenses", err)
	}
	return toExpenses(rows), nil
}

func (r *Repository) GetCategoryTotal(ctx context.Context, userID, category, month string) (core.CategoryTotal, error) {
	var rows []expenseRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ? AND strpos(category, ?) > 0", userID, month, core.NormalizeCategory(category)).
		Order(newestFirst).
		Find(&rows).Error
	if err != nil {
		return core.CategoryTotal{}, storage.Unavailable("get category total", err)
	}
	expenses := toExpenses(rows)
	return core.CategoryTotal{Expenses: expenses, Total: core.SumAmounts(expenses)}, nil
}

func (r *Repository) GetMonthSummary(ctx context.Context, userID, month string) (core.MonthSummary, error) {
	expenses, err := r.GetMonthExpenses(ctx, userID, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.Summarize(month, expenses), nil
}

func (r *Repository) GetRemainingCash(ctx context.Context, userID, month string) (core.RemainingCash, error) {
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

func (r *Repository) GetExpense(ctx context.Context, expenseID string) (core.Expense, error) {
	var row expenseRow
	err := r.db.WithContext(ctx).Where("id = ?", expenseID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Expense{}, storage.NotFound("expense", expenseID)
	}
	if err != nil {
		return core.Expense{}, storage.Unavailable("get expense", err)
	}
	return row.toDomain(), nil
}

func (r *Repository) DeleteExpense(ctx context.Context, expenseID string) (core.Expense, error) {
	var row expenseRow
	err := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ?", expenseID).
		Delete(&row).Error
	if err != nil {
		return core.Expense{}, storage.Unavailable("delete expense", err)
	}
	if row.ID == "" {
		return core.Expense{}, storage.NotFound("expense", expenseID)
	}
	return row.toDomain(), nil
}

func (r *Repository) UpdateExpense(ctx context.Context, expenseID string, p core.ExpensePatch) (core.Expense, error) {
	if err := p.Validate(); err != nil {
		return core.Expense{}, err
	}

	updates := map[string]any{}
	if p.Amount != nil {
		updates["amount"] = *p.Amount
	}
	if p.Category != nil {
		updates["category"] = core.NormalizeCategory(*p.Category)
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}

	res := r.db.WithContext(ctx).Model(&expenseRow{}).Where("id = ?", expenseID).Updates(updates)
	if res.Error != nil {
		return core.Expense{}, storage.Unavailable("update expense", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.Expense{}, storage.NotFound("expense", expenseID)
	}
	return r.GetExpense(ctx, expenseID)
}

func toExpenses(rows []expenseRow) []core.Expense {
	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, row.toDomain())
	}
	return expenses
}

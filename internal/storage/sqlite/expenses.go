package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/daybook/internal/live"
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage"
)

var _ storage.ExpenseRepository = (*ExpenseRepo)(nil)

const (
	expenseColumns  = `id, title, amount, category, date, description, created_at`
	categoryColumns = `name, icon_name, color_hex, monthly_budget`
)

// ExpenseRepo stores expenses and expense categories. Expenses name their
// category; renaming or deleting a category leaves existing expenses alone.
type ExpenseRepo struct {
	s *Store
}

func scanExpense(row rowScanner) (models.Expense, error) {
	var id, title, category, date, description, createdAt sql.NullString
	var amount sql.NullFloat64

	if err := row.Scan(&id, &title, &amount, &category, &date, &description, &createdAt); err != nil {
		return models.Expense{}, err
	}

	d := decoder{table: tableExpenses}
	e := models.Expense{
		ID:          d.id("id", id),
		Title:       d.text("title", title),
		Amount:      d.float("amount", amount),
		Category:    d.text("category", category),
		Date:        d.date("date", date),
		Description: d.optText(description),
		CreatedAt:   d.instant("created_at", createdAt),
	}
	return e, d.err
}

func scanCategory(row rowScanner) (models.ExpenseCategory, error) {
	var name, icon, color sql.NullString
	var budget sql.NullFloat64

	if err := row.Scan(&name, &icon, &color, &budget); err != nil {
		return models.ExpenseCategory{}, err
	}

	d := decoder{table: tableExpenseCategories}
	c := models.ExpenseCategory{
		Name:          d.id("name", name),
		IconName:      d.text("icon_name", icon),
		ColorHex:      d.text("color_hex", color),
		MonthlyBudget: d.float("monthly_budget", budget),
	}
	return c, d.err
}

const (
	insertExpenseSQL = `
	INSERT OR REPLACE INTO expenses (title, amount, category, date, description, created_at, id)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertCategorySQL = `
	INSERT OR REPLACE INTO expense_categories (name, icon_name, color_hex, monthly_budget)
	VALUES (?, ?, ?, ?)`
)

func categoryArgs(c models.ExpenseCategory) []any {
	return []any{c.Name, c.IconName, c.ColorHex, c.MonthlyBudget}
}

func expenseArgs(e models.Expense) []any {
	return []any{
		e.Title, e.Amount, e.Category, e.Date.String(), nullString(e.Description),
		models.FormatInstant(e.CreatedAt), e.ID,
	}
}

func (r *ExpenseRepo) Insert(ctx context.Context, expense models.Expense) error {
	if err := validateExpense(expense); err != nil {
		return err
	}
	err := r.s.exec(ctx, tableExpenses, insertExpenseSQL, expenseArgs(expense)...)
	if err != nil {
		return fmt.Errorf("failed to insert expense %s: %w", expense.ID, err)
	}
	return nil
}

func (r *ExpenseRepo) Update(ctx context.Context, expense models.Expense) error {
	if err := validateExpense(expense); err != nil {
		return err
	}
	err := r.s.execOne(ctx, tableExpenses, expense.ID, `
		UPDATE expenses SET title = ?, amount = ?, category = ?, date = ?, description = ?, created_at = ?
		WHERE id = ?`,
		expenseArgs(expense)...)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

func (r *ExpenseRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.exec(ctx, tableExpenses, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete expense %s: %w", id, err)
	}
	return nil
}

func (r *ExpenseRepo) Get(ctx context.Context, id string) (models.Expense, bool, error) {
	return queryOne(ctx, r.s.db, scanExpense, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
}

// List returns every expense, newest date first and most recently created
// first within a day.
func (r *ExpenseRepo) List(ctx context.Context) ([]models.Expense, error) {
	return queryList(ctx, r.s.db, scanExpense, `
		SELECT `+expenseColumns+` FROM expenses
		ORDER BY date DESC, created_at DESC, id`)
}

func (r *ExpenseRepo) ListByCategory(ctx context.Context, category string) ([]models.Expense, error) {
	return queryList(ctx, r.s.db, scanExpense, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE category = ?
		ORDER BY date DESC, created_at DESC, id`,
		category)
}

// ListInRange returns expenses dated within [start, end], newest first.
func (r *ExpenseRepo) ListInRange(ctx context.Context, start, end models.Date) ([]models.Expense, error) {
	return queryList(ctx, r.s.db, scanExpense, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE date >= ? AND date <= ?
		ORDER BY date DESC, created_at DESC, id`,
		start.String(), end.String())
}

func (r *ExpenseRepo) ListForMonth(ctx context.Context, year int, month int) ([]models.Expense, error) {
	first, last, err := monthBounds(year, month)
	if err != nil {
		return nil, err
	}
	return r.ListInRange(ctx, first, last)
}

// SumInRange totals the amounts dated within [start, end]. ok is false when no
// expense matched, which is distinct from a total of zero.
func (r *ExpenseRepo) SumInRange(ctx context.Context, start, end models.Date) (float64, bool, error) {
	return r.sum(ctx, `
		SELECT SUM(amount) FROM expenses
		WHERE date >= ? AND date <= ?`,
		start.String(), end.String())
}

func (r *ExpenseRepo) SumInRangeForCategory(ctx context.Context, start, end models.Date, category string) (float64, bool, error) {
	return r.sum(ctx, `
		SELECT SUM(amount) FROM expenses
		WHERE date >= ? AND date <= ? AND category = ?`,
		start.String(), end.String(), category)
}

func (r *ExpenseRepo) sum(ctx context.Context, query string, args ...any) (float64, bool, error) {
	var total sql.NullFloat64
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, false, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total.Float64, total.Valid, nil
}

// CategoryTotalsForMonth sums the month's expenses per category, ordered by
// category name.
func (r *ExpenseRepo) CategoryTotalsForMonth(ctx context.Context, year int, month int) ([]models.CategoryTotal, error) {
	first, last, err := monthBounds(year, month)
	if err != nil {
		return nil, err
	}
	return queryList(ctx, r.s.db, func(row rowScanner) (models.CategoryTotal, error) {
		var ct models.CategoryTotal
		err := row.Scan(&ct.Category, &ct.Total)
		return ct, err
	}, `
		SELECT category, SUM(amount) FROM expenses
		WHERE date >= ? AND date <= ?
		GROUP BY category
		ORDER BY category`,
		first.String(), last.String())
}

// InsertCategory stores c, replacing any category with the same name.
func (r *ExpenseRepo) InsertCategory(ctx context.Context, c models.ExpenseCategory) error {
	err := r.s.exec(ctx, tableExpenseCategories, insertCategorySQL, categoryArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to insert category %s: %w", c.Name, err)
	}
	return nil
}

func (r *ExpenseRepo) UpdateCategory(ctx context.Context, c models.ExpenseCategory) error {
	err := r.s.execOne(ctx, tableExpenseCategories, c.Name, `
		UPDATE expense_categories SET icon_name = ?, color_hex = ?, monthly_budget = ?
		WHERE name = ?`,
		c.IconName, c.ColorHex, c.MonthlyBudget, c.Name)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

func (r *ExpenseRepo) DeleteCategory(ctx context.Context, name string) error {
	if err := r.s.exec(ctx, tableExpenseCategories, `DELETE FROM expense_categories WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete category %s: %w", name, err)
	}
	return nil
}

func (r *ExpenseRepo) GetCategory(ctx context.Context, name string) (models.ExpenseCategory, bool, error) {
	return queryOne(ctx, r.s.db, scanCategory, `SELECT `+categoryColumns+` FROM expense_categories WHERE name = ?`, name)
}

func (r *ExpenseRepo) ListCategories(ctx context.Context) ([]models.ExpenseCategory, error) {
	return queryList(ctx, r.s.db, scanCategory, `
		SELECT `+categoryColumns+` FROM expense_categories
		ORDER BY name ASC`)
}

func (r *ExpenseRepo) WatchAll(ctx context.Context) *live.Subscription[[]models.Expense] {
	return live.Watch[[]models.Expense](ctx, r.s.tracker, r.List, tableExpenses)
}

func (r *ExpenseRepo) WatchInRange(ctx context.Context, start, end models.Date) *live.Subscription[[]models.Expense] {
	return live.Watch[[]models.Expense](ctx, r.s.tracker, func(ctx context.Context) ([]models.Expense, error) {
		return r.ListInRange(ctx, start, end)
	}, tableExpenses)
}

func (r *ExpenseRepo) WatchCategories(ctx context.Context) *live.Subscription[[]models.ExpenseCategory] {
	return live.Watch[[]models.ExpenseCategory](ctx, r.s.tracker, r.ListCategories, tableExpenseCategories)
}

func monthBounds(year, month int) (models.Date, models.Date, error) {
	if month < 1 || month > 12 {
		return models.Date{}, models.Date{}, fmt.Errorf("invalid month %d", month)
	}
	first := models.NewDate(year, time.Month(month), 1)
	return first, first.LastOfMonth(), nil
}

package expenses

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daybook/internal/cli"
	"github.com/julianstephens/daybook/internal/config"
	"github.com/julianstephens/daybook/internal/models"
)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "test.db")
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	cfg.Backup.Auto = false

	var out bytes.Buffer
	ctx := cli.NewContext(context.Background(), cfg, &out, strings.NewReader(""))
	t.Cleanup(func() { ctx.Close() })
	return ctx, &out
}

func seed(t *testing.T, ctx *cli.Context) {
	t.Helper()
	for _, cmd := range []AddCmd{
		{Title: "groceries", Amount: 42.10, Category: "Food", Date: "2024-03-02"},
		{Title: "bus pass", Amount: 60, Category: "Transport", Date: "2024-03-05"},
		{Title: "dinner", Amount: 30, Category: "Food", Date: "2024-03-20"},
		{Title: "rent", Amount: 900, Category: "Housing", Date: "2024-04-01"},
	} {
		require.NoError(t, cmd.Run(ctx))
	}
}

func TestAddExpense(t *testing.T) {
	ctx, out := setupTestContext(t)

	require.NoError(t, (&AddCmd{Title: "coffee", Amount: 3.5, Category: "Food", Date: "2024-03-01"}).Run(ctx))
	assert.Contains(t, out.String(), "Recorded 3.50 for coffee on 2024-03-01")
	assert.NotContains(t, out.String(), "does not exist")

	out.Reset()
	require.NoError(t, (&AddCmd{Title: "widget", Amount: 1, Category: "Gadgets", Date: "today"}).Run(ctx))
	assert.Contains(t, out.String(), `Category "Gadgets" does not exist yet`)

	assert.Error(t, (&AddCmd{Title: "refund", Amount: -1, Category: "Food", Date: "today"}).Run(ctx))
}

func TestListExpenses(t *testing.T) {
	ctx, out := setupTestContext(t)

	require.NoError(t, (&ListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "No expenses found.")

	seed(t, ctx)

	out.Reset()
	require.NoError(t, (&ListCmd{Category: "Food"}).Run(ctx))
	assert.Equal(t, 2, strings.Count(out.String(), "Food"))

	out.Reset()
	require.NoError(t, (&ListCmd{Month: "2024-04"}).Run(ctx))
	assert.Contains(t, out.String(), "rent")
	assert.NotContains(t, out.String(), "dinner")

	out.Reset()
	require.NoError(t, (&ListCmd{From: "2024-03-04", To: "2024-03-20"}).Run(ctx))
	assert.Contains(t, out.String(), "bus pass")
	assert.Contains(t, out.String(), "dinner")
	assert.NotContains(t, out.String(), "groceries")

	assert.Error(t, (&ListCmd{From: "2024-03-20", To: "2024-03-04"}).Run(ctx))
}

func TestSumExpenses(t *testing.T) {
	ctx, out := setupTestContext(t)
	seed(t, ctx)

	require.NoError(t, (&SumCmd{From: "2024-03-01", To: "2024-03-31"}).Run(ctx))
	assert.Contains(t, out.String(), "Total 2024-03-01 to 2024-03-31: 132.10")

	out.Reset()
	require.NoError(t, (&SumCmd{From: "2024-03-01", To: "2024-03-31", Category: "Food"}).Run(ctx))
	assert.Contains(t, out.String(), ": 72.10")

	out.Reset()
	require.NoError(t, (&SumCmd{From: "2023-01-01", To: "2023-01-31"}).Run(ctx))
	assert.Contains(t, out.String(), "No expenses between 2023-01-01 and 2023-01-31.")
}

func TestReportAgainstBudgets(t *testing.T) {
	ctx, out := setupTestContext(t)
	seed(t, ctx)
	require.NoError(t, (&CategoryAddCmd{Name: "Food", Budget: 50, Icon: "Restaurant", Color: "#ff5722"}).Run(ctx))

	out.Reset()
	require.NoError(t, (&ReportCmd{Month: "2024-03"}).Run(ctx))
	output := out.String()
	assert.Contains(t, output, "Spending for 2024-03")
	assert.Contains(t, output, "over budget")
	assert.Contains(t, output, "132.10")

	out.Reset()
	require.NoError(t, (&ReportCmd{Month: "2023-01"}).Run(ctx))
	assert.Contains(t, out.String(), "No expenses this month.")
}

func TestCategoryCommands(t *testing.T) {
	ctx, out := setupTestContext(t)

	require.NoError(t, (&CategoryListCmd{}).Run(ctx))
	for _, cat := range models.DefaultExpenseCategories() {
		assert.Contains(t, out.String(), cat.Name)
	}

	require.NoError(t, (&CategoryAddCmd{Name: "Pets", Budget: 80, Icon: "Pets", Color: "#aabbcc"}).Run(ctx))
	store, err := ctx.Store()
	require.NoError(t, err)
	cat, found, err := store.Expenses().GetCategory(ctx.Ctx(), "Pets")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "#AABBCC", cat.ColorHex)

	require.NoError(t, (&CategoryBudgetCmd{Name: "Pets", Budget: 120}).Run(ctx))
	cat, _, err = store.Expenses().GetCategory(ctx.Ctx(), "Pets")
	require.NoError(t, err)
	assert.Equal(t, 120.0, cat.MonthlyBudget)

	assert.Error(t, (&CategoryBudgetCmd{Name: "Nope", Budget: 1}).Run(ctx))
	assert.Error(t, (&CategoryAddCmd{Name: "Bad", Color: "blue"}).Run(ctx))

	require.NoError(t, (&AddCmd{Title: "food", Amount: 10, Category: "Pets", Date: "today"}).Run(ctx))
	require.NoError(t, (&CategoryRemoveCmd{Name: "Pets"}).Run(ctx))
	_, found, err = store.Expenses().GetCategory(ctx.Ctx(), "Pets")
	require.NoError(t, err)
	assert.False(t, found)

	expenses, err := store.Expenses().ListByCategory(ctx.Ctx(), "Pets")
	require.NoError(t, err)
	assert.Len(t, expenses, 1, "expenses keep the name of a removed category")
}

func TestDeleteExpense(t *testing.T) {
	ctx, _ := setupTestContext(t)
	require.NoError(t, (&AddCmd{Title: "snack", Amount: 2, Category: "Food", Date: "today"}).Run(ctx))

	store, err := ctx.Store()
	require.NoError(t, err)
	expenses, err := store.Expenses().List(ctx.Ctx())
	require.NoError(t, err)
	require.Len(t, expenses, 1)

	require.NoError(t, (&DeleteCmd{ID: expenses[0].ID}).Run(ctx))
	expenses, err = store.Expenses().List(ctx.Ctx())
	require.NoError(t, err)
	assert.Empty(t, expenses)
}

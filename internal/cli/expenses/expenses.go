package expenses

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daybook/internal/cli"
	"github.com/julianstephens/daybook/internal/models"
)

type ExpenseCmd struct {
	Add      AddCmd      `cmd:"" help:"Record an expense."`
	List     ListCmd     `cmd:"" help:"List expenses." default:"1"`
	Sum      SumCmd      `cmd:"" help:"Total expenses over a date range."`
	Report   ReportCmd   `cmd:"" help:"Per-category totals for a month against budgets."`
	Delete   DeleteCmd   `cmd:"" help:"Delete an expense."`
	Category CategoryCmd `cmd:"" help:"Manage expense categories."`
}

type AddCmd struct {
	Title       string  `arg:"" help:"What the money was spent on."`
	Amount      float64 `arg:"" help:"Amount spent."`
	Category    string  `help:"Category name." required:""`
	Date        string  `help:"Day of the expense (YYYY-MM-DD, today, yesterday)." default:"today"`
	Description string  `help:"Optional description."`
}

func (c *AddCmd) Run(ctx *cli.Context) error {
	if c.Amount < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date)
	if err != nil {
		return err
	}

	// Categories are referenced by name only, so an unknown one is allowed.
	if _, found, err := store.Expenses().GetCategory(ctx.Ctx(), c.Category); err != nil {
		return err
	} else if !found {
		ctx.Println(cli.WarnStyle.Render(fmt.Sprintf("⚠ Category %q does not exist yet", c.Category)))
	}

	expense := models.Expense{
		ID:          uuid.NewString(),
		Title:       c.Title,
		Amount:      c.Amount,
		Category:    c.Category,
		Date:        date,
		Description: cli.OptionalString(c.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.Expenses().Insert(ctx.Ctx(), expense); err != nil {
		return err
	}
	ctx.Printf("✓ Recorded %.2f for %s on %s\n", expense.Amount, expense.Title, date)
	return nil
}

type ListCmd struct {
	Category string `help:"Only expenses in this category." xor:"view"`
	Month    string `help:"Only expenses in this month (YYYY-MM)." xor:"view"`
	From     string `help:"Start of a date range (inclusive)." and:"range" xor:"view"`
	To       string `help:"End of a date range (inclusive)." and:"range"`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	repo := store.Expenses()
	bg := ctx.Ctx()

	var expenses []models.Expense
	switch {
	case c.Category != "":
		expenses, err = repo.ListByCategory(bg, c.Category)
	case c.Month != "":
		year, month, perr := cli.ParseMonth(c.Month)
		if perr != nil {
			return perr
		}
		expenses, err = repo.ListForMonth(bg, year, month)
	case c.From != "":
		start, end, perr := parseRange(c.From, c.To)
		if perr != nil {
			return perr
		}
		expenses, err = repo.ListInRange(bg, start, end)
	default:
		expenses, err = repo.List(bg)
	}
	if err != nil {
		return err
	}

	if len(expenses) == 0 {
		ctx.Println("No expenses found.")
		return nil
	}
	for _, e := range expenses {
		ctx.Println(cli.FormatExpense(e))
	}
	return nil
}

type SumCmd struct {
	From     string `help:"Start of the range (inclusive). Defaults to the first of this month."`
	To       string `help:"End of the range (inclusive). Defaults to today."`
	Category string `help:"Only this category."`
}

func (c *SumCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	from := c.From
	if from == "" {
		from = models.Today().FirstOfMonth().String()
	}
	start, end, err := parseRange(from, c.To)
	if err != nil {
		return err
	}

	var total float64
	var ok bool
	if c.Category != "" {
		total, ok, err = store.Expenses().SumInRangeForCategory(ctx.Ctx(), start, end, c.Category)
	} else {
		total, ok, err = store.Expenses().SumInRange(ctx.Ctx(), start, end)
	}
	if err != nil {
		return err
	}

	if !ok {
		ctx.Printf("No expenses between %s and %s.\n", start, end)
		return nil
	}
	ctx.Printf("Total %s to %s: %.2f\n", start, end, total)
	return nil
}

type ReportCmd struct {
	Month string `arg:"" optional:"" help:"Month to report (YYYY-MM). Defaults to the current month."`
}

func (c *ReportCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	year, month, err := cli.ParseMonth(c.Month)
	if err != nil {
		return err
	}

	totals, err := store.Expenses().CategoryTotalsForMonth(ctx.Ctx(), year, month)
	if err != nil {
		return err
	}
	categories, err := store.Expenses().ListCategories(ctx.Ctx())
	if err != nil {
		return err
	}
	budgets := make(map[string]float64, len(categories))
	for _, cat := range categories {
		budgets[cat.Name] = cat.MonthlyBudget
	}

	ctx.Println(cli.TitleStyle.Render(fmt.Sprintf("Spending for %04d-%02d", year, month)))
	if len(totals) == 0 {
		ctx.Println("No expenses this month.")
		return nil
	}

	var sum float64
	for _, t := range totals {
		sum += t.Total
		line := fmt.Sprintf("  %-14s %10.2f", t.Category, t.Total)
		if budget, ok := budgets[t.Category]; ok && budget > 0 {
			line += fmt.Sprintf(" / %.2f", budget)
			if t.Total > budget {
				line += " " + cli.FailStyle.Render("over budget")
			}
		}
		ctx.Println(line)
	}
	ctx.Printf("  %-14s %10.2f\n", "Total", sum)
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Expense id."`
}

func (c *DeleteCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	return store.Expenses().Delete(ctx.Ctx(), c.ID)
}

type CategoryCmd struct {
	List   CategoryListCmd   `cmd:"" help:"List categories." default:"1"`
	Add    CategoryAddCmd    `cmd:"" help:"Add or replace a category."`
	Budget CategoryBudgetCmd `cmd:"" help:"Change a category's monthly budget."`
	Remove CategoryRemoveCmd `cmd:"" help:"Remove a category. Expenses keep its name."`
}

type CategoryListCmd struct{}

func (c *CategoryListCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	categories, err := store.Expenses().ListCategories(ctx.Ctx())
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		ctx.Println("No categories found.")
		return nil
	}
	for _, cat := range categories {
		ctx.Println(cli.FormatCategory(cat))
	}
	return nil
}

type CategoryAddCmd struct {
	Name   string  `arg:"" help:"Category name."`
	Budget float64 `help:"Monthly budget." default:"0"`
	Icon   string  `help:"Icon name." default:"Category"`
	Color  string  `help:"Color as #RRGGBB." default:"#9E9E9E"`
}

func (c *CategoryAddCmd) Run(ctx *cli.Context) error {
	if !strings.HasPrefix(c.Color, "#") || len(c.Color) != 7 {
		return fmt.Errorf("invalid color %q (want #RRGGBB)", c.Color)
	}
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	category := models.ExpenseCategory{
		Name:          c.Name,
		IconName:      c.Icon,
		ColorHex:      strings.ToUpper(c.Color),
		MonthlyBudget: c.Budget,
	}
	if err := store.Expenses().InsertCategory(ctx.Ctx(), category); err != nil {
		return err
	}
	ctx.Printf("✓ Saved category %s\n", c.Name)
	return nil
}

type CategoryBudgetCmd struct {
	Name   string  `arg:"" help:"Category name."`
	Budget float64 `arg:"" help:"New monthly budget."`
}

func (c *CategoryBudgetCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	category, found, err := store.Expenses().GetCategory(ctx.Ctx(), c.Name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("category %s not found", c.Name)
	}
	category.MonthlyBudget = c.Budget
	return store.Expenses().UpdateCategory(ctx.Ctx(), category)
}

type CategoryRemoveCmd struct {
	Name string `arg:"" help:"Category name."`
}

func (c *CategoryRemoveCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	return store.Expenses().DeleteCategory(ctx.Ctx(), c.Name)
}

func parseRange(from, to string) (models.Date, models.Date, error) {
	start, err := cli.ParseDate(from)
	if err != nil {
		return models.Date{}, models.Date{}, err
	}
	end, err := cli.ParseDate(to)
	if err != nil {
		return models.Date{}, models.Date{}, err
	}
	if end.Before(start) {
		return models.Date{}, models.Date{}, fmt.Errorf("range end %s is before start %s", end, start)
	}
	return start, end, nil
}

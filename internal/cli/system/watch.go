package system

import (
	"fmt"
	"time"

	"github.com/julianstephens/daybook/internal/cli"
	"github.com/julianstephens/daybook/internal/live"
	"github.com/julianstephens/daybook/internal/logger"
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage/sqlite"
)

type WatchCmd struct {
	Listing string `arg:"" enum:"notes,routines,completions,schedules,expenses,categories" help:"Listing to follow (notes, routines, completions, schedules, expenses, categories)."`
	Date    string `help:"Date for completions and schedules (YYYY-MM-DD, today, tomorrow)." default:"today"`
	Count   int    `help:"Stop after this many snapshots. 0 follows until interrupted." default:"0"`
	NoFile  bool   `name:"no-file" help:"Do not follow writes made by other processes."`
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date)
	if err != nil {
		return err
	}

	if ctx.Config.Live.WatchFile && !c.NoFile {
		fw, err := live.WatchFile(ctx.Ctx(), store.Path(), store.Tracker(), ctx.Config.GetSettle(), sqlite.Tables()...)
		if err != nil {
			// Same-process writes are still delivered.
			logger.Warn("Failed to watch database file", "error", err)
		} else {
			defer fw.Close()
		}
	}

	bg := ctx.Ctx()
	switch c.Listing {
	case "notes":
		return follow(ctx, store.Notes().WatchActive(bg), c.Count, func(notes []models.Note) {
			for _, n := range notes {
				ctx.Println(cli.FormatNote(n))
			}
		})
	case "routines":
		return follow(ctx, store.Routines().WatchActive(bg), c.Count, func(routines []models.Routine) {
			for _, r := range routines {
				ctx.Println(cli.FormatRoutine(r))
			}
		})
	case "completions":
		return follow(ctx, store.Routines().WatchCompletionsForDate(bg, date), c.Count, func(completions []models.RoutineCompletion) {
			for _, rc := range completions {
				ctx.Println(cli.FormatCompletion(rc))
			}
		})
	case "schedules":
		return follow(ctx, store.Schedules().WatchForDate(bg, date), c.Count, func(schedules []models.Schedule) {
			for _, s := range schedules {
				ctx.Println(cli.FormatSchedule(s))
			}
		})
	case "expenses":
		return follow(ctx, store.Expenses().WatchAll(bg), c.Count, func(expenses []models.Expense) {
			for _, e := range expenses {
				ctx.Println(cli.FormatExpense(e))
			}
		})
	case "categories":
		return follow(ctx, store.Expenses().WatchCategories(bg), c.Count, func(categories []models.ExpenseCategory) {
			for _, cat := range categories {
				ctx.Println(cli.FormatCategory(cat))
			}
		})
	}
	return fmt.Errorf("unknown listing %q", c.Listing)
}

// follow prints snapshots until count is reached, the subscription ends or
// the command context is cancelled.
func follow[T any](ctx *cli.Context, sub *live.Subscription[T], count int, render func(T)) error {
	defer sub.Close()

	seen := 0
	for {
		select {
		case <-ctx.Ctx().Done():
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if snap.Err != nil {
				return snap.Err
			}
			ctx.Println(cli.DimStyle.Render(fmt.Sprintf("-- %s --", time.Now().Format("15:04:05"))))
			render(snap.Value)
			seen++
			if count > 0 && seen >= count {
				return nil
			}
		}
	}
}

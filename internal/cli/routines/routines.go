package routines

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daybook/internal/cli"
	"github.com/julianstephens/daybook/internal/models"
)

type RoutineCmd struct {
	Add      AddCmd      `cmd:"" help:"Add a routine."`
	List     ListCmd     `cmd:"" help:"List routines." default:"1"`
	Done     DoneCmd     `cmd:"" help:"Mark a routine done for a day."`
	Undo     UndoCmd     `cmd:"" help:"Remove a routine's completion for a day."`
	Day      DayCmd      `cmd:"" help:"Show which routines were completed on a day."`
	History  HistoryCmd  `cmd:"" help:"Show a routine's completions."`
	Streak   StreakCmd   `cmd:"" help:"Count a routine's recent completions."`
	Pin      PinCmd      `cmd:"" help:"Pin or unpin a routine."`
	Activate ActivateCmd `cmd:"" help:"Activate or deactivate a routine."`
	Delete   DeleteCmd   `cmd:"" help:"Delete a routine and its completions."`
}

type AddCmd struct {
	Title       string `arg:"" help:"Routine title."`
	Description string `help:"Routine description."`
	Frequency   string `help:"Free-form frequency such as daily or weekdays." default:"daily"`
	Reminder    string `help:"Reminder time of day (HH:MM)."`
	Pin         bool   `help:"Pin the routine."`
}

func (c *AddCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	routine := models.Routine{
		ID:          uuid.NewString(),
		Title:       c.Title,
		Description: c.Description,
		Frequency:   c.Frequency,
		IsPinned:    c.Pin,
		CreatedAt:   time.Now().UTC(),
		IsActive:    true,
	}
	if c.Reminder != "" {
		reminder, err := models.ParseTimeOfDay(c.Reminder)
		if err != nil {
			return err
		}
		routine.ReminderTime = &reminder
	}

	if err := store.Routines().Insert(ctx.Ctx(), routine); err != nil {
		return err
	}
	ctx.Printf("✓ Added routine %s\n", routine.ID)
	return nil
}

type ListCmd struct {
	All bool `help:"Include inactive routines."`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	var routines []models.Routine
	if c.All {
		routines, err = store.Routines().ListAll(ctx.Ctx())
	} else {
		routines, err = store.Routines().ListActive(ctx.Ctx())
	}
	if err != nil {
		return err
	}

	if len(routines) == 0 {
		ctx.Println("No routines found.")
		return nil
	}
	for _, r := range routines {
		ctx.Println(cli.FormatRoutine(r))
	}
	return nil
}

type DoneCmd struct {
	ID   string `arg:"" help:"Routine id."`
	Date string `help:"Day of the completion (YYYY-MM-DD, today, yesterday)." default:"today"`
}

func (c *DoneCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date)
	if err != nil {
		return err
	}
	repo := store.Routines()

	if _, found, err := repo.Get(ctx.Ctx(), c.ID); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("routine %s not found", c.ID)
	}

	if _, found, err := repo.GetCompletion(ctx.Ctx(), c.ID, date); err != nil {
		return err
	} else if found {
		ctx.Printf("Routine %s is already done for %s\n", c.ID, date)
		return nil
	}

	completion := models.RoutineCompletion{
		ID:             uuid.NewString(),
		RoutineID:      c.ID,
		CompletionDate: date,
		CompletedAt:    time.Now().UTC(),
	}
	if err := repo.InsertCompletion(ctx.Ctx(), completion); err != nil {
		return err
	}
	ctx.Printf("✓ Marked routine %s done for %s\n", c.ID, date)
	return nil
}

type UndoCmd struct {
	ID   string `arg:"" help:"Routine id."`
	Date string `help:"Day of the completion." default:"today"`
}

func (c *UndoCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date)
	if err != nil {
		return err
	}
	if err := store.Routines().DeleteCompletion(ctx.Ctx(), c.ID, date); err != nil {
		return err
	}
	ctx.Printf("✓ Cleared completion of routine %s for %s\n", c.ID, date)
	return nil
}

type DayCmd struct {
	Date string `arg:"" optional:"" help:"Day to show." default:"today"`
}

func (c *DayCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date)
	if err != nil {
		return err
	}

	routines, err := store.Routines().ListActive(ctx.Ctx())
	if err != nil {
		return err
	}
	completions, err := store.Routines().CompletionsForDate(ctx.Ctx(), date)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(completions))
	for _, rc := range completions {
		done[rc.RoutineID] = true
	}

	ctx.Println(cli.TitleStyle.Render(fmt.Sprintf("Routines for %s", date)))
	for _, r := range routines {
		mark := "[ ]"
		if done[r.ID] {
			mark = cli.OKStyle.Render("[x]")
		}
		ctx.Printf("%s %s  %s\n", mark, r.ID, r.Title)
	}
	ctx.Printf("%d of %d done\n", len(done), len(routines))
	return nil
}

type HistoryCmd struct {
	ID string `arg:"" help:"Routine id."`
}

func (c *HistoryCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	completions, err := store.Routines().CompletionsForRoutine(ctx.Ctx(), c.ID)
	if err != nil {
		return err
	}
	if len(completions) == 0 {
		ctx.Println("No completions recorded.")
		return nil
	}
	for _, rc := range completions {
		ctx.Println(cli.FormatCompletion(rc))
	}
	return nil
}

type StreakCmd struct {
	ID   string `arg:"" help:"Routine id."`
	Days int    `help:"Size of the window ending today, in days." default:"7"`
}

func (c *StreakCmd) Run(ctx *cli.Context) error {
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	since := models.Today().AddDays(-(c.Days - 1))
	count, err := store.Routines().StreakCount(ctx.Ctx(), c.ID, since)
	if err != nil {
		return err
	}
	ctx.Printf("%d completion(s) since %s\n", count, since)
	return nil
}

type PinCmd struct {
	ID    string `arg:"" help:"Routine id."`
	Unpin bool   `help:"Unpin instead."`
}

func (c *PinCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	return store.Routines().SetPinned(ctx.Ctx(), c.ID, !c.Unpin)
}

type ActivateCmd struct {
	ID         string `arg:"" help:"Routine id."`
	Deactivate bool   `help:"Deactivate instead."`
}

func (c *ActivateCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	return store.Routines().SetActive(ctx.Ctx(), c.ID, !c.Deactivate)
}

type DeleteCmd struct {
	ID string `arg:"" help:"Routine id."`
}

func (c *DeleteCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	if err := store.Routines().Delete(ctx.Ctx(), c.ID); err != nil {
		return err
	}
	ctx.Printf("✓ Deleted routine %s\n", c.ID)
	return nil
}

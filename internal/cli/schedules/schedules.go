package schedules

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daybook/internal/cli"
	"github.com/julianstephens/daybook/internal/models"
)

type ScheduleCmd struct {
	Add        AddCmd        `cmd:"" help:"Add a schedule entry."`
	List       ListCmd       `cmd:"" help:"List schedule entries." default:"1"`
	Next       NextCmd       `cmd:"" help:"Show the next incomplete entry of a day."`
	Done       DoneCmd       `cmd:"" help:"Mark an entry completed."`
	Pin        PinCmd        `cmd:"" help:"Pin or unpin an entry."`
	Delete     DeleteCmd     `cmd:"" help:"Delete an entry."`
	Categories CategoriesCmd `cmd:"" help:"List schedule categories."`
}

type AddCmd struct {
	Title       string `arg:"" help:"Entry title."`
	Date        string `help:"Day of the entry (YYYY-MM-DD, today, tomorrow)." default:"today"`
	Start       string `help:"Start time (HH:MM)." required:""`
	End         string `help:"End time (HH:MM)." required:""`
	Description string `help:"Entry description."`
	Location    string `help:"Entry location."`
	Category    string `help:"Entry category." default:"General"`
	Recurring   string `help:"Recurring pattern, for example weekly. Marks the entry recurring."`
	Reminder    int    `help:"Reminder lead time in minutes." default:"${reminder_minutes}"`
	Pin         bool   `help:"Pin the entry."`
}

func (c *AddCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date)
	if err != nil {
		return err
	}
	start, err := models.ParseTimeOfDay(c.Start)
	if err != nil {
		return err
	}
	end, err := models.ParseTimeOfDay(c.End)
	if err != nil {
		return err
	}
	if end.Minutes() < start.Minutes() {
		return fmt.Errorf("end time %s is before start time %s", end, start)
	}
	if c.Reminder < 0 {
		return fmt.Errorf("reminder minutes must not be negative")
	}

	schedule := models.Schedule{
		ID:               uuid.NewString(),
		Title:            c.Title,
		Description:      c.Description,
		StartTime:        start,
		EndTime:          end,
		Date:             date,
		Location:         cli.OptionalString(c.Location),
		IsPinned:         c.Pin,
		Category:         c.Category,
		IsRecurring:      c.Recurring != "",
		RecurringPattern: cli.OptionalString(c.Recurring),
		ReminderMinutes:  c.Reminder,
		CreatedAt:        time.Now().UTC(),
	}
	if err := store.Schedules().Insert(ctx.Ctx(), schedule); err != nil {
		return err
	}
	ctx.Printf("✓ Added schedule entry %s on %s\n", schedule.ID, date)
	return nil
}

type ListCmd struct {
	Date     string `help:"Only entries on this day." xor:"view"`
	From     string `help:"Start of a date range (inclusive)." and:"range" xor:"view"`
	To       string `help:"End of a date range (inclusive)." and:"range"`
	Search   string `help:"Only entries whose title or description contains this text." xor:"view"`
	Category string `help:"Only entries in this category." xor:"view"`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	repo := store.Schedules()
	bg := ctx.Ctx()

	var schedules []models.Schedule
	switch {
	case c.Date != "":
		date, err := cli.ParseDate(c.Date)
		if err != nil {
			return err
		}
		schedules, err = repo.ListForDate(bg, date)
		if err != nil {
			return err
		}
	case c.From != "":
		start, err := cli.ParseDate(c.From)
		if err != nil {
			return err
		}
		end, err := cli.ParseDate(c.To)
		if err != nil {
			return err
		}
		schedules, err = repo.ListInRange(bg, start, end)
		if err != nil {
			return err
		}
	case c.Search != "":
		schedules, err = repo.Search(bg, c.Search)
	case c.Category != "":
		schedules, err = repo.ListByCategory(bg, c.Category)
	default:
		schedules, err = repo.List(bg)
	}
	if err != nil {
		return err
	}

	if len(schedules) == 0 {
		ctx.Println("No schedule entries found.")
		return nil
	}
	for _, s := range schedules {
		ctx.Println(cli.FormatSchedule(s))
	}
	return nil
}

type NextCmd struct {
	Date string `arg:"" optional:"" help:"Day to look at." default:"today"`
}

func (c *NextCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date)
	if err != nil {
		return err
	}
	next, found, err := store.Schedules().NextIncomplete(ctx.Ctx(), date)
	if err != nil {
		return err
	}
	if !found {
		ctx.Printf("Nothing left on %s.\n", date)
		return nil
	}
	ctx.Println(cli.FormatSchedule(next))
	return nil
}

type DoneCmd struct {
	ID   string `arg:"" help:"Entry id."`
	Undo bool   `help:"Mark the entry not completed."`
}

func (c *DoneCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	if err := store.Schedules().SetCompleted(ctx.Ctx(), c.ID, !c.Undo); err != nil {
		return err
	}
	if c.Undo {
		ctx.Printf("✓ Marked %s not completed\n", c.ID)
	} else {
		ctx.Printf("✓ Marked %s completed\n", c.ID)
	}
	return nil
}

type PinCmd struct {
	ID    string `arg:"" help:"Entry id."`
	Unpin bool   `help:"Unpin instead."`
}

func (c *PinCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	return store.Schedules().SetPinned(ctx.Ctx(), c.ID, !c.Unpin)
}

type DeleteCmd struct {
	ID string `arg:"" help:"Entry id."`
}

func (c *DeleteCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	return store.Schedules().Delete(ctx.Ctx(), c.ID)
}

type CategoriesCmd struct{}

func (c *CategoriesCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	categories, err := store.Schedules().Categories(ctx.Ctx())
	if err != nil {
		return err
	}
	for _, cat := range categories {
		ctx.Println(cat)
	}
	return nil
}

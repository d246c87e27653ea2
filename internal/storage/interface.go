package storage

import (
	"context"

	"github.com/julianstephens/daybook/internal/live"
	"github.com/julianstephens/daybook/internal/models"
)

// NoteRepository stores notes. Deleting through MoveToTrash only sets a flag;
// Delete and EmptyTrash remove rows.
type NoteRepository interface {
	Insert(ctx context.Context, note models.Note) error
	Update(ctx context.Context, note models.Note) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Note, bool, error)

	ListActive(ctx context.Context) ([]models.Note, error)
	ListArchived(ctx context.Context) ([]models.Note, error)
	ListTrash(ctx context.Context) ([]models.Note, error)
	ListAll(ctx context.Context) ([]models.Note, error)
	Search(ctx context.Context, query string) ([]models.Note, error)
	ListByCategory(ctx context.Context, category string) ([]models.Note, error)
	Categories(ctx context.Context) ([]string, error)

	SetPinned(ctx context.Context, id string, pinned bool) error
	SetArchived(ctx context.Context, id string, archived bool) error
	MoveToTrash(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	EmptyTrash(ctx context.Context) (int64, error)

	WatchActive(ctx context.Context) *live.Subscription[[]models.Note]
	WatchArchived(ctx context.Context) *live.Subscription[[]models.Note]
	WatchTrash(ctx context.Context) *live.Subscription[[]models.Note]
	WatchSearch(ctx context.Context, query string) *live.Subscription[[]models.Note]
}

// RoutineRepository stores routines and their completions.
type RoutineRepository interface {
	Insert(ctx context.Context, routine models.Routine) error
	Update(ctx context.Context, routine models.Routine) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Routine, bool, error)

	ListActive(ctx context.Context) ([]models.Routine, error)
	ListAll(ctx context.Context) ([]models.Routine, error)

	SetPinned(ctx context.Context, id string, pinned bool) error
	SetActive(ctx context.Context, id string, active bool) error

	InsertCompletion(ctx context.Context, completion models.RoutineCompletion) error
	GetCompletion(ctx context.Context, routineID string, date models.Date) (models.RoutineCompletion, bool, error)
	DeleteCompletion(ctx context.Context, routineID string, date models.Date) error
	CompletionsForDate(ctx context.Context, date models.Date) ([]models.RoutineCompletion, error)
	CompletionsForRoutine(ctx context.Context, routineID string) ([]models.RoutineCompletion, error)
	AllCompletions(ctx context.Context) ([]models.RoutineCompletion, error)
	StreakCount(ctx context.Context, routineID string, since models.Date) (int, error)

	WatchActive(ctx context.Context) *live.Subscription[[]models.Routine]
	WatchCompletionsForDate(ctx context.Context, date models.Date) *live.Subscription[[]models.RoutineCompletion]
}

// ScheduleRepository stores dated schedule entries.
type ScheduleRepository interface {
	Insert(ctx context.Context, schedule models.Schedule) error
	Update(ctx context.Context, schedule models.Schedule) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Schedule, bool, error)

	List(ctx context.Context) ([]models.Schedule, error)
	ListForDate(ctx context.Context, date models.Date) ([]models.Schedule, error)
	ListInRange(ctx context.Context, start, end models.Date) ([]models.Schedule, error)
	Search(ctx context.Context, query string) ([]models.Schedule, error)
	ListByCategory(ctx context.Context, category string) ([]models.Schedule, error)
	Categories(ctx context.Context) ([]string, error)
	NextIncomplete(ctx context.Context, date models.Date) (models.Schedule, bool, error)

	SetPinned(ctx context.Context, id string, pinned bool) error
	SetCompleted(ctx context.Context, id string, completed bool) error

	WatchAll(ctx context.Context) *live.Subscription[[]models.Schedule]
	WatchForDate(ctx context.Context, date models.Date) *live.Subscription[[]models.Schedule]
	WatchInRange(ctx context.Context, start, end models.Date) *live.Subscription[[]models.Schedule]
}

// ExpenseRepository stores expenses and the categories they refer to by name.
// Sums report ok=false when no rows matched.
type ExpenseRepository interface {
	Insert(ctx context.Context, expense models.Expense) error
	Update(ctx context.Context, expense models.Expense) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Expense, bool, error)

	List(ctx context.Context) ([]models.Expense, error)
	ListByCategory(ctx context.Context, category string) ([]models.Expense, error)
	ListInRange(ctx context.Context, start, end models.Date) ([]models.Expense, error)
	ListForMonth(ctx context.Context, year int, month int) ([]models.Expense, error)

	SumInRange(ctx context.Context, start, end models.Date) (float64, bool, error)
	SumInRangeForCategory(ctx context.Context, start, end models.Date, category string) (float64, bool, error)
	CategoryTotalsForMonth(ctx context.Context, year int, month int) ([]models.CategoryTotal, error)

	InsertCategory(ctx context.Context, category models.ExpenseCategory) error
	UpdateCategory(ctx context.Context, category models.ExpenseCategory) error
	DeleteCategory(ctx context.Context, name string) error
	GetCategory(ctx context.Context, name string) (models.ExpenseCategory, bool, error)
	ListCategories(ctx context.Context) ([]models.ExpenseCategory, error)

	WatchAll(ctx context.Context) *live.Subscription[[]models.Expense]
	WatchInRange(ctx context.Context, start, end models.Date) *live.Subscription[[]models.Expense]
	WatchCategories(ctx context.Context) *live.Subscription[[]models.ExpenseCategory]
}

// Batch holds records of every family to be upserted together.
type Batch struct {
	Notes              []models.Note
	Routines           []models.Routine
	RoutineCompletions []models.RoutineCompletion
	Schedules          []models.Schedule
	Expenses           []models.Expense
	ExpenseCategories  []models.ExpenseCategory
}

// Len returns the number of records in b.
func (b Batch) Len() int {
	return len(b.Notes) + len(b.Routines) + len(b.RoutineCompletions) +
		len(b.Schedules) + len(b.Expenses) + len(b.ExpenseCategories)
}

// Provider groups the repositories with store-level maintenance.
type Provider interface {
	Notes() NoteRepository
	Routines() RoutineRepository
	Schedules() ScheduleRepository
	Expenses() ExpenseRepository

	// WriteBatch upserts every record of b in one transaction. Either all of
	// b is visible afterwards or none of it is, and observers are notified
	// once.
	WriteBatch(ctx context.Context, b Batch) error
	ClearAllTables(ctx context.Context) error
	Path() string
	Close() error
}

package sqlite

import (
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage"
)

// Dates are stored as YYYY-MM-DD text. A date outside years 1-9999, or one
// that time.Date would normalize, formats to text the scanner rejects, and a
// single such row makes every listing of its table fail with ErrCorrupt.

func checkDate(table, column, key string, d models.Date) error {
	if !d.Valid() {
		return storage.Invalid(table, column, key, "is not a calendar date")
	}
	return nil
}

func validateExpense(e models.Expense) error {
	return checkDate(tableExpenses, "date", e.ID, e.Date)
}

func validateSchedule(sc models.Schedule) error {
	return checkDate(tableSchedules, "date", sc.ID, sc.Date)
}

func validateCompletion(c models.RoutineCompletion) error {
	return checkDate(tableRoutineCompletions, "completion_date", c.ID, c.CompletionDate)
}

package sqlite

import "github.com/julianstephens/daybook/internal/migration"

const (
	tableNotes              = "notes"
	tableRoutines           = "routines"
	tableRoutineCompletions = "routine_completions"
	tableSchedules          = "schedules"
	tableExpenses           = "expenses"
	tableExpenseCategories  = "expense_categories"
)

// allTables lists every data table in dependency order.
var allTables = []string{
	tableNotes,
	tableRoutines,
	tableRoutineCompletions,
	tableSchedules,
	tableExpenses,
	tableExpenseCategories,
}

func colText(name string) migration.Column {
	return migration.Column{Name: name, Type: "TEXT", NotNull: true}
}

func colOptText(name string) migration.Column {
	return migration.Column{Name: name, Type: "TEXT"}
}

func colInt(name string) migration.Column {
	return migration.Column{Name: name, Type: "INTEGER", NotNull: true}
}

func colReal(name string) migration.Column {
	return migration.Column{Name: name, Type: "REAL", NotNull: true}
}

func colKey(name string) migration.Column {
	return migration.Column{Name: name, Type: "TEXT", NotNull: true, PrimaryKey: 1}
}

// Schema is the table layout the embedded migrations produce. Open refuses a
// database that does not match it.
var Schema = &migration.Schema{
	Tables: []migration.Table{
		{Name: tableNotes, Columns: []migration.Column{
			colKey("id"),
			colText("title"),
			colText("content"),
			colInt("is_pinned"),
			colOptText("category"),
			colText("created_at"),
			colText("updated_at"),
			colInt("is_archived"),
			colInt("is_deleted"),
		}},
		{Name: tableRoutines, Columns: []migration.Column{
			colKey("id"),
			colText("title"),
			colText("description"),
			colText("frequency"),
			colInt("is_pinned"),
			colOptText("reminder_time"),
			colText("created_at"),
			colInt("is_active"),
		}},
		{Name: tableRoutineCompletions, Columns: []migration.Column{
			colKey("id"),
			colText("routine_id"),
			colText("completion_date"),
			colText("completed_at"),
		}},
		{Name: tableSchedules, Columns: []migration.Column{
			colKey("id"),
			colText("title"),
			colText("description"),
			colText("start_time"),
			colText("end_time"),
			colText("date"),
			colOptText("location"),
			colInt("is_pinned"),
			colInt("is_completed"),
			colText("category"),
			colInt("is_recurring"),
			colOptText("recurring_pattern"),
			colText("created_at"),
			colInt("reminder_minutes"),
		}},
		{Name: tableExpenses, Columns: []migration.Column{
			colKey("id"),
			colText("title"),
			colReal("amount"),
			colText("category"),
			colText("date"),
			colOptText("description"),
			colText("created_at"),
		}},
		{Name: tableExpenseCategories, Columns: []migration.Column{
			colKey("name"),
			colText("icon_name"),
			colText("color_hex"),
			colReal("monthly_budget"),
		}},
	},
}

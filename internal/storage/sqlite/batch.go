package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/julianstephens/daybook/internal/logger"
	"github.com/julianstephens/daybook/internal/storage"
)

// WriteBatch upserts b in a single transaction. Every record is validated
// before the transaction starts, so an invalid record writes nothing.
func (s *Store) WriteBatch(ctx context.Context, b storage.Batch) error {
	if err := validateBatch(b); err != nil {
		return err
	}
	tables := batchTables(b)
	if len(tables) == 0 {
		return nil
	}

	err := s.withTx(ctx, tables, func(ctx context.Context, tx *sql.Tx) error {
		for _, c := range b.ExpenseCategories {
			if err := execBatch(ctx, tx, tableExpenseCategories, c.Name, insertCategorySQL, categoryArgs(c)); err != nil {
				return err
			}
		}
		for _, n := range b.Notes {
			if err := execBatch(ctx, tx, tableNotes, n.ID, insertNoteSQL, noteArgs(n)); err != nil {
				return err
			}
		}
		for _, rt := range b.Routines {
			if err := execBatch(ctx, tx, tableRoutines, rt.ID, insertRoutineSQL, routineArgs(rt)); err != nil {
				return err
			}
		}
		for _, c := range b.RoutineCompletions {
			if err := execBatch(ctx, tx, tableRoutineCompletions, c.ID, insertCompletionSQL, completionArgs(c)); err != nil {
				return err
			}
		}
		for _, sc := range b.Schedules {
			if err := execBatch(ctx, tx, tableSchedules, sc.ID, insertScheduleSQL, scheduleArgs(sc)); err != nil {
				return err
			}
		}
		for _, e := range b.Expenses {
			if err := execBatch(ctx, tx, tableExpenses, e.ID, insertExpenseSQL, expenseArgs(e)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debug("Wrote batch", "records", b.Len())
	return nil
}

func execBatch(ctx context.Context, tx *sql.Tx, table, key, query string, args []any) error {
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", table, key, err)
	}
	return nil
}

// batchTables returns the tables b writes to.
func batchTables(b storage.Batch) []string {
	counts := map[string]int{
		tableNotes:              len(b.Notes),
		tableRoutines:           len(b.Routines),
		tableRoutineCompletions: len(b.RoutineCompletions),
		tableSchedules:          len(b.Schedules),
		tableExpenses:           len(b.Expenses),
		tableExpenseCategories:  len(b.ExpenseCategories),
	}
	var tables []string
	for _, table := range allTables {
		if counts[table] > 0 {
			tables = append(tables, table)
		}
	}
	return tables
}

func validateBatch(b storage.Batch) error {
	for _, c := range b.RoutineCompletions {
		if err := validateCompletion(c); err != nil {
			return err
		}
	}
	for _, sc := range b.Schedules {
		if err := validateSchedule(sc); err != nil {
			return err
		}
	}
	for _, e := range b.Expenses {
		if err := validateExpense(e); err != nil {
			return err
		}
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/julianstephens/daybook/internal/live"
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage"
)

var _ storage.RoutineRepository = (*RoutineRepo)(nil)

const (
	routineColumns    = `id, title, description, frequency, is_pinned, reminder_time, created_at, is_active`
	completionColumns = `id, routine_id, completion_date, completed_at`
)

// RoutineRepo stores routines and their completions. Deleting a routine
// deletes its completions in the same transaction.
type RoutineRepo struct {
	s *Store
}

func scanRoutine(row rowScanner) (models.Routine, error) {
	var id, title, description, frequency, reminder, createdAt sql.NullString
	var pinned, active sql.NullInt64

	if err := row.Scan(&id, &title, &description, &frequency, &pinned, &reminder, &createdAt, &active); err != nil {
		return models.Routine{}, err
	}

	d := decoder{table: tableRoutines}
	rt := models.Routine{
		ID:           d.id("id", id),
		Title:        d.text("title", title),
		Description:  d.text("description", description),
		Frequency:    d.text("frequency", frequency),
		IsPinned:     d.boolean("is_pinned", pinned),
		ReminderTime: d.optTimeOfDay("reminder_time", reminder),
		CreatedAt:    d.instant("created_at", createdAt),
		IsActive:     d.boolean("is_active", active),
	}
	return rt, d.err
}

func scanCompletion(row rowScanner) (models.RoutineCompletion, error) {
	var id, routineID, date, completedAt sql.NullString

	if err := row.Scan(&id, &routineID, &date, &completedAt); err != nil {
		return models.RoutineCompletion{}, err
	}

	d := decoder{table: tableRoutineCompletions}
	c := models.RoutineCompletion{
		ID:             d.id("id", id),
		RoutineID:      d.text("routine_id", routineID),
		CompletionDate: d.date("completion_date", date),
		CompletedAt:    d.instant("completed_at", completedAt),
	}
	return c, d.err
}

const (
	insertRoutineSQL = `
	INSERT OR REPLACE INTO routines (title, description, frequency, is_pinned, reminder_time, created_at, is_active, id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertCompletionSQL = `
	INSERT OR REPLACE INTO routine_completions (id, routine_id, completion_date, completed_at)
	VALUES (?, ?, ?, ?)`
)

func completionArgs(c models.RoutineCompletion) []any {
	return []any{c.ID, c.RoutineID, c.CompletionDate.String(), models.FormatInstant(c.CompletedAt)}
}

func routineArgs(rt models.Routine) []any {
	return []any{
		rt.Title, rt.Description, rt.Frequency, boolToInt(rt.IsPinned),
		nullTimeOfDay(rt.ReminderTime), models.FormatInstant(rt.CreatedAt),
		boolToInt(rt.IsActive), rt.ID,
	}
}

func (r *RoutineRepo) Insert(ctx context.Context, routine models.Routine) error {
	err := r.s.exec(ctx, tableRoutines, insertRoutineSQL, routineArgs(routine)...)
	if err != nil {
		return fmt.Errorf("failed to insert routine %s: %w", routine.ID, err)
	}
	return nil
}

func (r *RoutineRepo) Update(ctx context.Context, routine models.Routine) error {
	err := r.s.execOne(ctx, tableRoutines, routine.ID, `
		UPDATE routines SET title = ?, description = ?, frequency = ?, is_pinned = ?,
			reminder_time = ?, created_at = ?, is_active = ?
		WHERE id = ?`,
		routineArgs(routine)...)
	if err != nil {
		return fmt.Errorf("failed to update routine: %w", err)
	}
	return nil
}

// Delete removes the routine and all of its completions.
func (r *RoutineRepo) Delete(ctx context.Context, id string) error {
	err := r.s.withTx(ctx, []string{tableRoutines, tableRoutineCompletions}, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM routine_completions WHERE routine_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM routines WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete routine %s: %w", id, err)
	}
	return nil
}

func (r *RoutineRepo) Get(ctx context.Context, id string) (models.Routine, bool, error) {
	return queryOne(ctx, r.s.db, scanRoutine, `SELECT `+routineColumns+` FROM routines WHERE id = ?`, id)
}

// ListActive returns active routines, pinned first and newest first within
// each group.
func (r *RoutineRepo) ListActive(ctx context.Context) ([]models.Routine, error) {
	return queryList(ctx, r.s.db, scanRoutine, `
		SELECT `+routineColumns+` FROM routines
		WHERE is_active = 1
		ORDER BY is_pinned DESC, created_at DESC, id`)
}

func (r *RoutineRepo) ListAll(ctx context.Context) ([]models.Routine, error) {
	return queryList(ctx, r.s.db, scanRoutine, `
		SELECT `+routineColumns+` FROM routines
		ORDER BY is_pinned DESC, created_at DESC, id`)
}

func (r *RoutineRepo) SetPinned(ctx context.Context, id string, pinned bool) error {
	if err := r.s.execOne(ctx, tableRoutines, id,
		`UPDATE routines SET is_pinned = ? WHERE id = ?`, boolToInt(pinned), id); err != nil {
		return fmt.Errorf("failed to set pinned on routine: %w", err)
	}
	return nil
}

func (r *RoutineRepo) SetActive(ctx context.Context, id string, active bool) error {
	if err := r.s.execOne(ctx, tableRoutines, id,
		`UPDATE routines SET is_active = ? WHERE id = ?`, boolToInt(active), id); err != nil {
		return fmt.Errorf("failed to set active on routine: %w", err)
	}
	return nil
}

// InsertCompletion stores c, replacing any completion with the same id.
// Nothing prevents two completions for the same routine and date.
func (r *RoutineRepo) InsertCompletion(ctx context.Context, c models.RoutineCompletion) error {
	if err := validateCompletion(c); err != nil {
		return err
	}
	err := r.s.exec(ctx, tableRoutineCompletions, insertCompletionSQL, completionArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to insert completion %s: %w", c.ID, err)
	}
	return nil
}

// GetCompletion returns the latest completion of routineID on date.
func (r *RoutineRepo) GetCompletion(ctx context.Context, routineID string, date models.Date) (models.RoutineCompletion, bool, error) {
	return queryOne(ctx, r.s.db, scanCompletion, `
		SELECT `+completionColumns+` FROM routine_completions
		WHERE routine_id = ? AND completion_date = ?
		ORDER BY completed_at DESC
		LIMIT 1`,
		routineID, date.String())
}

// DeleteCompletion removes every completion of routineID on date.
func (r *RoutineRepo) DeleteCompletion(ctx context.Context, routineID string, date models.Date) error {
	err := r.s.exec(ctx, tableRoutineCompletions,
		`DELETE FROM routine_completions WHERE routine_id = ? AND completion_date = ?`,
		routineID, date.String())
	if err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	return nil
}

func (r *RoutineRepo) CompletionsForDate(ctx context.Context, date models.Date) ([]models.RoutineCompletion, error) {
	return queryList(ctx, r.s.db, scanCompletion, `
		SELECT `+completionColumns+` FROM routine_completions
		WHERE completion_date = ?
		ORDER BY completed_at, id`,
		date.String())
}

func (r *RoutineRepo) CompletionsForRoutine(ctx context.Context, routineID string) ([]models.RoutineCompletion, error) {
	return queryList(ctx, r.s.db, scanCompletion, `
		SELECT `+completionColumns+` FROM routine_completions
		WHERE routine_id = ?
		ORDER BY completion_date DESC, completed_at DESC, id`,
		routineID)
}

func (r *RoutineRepo) AllCompletions(ctx context.Context) ([]models.RoutineCompletion, error) {
	return queryList(ctx, r.s.db, scanCompletion, `
		SELECT `+completionColumns+` FROM routine_completions
		ORDER BY completion_date DESC, completed_at DESC, id`)
}

// StreakCount counts completions of routineID on or after since.
func (r *RoutineRepo) StreakCount(ctx context.Context, routineID string, since models.Date) (int, error) {
	var count int
	err := r.s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM routine_completions
		WHERE routine_id = ? AND completion_date >= ?`,
		routineID, since.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

func (r *RoutineRepo) WatchActive(ctx context.Context) *live.Subscription[[]models.Routine] {
	return live.Watch[[]models.Routine](ctx, r.s.tracker, r.ListActive, tableRoutines)
}

func (r *RoutineRepo) WatchCompletionsForDate(ctx context.Context, date models.Date) *live.Subscription[[]models.RoutineCompletion] {
	return live.Watch[[]models.RoutineCompletion](ctx, r.s.tracker, func(ctx context.Context) ([]models.RoutineCompletion, error) {
		return r.CompletionsForDate(ctx, date)
	}, tableRoutineCompletions)
}

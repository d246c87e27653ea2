package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/julianstephens/daybook/internal/live"
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage"
)

var _ storage.ScheduleRepository = (*ScheduleRepo)(nil)

const scheduleColumns = `id, title, description, start_time, end_time, date, location, is_pinned,
	is_completed, category, is_recurring, recurring_pattern, reminder_minutes, created_at`

type ScheduleRepo struct {
	s *Store
}

func scanSchedule(row rowScanner) (models.Schedule, error) {
	var id, title, description, start, end, date, location, category, pattern, createdAt sql.NullString
	var pinned, completed, recurring, reminder sql.NullInt64

	if err := row.Scan(&id, &title, &description, &start, &end, &date, &location, &pinned,
		&completed, &category, &recurring, &pattern, &reminder, &createdAt); err != nil {
		return models.Schedule{}, err
	}

	d := decoder{table: tableSchedules}
	sc := models.Schedule{
		ID:               d.id("id", id),
		Title:            d.text("title", title),
		Description:      d.text("description", description),
		StartTime:        d.timeOfDay("start_time", start),
		EndTime:          d.timeOfDay("end_time", end),
		Date:             d.date("date", date),
		Location:         d.optText(location),
		IsPinned:         d.boolean("is_pinned", pinned),
		IsCompleted:      d.boolean("is_completed", completed),
		Category:         d.text("category", category),
		IsRecurring:      d.boolean("is_recurring", recurring),
		RecurringPattern: d.optText(pattern),
		ReminderMinutes:  d.integer("reminder_minutes", reminder),
		CreatedAt:        d.instant("created_at", createdAt),
	}
	return sc, d.err
}

const insertScheduleSQL = `
	INSERT OR REPLACE INTO schedules (title, description, start_time, end_time, date, location, is_pinned,
		is_completed, category, is_recurring, recurring_pattern, reminder_minutes, created_at, id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func scheduleArgs(sc models.Schedule) []any {
	return []any{
		sc.Title, sc.Description, sc.StartTime.String(), sc.EndTime.String(), sc.Date.String(),
		nullString(sc.Location), boolToInt(sc.IsPinned), boolToInt(sc.IsCompleted), sc.Category,
		boolToInt(sc.IsRecurring), nullString(sc.RecurringPattern), sc.ReminderMinutes,
		models.FormatInstant(sc.CreatedAt), sc.ID,
	}
}

func (r *ScheduleRepo) Insert(ctx context.Context, schedule models.Schedule) error {
	if err := validateSchedule(schedule); err != nil {
		return err
	}
	err := r.s.exec(ctx, tableSchedules, insertScheduleSQL, scheduleArgs(schedule)...)
	if err != nil {
		return fmt.Errorf("failed to insert schedule %s: %w", schedule.ID, err)
	}
	return nil
}

func (r *ScheduleRepo) Update(ctx context.Context, schedule models.Schedule) error {
	if err := validateSchedule(schedule); err != nil {
		return err
	}
	err := r.s.execOne(ctx, tableSchedules, schedule.ID, `
		UPDATE schedules SET title = ?, description = ?, start_time = ?, end_time = ?, date = ?,
			location = ?, is_pinned = ?, is_completed = ?, category = ?, is_recurring = ?,
			recurring_pattern = ?, reminder_minutes = ?, created_at = ?
		WHERE id = ?`,
		scheduleArgs(schedule)...)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.exec(ctx, tableSchedules, `DELETE FROM schedules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	return nil
}

func (r *ScheduleRepo) Get(ctx context.Context, id string) (models.Schedule, bool, error) {
	return queryOne(ctx, r.s.db, scanSchedule, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
}

// List returns every schedule, latest date first and by start time within a
// day.
func (r *ScheduleRepo) List(ctx context.Context) ([]models.Schedule, error) {
	return queryList(ctx, r.s.db, scanSchedule, `
		SELECT `+scheduleColumns+` FROM schedules
		ORDER BY date DESC, start_time ASC, id`)
}

func (r *ScheduleRepo) ListForDate(ctx context.Context, date models.Date) ([]models.Schedule, error) {
	return queryList(ctx, r.s.db, scanSchedule, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE date = ?
		ORDER BY start_time ASC, id`,
		date.String())
}

// ListInRange returns schedules dated within [start, end] in calendar order.
func (r *ScheduleRepo) ListInRange(ctx context.Context, start, end models.Date) ([]models.Schedule, error) {
	return queryList(ctx, r.s.db, scanSchedule, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, start_time ASC, id`,
		start.String(), end.String())
}

func (r *ScheduleRepo) Search(ctx context.Context, query string) ([]models.Schedule, error) {
	pattern := likePattern(query)
	return queryList(ctx, r.s.db, scanSchedule, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
		ORDER BY date DESC, start_time ASC, id`,
		pattern, pattern)
}

func (r *ScheduleRepo) ListByCategory(ctx context.Context, category string) ([]models.Schedule, error) {
	return queryList(ctx, r.s.db, scanSchedule, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE category = ?
		ORDER BY date DESC, start_time ASC, id`,
		category)
}

func (r *ScheduleRepo) Categories(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.s.db, `
		SELECT DISTINCT category FROM schedules
		WHERE category != ''
		ORDER BY category`)
}

// NextIncomplete returns the earliest schedule on date that is not completed.
func (r *ScheduleRepo) NextIncomplete(ctx context.Context, date models.Date) (models.Schedule, bool, error) {
	return queryOne(ctx, r.s.db, scanSchedule, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE date = ? AND is_completed = 0
		ORDER BY start_time ASC, id
		LIMIT 1`,
		date.String())
}

func (r *ScheduleRepo) SetPinned(ctx context.Context, id string, pinned bool) error {
	if err := r.s.execOne(ctx, tableSchedules, id,
		`UPDATE schedules SET is_pinned = ? WHERE id = ?`, boolToInt(pinned), id); err != nil {
		return fmt.Errorf("failed to set pinned on schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) SetCompleted(ctx context.Context, id string, completed bool) error {
	if err := r.s.execOne(ctx, tableSchedules, id,
		`UPDATE schedules SET is_completed = ? WHERE id = ?`, boolToInt(completed), id); err != nil {
		return fmt.Errorf("failed to set completed on schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) WatchAll(ctx context.Context) *live.Subscription[[]models.Schedule] {
	return live.Watch[[]models.Schedule](ctx, r.s.tracker, r.List, tableSchedules)
}

func (r *ScheduleRepo) WatchForDate(ctx context.Context, date models.Date) *live.Subscription[[]models.Schedule] {
	return live.Watch[[]models.Schedule](ctx, r.s.tracker, func(ctx context.Context) ([]models.Schedule, error) {
		return r.ListForDate(ctx, date)
	}, tableSchedules)
}

func (r *ScheduleRepo) WatchInRange(ctx context.Context, start, end models.Date) *live.Subscription[[]models.Schedule] {
	return live.Watch[[]models.Schedule](ctx, r.s.tracker, func(ctx context.Context) ([]models.Schedule, error) {
		return r.ListInRange(ctx, start, end)
	}, tableSchedules)
}

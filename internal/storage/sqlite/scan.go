package sqlite

import (
	"database/sql"
	"time"

	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage"
)

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// decoder converts nullable column values into record fields. Every NOT NULL
// column is scanned into a sql.Null* so that a NULL can be reported as
// corruption instead of failing inside database/sql with an opaque message.
// The first problem is kept in err; later calls become no-ops.
type decoder struct {
	table string
	key   string
	err   error
}

func (d *decoder) fail(column string, cause error) {
	if d.err == nil {
		d.err = &storage.CorruptionError{Table: d.table, Column: column, Key: d.key, Err: cause}
	}
}

// id decodes the primary key and remembers it for later error reports.
func (d *decoder) id(column string, v sql.NullString) string {
	s := d.text(column, v)
	d.key = s
	return s
}

func (d *decoder) text(column string, v sql.NullString) string {
	if !v.Valid {
		d.fail(column, nil)
		return ""
	}
	return v.String
}

func (d *decoder) optText(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func (d *decoder) boolean(column string, v sql.NullInt64) bool {
	if !v.Valid {
		d.fail(column, nil)
		return false
	}
	return v.Int64 != 0
}

func (d *decoder) integer(column string, v sql.NullInt64) int {
	if !v.Valid {
		d.fail(column, nil)
		return 0
	}
	return int(v.Int64)
}

func (d *decoder) float(column string, v sql.NullFloat64) float64 {
	if !v.Valid {
		d.fail(column, nil)
		return 0
	}
	return v.Float64
}

func (d *decoder) date(column string, v sql.NullString) models.Date {
	s := d.text(column, v)
	if !v.Valid {
		return models.Date{}
	}
	parsed, err := models.ParseDate(s)
	if err != nil {
		d.fail(column, err)
	}
	return parsed
}

func (d *decoder) timeOfDay(column string, v sql.NullString) models.TimeOfDay {
	s := d.text(column, v)
	if !v.Valid {
		return models.TimeOfDay{}
	}
	parsed, err := models.ParseTimeOfDay(s)
	if err != nil {
		d.fail(column, err)
	}
	return parsed
}

func (d *decoder) optTimeOfDay(column string, v sql.NullString) *models.TimeOfDay {
	if !v.Valid {
		return nil
	}
	parsed, err := models.ParseTimeOfDay(v.String)
	if err != nil {
		d.fail(column, err)
		return nil
	}
	return &parsed
}

func (d *decoder) instant(column string, v sql.NullString) time.Time {
	s := d.text(column, v)
	if !v.Valid {
		return time.Time{}
	}
	parsed, err := models.ParseInstant(s)
	if err != nil {
		d.fail(column, err)
	}
	return parsed
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTimeOfDay(t *models.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

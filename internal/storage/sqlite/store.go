// Package sqlite implements the storage repositories on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/daybook/internal/constants"
	"github.com/julianstephens/daybook/internal/live"
	"github.com/julianstephens/daybook/internal/logger"
	"github.com/julianstephens/daybook/internal/migration"
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage"
	"github.com/julianstephens/daybook/migrations"
)

var _ storage.Provider = (*Store)(nil)

// Options controls how Open prepares the database.
type Options struct {
	Path        string
	BusyTimeout time.Duration

	// DestructiveFallback drops and recreates every table when the file holds
	// a schema version the embedded migrations cannot upgrade.
	DestructiveFallback bool

	// SeedCategories inserts the default expense categories when the
	// database is created.
	SeedCategories bool

	// LiveDebounce widens the coalescing window of live listings.
	LiveDebounce time.Duration

	// Log receives human-readable migration progress. May be nil.
	Log func(string)
}

// Store owns the database handle, the writer lock and the live query
// tracker. Repositories are created once at open and share all three.
type Store struct {
	path    string
	db      *sql.DB
	writeMu sync.Mutex
	tracker *live.Tracker
	result  migration.Result

	notes     *NoteRepo
	routines  *RoutineRepo
	schedules *ScheduleRepo
	expenses  *ExpenseRepo
}

// Open opens or creates the database at opts.Path, migrates it to the latest
// schema version and validates the result. A schema that does not match is
// reported as *migration.SchemaMismatchError and the store is not opened.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("database path is required")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = constants.DefaultBusyTimeout
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(opts.Path, opts.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		path:    opts.Path,
		db:      db,
		tracker: live.NewTracker(opts.LiveDebounce),
	}
	s.notes = &NoteRepo{s: s}
	s.routines = &RoutineRepo{s: s}
	s.schedules = &ScheduleRepo{s: s}
	s.expenses = &ExpenseRepo{s: s}

	runner, err := s.Runner()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	res, err := runner.Open(ctx, migration.Options{
		DestructiveFallback: opts.DestructiveFallback,
		Log:                 opts.Log,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	s.result = res

	if res.Created && opts.SeedCategories {
		if err := s.seedCategories(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logger.Info("Opened database", "path", opts.Path, "version", res.Version,
		"created", res.Created, "reset", res.Reset, "applied", res.Applied)
	return s, nil
}

// dsn builds a modernc connection string. Pragmas are applied to every
// pooled connection.
func dsn(path string, busy time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Runner returns a migration runner over the embedded SQLite migrations.
func (s *Store) Runner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, Schema), nil
}

func (s *Store) seedCategories(ctx context.Context) error {
	return s.withTx(ctx, []string{tableExpenseCategories}, func(ctx context.Context, tx *sql.Tx) error {
		for _, c := range models.DefaultExpenseCategories() {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO expense_categories (name, icon_name, color_hex, monthly_budget)
				VALUES (?, ?, ?, ?)`,
				c.Name, c.IconName, c.ColorHex, c.MonthlyBudget); err != nil {
				return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

func (s *Store) Notes() storage.NoteRepository         { return s.notes }
func (s *Store) Routines() storage.RoutineRepository   { return s.routines }
func (s *Store) Schedules() storage.ScheduleRepository { return s.schedules }
func (s *Store) Expenses() storage.ExpenseRepository   { return s.expenses }

// Tracker returns the live query registry notified by every write.
func (s *Store) Tracker() *live.Tracker {
	return s.tracker
}

// OpenResult reports what Open did to the schema.
func (s *Store) OpenResult() migration.Result {
	return s.result
}

func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close ends all live subscriptions and closes the database.
func (s *Store) Close() error {
	s.tracker.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/daybook/internal/logger"
)

// ErrNoMigrationPath is returned when the database holds a schema version the
// embedded migrations cannot upgrade from.
var ErrNoMigrationPath = errors.New("no migration path from the current schema version")

// ErrNewerVersion is returned when the database was written by a newer build
// with migrations this one does not have. Such a database is never reset.
var ErrNewerVersion = errors.New("database schema is newer than this build supports")

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Runner manages database schema migrations
type Runner struct {
	db     *sql.DB
	fs     fs.FS
	schema *Schema
}

// NewRunner creates a new migration runner. schema may be nil when only
// versioning is needed.
func NewRunner(db *sql.DB, migrationFS fs.FS, schema *Schema) *Runner {
	if schema == nil {
		schema = &Schema{}
	}
	return &Runner{
		db:     db,
		fs:     migrationFS,
		schema: schema,
	}
}

// EnsureSchemaVersionTable creates the schema_version table if it doesn't exist
func (r *Runner) EnsureSchemaVersionTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			identity_hash TEXT NOT NULL
		)
	`)
	return err
}

// GetCurrentVersion returns the current schema version and identity hash.
// Returns 0 if no version is set (fresh database)
func (r *Runner) GetCurrentVersion(ctx context.Context) (int, string, error) {
	if err := r.EnsureSchemaVersionTable(ctx); err != nil {
		return 0, "", fmt.Errorf("failed to ensure schema_version table: %w", err)
	}

	var version int
	var hash string
	err := r.db.QueryRowContext(ctx, "SELECT version, identity_hash FROM schema_version").Scan(&version, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", nil
		}
		return 0, "", fmt.Errorf("failed to get current version: %w", err)
	}
	return version, hash, nil
}

func (r *Runner) writeVersion(ctx context.Context, tx *sql.Tx, version int) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("failed to clear version: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, identity_hash) VALUES (?, ?)",
		version, r.schema.Fingerprint()); err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	return nil
}

// ReadMigrationFiles reads and parses migration files from the migrations directory
// Returns migrations sorted by version number
func (r *Runner) ReadMigrationFiles() ([]Migration, error) {
	files, err := fs.ReadDir(r.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		// "001_init.sql" -> 1
		parts := strings.SplitN(file.Name(), "_", 2)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid migration filename format: %s (expected NNN_name.sql)", file.Name())
		}

		version, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid version number in filename %s: %w", file.Name(), err)
		}
		if version < 1 {
			return nil, fmt.Errorf("invalid version number in filename %s: version must be at least 1", file.Name())
		}

		content, err := fs.ReadFile(r.fs, file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(parts[1], ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}

	return migrations, nil
}

// GetLatestVersion returns the highest migration version available
func (r *Runner) GetLatestVersion() (int, error) {
	migrations, err := r.ReadMigrationFiles()
	if err != nil {
		return 0, err
	}

	if len(migrations) == 0 {
		return 0, nil
	}

	return migrations[len(migrations)-1].Version, nil
}

// ApplyMigrations applies all pending migrations up to the latest version in a
// single transaction. Returns the number of migrations applied.
func (r *Runner) ApplyMigrations(ctx context.Context, logFn func(string)) (int, error) {
	if logFn == nil {
		logFn = func(string) {}
	}

	currentVersion, _, err := r.GetCurrentVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}

	migrations, err := r.ReadMigrationFiles()
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations: %w", err)
	}

	if len(migrations) == 0 {
		logFn("No migration files found")
		return 0, nil
	}

	latestVersion := migrations[len(migrations)-1].Version

	if currentVersion > latestVersion {
		return 0, newerVersionError(currentVersion, latestVersion)
	}

	var pending []Migration
	for _, m := range migrations {
		if m.Version > currentVersion {
			pending = append(pending, m)
		}
	}

	if len(pending) == 0 {
		logFn(fmt.Sprintf("Database schema is up to date (version %d)", currentVersion))
		return 0, nil
	}

	if err := r.checkPath(ctx, currentVersion, pending); err != nil {
		return 0, err
	}

	logFn(fmt.Sprintf("Current schema version: %d", currentVersion))
	logFn(fmt.Sprintf("Target schema version: %d", latestVersion))
	logFn(fmt.Sprintf("Applying %d migration(s)...", len(pending)))
	logger.Info("Applying migrations", "from", currentVersion, "to", latestVersion, "count", len(pending))

	startTime := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	for _, m := range pending {
		logFn(fmt.Sprintf("  Applying migration %d: %s", m.Version, m.Name))
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	if err := r.writeVersion(ctx, tx, latestVersion); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit migrations: %w", err)
	}

	logFn(fmt.Sprintf("Applied %d migration(s) in %v", len(pending), time.Since(startTime)))
	return len(pending), nil
}

// checkPath verifies that pending migrations continue the stored version
// without gaps, and that an unversioned database does not already hold tables.
func (r *Runner) checkPath(ctx context.Context, currentVersion int, pending []Migration) error {
	if currentVersion == 0 {
		for _, name := range r.schema.TableNames() {
			exists, err := r.tableExists(ctx, name)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: table %s exists in an unversioned database", ErrNoMigrationPath, name)
			}
		}
	}

	expected := currentVersion + 1
	for _, m := range pending {
		if m.Version != expected {
			return fmt.Errorf("%w: version %d cannot be upgraded, next available migration is %d",
				ErrNoMigrationPath, currentVersion, m.Version)
		}
		expected++
	}
	return nil
}

// ValidateVersion reports ErrNewerVersion when the stored version is past the
// latest embedded migration.
func (r *Runner) ValidateVersion(ctx context.Context) error {
	currentVersion, _, err := r.GetCurrentVersion(ctx)
	if err != nil {
		return err
	}

	latestVersion, err := r.GetLatestVersion()
	if err != nil {
		return err
	}

	if currentVersion > latestVersion {
		return newerVersionError(currentVersion, latestVersion)
	}

	return nil
}

func newerVersionError(current, latest int) error {
	return fmt.Errorf("%w: database is at version %d, latest known is %d", ErrNewerVersion, current, latest)
}

// Validate compares the live database with the expected schema and the stored
// identity hash. It returns a *SchemaMismatchError describing every difference.
func (r *Runner) Validate(ctx context.Context) error {
	_, hash, err := r.GetCurrentVersion(ctx)
	if err != nil {
		return err
	}

	problems, err := diffSchema(ctx, r.db, r.schema)
	if err != nil {
		return err
	}

	if want := r.schema.Fingerprint(); hash != want {
		problems = append(problems, fmt.Sprintf("identity hash is %q, expected %q", hash, want))
	}

	if len(problems) > 0 {
		return &SchemaMismatchError{Problems: problems}
	}
	return nil
}

// Reset drops every table in the schema plus schema_version. All data is lost.
func (r *Runner) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}

	tables := append(r.schema.TableNames(), "schema_version")
	for _, name := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", name)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	logger.Warn("Dropped all tables", "tables", len(tables))
	return nil
}

// Result describes what Open did to the database.
type Result struct {
	Created bool
	Reset   bool
	Applied int
	Version int
}

// Options controls Open.
type Options struct {
	// DestructiveFallback drops and recreates every table when no migration
	// path exists.
	DestructiveFallback bool
	Log                 func(string)
}

// Open brings the database to the latest schema version and validates it. A
// database from a newer build is rejected before anything is written, even
// with DestructiveFallback set.
func (r *Runner) Open(ctx context.Context, opts Options) (Result, error) {
	var res Result

	if err := r.ValidateVersion(ctx); err != nil {
		return res, err
	}

	current, _, err := r.GetCurrentVersion(ctx)
	if err != nil {
		return res, err
	}
	res.Created = current == 0

	applied, err := r.ApplyMigrations(ctx, opts.Log)
	if errors.Is(err, ErrNoMigrationPath) && opts.DestructiveFallback {
		logger.Warn("No migration path, recreating database", "version", current, "error", err)
		if err := r.Reset(ctx); err != nil {
			return res, err
		}
		res.Reset = true
		res.Created = true
		applied, err = r.ApplyMigrations(ctx, opts.Log)
	}
	if err != nil {
		return res, err
	}
	res.Applied = applied

	if err := r.Validate(ctx); err != nil {
		return res, err
	}

	res.Version, _, err = r.GetCurrentVersion(ctx)
	return res, err
}

func (r *Runner) tableExists(ctx context.Context, name string) (bool, error) {
	var count int
	row := r.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?", name)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return db, cleanup
}

func setupTestMigrations(migrations map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for filename, content := range migrations {
		fsys[filename] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

var usersSchema = &Schema{
	Tables: []Table{
		{
			Name: "users",
			Columns: []Column{
				{Name: "id", Type: "TEXT", NotNull: true, PrimaryKey: 1},
				{Name: "name", Type: "TEXT", NotNull: true},
				{Name: "nickname", Type: "TEXT"},
			},
		},
	},
}

const usersDDL = `CREATE TABLE users (id TEXT NOT NULL, name TEXT NOT NULL, nickname TEXT, PRIMARY KEY (id));`

// setVersion stores version as if a migration run had finished at it.
func setVersion(ctx context.Context, r *Runner, version int) error {
	if err := r.EnsureSchemaVersionTable(ctx); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.writeVersion(ctx, tx, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func TestGetCurrentVersion(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_test.sql": "CREATE TABLE test (id INTEGER);",
	}), nil)

	version, hash, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 0 || hash != "" {
		t.Errorf("expected version 0 and empty hash, got %d %q", version, hash)
	}

	if err := setVersion(ctx, runner, 5); err != nil {
		t.Fatalf("setVersion failed: %v", err)
	}

	version, hash, err = runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}
	if hash != (&Schema{}).Fingerprint() {
		t.Errorf("expected identity hash of the empty schema, got %q", hash)
	}
}

func TestReadMigrationFiles(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql":    "CREATE TABLE test1 (id INTEGER);",
		"002_update.sql":  "ALTER TABLE test1 ADD COLUMN name TEXT;",
		"003_another.sql": "CREATE TABLE test2 (id INTEGER);",
		"README.md":       "not a migration",
	}), nil)

	migrations, err := runner.ReadMigrationFiles()
	if err != nil {
		t.Fatalf("ReadMigrationFiles failed: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}

	wantNames := []string{"init", "update", "another"}
	for i, m := range migrations {
		if m.Version != i+1 || m.Name != wantNames[i] {
			t.Errorf("migration %d: expected version %d and name %q, got version %d and name %q",
				i, i+1, wantNames[i], m.Version, m.Name)
		}
	}
}

func TestApplyMigrationsFromScratch(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql":  `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);`,
		"002_posts.sql": `CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, content TEXT);`,
	}), nil)

	count, err := runner.ApplyMigrations(ctx, nil)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 migrations applied, got %d", count)
	}

	version, _, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	for _, table := range []string{"users", "posts"} {
		exists, err := runner.tableExists(ctx, table)
		if err != nil || !exists {
			t.Errorf("%s table was not created", table)
		}
	}
}

func TestApplyMigrationsIncremental(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	fsys := setupTestMigrations(map[string]string{
		"001_init.sql": `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);`,
	})
	runner := NewRunner(db, fsys, nil)

	count, err := runner.ApplyMigrations(ctx, nil)
	if err != nil {
		t.Fatalf("ApplyMigrations (1st) failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied, got %d", count)
	}

	fsys["002_posts.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER);`)}

	count, err = runner.ApplyMigrations(ctx, nil)
	if err != nil {
		t.Fatalf("ApplyMigrations (2nd) failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 more migration applied, got %d", count)
	}

	version, _, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
}

func TestApplyMigrationsNoOp(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql": `CREATE TABLE users (id INTEGER PRIMARY KEY);`,
	}), nil)

	if _, err := runner.ApplyMigrations(ctx, nil); err != nil {
		t.Fatalf("ApplyMigrations (1st) failed: %v", err)
	}

	var messages []string
	count, err := runner.ApplyMigrations(ctx, func(msg string) { messages = append(messages, msg) })
	if err != nil {
		t.Fatalf("ApplyMigrations (2nd) failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 migrations applied on second run, got %d", count)
	}
	if len(messages) != 1 || !strings.Contains(messages[0], "up to date") {
		t.Errorf("unexpected log messages: %v", messages)
	}
}

func TestMigrationRollbackOnError(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql": `CREATE TABLE users (id INTEGER PRIMARY KEY);`,
		"002_broken.sql": `
			CREATE TABLE posts (id INTEGER PRIMARY KEY);
			-- Invalid SQL to cause error
			THIS IS INVALID SQL;
		`,
	}), nil)

	if _, err := runner.ApplyMigrations(ctx, nil); err == nil {
		t.Fatal("ApplyMigrations should have failed with invalid SQL")
	}

	version, _, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 after failed migration, got %d", version)
	}

	// All pending migrations share one transaction, so the first is rolled back too
	for _, table := range []string{"users", "posts"} {
		exists, err := runner.tableExists(ctx, table)
		if err != nil {
			t.Fatalf("tableExists failed: %v", err)
		}
		if exists {
			t.Errorf("table %s should not exist after failed migration", table)
		}
	}
}

func TestValidateVersionNewerDatabase(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql": `CREATE TABLE users (id INTEGER PRIMARY KEY);`,
	}), nil)

	if err := setVersion(ctx, runner, 10); err != nil {
		t.Fatalf("setVersion failed: %v", err)
	}

	if err := runner.ValidateVersion(ctx); !errors.Is(err, ErrNewerVersion) {
		t.Fatalf("ValidateVersion = %v, want ErrNewerVersion", err)
	}

	if _, err := runner.ApplyMigrations(ctx, nil); !errors.Is(err, ErrNewerVersion) {
		t.Fatalf("ApplyMigrations = %v, want ErrNewerVersion", err)
	}
}

func TestOpenRejectsNewerDatabaseWithoutReset(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql": usersDDL,
	}), usersSchema)

	if _, err := db.ExecContext(ctx, usersDDL); err != nil {
		t.Fatalf("failed to create users table: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO users (id, name) VALUES ('u1', 'ada')`); err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	if err := setVersion(ctx, runner, 4); err != nil {
		t.Fatalf("setVersion failed: %v", err)
	}

	_, err := runner.Open(ctx, Options{DestructiveFallback: true})
	if !errors.Is(err, ErrNewerVersion) {
		t.Fatalf("Open = %v, want ErrNewerVersion", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("newer database was modified, users = %d", count)
	}
}

func TestGetLatestVersion(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql":   `CREATE TABLE users (id INTEGER);`,
		"003_posts.sql":  `CREATE TABLE posts (id INTEGER);`,
		"002_update.sql": `ALTER TABLE users ADD COLUMN name TEXT;`,
	}), nil)

	latestVersion, err := runner.GetLatestVersion()
	if err != nil {
		t.Fatalf("GetLatestVersion failed: %v", err)
	}
	if latestVersion != 3 {
		t.Errorf("expected latest version 3, got %d", latestVersion)
	}
}

func TestMigrationFilenameValidation(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "missing underscore",
			files:   map[string]string{"001init.sql": `CREATE TABLE users (id INTEGER);`},
			wantErr: "invalid migration filename format",
		},
		{
			name:    "zero version",
			files:   map[string]string{"000_init.sql": `CREATE TABLE users (id INTEGER);`},
			wantErr: "version must be at least 1",
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"001_init.sql":  `CREATE TABLE users (id INTEGER);`,
				"001_other.sql": `CREATE TABLE posts (id INTEGER);`,
			},
			wantErr: "duplicate migration version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			runner := NewRunner(db, setupTestMigrations(tt.files), nil)

			_, err := runner.ReadMigrationFiles()
			if err == nil {
				t.Fatal("ReadMigrationFiles should have failed")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestNoMigrationPathWithGap(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"003_squashed.sql": usersDDL,
	}), usersSchema)

	if err := setVersion(ctx, runner, 1); err != nil {
		t.Fatalf("setVersion failed: %v", err)
	}

	_, err := runner.ApplyMigrations(ctx, nil)
	if !errors.Is(err, ErrNoMigrationPath) {
		t.Fatalf("expected ErrNoMigrationPath, got %v", err)
	}
}

func TestNoMigrationPathUnversionedTables(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := db.Exec(`CREATE TABLE users (legacy INTEGER)`); err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql": usersDDL,
	}), usersSchema)

	_, err := runner.Open(ctx, Options{})
	if !errors.Is(err, ErrNoMigrationPath) {
		t.Fatalf("expected ErrNoMigrationPath, got %v", err)
	}
}

func TestOpenDestructiveFallback(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := db.Exec(`CREATE TABLE users (legacy INTEGER)`); err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO users (legacy) VALUES (1)`); err != nil {
		t.Fatalf("failed to insert legacy row: %v", err)
	}

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql": usersDDL,
	}), usersSchema)

	res, err := runner.Open(ctx, Options{DestructiveFallback: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !res.Reset || !res.Created {
		t.Errorf("expected reset and created, got %+v", res)
	}
	if res.Version != 1 || res.Applied != 1 {
		t.Errorf("expected version 1 with 1 applied migration, got %+v", res)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected legacy rows to be dropped, got %d", count)
	}
}

func TestOpenFreshAndReopen(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql": usersDDL,
	}), usersSchema)

	res, err := runner.Open(ctx, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !res.Created || res.Applied != 1 {
		t.Errorf("expected fresh database with 1 migration, got %+v", res)
	}

	res, err = runner.Open(ctx, Options{})
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if res.Created || res.Applied != 0 || res.Version != 1 {
		t.Errorf("expected untouched database at version 1, got %+v", res)
	}
}

func TestValidateDetectsHandEditedTable(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql": usersDDL,
	}), usersSchema)

	if _, err := runner.Open(ctx, Options{}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Rebuild the table with a nullable name and an extra column
	stmts := []string{
		`DROP TABLE users`,
		`CREATE TABLE users (id TEXT NOT NULL, name TEXT, age INTEGER, PRIMARY KEY (id))`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to execute %q: %v", stmt, err)
		}
	}

	err := runner.Validate(ctx)
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}

	report := mismatch.Error()
	for _, want := range []string{"users.name has notNull=false", "users.nickname is missing", "users.age is not expected"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestValidateDetectsIdentityHashDrift(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	runner := NewRunner(db, setupTestMigrations(map[string]string{
		"001_init.sql": usersDDL,
	}), usersSchema)

	if _, err := runner.Open(ctx, Options{}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := db.Exec(`UPDATE schema_version SET identity_hash = 'stale'`); err != nil {
		t.Fatalf("failed to tamper identity hash: %v", err)
	}

	err := runner.Validate(ctx)
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if len(mismatch.Problems) != 1 || !strings.Contains(mismatch.Problems[0], "identity hash") {
		t.Errorf("unexpected problems: %v", mismatch.Problems)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := usersSchema.Fingerprint()
	b := usersSchema.Fingerprint()
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s != %s", a, b)
	}

	changed := &Schema{Tables: []Table{{
		Name:    "users",
		Columns: []Column{{Name: "id", Type: "TEXT", NotNull: true, PrimaryKey: 1}},
	}}}
	if changed.Fingerprint() == a {
		t.Error("different schemas produced the same fingerprint")
	}
}

package system

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/daybook/internal/backup"
	"github.com/julianstephens/daybook/internal/cli"
	"github.com/julianstephens/daybook/internal/storage/sqlite"
)

type DoctorCmd struct{}

// errWarning marks a check result that is reported but does not fail the run.
var errWarning = errors.New("warning")

type doctorCheck struct {
	name    string
	needsDB bool
	run     func(ctx context.Context, store *sqlite.Store) error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println(cli.TitleStyle.Render("Running diagnostics..."))
	ctx.Println()

	hasError := false
	store, openErr := ctx.Store()
	if openErr != nil {
		ctx.Printf("%s Database reachable: FAIL\n", cli.FailStyle.Render("❌"))
		ctx.Printf("   Error: %v\n", openErr)
		hasError = true
	} else {
		ctx.Printf("%s Database reachable: OK\n", cli.OKStyle.Render("✓"))
	}

	checks := []doctorCheck{
		{name: "Schema version", needsDB: true, run: checkSchemaVersion},
		{name: "Schema definition", needsDB: true, run: checkSchemaDefinition},
		{name: "File integrity", needsDB: true, run: checkIntegrity},
		{name: "Record decoding", needsDB: true, run: checkRecords},
		{name: "Routine completions", needsDB: true, run: checkOrphanedCompletions},
		{name: "Backups present", run: func(context.Context, *sqlite.Store) error {
			return checkBackupsPresent(ctx.DBPath())
		}},
		{name: "Clock/timezone", run: func(context.Context, *sqlite.Store) error {
			return checkClockTimezone()
		}},
	}

	for _, check := range checks {
		if check.needsDB && store == nil {
			ctx.Printf("%s %s: SKIPPED (database not reachable)\n", cli.DimStyle.Render("⊘"), check.name)
			continue
		}
		err := check.run(ctx.Ctx(), store)
		switch {
		case err == nil:
			ctx.Printf("%s %s: OK\n", cli.OKStyle.Render("✓"), check.name)
		case errors.Is(err, errWarning):
			ctx.Printf("%s %s: WARNING\n", cli.WarnStyle.Render("⚠"), check.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("%s %s: FAIL\n", cli.FailStyle.Render("❌"), check.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	if store != nil {
		if err := printCounts(ctx, store); err != nil {
			return err
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.Println("All diagnostics passed!")
	return nil
}

func checkSchemaVersion(ctx context.Context, store *sqlite.Store) error {
	runner, err := store.Runner()
	if err != nil {
		return err
	}
	current, _, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	latest, err := runner.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest schema version: %w", err)
	}
	if current != latest {
		return fmt.Errorf("database schema version is %d, expected %d", current, latest)
	}
	return nil
}

func checkSchemaDefinition(ctx context.Context, store *sqlite.Store) error {
	runner, err := store.Runner()
	if err != nil {
		return err
	}
	return runner.Validate(ctx)
}

func checkIntegrity(ctx context.Context, store *sqlite.Store) error {
	problems, err := store.IntegrityCheck(ctx)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("integrity check reported: %s", strings.Join(problems, "; "))
	}
	return nil
}

// checkRecords reads every row through the repositories so that values which
// no longer decode are reported.
func checkRecords(ctx context.Context, store *sqlite.Store) error {
	if _, err := store.Notes().ListAll(ctx); err != nil {
		return err
	}
	if _, err := store.Notes().ListTrash(ctx); err != nil {
		return err
	}
	if _, err := store.Routines().ListAll(ctx); err != nil {
		return err
	}
	if _, err := store.Routines().AllCompletions(ctx); err != nil {
		return err
	}
	if _, err := store.Schedules().List(ctx); err != nil {
		return err
	}
	if _, err := store.Expenses().List(ctx); err != nil {
		return err
	}
	_, err := store.Expenses().ListCategories(ctx)
	return err
}

func checkOrphanedCompletions(ctx context.Context, store *sqlite.Store) error {
	var orphaned int
	err := store.DB().QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM routine_completions c
		LEFT JOIN routines r ON c.routine_id = r.id
		WHERE r.id IS NULL`).Scan(&orphaned)
	if err != nil {
		return fmt.Errorf("failed to check orphaned completions: %w", err)
	}
	if orphaned > 0 {
		return fmt.Errorf("%w: found %d completions referencing missing routines", errWarning, orphaned)
	}
	return nil
}

func checkBackupsPresent(dbPath string) error {
	mgr := backup.NewManager(dbPath)
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("%w: no backups found, consider creating one with 'daybook backup create'", errWarning)
	}
	return nil
}

func checkClockTimezone() error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

func printCounts(ctx *cli.Context, store *sqlite.Store) error {
	counts, err := store.TableCounts(ctx.Ctx())
	if err != nil {
		return err
	}
	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	ctx.Println()
	ctx.Println(cli.TitleStyle.Render("Rows per table:"))
	for _, table := range tables {
		ctx.Printf("  %-20s %d\n", table, counts[table])
	}
	return nil
}

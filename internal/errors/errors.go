// Package errors formats command failures for the terminal.
package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/daybook/internal/logger"
	"github.com/julianstephens/daybook/internal/migration"
	"github.com/julianstephens/daybook/internal/storage"
)

// Format formats an error message with a consistent "Error: " prefix. Known
// storage failures get a second line suggesting what to do next.
func Format(err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("Error: %v", err)
	if hint := Hint(err); hint != "" {
		msg += "\n       " + hint
	}
	return msg
}

// Hint returns a suggested next step for err, or "" when there is none.
func Hint(err error) string {
	var mismatch *migration.SchemaMismatchError
	switch {
	case errors.As(err, &mismatch):
		return "The database schema was changed outside daybook. Restore a backup with 'daybook backup restore'."
	case errors.Is(err, migration.ErrNewerVersion):
		return "This database was written by a newer daybook. Upgrade daybook to open it."
	case errors.Is(err, migration.ErrNoMigrationPath):
		return "Re-run with DAYBOOK_DESTRUCTIVE_FALLBACK=1 to recreate the database (all data is lost)."
	case errors.Is(err, storage.ErrCorrupt):
		return "Run 'daybook doctor' to check the database."
	case errors.Is(err, storage.ErrInvalid):
		return "Dates must be real calendar dates in YYYY-MM-DD form."
	case errors.Is(err, storage.ErrNotFound):
		return "Check the id with the matching list command."
	}
	return ""
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

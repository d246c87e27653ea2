package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/julianstephens/daybook/internal/logger"
)

// ClearAllTables deletes every row of every data table in one transaction and
// then reclaims the freed pages. The schema and its version are kept.
func (s *Store) ClearAllTables(ctx context.Context) error {
	err := s.withTx(ctx, allTables, func(ctx context.Context, tx *sql.Tx) error {
		for _, table := range allTables {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %q", table)); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.Vacuum(ctx); err != nil {
		return err
	}
	logger.Warn("Cleared all tables", "path", s.path)
	return nil
}

// Vacuum rebuilds the database file. It cannot run inside a transaction.
func (s *Store) Vacuum(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

// TableCounts returns the number of rows in each data table.
func (s *Store) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(allTables))
	for _, table := range allTables {
		var n int64
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// IntegrityCheck runs SQLite's integrity check and returns the problems it
// reports. An empty result means the file is healthy.
func (s *Store) IntegrityCheck(ctx context.Context) ([]string, error) {
	problems, err := queryStrings(ctx, s.db, "PRAGMA integrity_check")
	if err != nil {
		return nil, fmt.Errorf("failed to check integrity: %w", err)
	}
	if len(problems) == 1 && problems[0] == "ok" {
		return nil, nil
	}
	return problems, nil
}

// Tables returns the data table names.
func Tables() []string {
	return append([]string(nil), allTables...)
}

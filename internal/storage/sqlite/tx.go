package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/daybook/internal/storage"
)

// withTx runs fn in a transaction while holding the writer lock. It commits on
// success and rolls back on error or panic. Observers of tables are notified
// only after a successful commit.
func (s *Store) withTx(ctx context.Context, tables []string, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("failed to commit transaction: %w", err)
			return
		}
		s.tracker.Notify(tables...)
	}()

	return fn(ctx, tx)
}

// exec runs a single statement in its own transaction.
func (s *Store) exec(ctx context.Context, table, query string, args ...any) error {
	return s.withTx(ctx, []string{table}, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// execOne runs a single statement that must touch exactly the row identified
// by key. Zero affected rows roll the transaction back with ErrNotFound.
func (s *Store) execOne(ctx context.Context, table, key, query string, args ...any) error {
	return s.withTx(ctx, []string{table}, func(ctx context.Context, tx *sql.Tx) error {
		return execExpectingRow(ctx, tx, table, key, query, args...)
	})
}

func execExpectingRow(ctx context.Context, tx *sql.Tx, table, key, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.NotFound(table, key)
	}
	return nil
}

// queryList runs query and decodes every row with scan. The returned slice is
// never nil.
func queryList[T any](ctx context.Context, db *sql.DB, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// queryOne decodes at most one row. A missing row is reported with found=false
// and no error.
func queryOne[T any](ctx context.Context, db *sql.DB, scan func(rowScanner) (T, error), query string, args ...any) (T, bool, error) {
	var zero T
	v, err := scan(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// queryStrings returns the first column of every row.
func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	return queryList(ctx, db, func(r rowScanner) (string, error) {
		var v sql.NullString
		if err := r.Scan(&v); err != nil {
			return "", err
		}
		return v.String, nil
	}, query, args...)
}

package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
)

// Column describes one expected column. PrimaryKey is the 1-based position of
// the column in the primary key, or 0 when it is not part of it.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey int
}

// Table describes one expected table.
type Table struct {
	Name    string
	Columns []Column
}

// Schema is the set of tables a database is expected to contain.
type Schema struct {
	Tables []Table
}

// TableNames returns the table names in declaration order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Fingerprint returns a stable identity hash for the schema definition.
func (s *Schema) Fingerprint() string {
	var b strings.Builder
	for _, t := range s.Tables {
		b.WriteString(t.Name)
		b.WriteByte('(')
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%s:%s:%t:%d", c.Name, strings.ToUpper(c.Type), c.NotNull, c.PrimaryKey)
		}
		b.WriteString(");")
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// SchemaMismatchError reports every difference found between the live
// database and the expected schema.
type SchemaMismatchError struct {
	Problems []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("database schema does not match the expected definition:\n  - %s",
		strings.Join(e.Problems, "\n  - "))
}

type liveColumn struct {
	name    string
	ctype   string
	notNull bool
	pk      int
}

func readTableInfo(ctx context.Context, db *sql.DB, table string) ([]liveColumn, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []liveColumn
	for rows.Next() {
		var cid, notNull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info for %s: %w", table, err)
		}
		cols = append(cols, liveColumn{name: name, ctype: ctype, notNull: notNull == 1, pk: pk})
	}
	return cols, rows.Err()
}

// diffSchema compares the live tables with the expected schema.
func diffSchema(ctx context.Context, db *sql.DB, schema *Schema) ([]string, error) {
	var problems []string

	for _, table := range schema.Tables {
		live, err := readTableInfo(ctx, db, table.Name)
		if err != nil {
			return nil, err
		}
		if len(live) == 0 {
			problems = append(problems, fmt.Sprintf("table %s is missing", table.Name))
			continue
		}

		byName := make(map[string]liveColumn, len(live))
		for _, c := range live {
			byName[c.name] = c
		}

		for _, want := range table.Columns {
			got, ok := byName[want.Name]
			if !ok {
				problems = append(problems, fmt.Sprintf("%s.%s is missing", table.Name, want.Name))
				continue
			}
			delete(byName, want.Name)

			if !strings.EqualFold(got.ctype, want.Type) {
				problems = append(problems, fmt.Sprintf("%s.%s has type %s, expected %s",
					table.Name, want.Name, got.ctype, want.Type))
			}
			if got.notNull != want.NotNull {
				problems = append(problems, fmt.Sprintf("%s.%s has notNull=%t, expected %t",
					table.Name, want.Name, got.notNull, want.NotNull))
			}
			if got.pk != want.PrimaryKey {
				problems = append(problems, fmt.Sprintf("%s.%s has primary key position %d, expected %d",
					table.Name, want.Name, got.pk, want.PrimaryKey))
			}
		}

		for _, c := range live {
			if _, extra := byName[c.name]; extra {
				problems = append(problems, fmt.Sprintf("%s.%s is not expected", table.Name, c.name))
			}
		}
	}

	return problems, nil
}

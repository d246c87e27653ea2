package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/julianstephens/daybook/internal/constants"
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage"
	"github.com/julianstephens/daybook/internal/storage/sqlite"
)

func openStore(t *testing.T, seed bool) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Options{
		Path:           filepath.Join(t.TempDir(), "export.db"),
		SeedCategories: seed,
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func populate(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	ts := func(day, hour int) time.Time {
		return time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
	}
	work := "work"
	desc := "lunch with team"

	notes := []models.Note{
		{ID: "n1", Title: "pinned", Content: "# heading", IsPinned: true, Category: &work, CreatedAt: ts(1, 9), UpdatedAt: ts(2, 9)},
		{ID: "n2", Title: "archived", IsArchived: true, CreatedAt: ts(1, 10), UpdatedAt: ts(1, 10)},
		{ID: "n3", Title: "trashed", IsDeleted: true, CreatedAt: ts(1, 11), UpdatedAt: ts(3, 11)},
	}
	for _, n := range notes {
		if err := store.Notes().Insert(ctx, n); err != nil {
			t.Fatalf("failed to insert note: %v", err)
		}
	}

	reminder := models.TimeOfDay{Hour: 7, Minute: 30}
	if err := store.Routines().Insert(ctx, models.Routine{
		ID: "r1", Title: "stretch", Frequency: "daily", ReminderTime: &reminder, CreatedAt: ts(1, 6), IsActive: true,
	}); err != nil {
		t.Fatalf("failed to insert routine: %v", err)
	}
	for i, day := range []int{1, 2} {
		c := models.RoutineCompletion{
			ID:             []string{"c1", "c2"}[i],
			RoutineID:      "r1",
			CompletionDate: models.NewDate(2024, time.March, day),
			CompletedAt:    ts(day, 7),
		}
		if err := store.Routines().InsertCompletion(ctx, c); err != nil {
			t.Fatalf("failed to insert completion: %v", err)
		}
	}

	if err := store.Schedules().Insert(ctx, models.Schedule{
		ID: "s1", Title: "standup", StartTime: models.TimeOfDay{Hour: 9}, EndTime: models.TimeOfDay{Hour: 9, Minute: 15},
		Date: models.NewDate(2024, time.March, 4), Category: "work", ReminderMinutes: 5, CreatedAt: ts(1, 8),
	}); err != nil {
		t.Fatalf("failed to insert schedule: %v", err)
	}

	if err := store.Expenses().Insert(ctx, models.Expense{
		ID: "e1", Title: "sandwich", Amount: 10.50, Category: "Food", Date: models.NewDate(2024, time.March, 4),
		Description: &desc, CreatedAt: ts(4, 12),
	}); err != nil {
		t.Fatalf("failed to insert expense: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := openStore(t, true)
			populate(t, src)

			var buf bytes.Buffer
			exported, err := Export(ctx, src, &buf, ExportOptions{Compress: compress})
			if err != nil {
				t.Fatalf("Export failed: %v", err)
			}
			if got := bytes.HasPrefix(buf.Bytes(), zstdMagic); got != compress {
				t.Errorf("zstd framing = %v, want %v", got, compress)
			}
			if len(exported.Notes) != 3 {
				t.Errorf("expected trashed notes to be exported too, got %d notes", len(exported.Notes))
			}

			dst := openStore(t, false)
			sum, err := Import(ctx, dst, &buf)
			if err != nil {
				t.Fatalf("Import failed: %v", err)
			}
			want := ImportSummary{
				Notes:              3,
				Routines:           1,
				RoutineCompletions: 2,
				Schedules:          1,
				Expenses:           1,
				ExpenseCategories:  len(models.DefaultExpenseCategories()),
			}
			if diff := cmp.Diff(want, sum); diff != "" {
				t.Errorf("import summary mismatch (-want +got):\n%s", diff)
			}

			reread, err := Collect(ctx, dst)
			if err != nil {
				t.Fatalf("Collect failed: %v", err)
			}
			if diff := cmp.Diff(exported, reread, cmpopts.IgnoreFields(Document{}, "ExportDate")); diff != "" {
				t.Errorf("round trip mismatch (-exported +imported):\n%s", diff)
			}
		})
	}
}

func TestImportIsAnUpsert(t *testing.T) {
	ctx := context.Background()
	src := openStore(t, false)
	populate(t, src)

	var buf bytes.Buffer
	if _, err := Export(ctx, src, &buf, ExportOptions{}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	data := buf.Bytes()

	// Importing twice must not duplicate anything.
	for i := 0; i < 2; i++ {
		if _, err := Import(ctx, src, bytes.NewReader(data)); err != nil {
			t.Fatalf("Import #%d failed: %v", i, err)
		}
	}
	all, err := src.Routines().AllCompletions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 completions after repeated import, got %d", len(all))
	}
}

func TestImportRejectsMissingDates(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"expense", `{"expenses":[{"id":"x","title":"t","amount":1,"category":"Food","createdAt":"2024-03-01T00:00:00Z"}]}`},
		{"schedule", `{"schedules":[{"id":"x","title":"t","startTime":"09:00","endTime":"10:00","category":"General","createdAt":"2024-03-01T00:00:00Z"}]}`},
		{"completion", `{"routineCompletions":[{"id":"x","routineId":"r1","completedAt":"2024-03-01T00:00:00Z"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := openStore(t, false)

			// The note in the same document must not be written either.
			doc := strings.Replace(tt.doc, "{", `{"notes":[{"id":"n1","title":"kept out","content":"","createdAt":"2024-03-01T00:00:00Z","updatedAt":"2024-03-01T00:00:00Z"}],`, 1)
			_, err := Import(ctx, store, strings.NewReader(doc))
			if !errors.Is(err, storage.ErrInvalid) {
				t.Fatalf("Import error = %v, want ErrInvalid", err)
			}

			reread, err := Collect(ctx, store)
			if err != nil {
				t.Fatalf("Collect after rejected import failed: %v", err)
			}
			if n := len(reread.Notes) + len(reread.Expenses) + len(reread.Schedules) + len(reread.RoutineCompletions); n != 0 {
				t.Errorf("rejected import wrote %d records", n)
			}
		})
	}
}

func TestExportDocumentShape(t *testing.T) {
	ctx := context.Background()
	src := openStore(t, false)
	populate(t, src)

	var buf bytes.Buffer
	if _, err := Export(ctx, src, &buf, ExportOptions{Indent: true}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("export is not a JSON object: %v", err)
	}
	for _, key := range []string{"version", "exportDate", "notes", "routines", "routineCompletions", "schedules", "expenses", "expenseCategories"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("export is missing key %q", key)
		}
	}
	var version string
	if err := json.Unmarshal(raw["version"], &version); err != nil || version != constants.ExportFormatVersion {
		t.Errorf("version = %q (%v), want %q", version, err, constants.ExportFormatVersion)
	}
}

func TestDecodeIgnoresUnknownKeys(t *testing.T) {
	input := `{"version":"1.0","notes":[{"id":"n1","title":"t","content":"","isPinned":false,` +
		`"createdAt":"2024-03-01T09:00:00Z","updatedAt":"2024-03-01T09:00:00Z","isArchived":false,"isDeleted":false,"mood":"ok"}],` +
		`"theme":"dark"}`

	doc, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(doc.Notes) != 1 || doc.Notes[0].ID != "n1" {
		t.Errorf("unexpected notes: %+v", doc.Notes)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode(strings.NewReader("not json")); err == nil {
		t.Error("expected error decoding garbage")
	}
	if _, err := Decode(strings.NewReader("")); err == nil {
		t.Error("expected error decoding empty input")
	}
}

// TestBackupRestoreWorkflow runs backup, modify, restore, and reopen through
// the store.
func TestBackupRestoreWorkflow(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "workflow.db")

	store, err := sqlite.Open(ctx, sqlite.Options{Path: dbPath, SeedCategories: true})
	if err != nil {
		t.Fatal(err)
	}
	populate(t, store)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(dbPath)
	mgr.now = steppingClock()
	backupPath, err := mgr.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	store, err = sqlite.Open(ctx, sqlite.Options{Path: dbPath})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.ClearAllTables(ctx); err != nil {
		t.Fatalf("ClearAllTables failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := mgr.RestoreBackup(ctx, backupPath); err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}

	store, err = sqlite.Open(ctx, sqlite.Options{Path: dbPath})
	if err != nil {
		t.Fatalf("failed to open restored database: %v", err)
	}
	defer store.Close()

	if store.OpenResult().Created {
		t.Error("restored database should not be reported as newly created")
	}
	note, found, err := store.Notes().Get(ctx, "n1")
	if err != nil || !found {
		t.Fatalf("expected note n1 after restore, found=%v err=%v", found, err)
	}
	if note.Title != "pinned" {
		t.Errorf("restored note title = %q, want %q", note.Title, "pinned")
	}
	total, ok, err := store.Expenses().SumInRange(ctx, models.NewDate(2024, time.March, 1), models.NewDate(2024, time.March, 31))
	if err != nil || !ok || total != 10.50 {
		t.Errorf("restored expense sum = %v ok=%v err=%v, want 10.50", total, ok, err)
	}
}

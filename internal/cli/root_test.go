package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daybook/internal/backup"
	"github.com/julianstephens/daybook/internal/config"
	"github.com/julianstephens/daybook/internal/models"
)

func setupTestContext(t *testing.T, input string) (*Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "test.db")
	cfg.Logging.Dir = filepath.Join(dir, "logs")

	var out bytes.Buffer
	ctx := NewContext(context.Background(), cfg, &out, strings.NewReader(input))
	t.Cleanup(func() { ctx.Close() })
	return ctx, &out
}

func TestStoreIsOpenedOnceAndClosed(t *testing.T) {
	ctx, _ := setupTestContext(t, "")

	first, err := ctx.Store()
	require.NoError(t, err)
	second, err := ctx.Store()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.True(t, first.OpenResult().Created)

	require.NoError(t, ctx.Close())
	require.NoError(t, ctx.Close())

	reopened, err := ctx.Store()
	require.NoError(t, err)
	assert.NotSame(t, first, reopened)
	assert.False(t, reopened.OpenResult().Created)
}

func TestStoreOptionsFollowConfig(t *testing.T) {
	ctx, _ := setupTestContext(t, "")
	ctx.Config.Database.DestructiveFallback = true
	ctx.Config.Database.SeedCategories = false
	ctx.Config.Live.Debounce = "40ms"

	opts := ctx.StoreOptions()
	assert.Equal(t, ctx.Config.Database.Path, opts.Path)
	assert.True(t, opts.DestructiveFallback)
	assert.False(t, opts.SeedCategories)
	assert.Equal(t, "40ms", opts.LiveDebounce.String())
	assert.NotNil(t, opts.Log)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			ctx, out := setupTestContext(t, tt.input)
			got, err := ctx.Confirm("Proceed?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Proceed? [y/N]: ")
		})
	}
}

func TestConfirmRefusesNonTerminalStdin(t *testing.T) {
	orig := isTerminal
	isTerminal = func(int) bool { return false }
	defer func() { isTerminal = orig }()

	ctx, _ := setupTestContext(t, "")
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()
	ctx.In = f

	_, err = ctx.Confirm("Proceed?")
	assert.True(t, errors.Is(err, ErrNotInteractive))
}

func TestPerformAutomaticBackup(t *testing.T) {
	ctx, _ := setupTestContext(t, "")
	mgr := backup.NewManager(ctx.DBPath())

	// No database yet: nothing to back up and no error.
	ctx.PerformAutomaticBackup()
	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)

	_, err = ctx.Store()
	require.NoError(t, err)

	ctx.Config.Backup.Auto = false
	ctx.PerformAutomaticBackup()
	backups, err = mgr.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)

	ctx.Config.Backup.Auto = true
	ctx.PerformAutomaticBackup()
	backups, err = mgr.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestParseDate(t *testing.T) {
	today := models.Today()

	tests := []struct {
		in   string
		want models.Date
	}{
		{"", today},
		{"today", today},
		{"Yesterday", today.AddDays(-1)},
		{"tomorrow", today.AddDays(1)},
		{"2024-02-29", models.NewDate(2024, 2, 29)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestParseMonth(t *testing.T) {
	year, month, err := ParseMonth("2024-03")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 3, month)

	_, _, err = ParseMonth("2024-13")
	assert.Error(t, err)

	year, month, err = ParseMonth("")
	require.NoError(t, err)
	assert.NotZero(t, year)
	assert.True(t, month >= 1 && month <= 12)
}

func TestOptionalString(t *testing.T) {
	assert.Nil(t, OptionalString(""))
	require.NotNil(t, OptionalString("x"))
	assert.Equal(t, "x", Deref(OptionalString("x")))
	assert.Equal(t, "", Deref(nil))
}

func TestFormatters(t *testing.T) {
	category := "work"
	note := models.Note{ID: "n1", Title: "plan", IsPinned: true, Category: &category, IsArchived: true}
	line := FormatNote(note)
	assert.Contains(t, line, "n1")
	assert.Contains(t, line, "plan")
	assert.Contains(t, line, "work")
	assert.Contains(t, line, "archived")
	assert.True(t, strings.HasPrefix(line, "*"))

	schedule := models.Schedule{
		ID: "s1", Title: "standup", Date: models.NewDate(2024, 3, 4),
		StartTime: models.TimeOfDay{Hour: 9}, EndTime: models.TimeOfDay{Hour: 9, Minute: 15}, IsCompleted: true,
	}
	line = FormatSchedule(schedule)
	assert.Contains(t, line, "[x]")
	assert.Contains(t, line, "2024-03-04 09:00-09:15")

	expense := models.Expense{ID: "e1", Title: "lunch", Amount: 10.5, Category: "Food", Date: models.NewDate(2024, 3, 4)}
	assert.Contains(t, FormatExpense(expense), "10.50")
}

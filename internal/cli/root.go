// Package cli holds the state shared by daybook commands.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/julianstephens/daybook/internal/backup"
	"github.com/julianstephens/daybook/internal/config"
	"github.com/julianstephens/daybook/internal/logger"
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage/sqlite"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// ErrNotInteractive is returned by Confirm when stdin cannot answer a prompt.
var ErrNotInteractive = errors.New("confirmation required but stdin is not a terminal (pass --yes)")

// Context is passed to every command's Run method. The store is opened on
// first use so that commands which replace the database file can run with
// it closed.
type Context struct {
	Config *config.Config
	Out    io.Writer
	In     io.Reader

	ctx   context.Context
	store *sqlite.Store
}

// NewContext builds a command context. Nil out and in default to stdout and
// stdin.
func NewContext(ctx context.Context, cfg *config.Config, out io.Writer, in io.Reader) *Context {
	if out == nil {
		out = os.Stdout
	}
	if in == nil {
		in = os.Stdin
	}
	return &Context{Config: cfg, Out: out, In: in, ctx: ctx}
}

// Ctx returns the context commands should pass to blocking calls.
func (c *Context) Ctx() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// StoreOptions maps the configuration onto store options.
func (c *Context) StoreOptions() sqlite.Options {
	return sqlite.Options{
		Path:                c.Config.Database.Path,
		BusyTimeout:         c.Config.GetBusyTimeout(),
		DestructiveFallback: c.Config.Database.DestructiveFallback,
		SeedCategories:      c.Config.Database.SeedCategories,
		LiveDebounce:        c.Config.GetDebounce(),
		Log: func(msg string) {
			logger.Info(msg)
		},
	}
}

// Store opens the database if needed and returns it.
func (c *Context) Store() (*sqlite.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	store, err := sqlite.Open(c.Ctx(), c.StoreOptions())
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

// Close closes the store if it was opened.
func (c *Context) Close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

// DBPath returns the configured database path.
func (c *Context) DBPath() string {
	return c.Config.Database.Path
}

// PerformAutomaticBackup creates a backup when enabled and silently handles
// errors.
func (c *Context) PerformAutomaticBackup() {
	if !c.Config.Backup.Auto {
		return
	}
	if _, err := os.Stat(c.DBPath()); err != nil {
		return
	}
	mgr := backup.NewManager(c.DBPath())
	if _, err := mgr.CreateBackup(c.Ctx()); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Printf writes formatted output.
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Println writes a line of output.
func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

// Confirm asks a yes/no question. Only "y" and "yes" confirm.
func (c *Context) Confirm(prompt string) (bool, error) {
	if f, ok := c.In.(*os.File); ok && !isTerminal(int(f.Fd())) {
		return false, ErrNotInteractive
	}

	c.Printf("%s [y/N]: ", prompt)
	response, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// ParseDate accepts YYYY-MM-DD, "today", "yesterday" and "tomorrow". An
// empty string means today.
func ParseDate(s string) (models.Date, error) {
	today := models.Today()
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDays(-1), nil
	case "tomorrow":
		return today.AddDays(1), nil
	}
	return models.ParseDate(s)
}

// ParseMonth parses YYYY-MM. An empty string means the current month.
func ParseMonth(s string) (int, int, error) {
	if strings.TrimSpace(s) == "" {
		now := time.Now()
		return now.Year(), int(now.Month()), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q (want YYYY-MM): %w", s, err)
	}
	return t.Year(), int(t.Month()), nil
}

// OptionalString returns nil for an empty string.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

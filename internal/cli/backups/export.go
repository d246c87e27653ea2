package backups

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/julianstephens/daybook/internal/backup"
	"github.com/julianstephens/daybook/internal/cli"
)

type ExportCmd struct {
	Output   string `short:"o" help:"Output file. Defaults to stdout." type:"path"`
	Compress bool   `short:"z" help:"Compress the export with zstd. Implied by a .zst output file."`
	Indent   bool   `help:"Indent the JSON output."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	opts := backup.ExportOptions{
		Compress: c.Compress || strings.HasSuffix(c.Output, ".zst"),
		Indent:   c.Indent,
	}

	var w io.Writer = ctx.Out
	if c.Output != "" {
		f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	doc, err := backup.Export(ctx.Ctx(), store, w, opts)
	if err != nil {
		return err
	}

	if c.Output != "" {
		ctx.Printf("✓ Exported %d notes, %d routines, %d schedules, %d expenses to %s\n",
			len(doc.Notes), len(doc.Routines), len(doc.Schedules), len(doc.Expenses), c.Output)
	}
	return nil
}

type ImportCmd struct {
	Input string `arg:"" help:"Export file to import (plain or zstd-compressed JSON). Use - for stdin."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	var r io.Reader = ctx.In
	if c.Input != "-" {
		f, err := os.Open(c.Input)
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	ctx.PerformAutomaticBackup()

	sum, err := backup.Import(ctx.Ctx(), store, r)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	ctx.Printf("✓ Imported %d records (%d notes, %d routines, %d completions, %d schedules, %d expenses, %d categories)\n",
		sum.Total(), sum.Notes, sum.Routines, sum.RoutineCompletions, sum.Schedules, sum.Expenses, sum.ExpenseCategories)
	return nil
}

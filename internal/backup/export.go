package backup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/daybook/internal/constants"
	"github.com/julianstephens/daybook/internal/logger"
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage"
)

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Document is the portable JSON form of a whole database.
type Document struct {
	Version            string                     `json:"version"`
	ExportDate         time.Time                  `json:"exportDate"`
	Notes              []models.Note              `json:"notes"`
	Routines           []models.Routine           `json:"routines"`
	RoutineCompletions []models.RoutineCompletion `json:"routineCompletions"`
	Schedules          []models.Schedule          `json:"schedules"`
	Expenses           []models.Expense           `json:"expenses"`
	ExpenseCategories  []models.ExpenseCategory   `json:"expenseCategories"`
}

// ImportSummary counts the records written by Import.
type ImportSummary struct {
	Notes              int
	Routines           int
	RoutineCompletions int
	Schedules          int
	Expenses           int
	ExpenseCategories  int
}

// Total returns the number of records imported across all tables.
func (s ImportSummary) Total() int {
	return s.Notes + s.Routines + s.RoutineCompletions + s.Schedules + s.Expenses + s.ExpenseCategories
}

// ExportOptions controls how Export encodes the document.
type ExportOptions struct {
	// Compress wraps the JSON in a zstd stream.
	Compress bool
	Indent   bool
}

// Collect reads every table of p into a Document. Tables are read
// concurrently.
func Collect(ctx context.Context, p storage.Provider) (*Document, error) {
	doc := &Document{
		Version:    constants.ExportFormatVersion,
		ExportDate: time.Now().UTC(),
	}

	var live, trashed []models.Note
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		live, err = p.Notes().ListAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		trashed, err = p.Notes().ListTrash(ctx)
		return err
	})
	g.Go(func() (err error) {
		doc.Routines, err = p.Routines().ListAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		doc.RoutineCompletions, err = p.Routines().AllCompletions(ctx)
		return err
	})
	g.Go(func() (err error) {
		doc.Schedules, err = p.Schedules().List(ctx)
		return err
	})
	g.Go(func() (err error) {
		doc.Expenses, err = p.Expenses().List(ctx)
		return err
	})
	g.Go(func() (err error) {
		doc.ExpenseCategories, err = p.Expenses().ListCategories(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read database for export: %w", err)
	}

	doc.Notes = append(live, trashed...)
	return doc, nil
}

// Export writes the contents of p to w.
func Export(ctx context.Context, p storage.Provider, w io.Writer, opts ExportOptions) (*Document, error) {
	doc, err := Collect(ctx, p)
	if err != nil {
		return nil, err
	}

	out := w
	var zw *zstd.Encoder
	if opts.Compress {
		zw, err = zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		out = zw
	}

	enc := json.NewEncoder(out)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		if zw != nil {
			_ = zw.Close()
		}
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("failed to finish zstd stream: %w", err)
		}
	}

	logger.Info("Exported database",
		"notes", len(doc.Notes),
		"routines", len(doc.Routines),
		"schedules", len(doc.Schedules),
		"expenses", len(doc.Expenses),
		"compressed", opts.Compress)
	return doc, nil
}

// Decode reads a Document written by Export. Compressed input is detected
// from the zstd frame magic. Unknown keys are ignored.
func Decode(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}

	var in io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		in = zr
	}

	var doc Document
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode import: %w", err)
	}
	return &doc, nil
}

// Import upserts every record of the document read from r into p. Existing
// records with the same key are replaced; nothing is deleted.
func Import(ctx context.Context, p storage.Provider, r io.Reader) (ImportSummary, error) {
	doc, err := Decode(r)
	if err != nil {
		return ImportSummary{}, err
	}
	return Apply(ctx, p, doc)
}

// Validate checks that every dated record carries a usable date. A record
// whose date key is missing decodes to the zero date and is rejected here.
func (doc *Document) Validate() error {
	for _, c := range doc.RoutineCompletions {
		if !c.CompletionDate.Valid() {
			return fmt.Errorf("routine completion %q has no valid completionDate: %w", c.ID, storage.ErrInvalid)
		}
	}
	for _, sc := range doc.Schedules {
		if !sc.Date.Valid() {
			return fmt.Errorf("schedule %q has no valid date: %w", sc.ID, storage.ErrInvalid)
		}
	}
	for _, e := range doc.Expenses {
		if !e.Date.Valid() {
			return fmt.Errorf("expense %q has no valid date: %w", e.ID, storage.ErrInvalid)
		}
	}
	return nil
}

// Apply validates doc and writes it into p in a single batch. Nothing is
// written when any record is rejected.
func Apply(ctx context.Context, p storage.Provider, doc *Document) (ImportSummary, error) {
	if err := doc.Validate(); err != nil {
		return ImportSummary{}, err
	}

	batch := storage.Batch{
		Notes:              doc.Notes,
		Routines:           doc.Routines,
		RoutineCompletions: doc.RoutineCompletions,
		Schedules:          doc.Schedules,
		Expenses:           doc.Expenses,
		ExpenseCategories:  doc.ExpenseCategories,
	}
	if err := p.WriteBatch(ctx, batch); err != nil {
		return ImportSummary{}, fmt.Errorf("failed to write import: %w", err)
	}

	sum := ImportSummary{
		Notes:              len(doc.Notes),
		Routines:           len(doc.Routines),
		RoutineCompletions: len(doc.RoutineCompletions),
		Schedules:          len(doc.Schedules),
		Expenses:           len(doc.Expenses),
		ExpenseCategories:  len(doc.ExpenseCategories),
	}
	logger.Info("Imported records", "total", sum.Total())
	return sum, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/julianstephens/daybook/internal/live"
	"github.com/julianstephens/daybook/internal/models"
	"github.com/julianstephens/daybook/internal/storage"
)

var _ storage.NoteRepository = (*NoteRepo)(nil)

const noteColumns = `id, title, content, is_pinned, category, created_at, updated_at, is_archived, is_deleted`

// NoteRepo stores notes. Trash is a flag; rows leave the table only through
// Delete or EmptyTrash.
type NoteRepo struct {
	s *Store
}

func scanNote(row rowScanner) (models.Note, error) {
	var id, title, content, category, createdAt, updatedAt sql.NullString
	var pinned, archived, deleted sql.NullInt64

	if err := row.Scan(&id, &title, &content, &pinned, &category, &createdAt, &updatedAt, &archived, &deleted); err != nil {
		return models.Note{}, err
	}

	d := decoder{table: tableNotes}
	n := models.Note{
		ID:         d.id("id", id),
		Title:      d.text("title", title),
		Content:    d.text("content", content),
		IsPinned:   d.boolean("is_pinned", pinned),
		Category:   d.optText(category),
		CreatedAt:  d.instant("created_at", createdAt),
		UpdatedAt:  d.instant("updated_at", updatedAt),
		IsArchived: d.boolean("is_archived", archived),
		IsDeleted:  d.boolean("is_deleted", deleted),
	}
	return n, d.err
}

const insertNoteSQL = `
	INSERT OR REPLACE INTO notes (title, content, is_pinned, category, created_at, updated_at, is_archived, is_deleted, id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func noteArgs(n models.Note) []any {
	return []any{
		n.Title, n.Content, boolToInt(n.IsPinned), nullString(n.Category),
		models.FormatInstant(n.CreatedAt), models.FormatInstant(n.UpdatedAt),
		boolToInt(n.IsArchived), boolToInt(n.IsDeleted), n.ID,
	}
}

// Insert stores the note, replacing any note with the same id.
func (r *NoteRepo) Insert(ctx context.Context, note models.Note) error {
	err := r.s.exec(ctx, tableNotes, insertNoteSQL, noteArgs(note)...)
	if err != nil {
		return fmt.Errorf("failed to insert note %s: %w", note.ID, err)
	}
	return nil
}

func (r *NoteRepo) Update(ctx context.Context, note models.Note) error {
	err := r.s.execOne(ctx, tableNotes, note.ID, `
		UPDATE notes SET title = ?, content = ?, is_pinned = ?, category = ?, created_at = ?,
			updated_at = ?, is_archived = ?, is_deleted = ?
		WHERE id = ?`,
		noteArgs(note)...)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return nil
}

func (r *NoteRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.exec(ctx, tableNotes, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

func (r *NoteRepo) Get(ctx context.Context, id string) (models.Note, bool, error) {
	return queryOne(ctx, r.s.db, scanNote, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
}

// ListActive returns notes that are neither archived nor trashed, pinned
// first and most recently updated first within each group.
func (r *NoteRepo) ListActive(ctx context.Context) ([]models.Note, error) {
	return queryList(ctx, r.s.db, scanNote, `
		SELECT `+noteColumns+` FROM notes
		WHERE is_deleted = 0 AND is_archived = 0
		ORDER BY is_pinned DESC, updated_at DESC, id`)
}

func (r *NoteRepo) ListArchived(ctx context.Context) ([]models.Note, error) {
	return queryList(ctx, r.s.db, scanNote, `
		SELECT `+noteColumns+` FROM notes
		WHERE is_deleted = 0 AND is_archived = 1
		ORDER BY updated_at DESC, id`)
}

func (r *NoteRepo) ListTrash(ctx context.Context) ([]models.Note, error) {
	return queryList(ctx, r.s.db, scanNote, `
		SELECT `+noteColumns+` FROM notes
		WHERE is_deleted = 1
		ORDER BY updated_at DESC, id`)
}

// ListAll returns every note that is not in the trash, archived included.
func (r *NoteRepo) ListAll(ctx context.Context) ([]models.Note, error) {
	return queryList(ctx, r.s.db, scanNote, `
		SELECT `+noteColumns+` FROM notes
		WHERE is_deleted = 0
		ORDER BY is_pinned DESC, updated_at DESC, id`)
}

// Search matches query as a case-insensitive substring of the title or
// content. Wildcard characters in query match literally.
func (r *NoteRepo) Search(ctx context.Context, query string) ([]models.Note, error) {
	pattern := likePattern(query)
	return queryList(ctx, r.s.db, scanNote, `
		SELECT `+noteColumns+` FROM notes
		WHERE (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')
			AND is_deleted = 0 AND is_archived = 0
		ORDER BY is_pinned DESC, updated_at DESC, id`,
		pattern, pattern)
}

func (r *NoteRepo) ListByCategory(ctx context.Context, category string) ([]models.Note, error) {
	return queryList(ctx, r.s.db, scanNote, `
		SELECT `+noteColumns+` FROM notes
		WHERE category = ? AND is_deleted = 0 AND is_archived = 0
		ORDER BY is_pinned DESC, updated_at DESC, id`,
		category)
}

// Categories returns the distinct non-empty categories in use.
func (r *NoteRepo) Categories(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.s.db, `
		SELECT DISTINCT category FROM notes
		WHERE category IS NOT NULL AND category != '' AND is_deleted = 0
		ORDER BY category`)
}

func (r *NoteRepo) SetPinned(ctx context.Context, id string, pinned bool) error {
	return r.setFlag(ctx, id, "is_pinned", pinned)
}

func (r *NoteRepo) SetArchived(ctx context.Context, id string, archived bool) error {
	return r.setFlag(ctx, id, "is_archived", archived)
}

// MoveToTrash marks the note deleted. Pinned and archived flags are kept so
// Restore brings the note back exactly as it was.
func (r *NoteRepo) MoveToTrash(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "is_deleted", true)
}

func (r *NoteRepo) Restore(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "is_deleted", false)
}

func (r *NoteRepo) setFlag(ctx context.Context, id, column string, value bool) error {
	err := r.s.execOne(ctx, tableNotes, id,
		fmt.Sprintf(`UPDATE notes SET %s = ? WHERE id = ?`, column),
		boolToInt(value), id)
	if err != nil {
		return fmt.Errorf("failed to set %s on note: %w", column, err)
	}
	return nil
}

// EmptyTrash removes every trashed note and returns how many were removed.
func (r *NoteRepo) EmptyTrash(ctx context.Context) (int64, error) {
	var removed int64
	err := r.s.withTx(ctx, []string{tableNotes}, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE is_deleted = 1`)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to empty trash: %w", err)
	}
	return removed, nil
}

func (r *NoteRepo) WatchActive(ctx context.Context) *live.Subscription[[]models.Note] {
	return live.Watch[[]models.Note](ctx, r.s.tracker, r.ListActive, tableNotes)
}

func (r *NoteRepo) WatchArchived(ctx context.Context) *live.Subscription[[]models.Note] {
	return live.Watch[[]models.Note](ctx, r.s.tracker, r.ListArchived, tableNotes)
}

func (r *NoteRepo) WatchTrash(ctx context.Context) *live.Subscription[[]models.Note] {
	return live.Watch[[]models.Note](ctx, r.s.tracker, r.ListTrash, tableNotes)
}

func (r *NoteRepo) WatchSearch(ctx context.Context, query string) *live.Subscription[[]models.Note] {
	return live.Watch[[]models.Note](ctx, r.s.tracker, func(ctx context.Context) ([]models.Note, error) {
		return r.Search(ctx, query)
	}, tableNotes)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a substring LIKE match using '\' as the escape
// character.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

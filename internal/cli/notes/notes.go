package notes

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/julianstephens/daybook/internal/cli"
	"github.com/julianstephens/daybook/internal/models"
)

type NoteCmd struct {
	Add        AddCmd        `cmd:"" help:"Add a note."`
	Edit       EditCmd       `cmd:"" help:"Edit a note."`
	List       ListCmd       `cmd:"" help:"List notes." default:"1"`
	Show       ShowCmd       `cmd:"" help:"Show a note with its content rendered as markdown."`
	Pin        PinCmd        `cmd:"" help:"Pin or unpin a note."`
	Archive    ArchiveCmd    `cmd:"" help:"Archive or unarchive a note."`
	Trash      TrashCmd      `cmd:"" help:"Move a note to the trash."`
	Restore    RestoreCmd    `cmd:"" help:"Restore a note from the trash."`
	Delete     DeleteCmd     `cmd:"" help:"Delete a note permanently."`
	EmptyTrash EmptyTrashCmd `cmd:"" name:"empty-trash" help:"Permanently delete every note in the trash."`
	Categories CategoriesCmd `cmd:"" help:"List note categories."`
}

type AddCmd struct {
	Title    string `arg:"" help:"Note title."`
	Content  string `help:"Note content (markdown). Use - to read from stdin."`
	Category string `help:"Note category."`
	Pin      bool   `help:"Pin the note."`
}

func (c *AddCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	content, err := readContent(ctx, c.Content)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	note := models.Note{
		ID:        uuid.NewString(),
		Title:     c.Title,
		Content:   content,
		IsPinned:  c.Pin,
		Category:  cli.OptionalString(c.Category),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Notes().Insert(ctx.Ctx(), note); err != nil {
		return err
	}
	ctx.Printf("✓ Added note %s\n", note.ID)
	return nil
}

type EditCmd struct {
	ID       string  `arg:"" help:"Note id."`
	Title    *string `help:"New title."`
	Content  *string `help:"New content. Use - to read from stdin."`
	Category *string `help:"New category. Empty clears it."`
}

func (c *EditCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	note, found, err := store.Notes().Get(ctx.Ctx(), c.ID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("note %s not found", c.ID)
	}

	if c.Title != nil {
		note.Title = *c.Title
	}
	if c.Content != nil {
		content, err := readContent(ctx, *c.Content)
		if err != nil {
			return err
		}
		note.Content = content
	}
	if c.Category != nil {
		note.Category = cli.OptionalString(*c.Category)
	}
	note.UpdatedAt = time.Now().UTC()

	if err := store.Notes().Update(ctx.Ctx(), note); err != nil {
		return err
	}
	ctx.Printf("✓ Updated note %s\n", note.ID)
	return nil
}

type ListCmd struct {
	Archived bool   `help:"List archived notes." xor:"view"`
	Trash    bool   `help:"List notes in the trash." xor:"view"`
	Search   string `help:"Only notes whose title or content contains this text." xor:"view"`
	Category string `help:"Only notes in this category." xor:"view"`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	repo := store.Notes()
	bg := ctx.Ctx()

	var notes []models.Note
	switch {
	case c.Archived:
		notes, err = repo.ListArchived(bg)
	case c.Trash:
		notes, err = repo.ListTrash(bg)
	case c.Search != "":
		notes, err = repo.Search(bg, c.Search)
	case c.Category != "":
		notes, err = repo.ListByCategory(bg, c.Category)
	default:
		notes, err = repo.ListActive(bg)
	}
	if err != nil {
		return err
	}

	if len(notes) == 0 {
		ctx.Println("No notes found.")
		return nil
	}
	for _, n := range notes {
		ctx.Println(cli.FormatNote(n))
	}
	return nil
}

type ShowCmd struct {
	ID    string `arg:"" help:"Note id."`
	Plain bool   `help:"Print the content without markdown rendering."`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	note, found, err := store.Notes().Get(ctx.Ctx(), c.ID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("note %s not found", c.ID)
	}

	ctx.Println(cli.TitleStyle.Render(note.Title))
	ctx.Println(cli.DimStyle.Render(fmt.Sprintf("updated %s", note.UpdatedAt.Local().Format("2006-01-02 15:04"))))
	ctx.Println()

	if c.Plain || strings.TrimSpace(note.Content) == "" {
		ctx.Println(note.Content)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(note.Content)
	if err != nil {
		// Fall back to the raw text.
		ctx.Println(note.Content)
		return nil
	}
	ctx.Printf("%s", out)
	return nil
}

type PinCmd struct {
	ID    string `arg:"" help:"Note id."`
	Unpin bool   `help:"Unpin instead."`
}

func (c *PinCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	return store.Notes().SetPinned(ctx.Ctx(), c.ID, !c.Unpin)
}

type ArchiveCmd struct {
	ID        string `arg:"" help:"Note id."`
	Unarchive bool   `help:"Unarchive instead."`
}

func (c *ArchiveCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	return store.Notes().SetArchived(ctx.Ctx(), c.ID, !c.Unarchive)
}

type TrashCmd struct {
	ID string `arg:"" help:"Note id."`
}

func (c *TrashCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	if err := store.Notes().MoveToTrash(ctx.Ctx(), c.ID); err != nil {
		return err
	}
	ctx.Printf("✓ Moved note %s to the trash\n", c.ID)
	return nil
}

type RestoreCmd struct {
	ID string `arg:"" help:"Note id."`
}

func (c *RestoreCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	if err := store.Notes().Restore(ctx.Ctx(), c.ID); err != nil {
		return err
	}
	ctx.Printf("✓ Restored note %s\n", c.ID)
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Note id."`
}

func (c *DeleteCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	return store.Notes().Delete(ctx.Ctx(), c.ID)
}

type EmptyTrashCmd struct{}

func (c *EmptyTrashCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	n, err := store.Notes().EmptyTrash(ctx.Ctx())
	if err != nil {
		return err
	}
	ctx.Printf("✓ Deleted %d note(s) from the trash\n", n)
	return nil
}

type CategoriesCmd struct{}

func (c *CategoriesCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	categories, err := store.Notes().Categories(ctx.Ctx())
	if err != nil {
		return err
	}
	for _, cat := range categories {
		ctx.Println(cat)
	}
	return nil
}

func readContent(ctx *cli.Context, content string) (string, error) {
	if content != "-" {
		return content, nil
	}
	data, err := io.ReadAll(ctx.In)
	if err != nil {
		return "", fmt.Errorf("failed to read content from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

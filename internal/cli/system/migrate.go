package system

import (
	"fmt"

	"github.com/julianstephens/daybook/internal/cli"
	"github.com/julianstephens/daybook/internal/storage/sqlite"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	// Open directly so that migration progress goes to the terminal.
	if err := ctx.Close(); err != nil {
		return err
	}
	opts := ctx.StoreOptions()
	opts.Log = func(msg string) {
		ctx.Println(msg)
	}

	store, err := sqlite.Open(ctx.Ctx(), opts)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer store.Close()

	res := store.OpenResult()
	switch {
	case res.Reset:
		ctx.Printf("\nDatabase was recreated at schema version %d. Previous data was discarded.\n", res.Version)
	case res.Applied == 0:
		ctx.Println("No migrations to apply. Database is up to date.")
	default:
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", res.Applied)
	}
	return nil
}

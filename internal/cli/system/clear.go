package system

import (
	"fmt"

	"github.com/julianstephens/daybook/internal/cli"
)

type ClearCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *ClearCmd) Run(ctx *cli.Context) error {
	if !c.Yes {
		ctx.Println("⚠️  WARNING: This deletes every note, routine, schedule and expense.")
		ctx.Println("The schema is kept. A backup is taken first when automatic backups are enabled.")
		ok, err := ctx.Confirm("Continue?")
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Clear cancelled.")
			return nil
		}
	}

	ctx.PerformAutomaticBackup()

	store, err := ctx.Store()
	if err != nil {
		return err
	}
	if err := store.ClearAllTables(ctx.Ctx()); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}

	ctx.Println("✓ All tables cleared.")
	return nil
}

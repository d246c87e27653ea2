package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/daybook/internal/cli"
)

type InitCmd struct {
	Force bool `help:"Delete the existing database before initialization. A backup is taken first."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	dbPath := ctx.DBPath()

	if c.Force {
		if _, err := os.Stat(dbPath); err == nil {
			ctx.PerformAutomaticBackup()
			if err := ctx.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			for _, suffix := range []string{"", "-wal", "-shm"} {
				if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete existing database: %w", err)
				}
			}
			ctx.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	store, err := ctx.Store()
	if err != nil {
		return err
	}

	res := store.OpenResult()
	if res.Created {
		ctx.Printf("Initialized daybook storage at: %s (schema version %d)\n", dbPath, res.Version)
	} else {
		ctx.Printf("daybook storage already initialized at: %s (schema version %d)\n", dbPath, res.Version)
	}
	return nil
}

package system

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/daybook/internal/backup"
	"github.com/julianstephens/daybook/internal/cli"
)

type DebugCmd struct {
	DBPath DebugDBPathCmd `cmd:"" name:"db-path" help:"Show database path."`
	Dump   DebugDumpCmd   `cmd:"" help:"Dump a stored record as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	output := map[string]string{
		"path":      ctx.DBPath(),
		"backupDir": backup.NewManager(ctx.DBPath()).BackupDir(),
	}
	return printJSON(ctx, output)
}

type DebugDumpCmd struct {
	Kind string `arg:"" enum:"note,routine,schedule,expense,category" help:"Record kind (note, routine, schedule, expense, category)."`
	Key  string `arg:"" help:"Record id, or the category name."`
}

func (cmd *DebugDumpCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	bg := ctx.Ctx()

	var (
		record any
		found  bool
	)
	switch cmd.Kind {
	case "note":
		record, found, err = dump(store.Notes().Get(bg, cmd.Key))
	case "routine":
		record, found, err = dump(store.Routines().Get(bg, cmd.Key))
	case "schedule":
		record, found, err = dump(store.Schedules().Get(bg, cmd.Key))
	case "expense":
		record, found, err = dump(store.Expenses().Get(bg, cmd.Key))
	case "category":
		record, found, err = dump(store.Expenses().GetCategory(bg, cmd.Key))
	default:
		return fmt.Errorf("unknown record kind %q", cmd.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", cmd.Kind, err)
	}
	if !found {
		return fmt.Errorf("%s not found: %s", cmd.Kind, cmd.Key)
	}
	return printJSON(ctx, record)
}

func dump[T any](v T, found bool, err error) (any, bool, error) {
	return v, found, err
}

func printJSON(ctx *cli.Context, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Println(string(jsonBytes))
	return nil
}

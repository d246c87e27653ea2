package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/daybook/internal/cli"
	"github.com/julianstephens/daybook/internal/cli/backups"
	"github.com/julianstephens/daybook/internal/cli/expenses"
	"github.com/julianstephens/daybook/internal/cli/notes"
	"github.com/julianstephens/daybook/internal/cli/routines"
	"github.com/julianstephens/daybook/internal/cli/schedules"
	"github.com/julianstephens/daybook/internal/cli/system"
	"github.com/julianstephens/daybook/internal/config"
	"github.com/julianstephens/daybook/internal/constants"
	errs "github.com/julianstephens/daybook/internal/errors"
	"github.com/julianstephens/daybook/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"${config_path}"`
	DB      string `name:"db" help:"Database file path. Overrides the config file and ${env_db}." type:"path"`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Init     system.InitCmd    `cmd:"" help:"Initialize daybook storage."`
	Migrate  system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Clear    system.ClearCmd   `cmd:"" help:"Delete all records but keep the schema."`
	Watch    system.WatchCmd   `cmd:"" help:"Follow a listing as it changes."`
	DebugCmd system.DebugCmd   `cmd:"" name:"debug" help:"Debugging utilities."`
	Backup   struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Export   backups.ExportCmd     `cmd:"" help:"Export all records as JSON."`
	Import   backups.ImportCmd     `cmd:"" help:"Import records from a JSON export."`
	Note     notes.NoteCmd         `cmd:"" help:"Manage notes."`
	Routine  routines.RoutineCmd   `cmd:"" help:"Manage routines and their completions."`
	Schedule schedules.ScheduleCmd `cmd:"" help:"Manage schedule entries."`
	Expense  expenses.ExpenseCmd   `cmd:"" help:"Manage expenses and categories."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Local notes, routines, schedules and expenses"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":          constants.Version,
			"config_path":      config.DefaultPath(),
			"env_db":           constants.EnvDBPath,
			"reminder_minutes": strconv.Itoa(constants.DefaultReminderMinutes),
		},
	)

	cfg, err := config.Load(CLI.Config)
	errs.Fatal(err)
	if CLI.DB != "" {
		cfg.Database.Path = CLI.DB
	}
	if CLI.Debug {
		cfg.Logging.Debug = true
	}

	if err := logger.Init(logger.Config{
		Dir:        cfg.Logging.Dir,
		Level:      cfg.Logging.Level,
		Debug:      cfg.Logging.Debug,
		JSON:       cfg.Logging.JSON,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		// Logging is optional; commands still run without it.
		os.Stderr.WriteString("Warning: failed to initialize logger: " + err.Error() + "\n")
	}
	logger.Debug("Starting", "command", kctx.Command(), "db", cfg.Database.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	appCtx := cli.NewContext(ctx, cfg, os.Stdout, os.Stdin)

	err = kctx.Run(appCtx)
	if closeErr := appCtx.Close(); err == nil {
		err = closeErr
	}
	stop()
	if err != nil {
		errs.Fatal(err)
	}
	_ = logger.Close()
}

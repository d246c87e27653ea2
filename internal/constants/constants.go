package constants

import "time"

const (
	AppName           = "daybook"
	Version           = "v0.1.0"
	DefaultConfigDir  = "~/.config/daybook"
	DefaultDBName     = "daybook.db"
	DefaultConfigName = "config.yaml"

	// DateFormat is the storage format for calendar dates (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the storage format for times of day (HH:MM)
	TimeFormat = "15:04"

	// TimeWithSecondsFormat is used when a time of day carries seconds
	TimeWithSecondsFormat = "15:04:05"

	// InstantFormat is fixed width and always UTC so that text ordering in
	// SQL matches chronological ordering.
	InstantFormat = "2006-01-02T15:04:05.000000000Z"

	// MonthFormat matches strftime('%Y-%m', date)
	MonthFormat = "2006-01"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "daybook-"
	BackupFileSuffix = ".db"

	// ExportFormatVersion is written into JSON exports
	ExportFormatVersion = "1.0"

	// Database defaults
	DefaultBusyTimeout         = 5 * time.Second
	DefaultReminderMinutes     = 15
	DefaultDestructiveFallback = false
	DefaultSeedCategories      = true

	// Log rotation defaults
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28

	// Live query defaults
	DefaultLiveDebounce = 0 * time.Millisecond

	// Environment overrides
	EnvDBPath              = "DAYBOOK_DB"
	EnvDebug               = "DAYBOOK_DEBUG"
	EnvDestructiveFallback = "DAYBOOK_DESTRUCTIVE_FALLBACK"
)

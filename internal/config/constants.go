package config

const (
	// DefaultDatabasePath is where the archive database lives unless
	// DATABASE_PATH overrides it.
	DefaultDatabasePath = "./chatarchive.db"
)

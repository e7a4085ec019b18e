package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// MemoryDSN opens a private in-memory SQLite database
const MemoryDSN = ":memory:"

// Config selects the driver and location of the database
type Config struct {
	Driver  string `yaml:"driver"`
	URL     string `yaml:"url"`
	DataDir string `yaml:"data_dir"`
}

// DSN returns the data source name for the configured driver. SQLite
// defaults to dpx.db under DataDir.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	dir := c.DataDir
	if dir == "" {
		dir = "data"
	}
	return filepath.Join(dir, "dpx.db")
}

// Connect establishes a connection to the database and creates the schema
func Connect(cfg Config) error {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		dsn := cfg.DSN()
		if dsn != MemoryDSN && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err = sqlx.Connect(driver, dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers, and each connection to
		// :memory: would see its own database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case DriverPostgres:
		if cfg.URL == "" {
			return fmt.Errorf("postgres requires a database url")
		}
		db, err = sqlx.Connect(driver, cfg.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	DB = db
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		err := DB.Close()
		DB = nil
		return err
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	timestamp := "TIMESTAMP"
	if DB.DriverName() == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
		timestamp = "TIMESTAMPTZ"
	}
	r := strings.NewReplacer("{serial}", serial, "{timestamp}", timestamp)

	tables := []struct {
		name string
		ddl  string
	}{
		{"participants", `
			CREATE TABLE IF NOT EXISTS participants (
				id {serial},
				telegram_id BIGINT UNIQUE NOT NULL,
				chat_id BIGINT NOT NULL DEFAULT 0,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				is_admin BOOLEAN NOT NULL DEFAULT false,
				created_at {timestamp} NOT NULL
			)`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				participant_id BIGINT NOT NULL REFERENCES participants(id),
				status TEXT NOT NULL,
				stage TEXT NOT NULL,
				seed BIGINT NOT NULL,
				practice_repeats INTEGER NOT NULL DEFAULT 0,
				practice_correct INTEGER NOT NULL DEFAULT 0,
				practice_total INTEGER NOT NULL DEFAULT 0,
				started_at {timestamp} NOT NULL,
				updated_at {timestamp} NOT NULL,
				finished_at {timestamp}
			)`},
		{"trials", `
			CREATE TABLE IF NOT EXISTS trials (
				id {serial},
				session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				trial_index INTEGER NOT NULL,
				trial_id TEXT NOT NULL,
				exp_stage TEXT NOT NULL,
				cond TEXT NOT NULL DEFAULT '',
				trial_num INTEGER NOT NULL,
				block INTEGER NOT NULL,
				practice_repeat INTEGER NOT NULL,
				stimulus TEXT NOT NULL,
				key_press INTEGER NOT NULL,
				rt BIGINT NOT NULL,
				scored BOOLEAN NOT NULL,
				correct BOOLEAN NOT NULL,
				correct_response INTEGER NOT NULL,
				created_at {timestamp} NOT NULL,
				UNIQUE(session_id, trial_index)
			)`},
	}
	for _, t := range tables {
		if _, err := DB.Exec(r.Replace(t.ddl)); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}

	if _, err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_participant ON sessions(participant_id, started_at)"); err != nil {
		return fmt.Errorf("failed to create sessions index: %w", err)
	}
	return nil
}

// now is the clock used for timestamps, truncated so values survive a
// round trip through either driver unchanged
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

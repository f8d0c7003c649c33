package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations holds the schema history. Entries are append-only; never edit
// an applied migration.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "001_create_movement_tables",
		SQL: `
			CREATE TABLE IF NOT EXISTS positionfixes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				tracked_at TEXT NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				elevation REAL,
				accuracy REAL,
				staypoint_id INTEGER,
				tripleg_id INTEGER,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_positionfixes_user_time
				ON positionfixes(user_id, tracked_at);

			CREATE TABLE IF NOT EXISTS staypoints (
				id INTEGER PRIMARY KEY,
				user_id INTEGER NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				elevation REAL,
				purpose TEXT,
				activity INTEGER,
				location_id INTEGER,
				trip_id INTEGER,
				prev_trip_id INTEGER,
				next_trip_id INTEGER
			);
			CREATE INDEX IF NOT EXISTS idx_staypoints_user_time
				ON staypoints(user_id, started_at);

			CREATE TABLE IF NOT EXISTS triplegs (
				id INTEGER PRIMARY KEY,
				user_id INTEGER NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL,
				mode TEXT,
				trip_id INTEGER,
				geom TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_triplegs_user_time
				ON triplegs(user_id, started_at);

			CREATE TABLE IF NOT EXISTS locations (
				id INTEGER PRIMARY KEY,
				user_id INTEGER,
				center_lat REAL NOT NULL,
				center_lon REAL NOT NULL,
				extent TEXT
			);

			CREATE TABLE IF NOT EXISTS trips (
				id INTEGER PRIMARY KEY,
				user_id INTEGER NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL,
				origin_staypoint_id INTEGER,
				destination_staypoint_id INTEGER
			);
			CREATE INDEX IF NOT EXISTS idx_trips_user_time
				ON trips(user_id, started_at);

			CREATE TABLE IF NOT EXISTS tours (
				id INTEGER PRIMARY KEY,
				user_id INTEGER NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL,
				origin_destination_location_id INTEGER,
				journey INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS trip_tour_assignments (
				trip_id INTEGER NOT NULL,
				tour_id INTEGER NOT NULL,
				position INTEGER NOT NULL,
				PRIMARY KEY (trip_id, tour_id)
			);
		`,
	},
	{
		Version: 2,
		Name:    "002_create_pipeline_tasks",
		SQL: `
			CREATE TABLE IF NOT EXISTS pipeline_tasks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT NOT NULL,
				stage TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				progress_percent REAL NOT NULL DEFAULT 0,
				total_records INTEGER NOT NULL DEFAULT 0,
				processed_records INTEGER NOT NULL DEFAULT 0,
				failed_records INTEGER NOT NULL DEFAULT 0,
				params_json TEXT,
				summary_json TEXT,
				error_message TEXT,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				started_at TEXT,
				completed_at TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_pipeline_tasks_run
				ON pipeline_tasks(run_id);
		`,
	},
}

// InitMigrationsTable creates the migrations tracking table
func InitMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// appliedMigrations returns the set of applied migration versions
func appliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// applyMigration applies a single migration inside a transaction
func applyMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)",
		migration.Version, migration.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}

	log.Printf("[Database] Applied migration %d: %s", migration.Version, migration.Name)
	return nil
}

// RunMigrations applies all pending migrations
func RunMigrations(db *sql.DB) error {
	if err := InitMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := applyMigration(db, migration); err != nil {
			return err
		}
	}

	return nil
}

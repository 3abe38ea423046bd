package storage

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest index schema version.
const SchemaVersion = 1

// Migrate creates the index schema and upgrades it to SchemaVersion.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}

	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS studies (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			runs INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			horizon REAL NOT NULL,
			rabbits INTEGER NOT NULL,
			foxes INTEGER NOT NULL,
			k1 REAL NOT NULL,
			k2 REAL NOT NULL,
			k3 REAL NOT NULL,
			k4 REAL NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: create studies table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS outcomes (
			study_id TEXT NOT NULL,
			run INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			extinct INTEGER NOT NULL,
			foxes_extinct INTEGER NOT NULL,
			fox_extinction_time REAL NULL,
			has_peak INTEGER NOT NULL,
			peak_time REAL NULL,
			peak_foxes INTEGER NULL,
			events INTEGER NOT NULL,
			PRIMARY KEY (study_id, run),
			FOREIGN KEY(study_id) REFERENCES studies(id)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: create outcomes table: %w", err)
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_studies_created_at ON studies(created_at);`)
	if err != nil {
		return fmt.Errorf("migrate: create idx_studies_created_at: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}
	return nil
}

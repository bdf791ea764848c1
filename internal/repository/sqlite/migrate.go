package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// All timestamps and dates are stored as Unix milliseconds so logical
// timestamp comparisons and calendar arithmetic stay exact across the
// wire and across restarts.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS healthcare_centers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		services TEXT NOT NULL DEFAULT '[]',
		district TEXT NOT NULL,
		last_updated INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_centers_district ON healthcare_centers(district)`,

	`CREATE TABLE IF NOT EXISTS emergency_contacts (
		id TEXT PRIMARY KEY,
		service_name TEXT NOT NULL,
		phone TEXT NOT NULL,
		service_type TEXT NOT NULL,
		district TEXT NOT NULL DEFAULT '',
		service_area TEXT NOT NULL DEFAULT '',
		last_updated INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS health_schemes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		localized_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		benefits TEXT NOT NULL DEFAULT '[]',
		criteria TEXT NOT NULL DEFAULT '{}',
		documents TEXT NOT NULL DEFAULT '[]',
		application_process TEXT NOT NULL DEFAULT '',
		contact_info TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		last_updated INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		age INTEGER NOT NULL,
		gender TEXT NOT NULL,
		income_category TEXT NOT NULL DEFAULT '',
		has_ration_card INTEGER NOT NULL DEFAULT 0,
		ration_card_type TEXT NOT NULL DEFAULT '',
		is_pregnant INTEGER NOT NULL DEFAULT 0,
		has_children INTEGER NOT NULL DEFAULT 0,
		district TEXT NOT NULL DEFAULT '',
		village TEXT NOT NULL DEFAULT '',
		preferred_language TEXT NOT NULL DEFAULT 'hi',
		last_updated INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS pregnancy_cases (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		subject_name TEXT NOT NULL,
		expected_delivery_date INTEGER NOT NULL,
		registered_by TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		last_updated INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS child_records (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		child_name TEXT NOT NULL,
		birth_date INTEGER NOT NULL,
		registered_by TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		last_updated INTEGER NOT NULL
	)`,

	// case_id references either a pregnancy case or a child record; the
	// store stays usable when the owning case has not synced yet, so no
	// FK is declared. Cascade deletes are done by the case repository.
	`CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		case_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date INTEGER NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER,
		previous_due_date INTEGER,
		vaccination_id TEXT,
		last_updated INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_case_due ON reminders(case_id, due_date)`,

	`CREATE TABLE IF NOT EXISTS vaccination_records (
		id TEXT PRIMARY KEY,
		child_id TEXT NOT NULL,
		vaccine_name TEXT NOT NULL,
		scheduled_date INTEGER NOT NULL,
		administered INTEGER NOT NULL DEFAULT 0,
		administered_date INTEGER,
		last_updated INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vaccinations_child ON vaccination_records(child_id)`,

	`CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		payload TEXT NOT NULL,
		base_timestamp INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_status_created ON outbox(status, created_at)`,

	`CREATE TABLE IF NOT EXISTS sync_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_download_ts INTEGER NOT NULL DEFAULT 0,
		last_pass_started_at INTEGER,
		last_pass_finished_at INTEGER,
		last_pass_status TEXT NOT NULL DEFAULT '',
		last_pass_error TEXT
	)`,
	`INSERT OR IGNORE INTO sync_state (id) VALUES (1)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

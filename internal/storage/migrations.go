package storage

import (
	"fmt"
	"log"
)

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// runMigrations executes database schema migrations in order.
func (s *SQLiteStore) runMigrations() error {
	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.currentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
	}

	for _, m := range migrations {
		if version < m.version {
			log.Printf("Running migration %d: %s", m.version, m.name)
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStore) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// currentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStore) currentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStore) setMigrationVersion(version int, name string) error {
	_, err := s.db.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		version, name,
	)
	return err
}

// migration001InitialSchema creates the EvoMemory schema: neurons,
// meta_neurons, rules with their provenance join table, and skills.
func (s *SQLiteStore) migration001InitialSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS neurons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			input_text TEXT NOT NULL,
			output_text TEXT NOT NULL,
			confidence REAL NOT NULL,
			mood TEXT NOT NULL DEFAULT 'neutral',
			user_feedback INTEGER NOT NULL DEFAULT 0,
			context_hash TEXT NOT NULL,
			skill_id TEXT,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create neurons table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_neurons_created
		ON neurons(created_at DESC)
	`); err != nil {
		return fmt.Errorf("failed to create neurons created index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_neurons_skill
		ON neurons(skill_id)
	`); err != nil {
		return fmt.Errorf("failed to create neurons skill index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_neurons_context
		ON neurons(context_hash)
	`); err != nil {
		return fmt.Errorf("failed to create neurons context index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS meta_neurons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			representative_text TEXT NOT NULL,
			member_ids TEXT NOT NULL,
			support_count INTEGER NOT NULL,
			context_hash TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create meta_neurons table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			trigger_kind TEXT NOT NULL,
			trigger_param TEXT NOT NULL,
			trigger_count INTEGER NOT NULL DEFAULT 0,
			trigger_threshold REAL NOT NULL DEFAULT 0,
			confidence_threshold REAL NOT NULL,
			priority INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create rules table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rule_sources (
			rule_id INTEGER NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
			neuron_id INTEGER NOT NULL,
			PRIMARY KEY (rule_id, neuron_id)
		)
	`); err != nil {
		return fmt.Errorf("failed to create rule_sources table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_rule_sources_neuron
		ON rule_sources(neuron_id)
	`); err != nil {
		return fmt.Errorf("failed to create rule_sources neuron index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS skills (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1
		)
	`); err != nil {
		return fmt.Errorf("failed to create skills table: %w", err)
	}

	return nil
}

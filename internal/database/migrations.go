package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationManager manages database migrations
type MigrationManager struct {
	db     *sql.DB
	source fs.FS
	dir    string
	log    *logrus.Entry
}

// NewMigrationManager creates a migration manager reading the embedded migrations
func NewMigrationManager(db *sql.DB, log *logrus.Entry) *MigrationManager {
	return NewMigrationManagerFS(db, embeddedMigrations, "migrations", log)
}

// NewMigrationManagerFS creates a migration manager reading *.sql files from dir in source
func NewMigrationManagerFS(db *sql.DB, source fs.FS, dir string, log *logrus.Entry) *MigrationManager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &MigrationManager{
		db:     db,
		source: source,
		dir:    dir,
		log:    log.WithField("component", "migrations"),
	}
}

// InitMigrationsTable creates the migrations tracking table
func (m *MigrationManager) InitMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)
	`
	_, err := m.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns a list of applied migration versions
func (m *MigrationManager) GetAppliedMigrations() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM migrations ORDER BY version")
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

// LoadMigrations loads migration files ordered by version
func (m *MigrationManager) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.source, m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// e.g. "001_initial_schema.sql"
		var version int
		var name string
		if _, err := fmt.Sscanf(entry.Name(), "%d_%s", &version, &name); err != nil {
			m.log.WithField("file", entry.Name()).Warn("skipping migration file with invalid name")
			continue
		}

		content, err := fs.ReadFile(m.source, path.Join(m.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(entry.Name(), ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// ApplyMigration applies a single migration
func (m *MigrationManager) ApplyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", migration.Version, migration.Name); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}

	m.log.WithField("version", migration.Version).Infof("applied migration %s", migration.Name)
	return nil
}

// RunMigrations runs all pending migrations
func (m *MigrationManager) RunMigrations() error {
	if err := m.InitMigrationsTable(); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			m.log.WithField("version", migration.Version).Debug("migration already applied")
			continue
		}

		if err := m.ApplyMigration(migration); err != nil {
			return err
		}
	}

	return nil
}

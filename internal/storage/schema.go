package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is written to store_metadata when the schema is created.
const SchemaVersion = "1"

// Open opens (creating if needed) the SQLite database at dbPath and makes
// sure the schema exists.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}

	if version == "0" {
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return db, nil
}

// CreateSchema creates all tables and indexes of the element store.
// Uses a transaction for atomicity - all schema creation succeeds or fails together.
//
// Schema includes:
//   - elements keyed by (project, element_key)
//   - element_materials, replaced whenever an element is upserted
//   - materials, the per-project aggregate over element_materials
//   - source_files for checksum-based change detection
//   - import_runs and store_metadata bookkeeping
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"source_files", createSourceFilesTable},
		{"elements", createElementsTable},
		{"element_materials", createElementMaterialsTable},
		{"materials", createMaterialsTable},
		{"import_runs", createImportRunsTable},
		{"store_metadata", createStoreMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO store_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap store_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from store_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='store_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check store_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM store_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in store_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// UpdateSchemaVersion sets or updates the schema version in store_metadata.
func UpdateSchemaVersion(db *sql.DB, version string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO store_metadata (key, value, updated_at)
		VALUES ('schema_version', ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := db.Exec(query, version, now); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}

// Table DDL constants

const createSourceFilesTable = `
CREATE TABLE source_files (
    project TEXT NOT NULL,
    file_path TEXT NOT NULL,                     -- Path as given to the importer
    file_hash TEXT NOT NULL,                     -- SHA-256 for change detection
    element_count INTEGER NOT NULL DEFAULT 0,
    imported_at TEXT NOT NULL,                   -- ISO 8601
    PRIMARY KEY (project, file_path)
)
`

const createElementsTable = `
CREATE TABLE elements (
    project TEXT NOT NULL,
    element_key TEXT NOT NULL,                   -- GlobalId, or #<id>@<file> when absent
    entity_id INTEGER NOT NULL,                  -- STEP id within the source file
    global_id TEXT NOT NULL DEFAULT '',
    element_type TEXT NOT NULL,                  -- IFCWALL, IFCSLAB, ...
    name TEXT NOT NULL,
    building_storey TEXT NOT NULL,
    volume TEXT NOT NULL,                        -- Three decimals, as extracted
    source_file TEXT NOT NULL,
    updated_at TEXT NOT NULL,                    -- ISO 8601
    PRIMARY KEY (project, element_key)
)
`

const createElementMaterialsTable = `
CREATE TABLE element_materials (
    row_id TEXT PRIMARY KEY,                     -- UUID
    project TEXT NOT NULL,
    element_key TEXT NOT NULL,
    position INTEGER NOT NULL,                   -- 0-indexed order within the element
    material_name TEXT NOT NULL,
    fraction REAL NOT NULL,
    volume REAL NOT NULL,
    layer_set_name TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 1,
    FOREIGN KEY (project, element_key) REFERENCES elements(project, element_key) ON DELETE CASCADE
)
`

const createMaterialsTable = `
CREATE TABLE materials (
    project TEXT NOT NULL,
    name TEXT NOT NULL,
    total_volume REAL NOT NULL DEFAULT 0,        -- Sum of element_materials.volume
    element_count INTEGER NOT NULL DEFAULT 0,    -- Distinct elements using the material
    updated_at TEXT NOT NULL,
    PRIMARY KEY (project, name)
)
`

const createImportRunsTable = `
CREATE TABLE import_runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    project TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT,                            -- NULL while running
    files_imported INTEGER NOT NULL DEFAULT 0,
    files_unchanged INTEGER NOT NULL DEFAULT 0,
    files_failed INTEGER NOT NULL DEFAULT 0,
    elements_written INTEGER NOT NULL DEFAULT 0
)
`

const createStoreMetadataTable = `
CREATE TABLE store_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all index creation statements.
func getAllIndexes() []string {
	return []string{
		"CREATE INDEX idx_elements_source_file ON elements(project, source_file)",
		"CREATE INDEX idx_elements_type ON elements(project, element_type)",
		"CREATE INDEX idx_element_materials_element ON element_materials(project, element_key)",
		"CREATE INDEX idx_element_materials_name ON element_materials(project, material_name)",
		"CREATE INDEX idx_import_runs_project ON import_runs(project, started_at)",
	}
}

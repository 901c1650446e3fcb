package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/ifc-lca/internal/extract"
)

// Reader queries persisted elements, material aggregates and file records.
type Reader struct {
	db *sql.DB
}

// NewReader creates a Reader instance.
// DB should have schema already created.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// ListElements returns every element of a project with its material
// breakdown, ordered by source file and STEP id.
func (r *Reader) ListElements(ctx context.Context, project string) ([]StoredElement, error) {
	rows, err := sq.Select(
		"element_key", "source_file", "entity_id", "global_id", "element_type",
		"name", "building_storey", "volume", "updated_at",
	).
		From("elements").
		Where(sq.Eq{"project": project}).
		OrderBy("source_file", "entity_id").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements of project %s: %w", project, err)
	}
	defer rows.Close()

	var elements []StoredElement
	index := make(map[string]int)
	for rows.Next() {
		var el StoredElement
		var updatedAt string
		if err := rows.Scan(
			&el.Key, &el.SourceFile, &el.ID, &el.GlobalID, &el.Type,
			&el.Name, &el.BuildingStorey, &el.Volume, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan element: %w", err)
		}
		el.Project = project
		el.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		el.Materials = []extract.Material{}
		index[el.Key] = len(elements)
		elements = append(elements, el)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate elements: %w", err)
	}
	// release the connection before the second query
	rows.Close()

	if err := r.attachMaterials(ctx, project, elements, index); err != nil {
		return nil, err
	}
	return elements, nil
}

func (r *Reader) attachMaterials(ctx context.Context, project string, elements []StoredElement, index map[string]int) error {
	if len(elements) == 0 {
		return nil
	}

	rows, err := sq.Select(
		"element_key", "material_name", "fraction", "volume", "layer_set_name", "count",
	).
		From("element_materials").
		Where(sq.Eq{"project": project}).
		OrderBy("element_key", "position").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query element materials: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var m extract.Material
		if err := rows.Scan(&key, &m.Name, &m.Fraction, &m.Volume, &m.LayerSetName, &m.Count); err != nil {
			return fmt.Errorf("failed to scan element material: %w", err)
		}
		if i, ok := index[key]; ok {
			elements[i].Materials = append(elements[i].Materials, m)
		}
	}
	return rows.Err()
}

// UniqueMaterials returns the material aggregate of a project ordered by name.
func (r *Reader) UniqueMaterials(ctx context.Context, project string) ([]MaterialSummary, error) {
	rows, err := sq.Select("name", "total_volume", "element_count").
		From("materials").
		Where(sq.Eq{"project": project}).
		OrderBy("name").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query materials of project %s: %w", project, err)
	}
	defer rows.Close()

	var materials []MaterialSummary
	for rows.Next() {
		var m MaterialSummary
		if err := rows.Scan(&m.Name, &m.TotalVolume, &m.ElementCount); err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// FileChecksum returns the recorded hash of a file.
// Returns ("", false, nil) if the file was never imported.
func (r *Reader) FileChecksum(ctx context.Context, project, filePath string) (string, bool, error) {
	var hash string
	err := sq.Select("file_hash").
		From("source_files").
		Where(sq.Eq{"project": project, "file_path": filePath}).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&hash)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get checksum for %s: %w", filePath, err)
	}
	return hash, true, nil
}

// SourceFiles lists the files imported into a project.
func (r *Reader) SourceFiles(ctx context.Context, project string) ([]string, error) {
	rows, err := sq.Select("file_path").
		From("source_files").
		Where(sq.Eq{"project": project}).
		OrderBy("file_path").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query source files: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan source file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Projects lists every project that has stored elements.
func (r *Reader) Projects(ctx context.Context) ([]string, error) {
	rows, err := sq.Select("DISTINCT project").
		From("elements").
		OrderBy("project").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// LastImportRun returns the most recent import run of a project.
// Returns (nil, nil) if the project has none.
func (r *Reader) LastImportRun(ctx context.Context, project string) (*ImportRun, error) {
	run := &ImportRun{Project: project}
	var startedAt string
	var finishedAt sql.NullString

	err := sq.Select(
		"run_id", "started_at", "finished_at",
		"files_imported", "files_unchanged", "files_failed", "elements_written",
	).
		From("import_runs").
		Where(sq.Eq{"project": project}).
		OrderBy("started_at DESC", "rowid DESC").
		Limit(1).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(
			&run.ID, &startedAt, &finishedAt,
			&run.FilesImported, &run.FilesUnchanged, &run.FilesFailed, &run.ElementsWritten,
		)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last import run: %w", err)
	}

	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid {
		t, _ := time.Parse(time.RFC3339, finishedAt.String)
		run.FinishedAt = &t
	}
	return run, nil
}

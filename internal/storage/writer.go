package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/ifc-lca/internal/extract"
)

// DefaultBatchSize is the number of elements written per transaction when
// the writer is created without an explicit size.
const DefaultBatchSize = 500

// Writer persists extracted elements and their material breakdowns.
type Writer struct {
	db        *sql.DB
	batchSize int
	now       func() time.Time
}

// NewWriter creates a Writer instance.
// DB must have schema already created via CreateSchema() or Open().
func NewWriter(db *sql.DB, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Writer{db: db, batchSize: batchSize, now: time.Now}
}

// UpsertElements writes elements extracted from sourceFile into project.
//
// Elements are keyed by (element key, project); an existing row is updated in
// place and its material breakdown is replaced. Writes happen in transactions
// of the writer's batch size. The project's material aggregate is recomputed
// once all batches are committed. It returns the number of elements written.
func (w *Writer) UpsertElements(ctx context.Context, project, sourceFile string, elements []extract.Element) (int, error) {
	written := 0
	for start := 0; start < len(elements); start += w.batchSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		end := min(start+w.batchSize, len(elements))
		if err := w.upsertBatch(ctx, project, sourceFile, elements[start:end]); err != nil {
			return written, err
		}
		written += end - start
	}

	if err := w.RefreshMaterials(ctx, project); err != nil {
		return written, err
	}
	return written, nil
}

func (w *Writer) upsertBatch(ctx context.Context, project, sourceFile string, elements []extract.Element) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	updatedAt := w.now().UTC().Format(time.RFC3339)

	for _, el := range elements {
		key := ElementKey(el, sourceFile)

		_, err := sq.Insert("elements").
			Columns(
				"project", "element_key", "entity_id", "global_id", "element_type",
				"name", "building_storey", "volume", "source_file", "updated_at",
			).
			Values(
				project, key, el.ID, el.GlobalID, el.Type,
				el.Name, el.BuildingStorey, el.Volume, sourceFile, updatedAt,
			).
			Suffix(`ON CONFLICT(project, element_key) DO UPDATE SET
				entity_id = excluded.entity_id,
				global_id = excluded.global_id,
				element_type = excluded.element_type,
				name = excluded.name,
				building_storey = excluded.building_storey,
				volume = excluded.volume,
				source_file = excluded.source_file,
				updated_at = excluded.updated_at`).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert element %s: %w", key, err)
		}

		if err := replaceMaterials(ctx, tx, project, key, el.Materials); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func replaceMaterials(ctx context.Context, tx *sql.Tx, project, key string, materials []extract.Material) error {
	_, err := sq.Delete("element_materials").
		Where(sq.Eq{"project": project, "element_key": key}).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear materials of %s: %w", key, err)
	}

	if len(materials) == 0 {
		return nil
	}

	insert := sq.Insert("element_materials").
		Columns(
			"row_id", "project", "element_key", "position",
			"material_name", "fraction", "volume", "layer_set_name", "count",
		)
	for i, m := range materials {
		insert = insert.Values(
			uuid.New().String(), project, key, i,
			m.Name, m.Fraction, m.Volume, m.LayerSetName, m.Count,
		)
	}
	if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to insert materials of %s: %w", key, err)
	}
	return nil
}

// RefreshMaterials recomputes the materials aggregate of a project from the
// stored element breakdowns.
func (w *Writer) RefreshMaterials(ctx context.Context, project string) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := sq.Delete("materials").
		Where(sq.Eq{"project": project}).
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to clear materials of project %s: %w", project, err)
	}

	aggregate := sq.Select(
		"project",
		"material_name",
		"SUM(volume)",
		"COUNT(DISTINCT element_key)",
	).
		Column("?", w.now().UTC().Format(time.RFC3339)).
		From("element_materials").
		Where(sq.Eq{"project": project}).
		GroupBy("project", "material_name")

	if _, err := sq.Insert("materials").
		Columns("project", "name", "total_volume", "element_count", "updated_at").
		Select(aggregate).
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to aggregate materials of project %s: %w", project, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit materials: %w", err)
	}
	return nil
}

// PruneFile deletes elements previously imported from sourceFile whose keys
// are not in keep. Their material rows cascade. Returns the number removed.
//
// The keys are staged in a temporary table, in chunks of the batch size, so
// their number is not bound by SQLite's host parameter limit.
func (w *Writer) PruneFile(ctx context.Context, project, sourceFile string, keep []string) (int, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := sq.Delete("elements").
		Where(sq.Eq{"project": project, "source_file": sourceFile})

	if len(keep) > 0 {
		if err := stageKeys(ctx, tx, keep, w.batchSize); err != nil {
			return 0, err
		}
		query = query.Where("element_key NOT IN (SELECT element_key FROM " + pruneKeepTable + ")")
	}

	res, err := query.RunWith(tx).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune elements of %s: %w", sourceFile, err)
	}
	n, _ := res.RowsAffected()

	if len(keep) > 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+pruneKeepTable); err != nil {
			return 0, fmt.Errorf("failed to clear staged keys: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune of %s: %w", sourceFile, err)
	}
	return int(n), nil
}

// pruneKeepTable is a connection-local temporary table of element keys.
const pruneKeepTable = "temp.prune_keep"

func stageKeys(ctx context.Context, tx *sql.Tx, keys []string, chunk int) error {
	if _, err := tx.ExecContext(ctx,
		"CREATE TEMP TABLE IF NOT EXISTS prune_keep (element_key TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("failed to create key table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+pruneKeepTable); err != nil {
		return fmt.Errorf("failed to clear staged keys: %w", err)
	}

	for start := 0; start < len(keys); start += chunk {
		end := min(start+chunk, len(keys))
		insert := sq.Insert(pruneKeepTable).Options("OR IGNORE").Columns("element_key")
		for _, key := range keys[start:end] {
			insert = insert.Values(key)
		}
		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to stage element keys: %w", err)
		}
	}
	return nil
}

// DeleteFile removes everything imported from sourceFile, including its
// checksum record, and refreshes the material aggregate.
func (w *Writer) DeleteFile(ctx context.Context, project, sourceFile string) error {
	if _, err := w.PruneFile(ctx, project, sourceFile, nil); err != nil {
		return err
	}

	if _, err := sq.Delete("source_files").
		Where(sq.Eq{"project": project, "file_path": sourceFile}).
		RunWith(w.db).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to delete file record %s: %w", sourceFile, err)
	}

	return w.RefreshMaterials(ctx, project)
}

// SetFileChecksum records the content hash of an imported file.
func (w *Writer) SetFileChecksum(ctx context.Context, project, filePath, hash string, elementCount int) error {
	_, err := sq.Insert("source_files").
		Columns("project", "file_path", "file_hash", "element_count", "imported_at").
		Values(project, filePath, hash, elementCount, w.now().UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(w.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to record checksum for %s: %w", filePath, err)
	}
	return nil
}

// StartImportRun records the start of an importer pass and returns its id.
func (w *Writer) StartImportRun(ctx context.Context, project string) (string, error) {
	id := uuid.New().String()
	_, err := sq.Insert("import_runs").
		Columns("run_id", "project", "started_at").
		Values(id, project, w.now().UTC().Format(time.RFC3339)).
		RunWith(w.db).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start import run: %w", err)
	}
	return id, nil
}

// FinishImportRun stores the outcome counters of a run.
func (w *Writer) FinishImportRun(ctx context.Context, run ImportRun) error {
	_, err := sq.Update("import_runs").
		Set("finished_at", w.now().UTC().Format(time.RFC3339)).
		Set("files_imported", run.FilesImported).
		Set("files_unchanged", run.FilesUnchanged).
		Set("files_failed", run.FilesFailed).
		Set("elements_written", run.ElementsWritten).
		Where(sq.Eq{"run_id": run.ID}).
		RunWith(w.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to finish import run %s: %w", run.ID, err)
	}
	return nil
}

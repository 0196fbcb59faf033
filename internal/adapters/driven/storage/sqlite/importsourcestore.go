package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
)

// Ensure importSourceStore implements the interface.
var _ driven.ImportSourceStore = (*importSourceStore)(nil)

// importSourceStore wraps Store to implement driven.ImportSourceStore.
type importSourceStore struct {
	store *Store
}

// Save stores or updates the import source of a project.
func (s *importSourceStore) Save(ctx context.Context, source domain.ImportSource) error {
	if source.ProjectID == "" {
		return domain.ErrInvalidInput
	}

	var lastImport any
	if !source.LastImport.IsZero() {
		lastImport = source.LastImport.UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO import_sources (project_id, path, format, checksum, last_import)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			path = excluded.path,
			format = excluded.format,
			checksum = excluded.checksum,
			last_import = excluded.last_import
	`, source.ProjectID, source.Path, string(source.Format), source.Checksum, lastImport)
	if err != nil {
		return fmt.Errorf("saving import source: %w", err)
	}
	return nil
}

// Get retrieves the import source of a project.
func (s *importSourceStore) Get(ctx context.Context, projectID string) (*domain.ImportSource, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT project_id, path, format, checksum, last_import
		FROM import_sources WHERE project_id = ?
	`, projectID)

	source, err := scanImportSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return source, nil
}

// List returns every recorded import source ordered by project ID.
func (s *importSourceStore) List(ctx context.Context) ([]domain.ImportSource, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT project_id, path, format, checksum, last_import
		FROM import_sources ORDER BY project_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying import sources: %w", err)
	}
	defer rows.Close()

	sources := []domain.ImportSource{}
	for rows.Next() {
		source, err := scanImportSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating import sources: %w", err)
	}
	return sources, nil
}

// Delete removes the import source of a project.
func (s *importSourceStore) Delete(ctx context.Context, projectID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM import_sources WHERE project_id = ?", projectID)
	if err != nil {
		return fmt.Errorf("deleting import source: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImportSource(row rowScanner) (*domain.ImportSource, error) {
	var source domain.ImportSource
	var format string
	var lastImport sql.NullTime
	if err := row.Scan(&source.ProjectID, &source.Path, &format, &source.Checksum, &lastImport); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning import source: %w", err)
	}
	source.Format = domain.Format(format)
	if lastImport.Valid {
		source.LastImport = lastImport.Time
	}
	return &source, nil
}

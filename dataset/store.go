package dataset

import (
	"database/sql"

	"github.com/quarrydata/quarry/errors"
)

// Store handles persistence of datasets, sources, and templates
type Store struct {
	db *sql.DB
}

// NewStore creates a new dataset store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateDataset inserts a new dataset
func (s *Store) CreateDataset(d *Dataset) error {
	query := `
		INSERT INTO datasets (
			id, name, source_id, type, template_id, params,
			last_execution_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	templateID := sql.NullString{String: d.TemplateID, Valid: d.TemplateID != ""}
	params := sql.NullString{String: string(d.Params), Valid: len(d.Params) > 0}
	lastExec := sql.NullString{String: d.LastExecutionID, Valid: d.LastExecutionID != ""}

	_, err := s.db.Exec(query,
		d.ID, d.Name, d.SourceID, d.Type, templateID, params,
		lastExec, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create dataset")
	}

	return nil
}

// GetDataset retrieves a dataset by ID
func (s *Store) GetDataset(id string) (*Dataset, error) {
	query := `SELECT id, name, source_id, type, template_id, params,
		last_execution_id, created_at, updated_at
		FROM datasets WHERE id = ?`

	var d Dataset
	var templateID, params, lastExec sql.NullString

	err := s.db.QueryRow(query, id).Scan(
		&d.ID, &d.Name, &d.SourceID, &d.Type, &templateID, &params,
		&lastExec, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "dataset %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get dataset")
	}

	if templateID.Valid {
		d.TemplateID = templateID.String
	}
	if params.Valid {
		d.Params = []byte(params.String)
	}
	if lastExec.Valid {
		d.LastExecutionID = lastExec.String
	}

	return &d, nil
}

// ListDatasets returns all datasets ordered by creation time
func (s *Store) ListDatasets(limit int) ([]*Dataset, error) {
	query := `SELECT id, name, source_id, type, template_id, params,
		last_execution_id, created_at, updated_at
		FROM datasets ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list datasets")
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		var d Dataset
		var templateID, params, lastExec sql.NullString
		if err := rows.Scan(
			&d.ID, &d.Name, &d.SourceID, &d.Type, &templateID, &params,
			&lastExec, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan dataset")
		}
		if templateID.Valid {
			d.TemplateID = templateID.String
		}
		if params.Valid {
			d.Params = []byte(params.String)
		}
		if lastExec.Valid {
			d.LastExecutionID = lastExec.String
		}
		datasets = append(datasets, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating datasets")
	}

	return datasets, nil
}

// SetLastExecution updates the dataset's denormalized last-execution pointer
func (s *Store) SetLastExecution(datasetID, executionID string) error {
	result, err := s.db.Exec(
		`UPDATE datasets SET last_execution_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		executionID, datasetID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update last execution pointer")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "dataset %s", datasetID)
	}

	return nil
}

// CreateSource inserts a new source
func (s *Store) CreateSource(src *Source) error {
	_, err := s.db.Exec(
		`INSERT INTO sources (id, name, api_url, api_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, src.APIURL, src.APIKey, src.CreatedAt, src.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create source")
	}
	return nil
}

// GetSource retrieves a source by ID
func (s *Store) GetSource(id string) (*Source, error) {
	var src Source
	err := s.db.QueryRow(
		`SELECT id, name, api_url, api_key, created_at, updated_at FROM sources WHERE id = ?`, id,
	).Scan(&src.ID, &src.Name, &src.APIURL, &src.APIKey, &src.CreatedAt, &src.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "source %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get source")
	}
	return &src, nil
}

// CreateTemplate inserts a template into the shared collection.
// Set user=true to write to the per-install collection instead.
func (s *Store) CreateTemplate(t *Template, user bool) error {
	table := "templates"
	if user {
		table = "user_templates"
	}

	query := `INSERT INTO ` + table + ` (
		id, name, query_template, primary_query, secondary_query,
		id_path, merge_strategy, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		t.ID, t.Name,
		sql.NullString{String: t.QueryTemplate, Valid: t.QueryTemplate != ""},
		sql.NullString{String: t.PrimaryQuery, Valid: t.PrimaryQuery != ""},
		sql.NullString{String: t.SecondaryQuery, Valid: t.SecondaryQuery != ""},
		sql.NullString{String: t.IDPath, Valid: t.IDPath != ""},
		sql.NullString{String: t.MergeStrategy, Valid: t.MergeStrategy != ""},
		t.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create template in %s", table)
	}
	return nil
}

// GetTemplate looks a template up in the shared collection first and falls
// through to the user collection. A miss in both is ErrTemplateMissing.
func (s *Store) GetTemplate(id string) (*Template, error) {
	for _, table := range []string{"templates", "user_templates"} {
		t, err := s.getTemplateFrom(table, id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(err, "failed to get template from %s", table)
		}
	}
	return nil, errors.Wrapf(errors.ErrTemplateMissing, "template %s", id)
}

func (s *Store) getTemplateFrom(table, id string) (*Template, error) {
	query := `SELECT id, name, query_template, primary_query, secondary_query,
		id_path, merge_strategy, created_at FROM ` + table + ` WHERE id = ?`

	var t Template
	var queryTemplate, primaryQuery, secondaryQuery, idPath, mergeStrategy sql.NullString

	err := s.db.QueryRow(query, id).Scan(
		&t.ID, &t.Name, &queryTemplate, &primaryQuery, &secondaryQuery,
		&idPath, &mergeStrategy, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if queryTemplate.Valid {
		t.QueryTemplate = queryTemplate.String
	}
	if primaryQuery.Valid {
		t.PrimaryQuery = primaryQuery.String
	}
	if secondaryQuery.Valid {
		t.SecondaryQuery = secondaryQuery.String
	}
	if idPath.Valid {
		t.IDPath = idPath.String
	}
	if mergeStrategy.Valid {
		t.MergeStrategy = mergeStrategy.String
	}

	return &t, nil
}

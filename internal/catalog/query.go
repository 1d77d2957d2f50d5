// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/spectra-scraper/pkg/types"
)

// Query filters catalog listings.
type Query struct {
	// Category restricts results to IR, Mass or InChI. Empty lists spectra of every category.
	Category types.Category

	// CAS restricts results to a single identifier.
	CAS string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// Record is a catalog row with species and InChI details attached.
type Record struct {
	types.Artifact `yaml:",inline"`
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	Formula        string `json:"formula,omitempty" yaml:"formula,omitempty"`
	InChI          string `json:"inchi,omitempty" yaml:"inchi,omitempty"`
	RunID          string `json:"run_id" yaml:"run_id"`
}

// List returns catalog records ordered by category then CAS number.
func (s *Store) List(ctx context.Context, q Query) ([]Record, error) {
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}
	if q.Category == types.CategoryInChI {
		return s.listInChI(ctx, q, maxResults)
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT a.cas, a.category, a.path, a.size, a.mod_time, a.run_id,
			sp.name, sp.formula, i.value
		FROM artifacts a
		LEFT JOIN species sp ON sp.cas = a.cas
		LEFT JOIN inchi i ON i.cas = a.cas
		WHERE 1=1`)
	if q.Category != "" {
		qb.WriteString(` AND a.category = ?`)
		args = append(args, string(q.Category))
	}
	if q.CAS != "" {
		qb.WriteString(` AND a.cas = ?`)
		args = append(args, q.CAS)
	}
	qb.WriteString(` ORDER BY a.category, a.cas LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r        Record
			category string
			modTime  string
			name     sql.NullString
			formula  sql.NullString
			value    sql.NullString
		)
		if err := rows.Scan(&r.CAS, &category, &r.Path, &r.Size, &modTime, &r.RunID, &name, &formula, &value); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		r.Category = types.Category(category)
		if t, err := time.Parse(time.RFC3339Nano, modTime); err == nil {
			r.ModTime = t
		}
		r.Name = name.String
		r.Formula = formula.String
		r.InChI = value.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) listInChI(ctx context.Context, q Query, maxResults int) ([]Record, error) {
	query := `SELECT i.cas, i.value, i.run_id, sp.name, sp.formula
		FROM inchi i
		LEFT JOIN species sp ON sp.cas = i.cas
		WHERE (? = '' OR i.cas = ?)
		ORDER BY i.cas LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, q.CAS, q.CAS, maxResults)
	if err != nil {
		return nil, fmt.Errorf("querying inchi: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r       Record
			name    sql.NullString
			formula sql.NullString
		)
		if err := rows.Scan(&r.CAS, &r.InChI, &r.RunID, &name, &formula); err != nil {
			return nil, fmt.Errorf("scanning inchi row: %w", err)
		}
		r.Category = types.CategoryInChI
		r.Name = name.String
		r.Formula = formula.String
		records = append(records, r)
	}
	return records, rows.Err()
}

const exportLimit = 1000000

// ExportYAML writes matching records to saveDir/index/catalog.yaml and
// returns the file path.
func (s *Store) ExportYAML(ctx context.Context, q Query) (string, error) {
	records, err := s.exportRecords(ctx, q)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.saveDir, indexDir, "catalog.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes matching records to saveDir/index/catalog.json and
// returns the file path.
func (s *Store) ExportJSON(ctx context.Context, q Query) (string, error) {
	records, err := s.exportRecords(ctx, q)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.saveDir, indexDir, "catalog.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportRecords(ctx context.Context, q Query) ([]Record, error) {
	q.MaxResults = exportLimit
	records, err := s.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes fetched spectra and InChI rows in SQLite so the
// dataset can be listed and exported without walking the tree. The fetch
// stage never reads the catalog; file existence stays its only skip signal.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/spectra-scraper/internal/inchi"
	"github.com/pdiddy/spectra-scraper/internal/spectra"
	"github.com/pdiddy/spectra-scraper/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "catalog.db"

	defaultMaxResults = 50
)

// spectralCategories are the artifact directories scanned by Index.
var spectralCategories = []types.Category{types.CategoryIR, types.CategoryMass}

// Store manages the catalog SQLite database.
type Store struct {
	db         *sql.DB
	saveDir    string
	maxResults int
}

// NewStore opens or creates the catalog at saveDir/index/catalog.db and
// creates the schema if it does not exist.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.SaveDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{
		db:         db,
		saveDir:    cfg.SaveDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			artifacts INTEGER NOT NULL DEFAULT 0,
			inchi INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS species (
			cas TEXT PRIMARY KEY,
			name TEXT,
			formula TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			cas TEXT NOT NULL,
			category TEXT NOT NULL,
			path TEXT NOT NULL,
			size INTEGER NOT NULL,
			mod_time TEXT NOT NULL,
			run_id TEXT NOT NULL REFERENCES runs(id),
			PRIMARY KEY (cas, category)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_category ON artifacts(category)`,
		`CREATE TABLE IF NOT EXISTS inchi (
			cas TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			run_id TEXT NOT NULL REFERENCES runs(id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IndexSummary holds counts from one indexing run.
type IndexSummary struct {
	RunID     uuid.UUID
	Species   int
	Artifacts int
	InChI     int
}

// Index scans the save directory for spectra and inchi.txt and upserts
// them, along with the given species rows. Each call is recorded as a run
// with a fresh UUID.
func (s *Store) Index(ctx context.Context, rows []types.Species, w io.Writer) (IndexSummary, error) {
	summary := IndexSummary{RunID: uuid.New()}

	var artifacts []types.Artifact
	for _, cat := range spectralCategories {
		found, err := scanArtifacts(s.saveDir, cat)
		if err != nil {
			return summary, err
		}
		artifacts = append(artifacts, found...)
	}

	entries, err := inchi.ReadFile(inchi.Path(s.saveDir))
	if err != nil {
		return summary, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	runID := summary.RunID.String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, artifacts, inchi) VALUES (?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), len(artifacts), len(entries),
	); err != nil {
		return summary, fmt.Errorf("recording run: %w", err)
	}

	for _, sp := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO species (cas, name, formula) VALUES (?, ?, ?)
			 ON CONFLICT(cas) DO UPDATE SET name=excluded.name, formula=excluded.formula`,
			sp.CAS, sp.Name, sp.Formula,
		); err != nil {
			return summary, fmt.Errorf("upserting species %s: %w", sp.CAS, err)
		}
		summary.Species++
	}

	for _, a := range artifacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artifacts (cas, category, path, size, mod_time, run_id) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(cas, category) DO UPDATE SET
				path=excluded.path, size=excluded.size, mod_time=excluded.mod_time, run_id=excluded.run_id`,
			a.CAS, string(a.Category), a.Path, a.Size, a.ModTime.UTC().Format(time.RFC3339Nano), runID,
		); err != nil {
			return summary, fmt.Errorf("upserting artifact %s/%s: %w", a.Category, a.CAS, err)
		}
		summary.Artifacts++
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inchi (cas, value, run_id) VALUES (?, ?, ?)
			 ON CONFLICT(cas) DO UPDATE SET value=excluded.value, run_id=excluded.run_id`,
			e.CAS, e.InChI, runID,
		); err != nil {
			return summary, fmt.Errorf("upserting inchi %s: %w", e.CAS, err)
		}
		summary.InChI++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing index run: %w", err)
	}

	fmt.Fprintf(w, "run %s: indexed %d artifacts, %d inchi rows, %d species\n",
		runID, summary.Artifacts, summary.InChI, summary.Species)
	return summary, nil
}

// scanArtifacts lists the .jdx files under saveDir/<category>. A missing
// directory means nothing was fetched for that category.
func scanArtifacts(saveDir string, cat types.Category) ([]types.Artifact, error) {
	dir := filepath.Join(saveDir, cat.Dir())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var out []types.Artifact
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, spectra.Extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		out = append(out, types.Artifact{
			CAS:      strings.TrimSuffix(name, spectra.Extension),
			Category: cat,
			Path:     filepath.Join(dir, name),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	return out, nil
}

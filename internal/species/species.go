// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package species loads the tab-separated species table (name, formula,
// CAS number) that drives every fetch pass.
package species

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/spectra-scraper/pkg/types"
)

const (
	colName = iota
	colFormula
	colCAS
)

// Table is the parsed species list in file order.
type Table struct {
	Rows []types.Species
}

// Load reads the table at path. A missing file is an error so callers can
// abort before any network activity.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no file named %s exists", path)
		}
		return nil, fmt.Errorf("opening species table: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a species table from r. The first line is a header and is
// skipped. Rows without a CAS number are dropped and "-" separators are
// stripped from the rest.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := &Table{}
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing species table: %w", err)
		}
		if line == 0 {
			continue
		}

		cas := NormalizeCAS(field(rec, colCAS))
		if cas == "" {
			continue
		}
		t.Rows = append(t.Rows, types.Species{
			Name:    field(rec, colName),
			Formula: field(rec, colFormula),
			CAS:     cas,
		})
	}
	return t, nil
}

// NormalizeCAS strips whitespace and "-" separators ("64-17-5" -> "64175").
func NormalizeCAS(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "")
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// CASNumbers returns the identifiers in table order.
func (t *Table) CASNumbers() []string {
	ids := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		ids[i] = row.CAS
	}
	return ids
}

// Len returns the number of usable rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

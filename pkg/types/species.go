// Package types defines shared data structures for the spectra-scraper CLI:
// configuration, species rows, fetched artifacts and cross-validation folds.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Category selects which WebBook data a pass requests.
type Category string

const (
	CategoryIR    Category = "IR"
	CategoryMass  Category = "Mass"
	CategoryInChI Category = "InChI"
)

// Dir returns the lower-cased subdirectory name used for artifacts of this category.
func (c Category) Dir() string {
	return strings.ToLower(string(c))
}

// ParseCategory maps a case-insensitive name ("ir", "mass", "ms", "inchi") to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ir":
		return CategoryIR, nil
	case "mass", "ms":
		return CategoryMass, nil
	case "inchi":
		return CategoryInChI, nil
	default:
		return "", fmt.Errorf("unknown category %q (want ir, mass, or inchi)", s)
	}
}

// Species is one row of the input table.
type Species struct {
	Name    string `json:"name" yaml:"name"`
	Formula string `json:"formula" yaml:"formula"`

	// CAS is the registry number with separators stripped (e.g. "64175").
	CAS string `json:"cas" yaml:"cas"`
}

// Artifact describes a spectrum file written by the fetch stage.
type Artifact struct {
	CAS      string   `json:"cas" yaml:"cas"`
	Category Category `json:"category" yaml:"category"`

	// Path is the location of the JCAMP-DX file on disk.
	Path string `json:"path" yaml:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// ModTime is the file modification time as seen when indexed.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Fold is one train/validation partition of a k-fold split. Train and
// Validation hold row indices into the species table.
type Fold struct {
	Index      int   `json:"index" yaml:"index"`
	Train      []int `json:"train" yaml:"train,flow"`
	Validation []int `json:"validation" yaml:"validation,flow"`
}

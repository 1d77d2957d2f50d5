package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/spectra-scraper/internal/inchi"
	"github.com/pdiddy/spectra-scraper/pkg/types"
)

const ethanolInChI = "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3"

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()

	store, err := NewStore(types.CatalogConfig{SaveDir: dir, MaxResults: 20})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dir
}

func writeSpectrum(t *testing.T, dir string, cat types.Category, cas, content string) {
	t.Helper()
	sub := filepath.Join(dir, cat.Dir())
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, cas+".jdx"), []byte(content), 0o644))
}

func writeInChI(t *testing.T, dir string, rows ...string) {
	t.Helper()
	content := inchi.Header
	for _, r := range rows {
		content += r + "\n"
	}
	require.NoError(t, os.WriteFile(inchi.Path(dir), []byte(content), 0o644))
}

var testSpecies = []types.Species{
	{Name: "ethanol", Formula: "C2H6O", CAS: "64175"},
	{Name: "isopropanol", Formula: "C3H8O", CAS: "67630"},
}

// --- tests ---

func TestIndexAndList(t *testing.T) {
	store, dir := testSetup(t)
	writeSpectrum(t, dir, types.CategoryIR, "64175", "##TITLE=ETHANOL\n##END=\n")
	writeSpectrum(t, dir, types.CategoryMass, "64175", "##TITLE=ETHANOL MS\n##END=\n")
	writeSpectrum(t, dir, types.CategoryIR, "67630", "##TITLE=2-PROPANOL\n##END=\n")
	writeInChI(t, dir, "64175\t"+ethanolInChI)

	var buf bytes.Buffer
	summary, err := store.Index(context.Background(), testSpecies, &buf)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, summary.RunID)
	assert.Equal(t, 3, summary.Artifacts)
	assert.Equal(t, 1, summary.InChI)
	assert.Equal(t, 2, summary.Species)
	assert.Contains(t, buf.String(), "indexed 3 artifacts")

	all, err := store.List(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, types.CategoryIR, all[0].Category)
	assert.Equal(t, "64175", all[0].CAS)
	assert.Equal(t, "ethanol", all[0].Name)
	assert.Equal(t, ethanolInChI, all[0].InChI)
	assert.Equal(t, int64(len("##TITLE=ETHANOL\n##END=\n")), all[0].Size)
	assert.Equal(t, summary.RunID.String(), all[0].RunID)

	mass, err := store.List(context.Background(), Query{Category: types.CategoryMass})
	require.NoError(t, err)
	require.Len(t, mass, 1)
	assert.Equal(t, "64175", mass[0].CAS)

	byCAS, err := store.List(context.Background(), Query{CAS: "67630"})
	require.NoError(t, err)
	require.Len(t, byCAS, 1)
	assert.Equal(t, "isopropanol", byCAS[0].Name)
	assert.Empty(t, byCAS[0].InChI)
}

func TestListInChI(t *testing.T) {
	store, dir := testSetup(t)
	writeInChI(t, dir, "64175\t"+ethanolInChI, "67630\tInChI=1S/C3H8O/c1-3(2)4/h3-4H,1-2H3")

	_, err := store.Index(context.Background(), testSpecies, &bytes.Buffer{})
	require.NoError(t, err)

	records, err := store.List(context.Background(), Query{Category: types.CategoryInChI})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, types.CategoryInChI, records[0].Category)
	assert.Equal(t, "ethanol", records[0].Name)

	one, err := store.List(context.Background(), Query{Category: types.CategoryInChI, CAS: "67630"})
	require.NoError(t, err)
	require.Len(t, one, 1)
}

func TestIndexTwiceUpserts(t *testing.T) {
	store, dir := testSetup(t)
	writeSpectrum(t, dir, types.CategoryIR, "64175", "v1")

	first, err := store.Index(context.Background(), nil, &bytes.Buffer{})
	require.NoError(t, err)
	second, err := store.Index(context.Background(), nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)

	records, err := store.List(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, second.RunID.String(), records[0].RunID)
}

func TestIndexIgnoresTempFiles(t *testing.T) {
	store, dir := testSetup(t)
	writeSpectrum(t, dir, types.CategoryIR, "64175", "ok")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ir", ".fetch-123.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ir", "notes.txt"), []byte("x"), 0o644))

	summary, err := store.Index(context.Background(), nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Artifacts)
}

func TestListMaxResults(t *testing.T) {
	store, dir := testSetup(t)
	for _, cas := range []string{"1", "2", "3"} {
		writeSpectrum(t, dir, types.CategoryIR, cas, "x")
	}
	_, err := store.Index(context.Background(), nil, &bytes.Buffer{})
	require.NoError(t, err)

	records, err := store.List(context.Background(), Query{MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestExport(t *testing.T) {
	store, dir := testSetup(t)
	writeSpectrum(t, dir, types.CategoryIR, "64175", "x")
	_, err := store.Index(context.Background(), testSpecies, &bytes.Buffer{})
	require.NoError(t, err)

	yamlPath, err := store.ExportYAML(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "index", "catalog.yaml"), yamlPath)

	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Equal(t, "64175", fromYAML[0]["cas"])
	assert.Equal(t, "ethanol", fromYAML[0]["name"])

	jsonPath, err := store.ExportJSON(context.Background(), Query{Category: types.CategoryMass})
	require.NoError(t, err)
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON []Record
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Empty(t, fromJSON)
}

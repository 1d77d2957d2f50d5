// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inchi

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/spectra-scraper/internal/logging"
	"github.com/pdiddy/spectra-scraper/internal/retry"
	"github.com/pdiddy/spectra-scraper/internal/webbook"
)

const ethanolInChI = "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3"

type fakeFetcher struct {
	answers map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeFetcher) Get(_ context.Context, r webbook.Request) ([]byte, error) {
	cas := strings.TrimPrefix(r.Param("GetInChI"), "C")
	f.calls = append(f.calls, cas)
	if err, ok := f.errs[cas]; ok {
		return nil, err
	}
	return []byte(f.answers[cas]), nil
}

func testOptions(dir string) Options {
	return Options{
		SaveDir: dir,
		Policy: retry.Policy{
			MaxAttempts: 2,
			Delay:       time.Millisecond,
			Retryable:   webbook.IsTimeout,
		},
	}
}

func TestResolveBatchWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{answers: map[string]string{
		"64175": ethanolInChI + "\n",
		"67630": "InChI=1S/C3H8O/c1-3(2)4/h3-4H,1-2H3",
	}}

	result, err := ResolveBatch(context.Background(), f, []string{"64175", "67630"}, testOptions(dir), logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2}, result)

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	want := Header +
		"64175\t" + ethanolInChI + "\n" +
		"67630\tInChI=1S/C3H8O/c1-3(2)4/h3-4H,1-2H3\n"
	assert.Equal(t, want, string(data))
}

func TestResolveBatchTwiceKeepsSingleHeader(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{answers: map[string]string{"64175": ethanolInChI}}
	ids := []string{"64175"}

	_, err := ResolveBatch(context.Background(), f, ids, testOptions(dir), logging.Discard())
	require.NoError(t, err)
	second, err := ResolveBatch(context.Background(), f, ids, testOptions(dir), logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, Result{Skipped: 1}, second)
	assert.Equal(t, []string{"64175"}, f.calls, "recorded identifier must not be requested again")

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "cas_id\tinchi"))
	assert.Equal(t, 1, strings.Count(string(data), "64175\t"))
}

func TestResolveBatchEmptyRunsWriteOneHeader(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{}

	for i := 0; i < 2; i++ {
		_, err := ResolveBatch(context.Background(), f, nil, testOptions(dir), logging.Discard())
		require.NoError(t, err)
	}

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, Header, string(data))
}

func TestResolveBatchFailuresAndEmptyAnswers(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{
		answers: map[string]string{"3": ethanolInChI, "4": "  \n"},
		errs: map[string]error{
			"1": context.DeadlineExceeded,
			"2": errors.New("connection reset"),
		},
	}

	result, err := ResolveBatch(context.Background(), f, []string{"1", "2", "3", "4"}, testOptions(dir), logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, NotFound: 1, Failed: 2}, result)
	assert.Equal(t, []string{"1", "1", "2", "3", "4"}, f.calls)

	entries, err := ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{CAS: "3", InChI: ethanolInChI}}, entries)
}

func TestResolveBatchDuplicateIdentifiers(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{answers: map[string]string{"64175": ethanolInChI}}

	result, err := ResolveBatch(context.Background(), f, []string{"64175", "64175"}, testOptions(dir), logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Skipped: 1}, result)
	assert.Len(t, f.calls, 1)
}

func TestReadFileMissing(t *testing.T) {
	entries, err := ReadFile(Path(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inchi resolves CAS numbers to InChI strings and accumulates them
// in a tab-separated file (cas_id, inchi). Identifiers already present in
// the file are not requested again, and the header is written only when
// the file is new or empty.
package inchi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/spectra-scraper/internal/logging"
	"github.com/pdiddy/spectra-scraper/internal/retry"
	"github.com/pdiddy/spectra-scraper/internal/spectra"
	"github.com/pdiddy/spectra-scraper/internal/webbook"
)

// FileName is the result file inside the save directory.
const FileName = "inchi.txt"

// Header is the first line of a new result file.
const Header = "cas_id\tinchi\n"

// Result holds the outcome counts of a resolution run.
type Result struct {
	Created  int
	Skipped  int
	NotFound int
	Failed   int
}

// Total returns the number of identifiers processed.
func (r Result) Total() int {
	return r.Created + r.Skipped + r.NotFound + r.Failed
}

// Options configures a resolution pass.
type Options struct {
	SaveDir      string
	Policy       retry.Policy
	RequestDelay time.Duration
}

// Path returns the result file location for saveDir.
func Path(saveDir string) string {
	return filepath.Join(saveDir, FileName)
}

// Entry is one resolved row.
type Entry struct {
	CAS   string `json:"cas" yaml:"cas"`
	InChI string `json:"inchi" yaml:"inchi"`
}

// ReadFile returns the rows recorded in path, skipping the header. A
// missing file yields no rows and no error.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line+"\n" == Header {
			continue
		}
		cas, value, _ := strings.Cut(line, "\t")
		entries = append(entries, Entry{CAS: strings.TrimSpace(cas), InChI: value})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return entries, nil
}

// ResolveBatch requests the InChI for each identifier not yet recorded and
// appends one row per answer. Per-identifier failures are logged and
// counted; the batch continues. Only file errors and ctx cancellation are
// returned.
func ResolveBatch(ctx context.Context, f spectra.Fetcher, identifiers []string, opts Options, log *logging.Logger) (Result, error) {
	var result Result
	path := Path(opts.SaveDir)

	existing, err := ReadFile(path)
	if err != nil {
		return result, err
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e.CAS] = true
	}

	if err := os.MkdirAll(opts.SaveDir, 0o755); err != nil {
		return result, fmt.Errorf("creating directory %s: %w", opts.SaveDir, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return result, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return result, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if _, err := file.WriteString(Header); err != nil {
			return result, fmt.Errorf("writing header: %w", err)
		}
	}

	tmpl := webbook.InChITemplate()
	calledNetwork := false
	for _, cas := range identifiers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if seen[cas] {
			log.Info(fmt.Sprintf("Skipping InChi key for id: %s, already exists.", cas))
			result.Skipped++
			continue
		}

		if calledNetwork && opts.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(opts.RequestDelay):
			}
		}
		calledNetwork = true

		body, err := spectra.Request(ctx, f, tmpl.ForCAS(cas), opts.Policy, log.With("cas", cas))
		if err != nil {
			if errors.Is(err, retry.ErrExhausted) {
				log.Error("Failed to get response after multiple retries. Skipping to next CAS number.", "cas", cas)
			} else {
				log.Error(fmt.Sprintf("Request error: %v. Skipping to next CAS number.", err), "cas", cas)
			}
			result.Failed++
			continue
		}

		value := strings.TrimSpace(string(body))
		if value == "" || webbook.IsNotFound(body) {
			log.Debug("no InChI returned", "cas", cas)
			result.NotFound++
			continue
		}
		value = strings.Join(strings.Fields(value), " ")

		if _, err := fmt.Fprintf(file, "%s\t%s\n", cas, value); err != nil {
			return result, fmt.Errorf("writing %s: %w", path, err)
		}
		seen[cas] = true
		result.Created++
		log.Info(fmt.Sprintf("Creating InChi key for id: %s. Total keys created %d", cas, result.Created))
	}

	log.Info(fmt.Sprintf("inchi pass: %d created, %d skipped, %d not found, %d failed (total: %d)",
		result.Created, result.Skipped, result.NotFound, result.Failed, result.Total()))
	return result, nil
}

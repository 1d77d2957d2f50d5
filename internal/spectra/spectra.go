// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package spectra downloads JCAMP-DX spectra from the WebBook and writes
// one file per CAS number. Existing files are never re-fetched or
// overwritten, so an interrupted batch can simply be run again.
package spectra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/spectra-scraper/internal/logging"
	"github.com/pdiddy/spectra-scraper/internal/retry"
	"github.com/pdiddy/spectra-scraper/internal/webbook"
	"github.com/pdiddy/spectra-scraper/pkg/types"
)

// Extension is the file extension of written spectra.
const Extension = ".jdx"

// Fetcher performs one WebBook request. *webbook.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, r webbook.Request) ([]byte, error)
}

// Outcome is what happened to a single identifier.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeSkipped
	OutcomeNotFound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNotFound:
		return "not found"
	default:
		return "failed"
	}
}

// BatchResult holds the outcome counts of a batch run.
type BatchResult struct {
	Created  int
	Skipped  int
	NotFound int
	Failed   int
}

// Total returns the number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Created + r.Skipped + r.NotFound + r.Failed
}

// HasFailures reports whether any identifier got no response.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

func (r *BatchResult) add(o Outcome) {
	switch o {
	case OutcomeCreated:
		r.Created++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeNotFound:
		r.NotFound++
	default:
		r.Failed++
	}
}

// Options configures a fetch pass.
type Options struct {
	// Category is IR or Mass.
	Category types.Category

	// SaveDir is the output root; files go to SaveDir/<category>/<cas>.jdx.
	SaveDir string

	// Policy governs retries of each request.
	Policy retry.Policy

	// RequestDelay is an optional pause between consecutive network calls.
	RequestDelay time.Duration
}

// ArtifactPath returns where the spectrum for cas is stored.
func ArtifactPath(saveDir string, category types.Category, cas string) string {
	return filepath.Join(saveDir, category.Dir(), cas+Extension)
}

// FetchSpectrum fetches and stores the spectrum for one CAS number. If the
// file already exists no request is made. A "not found" body is reported as
// OutcomeNotFound and nothing is written. A non-nil error always comes with
// OutcomeFailed.
func FetchSpectrum(ctx context.Context, f Fetcher, cas string, opts Options, log *logging.Logger) (Outcome, error) {
	dest := ArtifactPath(opts.SaveDir, opts.Category, cas)

	if _, err := os.Stat(dest); err == nil {
		log.Info(fmt.Sprintf("Skipping %s, already exists.", dest), "cas", cas)
		return OutcomeSkipped, nil
	}

	req := webbook.SpectrumTemplate(opts.Category).ForCAS(cas)
	log.Debug("requesting spectrum", "cas", cas, "url", req.URL())

	body, err := Request(ctx, f, req, opts.Policy, log.With("cas", cas))
	if err != nil {
		return OutcomeFailed, err
	}

	if webbook.IsNotFound(body) {
		log.Debug("spectrum not found", "cas", cas, "category", string(opts.Category))
		return OutcomeNotFound, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return OutcomeFailed, fmt.Errorf("creating directory: %w", err)
	}
	if err := writeFile(dest, body); err != nil {
		return OutcomeFailed, fmt.Errorf("writing %s: %w", dest, err)
	}
	return OutcomeCreated, nil
}

// Request runs f.Get under policy, logging each retry. Exhaustion is
// reported as an error matching retry.ErrExhausted.
func Request(ctx context.Context, f Fetcher, req webbook.Request, policy retry.Policy, log *logging.Logger) ([]byte, error) {
	if policy.Retryable == nil {
		policy.Retryable = webbook.IsTimeout
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = retry.DefaultMaxAttempts
	}
	policy.OnRetry = func(attempt int, err error) {
		log.Warn(fmt.Sprintf("Timeout error: %v. Retrying %d/%d.", err, attempt, maxAttempts))
	}

	return retry.Do(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return f.Get(ctx, req)
	})
}

// FetchBatch runs FetchSpectrum over identifiers in order. Individual
// failures are logged and counted; the batch always covers every
// identifier unless ctx is cancelled, in which case the partial result is
// returned with ctx.Err().
func FetchBatch(ctx context.Context, f Fetcher, identifiers []string, opts Options, log *logging.Logger) (BatchResult, error) {
	var result BatchResult

	dir := filepath.Join(opts.SaveDir, opts.Category.Dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	label := opts.Category.Dir()
	calledNetwork := false
	for _, cas := range identifiers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if calledNetwork && opts.RequestDelay > 0 && !exists(ArtifactPath(opts.SaveDir, opts.Category, cas)) {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(opts.RequestDelay):
			}
		}

		outcome, err := FetchSpectrum(ctx, f, cas, opts, log)
		result.add(outcome)
		if outcome != OutcomeSkipped {
			calledNetwork = true
		}

		switch {
		case err != nil && errors.Is(err, retry.ErrExhausted):
			log.Error("Failed to get response after multiple retries. Skipping to next CAS number.", "cas", cas)
		case err != nil:
			log.Error(fmt.Sprintf("Request error: %v. Skipping to next CAS number.", err), "cas", cas)
		case outcome == OutcomeCreated:
			log.Info(fmt.Sprintf("Creating %s spectra for id: %s. Total spectra created %d", label, cas, result.Created))
		}
	}

	log.Info(fmt.Sprintf("%s pass: %d created, %d skipped, %d not found, %d failed (total: %d)",
		label, result.Created, result.Skipped, result.NotFound, result.Failed, result.Total()))
	return result, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFile stores data at destPath via a temporary file and rename, so
// a crash never leaves a partial spectrum that later runs would skip.
func writeFile(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

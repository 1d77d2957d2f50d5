// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/spectra-scraper/internal/inchi"
	"github.com/pdiddy/spectra-scraper/internal/logging"
	"github.com/pdiddy/spectra-scraper/internal/retry"
	"github.com/pdiddy/spectra-scraper/internal/spectra"
	"github.com/pdiddy/spectra-scraper/internal/species"
	"github.com/pdiddy/spectra-scraper/internal/webbook"
	"github.com/pdiddy/spectra-scraper/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "spectra-scraper/0.1"
	logFileName      = "scrap.log"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download spectra and InChI keys for every species in the CAS list",
	Long: `Fetch reads a tab-separated species table (name, formula, CAS number) and
runs up to three independent passes over it: InChI resolution, IR spectra and
mass spectra. Spectra are written to <save-dir>/<type>/<cas>.jdx and InChI keys
are appended to <save-dir>/inchi.txt. Anything already on disk is skipped.

Timed-out requests are retried after a fixed delay; any other request error
skips that CAS number. The batch always runs to the end of the list.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("save-dir", "./data", "directory to store downloaded data")
	fetchCmd.Flags().String("cas-list", "species.txt", "tab-separated file with name, formula and CAS number columns")
	fetchCmd.Flags().Bool("ir", true, "download IR spectra")
	fetchCmd.Flags().Bool("ms", false, "download mass spectra")
	fetchCmd.Flags().Bool("inchi", true, "download InChI keys")
	fetchCmd.Flags().Duration("timeout", defaultTimeout, "per-request HTTP timeout")
	fetchCmd.Flags().Duration("retry-delay", retry.DefaultDelay, "wait before retrying a timed-out request")
	fetchCmd.Flags().Int("max-attempts", retry.DefaultMaxAttempts, "attempts per request before giving up")
	fetchCmd.Flags().Duration("delay", 0, "pause between consecutive requests")
	fetchCmd.Flags().String("log-level", "info", "terminal log level: debug, info, warn, error")
	fetchCmd.Flags().Bool("fail-on-error", false, "exit non-zero if any CAS number got no response")

	bindFlags(fetchCmd, "fetch", "save-dir", "cas-list", "ir", "ms", "inchi",
		"timeout", "retry-delay", "max-attempts", "delay", "log-level")

	rootCmd.AddCommand(fetchCmd)
}

func fetchConfigFromViper() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("fetch.timeout"),
			UserAgent: loadedSecrets.UserAgent(defaultUserAgent),
		},
		RetryConfig: types.RetryConfig{
			MaxAttempts: viper.GetInt("fetch.max_attempts"),
			Delay:       viper.GetDuration("fetch.retry_delay"),
		},
		SaveDir:      viper.GetString("fetch.save_dir"),
		CASList:      viper.GetString("fetch.cas_list"),
		RequestDelay: viper.GetDuration("fetch.delay"),
		FetchIR:      viper.GetBool("fetch.ir"),
		FetchMass:    viper.GetBool("fetch.ms"),
		FetchInChI:   viper.GetBool("fetch.inchi"),
		LogLevel:     viper.GetString("fetch.log_level"),
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := fetchConfigFromViper()
	if err := validateConfig(cfg); err != nil {
		return err
	}

	// The species table must exist before any directory or network work.
	table, err := species.Load(cfg.CASList)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
		return fmt.Errorf("creating save directory: %w", err)
	}

	log := logging.New(cfg.LogLevel)
	if err := log.Setup(cfg.SaveDir, logFileName, cmd.ErrOrStderr()); err != nil {
		return err
	}
	defer log.Close()

	log.Info("Loading CAS file")
	log.Debug("species table loaded", "path", cfg.CASList, "rows", table.Len())

	client := webbook.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg.UserAgent)

	summaries, err := runPasses(cmd.Context(), client, table.CASNumbers(), cfg, log)
	printSummaries(cmd.OutOrStdout(), summaries)
	if err != nil {
		return err
	}

	failOnError, _ := cmd.Flags().GetBool("fail-on-error")
	if failOnError {
		failed := 0
		for _, s := range summaries {
			failed += s.Failed
		}
		if failed > 0 {
			return fmt.Errorf("%d request(s) got no response", failed)
		}
	}
	return nil
}

// passSummary is the outcome of one pass over the identifier list.
type passSummary struct {
	Label    string
	Created  int
	Skipped  int
	NotFound int
	Failed   int
}

// runPasses runs the enabled passes in order: InChI, IR, Mass. Each pass
// covers the full identifier list. Only cancellation or a local file
// error stops the run early.
func runPasses(ctx context.Context, f spectra.Fetcher, ids []string, cfg types.FetchConfig, log *logging.Logger) ([]passSummary, error) {
	policy := retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.Delay,
		Retryable:   webbook.IsTimeout,
	}

	var summaries []passSummary

	log.Info("Scrap InChi keys")
	if cfg.FetchInChI {
		res, err := inchi.ResolveBatch(ctx, f, ids, inchi.Options{
			SaveDir:      cfg.SaveDir,
			Policy:       policy,
			RequestDelay: cfg.RequestDelay,
		}, log)
		summaries = append(summaries, passSummary{"inchi", res.Created, res.Skipped, res.NotFound, res.Failed})
		if err != nil {
			return summaries, err
		}
	}

	passes := []struct {
		enabled  bool
		category types.Category
		title    string
	}{
		{cfg.FetchIR, types.CategoryIR, "Scrap IR spectra"},
		{cfg.FetchMass, types.CategoryMass, "Scrap Mass spectra"},
	}
	for _, p := range passes {
		log.Info(p.title)
		if !p.enabled {
			continue
		}
		res, err := spectra.FetchBatch(ctx, f, ids, spectra.Options{
			Category:     p.category,
			SaveDir:      cfg.SaveDir,
			Policy:       policy,
			RequestDelay: cfg.RequestDelay,
		}, log)
		summaries = append(summaries, passSummary{p.category.Dir(), res.Created, res.Skipped, res.NotFound, res.Failed})
		if err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

func printSummaries(w io.Writer, summaries []passSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No passes enabled.")
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintln(w)
	for _, s := range summaries {
		failed := fmt.Sprint(s.Failed)
		if s.Failed > 0 {
			failed = red(failed)
		}
		fmt.Fprintf(w, "%-6s %s created, %s skipped, %d not found, %s failed\n",
			s.Label, green(s.Created), yellow(s.Skipped), s.NotFound, failed)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/spectra-scraper/internal/catalog"
	"github.com/pdiddy/spectra-scraper/internal/species"
	"github.com/pdiddy/spectra-scraper/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Index, list and export the fetched dataset",
	Long: `Catalog maintains a SQLite index (<save-dir>/index/catalog.db) of the
spectra and InChI keys written by fetch. Use subcommands to rebuild the index,
list records, or export them as YAML or JSON.`,
}

// --- index subcommand ---

var catalogIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the save directory and update the catalog",
	RunE:  runCatalogIndex,
}

func runCatalogIndex(cmd *cobra.Command, args []string) error {
	cfg := catalogConfigFromViper()
	if err := validateConfig(cfg); err != nil {
		return err
	}

	var rows []types.Species
	if cfg.CASList != "" {
		table, err := species.Load(cfg.CASList)
		if err != nil {
			return err
		}
		rows = table.Rows
	}

	store, err := catalog.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Index(cmd.Context(), rows, cmd.OutOrStdout())
	return err
}

// --- list subcommand ---

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog records",
	RunE:  runCatalogList,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	cfg := catalogConfigFromViper()
	if err := validateConfig(cfg); err != nil {
		return err
	}
	q, err := catalogQueryFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := catalog.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), q)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatCatalogOutput(cmd.OutOrStdout(), records, jsonOutput)
}

func formatCatalogOutput(w io.Writer, records []catalog.Record, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	fmt.Fprintf(w, "%-6s  %-12s  %-24s  %-10s  %8s  %s\n",
		"Type", "CAS", "Name", "Formula", "Bytes", "Path/InChI")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, r := range records {
		name := r.Name
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		detail := r.Path
		if r.Category == types.CategoryInChI {
			detail = r.InChI
		}
		fmt.Fprintf(w, "%-6s  %-12s  %-24s  %-10s  %8d  %s\n",
			r.Category.Dir(), r.CAS, name, r.Formula, r.Size, detail)
	}
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export catalog records to <save-dir>/index/catalog.yaml or .json",
	RunE:  runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	cfg := catalogConfigFromViper()
	if err := validateConfig(cfg); err != nil {
		return err
	}
	q, err := catalogQueryFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := catalog.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	format, _ := cmd.Flags().GetString("format")
	var path string
	switch strings.ToLower(format) {
	case "yaml", "yml":
		path, err = store.ExportYAML(cmd.Context(), q)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), q)
	default:
		return fmt.Errorf("unknown export format %q (want yaml or json)", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", path)
	return nil
}

// --- shared ---

func catalogConfigFromViper() types.CatalogConfig {
	return types.CatalogConfig{
		SaveDir:    viper.GetString("catalog.save_dir"),
		CASList:    viper.GetString("catalog.cas_list"),
		MaxResults: viper.GetInt("catalog.max_results"),
	}
}

func catalogQueryFromFlags(cmd *cobra.Command) (catalog.Query, error) {
	var q catalog.Query
	if s, _ := cmd.Flags().GetString("category"); s != "" {
		cat, err := types.ParseCategory(s)
		if err != nil {
			return q, err
		}
		q.Category = cat
	}
	q.CAS, _ = cmd.Flags().GetString("cas")
	if q.CAS != "" {
		q.CAS = species.NormalizeCAS(q.CAS)
	}
	q.MaxResults, _ = cmd.Flags().GetInt("max-results")
	return q, nil
}

func init() {
	catalogCmd.PersistentFlags().String("save-dir", "./data", "directory populated by fetch")
	catalogCmd.PersistentFlags().Int("max-results", 50, "maximum number of listed records")
	for _, name := range []string{"save-dir", "max-results"} {
		if err := viper.BindPFlag("catalog."+strings.ReplaceAll(name, "-", "_"), catalogCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	catalogIndexCmd.Flags().String("cas-list", "", "species table to index names and formulas from")
	bindFlags(catalogIndexCmd, "catalog", "cas-list")

	for _, c := range []*cobra.Command{catalogListCmd, catalogExportCmd} {
		c.Flags().String("category", "", "filter by category: ir, mass, inchi")
		c.Flags().String("cas", "", "filter by CAS number")
	}
	catalogListCmd.Flags().Bool("json", false, "output results as JSON")
	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	catalogCmd.AddCommand(catalogIndexCmd, catalogListCmd, catalogExportCmd)
	rootCmd.AddCommand(catalogCmd)
}

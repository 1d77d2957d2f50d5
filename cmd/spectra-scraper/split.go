package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/spectra-scraper/internal/kfold"
	"github.com/pdiddy/spectra-scraper/internal/species"
	"github.com/pdiddy/spectra-scraper/pkg/types"
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Write k-fold cross-validation splits of the species table",
	Long: `Split shuffles the species table with a fixed seed and writes k
train/validation partitions, listed by CAS number, as YAML. The same table,
fold count and seed always produce the same file.`,
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().String("cas-list", "species.txt", "tab-separated species table")
	splitCmd.Flags().Int("folds", kfold.DefaultFolds, "number of folds")
	splitCmd.Flags().Uint64("seed", kfold.DefaultSeed, "shuffle seed")
	splitCmd.Flags().String("out", "", "output file (default: stdout)")

	bindFlags(splitCmd, "split", "cas-list", "folds", "seed")

	rootCmd.AddCommand(splitCmd)
}

// foldFile is the YAML document written by split.
type foldFile struct {
	Source string      `yaml:"source"`
	Seed   uint64      `yaml:"seed"`
	Folds  []foldEntry `yaml:"folds"`
}

type foldEntry struct {
	Index      int      `yaml:"index"`
	Train      []string `yaml:"train,flow"`
	Validation []string `yaml:"validation,flow"`
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg := types.SplitConfig{
		Folds: viper.GetInt("split.folds"),
		Seed:  viper.GetUint64("split.seed"),
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	casList := viper.GetString("split.cas_list")

	table, err := species.Load(casList)
	if err != nil {
		return err
	}

	doc, err := buildFoldFile(casList, table.CASNumbers(), cfg)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		return writeFoldFile(cmd.OutOrStdout(), doc)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := writeFoldFile(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d folds to %s\n", len(doc.Folds), out)
	return nil
}

func buildFoldFile(source string, ids []string, cfg types.SplitConfig) (foldFile, error) {
	folds, err := kfold.Split(len(ids), cfg.Folds, cfg.Seed)
	if err != nil {
		return foldFile{}, err
	}

	doc := foldFile{Source: source, Seed: cfg.Seed}
	i := 0
	for train, val := range kfold.Partitions(ids, folds) {
		doc.Folds = append(doc.Folds, foldEntry{Index: folds[i].Index, Train: train, Validation: val})
		i++
	}
	return doc, nil
}

func writeFoldFile(w io.Writer, doc foldFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding folds: %w", err)
	}
	return enc.Close()
}

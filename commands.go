package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/photosphere/file-regress-go/lib"
	"github.com/photosphere/file-regress-go/lib/gen"
	"github.com/photosphere/file-regress-go/lib/roots"
	"github.com/spf13/cobra"
)

func (a *app) newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the base and test folders and report regressions",
		Long: "Inventory --base_folder and --test_folder, then list files missing in either tree and files whose content differs.\n" +
			"--exclude takes a glob (** crosses directories) or a regular expression prefixed with re:.",
		Args: cobra.NoArgs,
		RunE: a.runCompare,
	}
	cmd.Flags().String("base_folder", "", "Base (expected) folder: local path or s3://bucket/prefix")
	cmd.Flags().String("test_folder", "", "Test (actual) folder: local path or s3://bucket/prefix")
	cmd.Flags().String("exclude", "", "Exclusion pattern: glob, or re:<regexp>")
	cmd.Flags().String("format", "text", "Output format: text, cases, tree, table, json, yaml")
	return cmd
}

func (a *app) runCompare(cmd *cobra.Command, _ []string) error {
	s, err := a.startSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd)
	cfg := s.cfg
	if cfg.BaseFolder == "" || cfg.TestFolder == "" {
		return usageError(errors.New("both --base_folder and --test_folder are required"))
	}

	base, err := roots.Open(s.ctx, cfg.BaseFolder, cfg, s.logger)
	if err != nil {
		return s.fail(fmt.Errorf("base folder: %w", err))
	}
	test, err := roots.Open(s.ctx, cfg.TestFolder, cfg, s.logger)
	if err != nil {
		return s.fail(fmt.Errorf("test folder: %w", err))
	}

	progress := newProgress(cfg)
	stopProgress := startProgress(cmd.ErrOrStderr(), progress, cfg)
	result, err := lib.CompareRoots(s.ctx, base, test, s.inventoryOptions(progress))
	stopProgress()
	if err != nil {
		if errors.Is(err, lib.ErrBadPattern) {
			return usageError(err)
		}
		return s.fail(err)
	}
	for _, entry := range result.Regressed() {
		s.logger.Info().Str("path", entry.Path).Stringer("classification", entry.Class).Msg("regression")
	}

	if cfg.Format == "cases" {
		err = lib.FormatCases(result, cfg.Verbose, cmd.OutOrStdout())
	} else {
		err = lib.WriteReport(cmd.OutOrStdout(), cfg.Format, result, cfg.BaseFolder, cfg.TestFolder)
	}
	if err != nil {
		return s.fail(err)
	}
	if !cfg.Quiet {
		printCompareSummary(cmd.ErrOrStderr(), result, progress)
	}
	if !result.Identical() {
		return &exitError{code: ExitRegression}
	}
	return nil
}

func (a *app) newInventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory <root>",
		Short: "Print the fingerprint of every file under a root",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runInventory,
	}
	cmd.Flags().String("exclude", "", "Exclusion pattern: glob, or re:<regexp>")
	cmd.Flags().String("format", "text", "Output format: text, json, yaml")
	return cmd
}

func (a *app) runInventory(cmd *cobra.Command, args []string) error {
	s, err := a.startSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd)
	cfg := s.cfg
	switch cfg.Format {
	case "text", "json", "yaml":
	default:
		return usageError(fmt.Errorf("inventory supports text, json, yaml; got %q", cfg.Format))
	}

	store, err := roots.Open(s.ctx, args[0], cfg, s.logger)
	if err != nil {
		return s.fail(err)
	}
	progress := newProgress(cfg)
	stopProgress := startProgress(cmd.ErrOrStderr(), progress, cfg)
	inv, err := lib.BuildInventory(s.ctx, store, s.inventoryOptions(progress))
	stopProgress()
	if err != nil {
		if errors.Is(err, lib.ErrBadPattern) {
			return usageError(err)
		}
		return s.fail(err)
	}
	if err := lib.WriteInventory(cmd.OutOrStdout(), cfg.Format, inv); err != nil {
		return s.fail(err)
	}
	if !cfg.Quiet {
		printInventorySummary(cmd.ErrOrStderr(), progress)
	}
	return nil
}

func (a *app) newIdenticalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identical <file-a> <file-b>",
		Short: "Report whether two files have the same content",
		Long:  "Fingerprint two local files and print identical or different. Exits 1 when they differ.",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runIdentical,
	}
}

func (a *app) runIdentical(cmd *cobra.Command, args []string) error {
	s, err := a.startSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd)
	same, err := lib.FilesIdentical(s.ctx, args[0], args[1], s.inventoryOptions(nil))
	if err != nil {
		return s.fail(err)
	}
	if !same {
		fmt.Fprintln(cmd.OutOrStdout(), "different")
		return &exitError{code: ExitRegression}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "identical")
	return nil
}

type generateFlags struct {
	baseFolder     string
	testFolder     string
	numFiles       int
	maxDepth       int
	modifyPercent  int
	missingPercent int
	seed           uint64
}

func (a *app) newGenerateCmd() *cobra.Command {
	defaults := gen.DefaultOptions()
	g := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a base and a test tree with random differences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd, g)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&g.baseFolder, "base_folder", defaults.BaseFolder, "Folder to write base files into")
	flags.StringVar(&g.testFolder, "test_folder", defaults.TestFolder, "Folder to write test files into")
	flags.IntVar(&g.numFiles, "num_files", defaults.NumFiles, "Number of base files to create")
	flags.IntVar(&g.maxDepth, "max_depth", defaults.MaxDepth, "Maximum subfolder depth")
	flags.IntVar(&g.modifyPercent, "modify_percent", defaults.ModifyPercent, "Percent chance a copied file gets one character changed")
	flags.IntVar(&g.missingPercent, "missing_percent", defaults.MissingPercent, "Percent chance a base file is left out of the test folder")
	flags.Uint64Var(&g.seed, "seed", 0, "Random seed (0 = random)")
	return cmd
}

// runGenerate reads its folders from its own flags: the generator's
// ./base_data and ./test_data defaults are not the compare defaults.
func (a *app) runGenerate(cmd *cobra.Command, g *generateFlags) error {
	s, err := a.startSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd)
	for _, percent := range []int{g.modifyPercent, g.missingPercent} {
		if percent < 0 || percent > 100 {
			return usageError(fmt.Errorf("percentages must be between 0 and 100, got %d", percent))
		}
	}
	started := time.Now()
	summary, err := gen.Generate(gen.Options{
		BaseFolder:     g.baseFolder,
		TestFolder:     g.testFolder,
		NumFiles:       g.numFiles,
		MaxDepth:       g.maxDepth,
		ModifyPercent:  g.modifyPercent,
		MissingPercent: g.missingPercent,
		Seed:           g.seed,
	})
	if err != nil {
		return s.fail(err)
	}
	s.logger.Info().
		Uint64("seed", summary.Seed).
		Int("created", summary.Created).
		Int("omitted", len(summary.Omitted)).
		Int("modified", len(summary.Modified)).
		Int("extra", len(summary.Extra)).
		Msg("generated")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated test data in %s and %s\n", g.baseFolder, g.testFolder)
	fmt.Fprintf(out, "Base files: %d\n", summary.Created)
	fmt.Fprintf(out, "Files left out of test folder: %d\n", len(summary.Omitted))
	fmt.Fprintf(out, "Files modified in test folder: %d\n", len(summary.Modified))
	fmt.Fprintf(out, "Extra files in test folder: %d\n", len(summary.Extra))
	if !s.cfg.Quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Seed %d, took %s\n", summary.Seed, time.Since(started).Round(time.Millisecond))
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/photosphere/file-regress-go/lib"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess    = 0
	ExitRegression = 1
	ExitFatal      = 2
	ExitUsage      = 64
)

// exitError carries the process exit code out of a RunE. A nil err means the
// command already reported the outcome and only the code matters.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error { return &exitError{code: ExitUsage, err: err} }

func fatalError(err error) error { return &exitError{code: ExitFatal, err: err} }

// exitCode maps an Execute error to the process exit code. Errors that did
// not come from a RunE are cobra's own flag and argument errors.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return ExitUsage
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr *exitError
		if !errors.As(err, &exitErr) || exitErr.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(exitCode(err))
}

// app holds the flag targets shared by every subcommand.
type app struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "fileregress",
		Short:         "Regression check between a base and a test directory tree",
		Long:          "Inventory two directory trees (local paths or s3://bucket/prefix), fingerprint every file, and report files missing, extra, or changed in the test tree.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML config file (default: fileregress.yaml in the usual config dirs)")
	flags.String("hash", lib.DefaultAlgorithm, "Fingerprint algorithm: md5, sha256, xxhash")
	flags.Int("chunk_size", lib.DefaultChunkSize, "Read size in bytes when fingerprinting")
	flags.Int("workers", runtime.NumCPU(), "Number of fingerprinting goroutines per root")
	flags.Int("dir_batch_size", 4096, "Directory entries read per ReadDir call")
	flags.String("log_level", "info", "Run log level: debug, info, warn, error")
	flags.Bool("quiet", false, "Suppress progress, summary, and log paths (for scripting)")
	flags.Bool("verbose", false, "Also list unchanged files in the cases format")
	flags.Duration("timeout", 0, "Abort the run after this long (0 = no limit)")
	flags.String("s3_region", "", "AWS region for s3:// roots")
	flags.String("s3_profile", "", "AWS shared config profile for s3:// roots")
	flags.String("s3_endpoint", "", "Custom S3 endpoint (MinIO, LocalStack)")
	flags.Bool("s3_path_style", false, "Use path-style S3 addressing")

	rootCmd.AddCommand(
		a.newCompareCmd(),
		a.newInventoryCmd(),
		a.newIdenticalCmd(),
		a.newGenerateCmd(),
	)
	return rootCmd
}

// loadConfig resolves the configuration for cmd from defaults, config file,
// environment, and the flags the user set.
func (a *app) loadConfig(cmd *cobra.Command) (*lib.Config, error) {
	loader := lib.NewLoader()
	if a.configPath != "" {
		loader.SetConfigFile(a.configPath)
	}
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return nil, usageError(err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// session is the per-run state a command builds after loading config.
type session struct {
	cfg    *lib.Config
	logger *lib.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func (a *app) startSession(cmd *cobra.Command) (*session, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := lib.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fatalError(fmt.Errorf("logger: %w", err))
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cancel := context.CancelFunc(func() {})
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}
	logger.Info().Str("command", cmd.Name()).Str("hash", cfg.Hash).Int("workers", cfg.Workers).Msg("started")
	return &session{cfg: cfg, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// close releases the session and, unless quiet, points the user at the logs.
func (s *session) close(cmd *cobra.Command) {
	s.cancel()
	if !s.cfg.Quiet {
		s.logger.PrintLogPaths(cmd.ErrOrStderr())
	}
	s.logger.Close()
}

// fail logs err as a run error and wraps it as fatal.
func (s *session) fail(err error) error {
	s.logger.LogError(err)
	return fatalError(err)
}

func (s *session) inventoryOptions(progress *lib.ProgressCounts) lib.InventoryOptions {
	opts := s.cfg.InventoryOptions()
	opts.Progress = progress
	opts.Logger = s.logger
	return opts
}

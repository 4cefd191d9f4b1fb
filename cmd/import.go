package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sortify/internal"
)

func newFilesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "files PATH...",
		Short: "Sort explicitly listed media files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd, g)
			if err != nil {
				return err
			}
			defer rt.cleanup()
			return processFiles(cmd.OutOrStdout(), args, rt, g)
		},
	}
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch DIR...",
		Short: "Sort every media file found under the given directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, dir := range args {
				info, err := os.Stat(dir)
				if err != nil || !info.IsDir() {
					return fatal(fmt.Errorf("folder does not exist or is not a directory: %s", dir))
				}
			}

			rt, err := loadRuntime(cmd, g)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			files, err := internal.ScanMediaFiles(args, rt.cfg)
			if err != nil {
				return fatal(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found %d media files\n", len(files))
			return processFiles(cmd.OutOrStdout(), files, rt, g)
		},
	}
	cmd.Flags().Int("limit", 0, "Process at most this many files (0 = all)")
	cmd.Flags().Bool("sniff", false, "Also detect media by content for unknown extensions")
	return cmd
}

// processFiles runs one pipeline batch, records the session and prints the summary.
func processFiles(out io.Writer, files []string, rt *runtimeEnv, g *globalFlags) error {
	pipeline, err := internal.NewFromConfig(rt.cfg, g.dryRun, rt.logger)
	if err != nil {
		return fatal(err)
	}
	defer pipeline.Close()

	results, err := runBatch(out, pipeline, files, rt, g)
	if err != nil {
		return err
	}

	summary := internal.RenderSummary(out, results, g.dryRun)
	if summary.Failed > 0 {
		return &ExitError{Code: exitCodeFailed, Err: fmt.Errorf("%d of %d files failed", summary.Failed, summary.Processed)}
	}
	return nil
}

// runBatch is shared by one-shot commands and watch mode.
func runBatch(out io.Writer, pipeline *internal.Pipeline, files []string, rt *runtimeEnv, g *globalFlags) ([]internal.FileOperationResult, error) {
	if len(files) == 0 {
		return nil, fatal(internal.ErrNoInputs)
	}
	if g.dryRun {
		fmt.Fprintln(out, "Dry run mode: no files will be moved")
	}

	var session *internal.ImportSession
	if rt.cfg.Manifest && !g.dryRun {
		s, err := internal.NewImportSession(pipeline.OutputDir(), files, pipeline.Mode(), rt.cfg.BrowseLinks, rt.logger)
		if err != nil {
			return nil, fatal(err)
		}
		defer s.Close()
		if err := s.LogSessionStart(len(files)); err != nil {
			rt.logger.Warn("manifest write failed", zap.Error(err))
		}
		session = s
	}

	rt.logger.Info("starting run",
		zap.Int("files", len(files)),
		zap.Int("workers", pipeline.Workers()),
		zap.String("mode", string(pipeline.Mode())),
		zap.String("output", pipeline.OutputDir()))

	done := make(chan struct{})
	stopped := make(chan struct{})
	if !color.NoColor && g.verbosity == 0 {
		go func() {
			internal.DisplayProgress(os.Stderr, &pipeline.Progress, time.Now(), done)
			close(stopped)
		}()
	} else {
		close(stopped)
	}
	results, err := pipeline.Run(files)
	close(done)
	<-stopped
	if err != nil {
		return nil, fatal(err)
	}

	if session != nil {
		if err := session.Record(results); err != nil {
			rt.logger.Warn("manifest write failed", zap.Error(err))
		}
		if err := session.LogSessionEnd(); err != nil {
			rt.logger.Warn("manifest write failed", zap.Error(err))
		}
	}
	return results, nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sortify/internal"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Watch an inbox directory and sort media as it arrives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inbox := args[0]
			info, err := os.Stat(inbox)
			if err != nil || !info.IsDir() {
				return fatal(fmt.Errorf("folder does not exist or is not a directory: %s", inbox))
			}

			rt, err := loadRuntime(cmd, g)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			pipeline, err := internal.NewFromConfig(rt.cfg, g.dryRun, rt.logger)
			if err != nil {
				return fatal(err)
			}
			defer pipeline.Close()

			watcher, err := internal.NewWatcher(inbox, rt.cfg, internal.WatchOptions{
				Settle: settle,
				Ignore: []string{pipeline.OutputDir()},
				Logger: rt.logger,
			})
			if err != nil {
				return fatal(fmt.Errorf("failed to start filesystem watcher: %w", err))
			}
			defer watcher.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchLoop(ctx, cmd, watcher, pipeline, rt, g)
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", internal.DefaultSettle, "Quiet period before a batch of new files is processed")
	return cmd
}

// watchLoop runs one pipeline batch per settled set of files. Batches are
// never interrupted; a signal is honoured between them.
func watchLoop(ctx context.Context, cmd *cobra.Command, watcher *internal.Watcher, pipeline *internal.Pipeline, rt *runtimeEnv, g *globalFlags) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching for new media, placing into %s (Ctrl-C to stop)\n", pipeline.OutputDir())

	failed := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Stopping watcher")
			if failed > 0 {
				return &ExitError{Code: exitCodeFailed, Err: fmt.Errorf("%d files failed while watching", failed)}
			}
			return nil

		case batch := <-watcher.Batches():
			rt.logger.Info("inbox batch", zap.Int("files", len(batch)))
			results, err := runBatch(out, pipeline, batch, rt, g)
			if err != nil {
				rt.logger.Error("batch failed", zap.Error(err))
				continue
			}
			failed += internal.RenderSummary(out, results, g.dryRun).Failed

		case err := <-watcher.Errors():
			rt.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

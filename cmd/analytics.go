package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sortify/internal"
)

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "analyze DIR...",
		Short: "Resolve capture times and preview the library layout without changing anything",
		Long: `Run metadata extraction and naming over the media under DIR and report
how files would be bucketed, which backends dated them, and which files have
no usable timestamp. Nothing is moved, copied or hashed.`,
		Args: cobra.MinimumNArgs(1),
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

			pipeline, err := internal.NewFromConfig(rt.cfg, true, rt.logger)
			if err != nil {
				return fatal(err)
			}
			defer pipeline.Close()

			start := time.Now()
			outcomes := pipeline.Analyze(files)
			results := internal.AnalyzeOutcomes(args, pipeline.OutputDir(), outcomes)
			results.ScanDuration = time.Since(start)

			return internal.DisplayAnalytics(cmd.OutOrStdout(), results, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json or yaml")
	cmd.Flags().Int("limit", 0, "Analyze at most this many files (0 = all)")
	cmd.Flags().Bool("sniff", false, "Also detect media by content for unknown extensions")
	return cmd
}

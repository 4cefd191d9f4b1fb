package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"sortify/internal"
)

// Version is overridden from the embedded VERSION file or -ldflags.
var Version = "dev"

const (
	exitCodeFatal  = 1
	exitCodeFailed = 2
)

// ExitError carries the process exit code for main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }
func (e *ExitError) ExitCode() int { return e.Code }

func fatal(err error) error {
	return &ExitError{Code: exitCodeFatal, Err: err}
}

var rootCmd = NewRootCmd()

// ApplyVersion copies Version onto the root command.
func ApplyVersion() {
	rootCmd.Version = Version
}

// Execute runs the CLI with args.
func Execute(args []string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// flag name -> config key
var flagKeys = map[string]string{
	"output-dir":           "output_dir",
	"mode":                 "mode",
	"workers":              "workers",
	"allow-mtime-fallback": "allow_mtime_fallback",
	"backends":             "backends",
	"exiftool":             "exiftool_path",
	"log-file":             "log_file",
	"limit":                "limit",
	"sniff":                "sniff_content",
	"browse":               "browse_links",
}

type globalFlags struct {
	configFile string
	verbosity  int
	dryRun     bool
	noManifest bool
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "sortify",
		Short:         "Sort photos and videos into a dated library by capture time",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/sortify/sortify.toml)")
	pf.CountVarP(&g.verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.String("log-file", "", "Also write JSON logs to this file")
	pf.StringP("output-dir", "o", ".", "Library root that receives the dated tree")
	pf.StringP("mode", "m", string(internal.ModeMove), "How files are placed: move, copy or symlink")
	pf.IntP("workers", "w", 0, "Worker count (0 = half the CPUs)")
	pf.BoolVar(&g.dryRun, "dry-run", false, "Plan names without touching the filesystem")
	pf.Bool("allow-mtime-fallback", false, "Use the file modification time when no metadata has a date")
	pf.StringSlice("backends", internal.DefaultBackends, "Metadata backends in priority order")
	pf.String("exiftool", "", "Path to the exiftool binary")
	pf.BoolVar(&g.noManifest, "no-manifest", false, "Do not write a session manifest")
	pf.Bool("browse", false, "Hardlink placed files into the session directory")

	root.AddCommand(
		newFilesCmd(g),
		newBatchCmd(g),
		newAnalyzeCmd(g),
		newWatchCmd(g),
		newVersionCmd(),
	)
	return root
}

// runtimeEnv is what every processing command needs.
type runtimeEnv struct {
	cfg     *internal.Config
	logger  *zap.Logger
	cleanup func()
}

func loadRuntime(cmd *cobra.Command, g *globalFlags) (*runtimeEnv, error) {
	v, err := internal.NewViper(g.configFile)
	if err != nil {
		return nil, fatal(err)
	}
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key := flagKeys[f.Name]; key != "" {
			bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
		}
	})
	if bindErr != nil {
		return nil, fatal(bindErr)
	}
	if g.noManifest {
		v.Set("manifest", false)
	}

	cfg, err := internal.DecodeConfig(v)
	if err != nil {
		return nil, fatal(fmt.Errorf("invalid configuration: %w", err))
	}

	logger, cleanup, err := internal.NewLogger(internal.LogOptions{Verbosity: g.verbosity, File: cfg.LogFile})
	if err != nil {
		return nil, fatal(err)
	}
	return &runtimeEnv{cfg: cfg, logger: logger, cleanup: cleanup}, nil
}

// Package cmd provides the CLI commands for dive-engine.
package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/duclm1x1/dive-engine/internal/config"
	"github.com/duclm1x1/dive-engine/internal/logging"
	"github.com/duclm1x1/dive-engine/internal/search"
	"github.com/duclm1x1/dive-engine/internal/ui"
	"github.com/duclm1x1/dive-engine/pkg/version"
)

var (
	flagDir     string
	flagNoColor bool
	flagDebug   bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the dive-engine CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dive-engine",
		Short: "Hybrid retrieval engine with explainable ranking",
		Long: `dive-engine indexes documents for hybrid retrieval: BM25 and dense
vector search fused into one ranked list, with a bounded corrective
pass and a budgeted, fully traceable context assembly.

Ingest documents, then query them:

  dive-engine ingest docs/
  dive-engine query "how does fusion ranking work" --explain`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("dive-engine version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagDir, "dir", "", "project directory (default: current directory)")
	cmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		renderer().Error(err)
		return err
	}
	return nil
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig(cfg.Index.Dir)
	logCfg.Level = cfg.Logging.Level
	if flagDebug {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}
	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// loadConfig resolves the project config for the --dir flag.
func loadConfig() (*config.Config, error) {
	dir := flagDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	return config.Load(dir)
}

// openEngine builds the engine from the resolved config.
func openEngine() (*search.Engine, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	engine, err := search.NewEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	return engine, cfg, nil
}

// renderer creates the output renderer; piped output goes plain.
func renderer() *ui.Renderer {
	noColor := flagNoColor || !isatty.IsTerminal(os.Stdout.Fd())
	return ui.NewRenderer(os.Stdout, noColor)
}

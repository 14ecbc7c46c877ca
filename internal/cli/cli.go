package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pfrederiksen/high-lakes/internal/config"
	"github.com/pfrederiksen/high-lakes/internal/logger"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNewPlants = 2
)

// errNewPlants makes a successful scrape exit with ExitNewPlants
var errNewPlants = errors.New("new plants found")

// rootOptions holds the persistent flags and the configuration they resolve to
type rootOptions struct {
	configPath string
	dataDir    string
	format     string
	verbose    bool

	cfg *config.Config
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "high-lakes",
		Short: "Scrape WDFW high lakes fish plants into versioned flat files",
		Long: `A git scraper for Washington high lakes fish stocking.
Fetches the 10 most recent fish plants of every WDFW high lake, writes them as nested
and flattened data files, and optionally commits each snapshot to the repository.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to an INI config file")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Data directory for snapshot files (default \"data\")")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newScrapeCmd(opts),
		newWatchCmd(opts),
		newCountiesCmd(opts),
		newLakesCmd(opts),
		newOpenDataCmd(opts),
		newEnrichCmd(opts),
		newFlattenCmd(opts),
		newHistoryCmd(opts),
		newNotifyCmd(opts),
	)

	return cmd
}

// setup loads the configuration, applies the persistent flags, and installs the logger
func (o *rootOptions) setup(cmd *cobra.Command) error {
	format := OutputFormat(strings.ToLower(o.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", o.format)
	}
	o.format = string(format)

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if o.verbose {
		cfg.LogConf.Level = "debug"
	}
	o.cfg = cfg

	// Logs go to stderr so stdout stays parseable
	log := logger.New(logger.ParseLevel(cfg.LogConf.Level), cmd.ErrOrStderr(), cfg.LogConf.Format == "console")
	logger.SetDefault(log)

	log.Debug("Configuration loaded", logger.Fields{
		"config":        o.configPath,
		"data_dir":      cfg.DataDir,
		"plants_source": cfg.PlantsSource,
		"workers":       cfg.Workers,
	})
	return nil
}

func (o *rootOptions) outputFormat() OutputFormat {
	return OutputFormat(o.format)
}

// run executes the CLI with args and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errNewPlants):
		return ExitNewPlants
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
}

// Execute runs the CLI
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

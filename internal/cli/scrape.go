package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pfrederiksen/high-lakes/internal/config"
	"github.com/pfrederiksen/high-lakes/internal/logger"
	"github.com/pfrederiksen/high-lakes/internal/notifier"
	"github.com/pfrederiksen/high-lakes/internal/pipeline"
	"github.com/pfrederiksen/high-lakes/internal/schedule"
	"github.com/pfrederiksen/high-lakes/internal/telegram"
	"github.com/spf13/cobra"
)

// scrapeOptions are the flags shared by scrape and watch
type scrapeOptions struct {
	commit       bool
	push         bool
	plantsSource string
	maxPlants    int
	historyDB    string
	notify       string
	maxNotify    int
	sortOrder    string
	filters      filterFlags
}

func (s *scrapeOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&s.commit, "commit", false, "Commit the snapshot files to the enclosing git repository")
	cmd.Flags().BoolVar(&s.push, "push", false, "Push after committing (uses GITHUB_TOKEN)")
	cmd.Flags().StringVar(&s.plantsSource, "plants-source", "", "Plant source: pages, open-data or both (default \"both\")")
	cmd.Flags().IntVar(&s.maxPlants, "max-plants", 0, "Plants kept per lake (default 10)")
	cmd.Flags().StringVar(&s.historyDB, "history-db", "", "SQLite archive of every plant seen (disabled when empty)")
	cmd.Flags().StringVar(&s.notify, "notify", "", "Announce new plants: none, dry-run, twitter or telegram (default \"none\")")
	cmd.Flags().IntVar(&s.maxNotify, "max-notify", 0, "Maximum notifications per run (default 10)")
	cmd.Flags().StringVar(&s.sortOrder, "sort", "", "Sort new plants by: date, county or lake")
	s.filters.register(cmd)
}

// apply overrides cfg with the flags that were set on the command line
func (s *scrapeOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("commit") {
		cfg.Commit = s.commit
	}
	if flags.Changed("push") {
		cfg.Push = s.push
		if s.push {
			cfg.Commit = true
		}
	}
	if flags.Changed("plants-source") {
		cfg.PlantsSource = s.plantsSource
	}
	if flags.Changed("max-plants") {
		cfg.MaxPlants = s.maxPlants
	}
	if flags.Changed("history-db") {
		cfg.DBPath = s.historyDB
	}
	if flags.Changed("notify") {
		cfg.NotifyConf.Mode = s.notify
	}
	if flags.Changed("max-notify") {
		cfg.NotifyConf.Max = s.maxNotify
	}
	return cfg.Validate()
}

// pipelineOptions builds the options of a run; dry-run notifications are printed to dryRunOut
func (s *scrapeOptions) pipelineOptions(cfg *config.Config, dryRunOut io.Writer) (pipeline.Options, error) {
	flt, err := s.filters.build()
	if err != nil {
		return pipeline.Options{}, err
	}

	n, err := newNotifier(cfg.NotifyConf.Mode, dryRunOut)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Config:   cfg,
		Notifier: n,
		Filter:   flt,
	}, nil
}

// newNotifier returns the notifier for mode, or nil for "none"
func newNotifier(mode string, dryRunOut io.Writer) (notifier.Notifier, error) {
	switch mode {
	case "", "none":
		return nil, nil
	case "dry-run":
		return notifier.NewDryRunNotifierTo(dryRunOut), nil
	case "twitter":
		tw, err := notifier.NewTwitterNotifier()
		if err != nil {
			return nil, fmt.Errorf("initializing Twitter client: %w", err)
		}
		return tw, nil
	case "telegram":
		tg, err := telegram.NewClientFromEnv()
		if err != nil {
			return nil, fmt.Errorf("initializing Telegram client: %w", err)
		}
		return tg, nil
	default:
		return nil, fmt.Errorf("invalid notify mode: %s", mode)
	}
}

func newScrapeCmd(root *rootOptions) *cobra.Command {
	opts := &scrapeOptions{}

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape all high lakes once and report newly seen plants",
		Long: `Fetches every high lake and its 10 most recent fish plants, writes the snapshot files
to the data directory, and reports plants that were not in the previous snapshot.

Exits 0 when nothing new was found, 2 when new plants were found, 1 on error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, root, opts)
		},
	}
	opts.register(cmd)

	return cmd
}

func runScrape(cmd *cobra.Command, root *rootOptions, opts *scrapeOptions) error {
	cfg := root.cfg
	if err := opts.apply(cmd, cfg); err != nil {
		return err
	}
	order, err := parseSortOrder(opts.sortOrder)
	if err != nil {
		return err
	}

	// Dry-run tweets go to stderr so JSON output stays valid
	popts, err := opts.pipelineOptions(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.Run(ctx, popts)
	if err != nil {
		return fmt.Errorf("scraping: %w", err)
	}

	plants := popts.Filter.Apply(result.NewPlants)
	sortPlants(plants, order)

	filterDesc := ""
	if !popts.Filter.IsEmpty() {
		filterDesc = popts.Filter.String()
	}

	out := newOutputResult(result, plants, filterDesc)
	if err := WriteOutput(cmd.OutOrStdout(), out, root.outputFormat(), root.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if len(plants) > 0 {
		return errNewPlants
	}
	return nil
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &scrapeOptions{}
	var spec string
	var runAtStart bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scrape on a cron schedule until interrupted",
		Long: `Runs the scrape on a schedule (default @daily, in UTC). Accepts standard cron
expressions and descriptors such as "@every 6h". A run still in progress when the next one
is due causes that run to be skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("schedule") {
				cfg.Spec = spec
			}
			if cmd.Flags().Changed("run-at-start") {
				cfg.RunAtStart = runAtStart
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}

			popts, err := opts.pipelineOptions(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			log := logger.WithComponent("watch")
			sched, err := schedule.New(cfg.Spec, func(ctx context.Context) error {
				result, err := pipeline.Run(ctx, popts)
				if err != nil {
					return err
				}
				log.Info("New plants", logger.Fields{
					"run_id":     result.RunID,
					"new_plants": len(popts.Filter.Apply(result.NewPlants)),
					"commit":     result.Commit,
				})
				return nil
			}, cfg.RunAtStart)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return sched.Run(ctx)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&spec, "schedule", schedule.DefaultSpec, "Cron schedule")
	cmd.Flags().BoolVar(&runAtStart, "run-at-start", false, "Scrape immediately instead of waiting for the first tick")

	return cmd
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pfrederiksen/high-lakes/internal/config"
	"github.com/pfrederiksen/high-lakes/internal/filter"
	"github.com/pfrederiksen/high-lakes/internal/flatten"
	"github.com/pfrederiksen/high-lakes/internal/gitcommit"
	"github.com/pfrederiksen/high-lakes/internal/history"
	"github.com/pfrederiksen/high-lakes/internal/lake"
	"github.com/pfrederiksen/high-lakes/internal/logger"
	"github.com/pfrederiksen/high-lakes/internal/notifier"
	"github.com/pfrederiksen/high-lakes/internal/opendata"
	"github.com/pfrederiksen/high-lakes/internal/scraper"
	"github.com/pfrederiksen/high-lakes/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Options configures a run
type Options struct {
	Config *config.Config

	// Notifier receives newly seen plants; nil disables notifications
	Notifier notifier.Notifier

	// Filter narrows the plants passed to the notifier; nil passes them all
	Filter *filter.Filter

	// Now returns the run time; defaults to time.Now
	Now func() time.Time
}

// Result summarizes a run
type Result struct {
	RunID           string           `json:"run_id"`
	StartedAt       time.Time        `json:"started_at"`
	Duration        time.Duration    `json:"duration"`
	Counties        int              `json:"counties"`
	Lakes           int              `json:"lakes"`
	Plants          int              `json:"plants"`
	FailedLakes     int              `json:"failed_lakes"`
	UnrenderedLakes int              `json:"unrendered_lakes"`
	CarriedPlants   int              `json:"carried_plants"` // kept from the previous snapshot for failed lakes
	OpenDataRecords int              `json:"open_data_records"`
	EnrichedLakes   int              `json:"enriched_lakes"`
	Baseline        bool             `json:"baseline"` // no previous snapshot existed
	NewPlants       []*lake.NewPlant `json:"new_plants"`
	HistoryAdded    int              `json:"history_added"`
	Files           []string         `json:"files"`
	Commit          string           `json:"commit,omitempty"`
	Pushed          bool             `json:"pushed"`

	Snapshot []*lake.Lake     `json:"-"`
	Diff     *lake.DiffResult `json:"-"`
}

// sources holds what the parallel fetch stage produced
type sources struct {
	countyIDs   []string
	lakes       []*lake.Lake
	failedLakes []*lake.Lake
	unrendered  int
	records     []opendata.Record
	envelope    *opendata.Envelope
}

// Run executes one scrape
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: now().UTC(),
		NewPlants: make([]*lake.NewPlant, 0),
	}
	log := logger.WithComponent("pipeline")
	log.Info("Starting scrape", logger.Fields{
		"run_id":        result.RunID,
		"plants_source": cfg.PlantsSource,
		"data_dir":      cfg.DataDir,
	})
	logger.IncrCounter("pipeline.runs")
	defer func() {
		result.Duration = time.Since(result.StartedAt)
		logger.RecordTiming("pipeline.run", result.Duration)
	}()

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	previous, err := store.LoadLakes()
	if err != nil {
		return nil, err
	}
	result.Baseline = len(previous) == 0

	src, err := fetch(ctx, cfg, result.StartedAt)
	if err != nil {
		logger.IncrCounter("pipeline.failures")
		return nil, err
	}
	lakes := src.lakes
	result.Counties = len(src.countyIDs)
	result.FailedLakes = len(src.failedLakes)
	result.UnrenderedLakes = src.unrendered
	result.OpenDataRecords = len(src.records)

	if len(src.failedLakes) > 0 {
		result.CarriedPlants = lake.CarryForward(previous, src.failedLakes)
		log.Info("Kept previous plants for failed lakes", logger.Fields{
			"lakes":  len(src.failedLakes),
			"plants": result.CarriedPlants,
		})
	}

	if len(src.records) > 0 {
		start := time.Now()
		result.EnrichedLakes = opendata.Enrich(lakes, src.records)
		logger.Time("pipeline.enrich", start)
	}

	for _, l := range lakes {
		l.KeepRecent(cfg.MaxPlants)
		result.Plants += len(l.Plants)
	}
	result.Lakes = len(lakes)
	result.Snapshot = lakes

	diff := lake.Diff(previous, lakes)
	for _, np := range diff.NewPlants {
		np.Plant.FirstSeen = result.StartedAt
	}
	result.Diff = diff
	result.NewPlants = diff.NewPlants
	logger.SetGauge("pipeline.new_plants", float64(len(diff.NewPlants)))

	files, err := persist(store, lakes, src)
	if err != nil {
		return nil, err
	}
	result.Files = files

	if cfg.DBPath != "" {
		added, err := recordHistory(ctx, cfg.DBPath, lakes, result.StartedAt)
		if err != nil {
			return nil, err
		}
		result.HistoryAdded = added
	}

	if opts.Notifier != nil {
		notify(ctx, log, opts, cfg.NotifyConf, result)
	}

	if cfg.Commit {
		if err := commit(ctx, cfg.GitConf, store, result); err != nil {
			return nil, err
		}
	}

	log.Info("Scrape complete", logger.Fields{
		"run_id":       result.RunID,
		"counties":     result.Counties,
		"lakes":        result.Lakes,
		"plants":       result.Plants,
		"failed_lakes": result.FailedLakes,
		"unrendered":   result.UnrenderedLakes,
		"new_plants":   len(result.NewPlants),
		"commit":       result.Commit,
	})
	return result, nil
}

// fetch scrapes the lake tables and, in parallel, the open data set when it is a plant source
func fetch(ctx context.Context, cfg *config.Config, at time.Time) (*sources, error) {
	src := &sources{}
	usePages := cfg.PlantsSource == config.SourcePages || cfg.PlantsSource == config.SourceBoth
	useOpenData := cfg.PlantsSource == config.SourceOpenData || cfg.PlantsSource == config.SourceBoth

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer logger.Time("pipeline.scrape", time.Now())

		s := scraper.NewFromConfig(cfg.ScrapeConf)
		ids, err := s.FetchCountyIDs(gctx)
		if err != nil {
			return fmt.Errorf("fetching county IDs: %w", err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("no county IDs found at %s", s.URL())
		}
		src.countyIDs = ids

		lakes, err := s.FetchLakesFor(gctx, ids)
		if err != nil {
			return fmt.Errorf("fetching lakes: %w", err)
		}
		src.lakes = lakes

		if usePages {
			report, err := s.FetchAllPlants(gctx, lakes)
			if err != nil {
				return fmt.Errorf("fetching lake plants: %w", err)
			}
			src.failedLakes = report.Failed
			src.unrendered = report.Unrendered
		}
		return nil
	})

	if useOpenData {
		g.Go(func() error {
			defer logger.Time("pipeline.open_data", time.Now())

			records, err := opendata.NewClientFromConfig(cfg.ScrapeConf).FetchAll(gctx)
			if err != nil {
				// Lake pages can still supply plants; the failure is kept in the envelope
				if cfg.PlantsSource == config.SourceBoth && gctx.Err() == nil {
					logger.WithComponent("pipeline").Warn("Open data download failed", nil, err)
					src.envelope = opendata.NewErrorEnvelope(err, at)
					return nil
				}
				return fmt.Errorf("fetching open data: %w", err)
			}
			src.records = records
			src.envelope = opendata.NewEnvelope(records, at)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return src, nil
}

// persist writes every snapshot file and returns their paths
func persist(store *storage.Storage, lakes []*lake.Lake, src *sources) ([]string, error) {
	defer logger.Time("pipeline.persist", time.Now())

	if err := store.SaveLakes(lakes); err != nil {
		return nil, err
	}
	if err := store.SaveFlat(flatten.Rows(lakes)); err != nil {
		return nil, err
	}
	if err := store.SaveCountyIDs(src.countyIDs); err != nil {
		return nil, err
	}

	files := []string{
		store.Path(storage.LakesFile),
		store.Path(storage.FlatFile),
		store.Path(storage.CSVFile),
		store.Path(storage.CountiesFile),
	}

	if src.envelope != nil {
		if err := store.SaveOpenData(src.envelope); err != nil {
			return nil, err
		}
		files = append(files, store.Path(storage.OpenDataFile))
	}
	return files, nil
}

func recordHistory(ctx context.Context, dbPath string, lakes []*lake.Lake, at time.Time) (int, error) {
	store, err := history.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	return store.Record(ctx, lakes, at)
}

// notify sends newly seen plants to the notifier. Failures are logged, never fatal.
func notify(ctx context.Context, log *logger.Logger, opts Options, cfg config.NotifyConf, result *Result) {
	if result.Baseline {
		log.Info("Skipping notifications for baseline snapshot", logger.Fields{
			"new_plants": len(result.NewPlants),
		})
		return
	}

	plants := result.NewPlants
	if opts.Filter != nil {
		plants = opts.Filter.Apply(plants)
	}
	if cfg.Max > 0 && len(plants) > cfg.Max {
		log.Info("Limiting notifications", logger.Fields{
			"total": len(plants),
			"max":   cfg.Max,
		})
		plants = plants[:cfg.Max]
	}
	if len(plants) == 0 {
		return
	}

	if err := notifier.Send(ctx, opts.Notifier, plants); err != nil {
		logger.IncrCounter("pipeline.notify_errors")
		log.Warn("Notification failed", logger.Fields{"plants": len(plants)}, err)
		return
	}
	logger.AddCounter("pipeline.notified", int64(len(plants)))
}

// commit stages the snapshot files and pushes when configured
func commit(ctx context.Context, cfg config.GitConf, store *storage.Storage, result *Result) error {
	defer logger.Time("pipeline.commit", time.Now())

	committer, err := gitcommit.Open(store.Dir(), cfg)
	if err != nil {
		return err
	}

	hash, err := committer.Commit(ctx, result.Files, result.StartedAt)
	if errors.Is(err, gitcommit.ErrNoChanges) {
		logger.WithComponent("pipeline").Info("No data changes to commit", nil)
		return nil
	}
	if err != nil {
		return err
	}
	result.Commit = hash

	if cfg.Push {
		if err := committer.Push(ctx); err != nil {
			return err
		}
		result.Pushed = true
	}
	return nil
}

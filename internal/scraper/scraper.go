package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gammazero/workerpool"
	"github.com/pfrederiksen/high-lakes/internal/config"
	"github.com/pfrederiksen/high-lakes/internal/lake"
	"github.com/pfrederiksen/high-lakes/internal/logger"
	"golang.org/x/time/rate"
)

const (
	HighLakesURL  = "https://wdfw.wa.gov/fishing/locations/high-lakes"
	UserAgent     = "high-lakes/1.0 (github.com/pfrederiksen/high-lakes)"
	Timeout       = 30 * time.Second
	PlantsCaption = "10 most recent fish plants in this lake"

	// MaxPages bounds pagination in case the pager never drops its next link
	MaxPages = 200
)

// ErrPlantsNotRendered means the lake page was served before its plants table was filled in
var ErrPlantsNotRendered = errors.New("plants table not rendered")

// Scraper handles fetching and parsing WDFW high lakes pages
type Scraper struct {
	client    *http.Client
	url       string
	userAgent string
	limiter   *rate.Limiter
	workers   int
	log       *logger.Logger
}

// New creates a new Scraper with default settings
func New() *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
		url:       HighLakesURL,
		userAgent: UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		workers:   4,
		log:       logger.WithComponent("scraper"),
	}
}

// NewFromConfig creates a Scraper from scrape settings
func NewFromConfig(cfg config.ScrapeConf) *Scraper {
	s := New()
	if cfg.HighLakesURL != "" {
		s.url = cfg.HighLakesURL
	}
	if cfg.UserAgent != "" {
		s.userAgent = cfg.UserAgent
	}
	if cfg.Timeout > 0 {
		s.client.Timeout = cfg.Timeout
	}
	if cfg.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	if cfg.Workers > 0 {
		s.workers = cfg.Workers
	}
	return s
}

// URL returns the high-lakes search page the scraper starts from
func (s *Scraper) URL() string {
	return s.url
}

// fetch waits for the rate limiter and returns the parsed page
func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	logger.RecordTiming("scraper.request", time.Since(start))
	logger.IncrCounter("scraper.requests")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// FetchCountyIDs fetches the county IDs offered by the high-lakes search form
func (s *Scraper) FetchCountyIDs(ctx context.Context) ([]string, error) {
	doc, err := s.fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return parseCountyIDs(doc)
}

// FetchLakes fetches every page of the lake table for one county.
// On a failed page the lakes collected so far are returned together with the error.
func (s *Scraper) FetchLakes(ctx context.Context, countyID string) ([]*lake.Lake, error) {
	lakes := make([]*lake.Lake, 0)

	for page := 0; page < MaxPages; page++ {
		pageURL := s.countyPageURL(countyID, page)

		doc, err := s.fetch(ctx, pageURL)
		if err != nil {
			return lakes, fmt.Errorf("fetching county %s page %d: %w", countyID, page, err)
		}

		pageLakes, hasNext := parseLakes(doc, pageURL)
		if len(pageLakes) == 0 {
			break
		}
		lakes = append(lakes, pageLakes...)

		s.log.Debug("Scraped lakes page", logger.Fields{
			"county": countyID,
			"page":   page,
			"lakes":  len(pageLakes),
		})

		if !hasNext {
			break
		}
	}

	return lakes, nil
}

// FetchPlants fetches a lake page and adds the plants listed in its recent plants table.
// Returns ErrPlantsNotRendered when the table holds only the loading placeholder.
func (s *Scraper) FetchPlants(ctx context.Context, l *lake.Lake) error {
	if l.URL == "" {
		return fmt.Errorf("lake %q has no URL", l.Name)
	}

	doc, err := s.fetch(ctx, l.URL)
	if err != nil {
		return err
	}

	plants := parsePlants(doc)
	for _, p := range plants {
		l.AddPlant(p)
	}
	if len(plants) == 0 && plantsLoading(doc) {
		return ErrPlantsNotRendered
	}
	return nil
}

// FetchAllLakes fetches the lake tables of every county. County IDs that fail are logged
// and skipped; failing to read the county list is an error.
func (s *Scraper) FetchAllLakes(ctx context.Context) ([]*lake.Lake, error) {
	countyIDs, err := s.FetchCountyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching county IDs: %w", err)
	}
	if len(countyIDs) == 0 {
		return nil, fmt.Errorf("no county IDs found at %s", s.url)
	}

	s.log.Info("Fetched county IDs", logger.Fields{"counties": len(countyIDs)})
	return s.FetchLakesFor(ctx, countyIDs)
}

// FetchLakesFor fetches the lake tables of the given counties on the worker pool.
// Lakes listed under more than one county are kept once, in county order.
func (s *Scraper) FetchLakesFor(ctx context.Context, countyIDs []string) ([]*lake.Lake, error) {
	// Indexed by county so output order does not depend on scheduling
	perCounty := make([][]*lake.Lake, len(countyIDs))

	wp := workerpool.New(s.workers)
	for i, countyID := range countyIDs {
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			lakes, err := s.FetchLakes(ctx, countyID)
			if err != nil {
				logger.IncrCounter("scraper.county_errors")
				s.log.Warn("County scrape incomplete", logger.Fields{
					"county": countyID,
					"lakes":  len(lakes),
				}, err)
			}
			perCounty[i] = lakes
		})
	}
	wp.StopWait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	all := make([]*lake.Lake, 0)
	for _, lakes := range perCounty {
		for _, l := range lakes {
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
			all = append(all, l)
		}
	}

	logger.SetGauge("scraper.lakes", float64(len(all)))
	return all, nil
}

// PlantsReport summarizes a pass over the lake pages
type PlantsReport struct {
	// Failed lists lakes whose page could not be fetched; they keep no plants
	Failed []*lake.Lake

	// Unrendered counts lakes whose plants table was still loading
	Unrendered int
}

// FetchAllPlants visits every lake page on the worker pool. A lake whose page fails is
// logged and keeps no plants.
func (s *Scraper) FetchAllPlants(ctx context.Context, lakes []*lake.Lake) (*PlantsReport, error) {
	var mu sync.Mutex
	report := &PlantsReport{Failed: make([]*lake.Lake, 0)}

	wp := workerpool.New(s.workers)
	for _, l := range lakes {
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			err := s.FetchPlants(ctx, l)
			switch {
			case errors.Is(err, ErrPlantsNotRendered):
				mu.Lock()
				report.Unrendered++
				mu.Unlock()
				logger.IncrCounter("scraper.lakes_unrendered")
				s.log.Debug("Lake plants table not rendered", logger.Fields{
					"lake":   l.Name,
					"county": l.County,
				})
			case err != nil:
				mu.Lock()
				report.Failed = append(report.Failed, l)
				mu.Unlock()
				logger.IncrCounter("scraper.lake_errors")
				s.log.Warn("Lake page failed", logger.Fields{
					"lake":   l.Name,
					"county": l.County,
					"url":    l.URL,
				}, err)
			default:
				logger.IncrCounter("scraper.lake_pages")
			}
		})
	}
	wp.StopWait()

	if report.Unrendered > 0 {
		s.log.Warn("Lake plants tables were not rendered; use open data for plants", logger.Fields{
			"lakes":      len(lakes),
			"unrendered": report.Unrendered,
		}, nil)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// FetchAll fetches every lake and the recent plants of each
func (s *Scraper) FetchAll(ctx context.Context) ([]*lake.Lake, error) {
	lakes, err := s.FetchAllLakes(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.FetchAllPlants(ctx, lakes)
	if err != nil {
		return nil, err
	}

	s.log.Info("Fetched lake plants", logger.Fields{
		"lakes":      len(lakes),
		"failed":     len(report.Failed),
		"unrendered": report.Unrendered,
	})
	return lakes, nil
}

// countyPageURL builds the search URL for one county and page
func (s *Scraper) countyPageURL(countyID string, page int) string {
	sep := "?"
	if strings.Contains(s.url, "?") {
		sep = "&"
	}
	return s.url + sep + "name=&county%5B%5D=" + url.QueryEscape(countyID) + "&page=" + strconv.Itoa(page)
}

package opendata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/high-lakes/internal/config"
	"github.com/pfrederiksen/high-lakes/internal/lake"
	"github.com/pfrederiksen/high-lakes/internal/logger"
	"golang.org/x/time/rate"
)

const (
	FishPlantsURL = "https://data.wa.gov/resource/6fex-3r7d.json"
	SourceName    = "WA State Data"
	PageSize      = 1000
	Timeout       = 30 * time.Second
)

// Record is one row of the fish plants dataset, as returned by the portal
type Record map[string]interface{}

// String returns the trimmed string value of key, or "" if it is absent
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// first returns the first non-empty value among keys
func (r Record) first(keys ...string) string {
	for _, k := range keys {
		if v := r.String(k); v != "" {
			return v
		}
	}
	return ""
}

// Plant converts the record into a plant
func (r Record) Plant() *lake.Plant {
	return &lake.Plant{
		Date:         r.first("release_start_date", "release_date", "release_end_date"),
		Species:      r.first("species"),
		Number:       r.first("number_released", "number_of_fish"),
		FishPerPound: r.first("number_of_fish_per_pound", "fish_per_pound"),
		Hatchery:     r.first("hatchery", "facility"),
		Location:     r.first("release_location", "location"),
		Source:       lake.SourceOpenData,
	}
}

// Envelope is the file layout used to save a full dataset download
type Envelope struct {
	Source      string   `json:"source"`
	LastUpdated string   `json:"last_updated"`
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	Data        []Record `json:"data"`
}

// NewEnvelope wraps a completed download
func NewEnvelope(records []Record, at time.Time) *Envelope {
	return &Envelope{
		Source:      SourceName,
		LastUpdated: at.UTC().Format(time.RFC3339),
		Status:      "success",
		Message:     fmt.Sprintf("Data scraped and processed. Total records: %d", len(records)),
		Data:        records,
	}
}

// NewErrorEnvelope records a failed download. Data is left empty.
func NewErrorEnvelope(err error, at time.Time) *Envelope {
	return &Envelope{
		Source:      SourceName,
		LastUpdated: at.UTC().Format(time.RFC3339),
		Status:      "error",
		Message:     err.Error(),
		Data:        []Record{},
	}
}

// Client fetches the fish plants dataset
type Client struct {
	client    *http.Client
	url       string
	userAgent string
	pageSize  int
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewClient creates a client for the fish plants dataset
func NewClient() *Client {
	return &Client{
		client: &http.Client{
			Timeout: Timeout,
		},
		url:       FishPlantsURL,
		userAgent: config.Default().UserAgent,
		pageSize:  PageSize,
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		log:       logger.WithComponent("opendata"),
	}
}

// NewClientFromConfig creates a client from scrape settings
func NewClientFromConfig(cfg config.ScrapeConf) *Client {
	c := NewClient()
	if cfg.OpenDataURL != "" {
		c.url = cfg.OpenDataURL
	}
	if cfg.UserAgent != "" {
		c.userAgent = cfg.UserAgent
	}
	if cfg.Timeout > 0 {
		c.client.Timeout = cfg.Timeout
	}
	return c
}

// FetchAll pages through the dataset until a page shorter than the page size is returned
func (c *Client) FetchAll(ctx context.Context) ([]Record, error) {
	all := make([]Record, 0)

	for offset := 0; ; offset += c.pageSize {
		page, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("fetching offset %d: %w", offset, err)
		}
		all = append(all, page...)

		c.log.Debug("Fetched fish plants page", logger.Fields{
			"offset":  offset,
			"records": len(page),
		})

		if len(page) < c.pageSize {
			break
		}
	}

	logger.SetGauge("opendata.records", float64(len(all)))
	c.log.Info("Fetched fish plants dataset", logger.Fields{"records": len(all)})
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, offset int) ([]Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("$limit", strconv.Itoa(c.pageSize))
	q.Set("$offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var page []Record
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding page: %w", err)
	}
	return page, nil
}

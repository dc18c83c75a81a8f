// Package provider fetches case-count series from a covid19api-style HTTP
// service.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/observability"
)

// Client implements pipeline.SeriesFetcher against the provider's
// /dayone/country/{entity} endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a provider client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchSeries returns the entity's full daily series since its first case,
// sorted by date. Rows sharing a date (one per province) are summed.
func (c *Client) FetchSeries(ctx context.Context, entityID string) ([]domain.Observation, error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, fmt.Errorf("fetch series: empty entity id: %w", domain.ErrInvalidArgument)
	}

	start := time.Now()
	rows, err := c.doRequest(ctx, fmt.Sprintf("%s/dayone/country/%s", c.baseURL, url.PathEscape(entityID)))
	c.metrics.ProviderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(rows) == 0 {
		c.metrics.ProviderRequests.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("provider has no series for %q: %w", entityID, domain.ErrNotFound)
	}

	observations, err := toObservations(entityID, rows)
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	c.metrics.ProviderRequests.WithLabelValues("success").Inc()
	c.logger.Debug("provider series fetched", "entity_id", entityID, "rows", len(rows), "observations", len(observations))
	return observations, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]dayRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("provider: %s: %w", fullURL, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("provider API error: status %d: %s", resp.StatusCode, body)
	}

	var rows []dayRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return rows, nil
}

func toObservations(entityID string, rows []dayRow) ([]domain.Observation, error) {
	byDate := make(map[time.Time]*domain.Observation, len(rows))
	for i, row := range rows {
		date, err := domain.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("provider row %d: %w", i, &domain.RecordError{Field: "Date", Reason: err.Error()})
		}
		if row.Confirmed < 0 || row.Deaths < 0 || row.Recovered < 0 {
			return nil, fmt.Errorf("provider row %d: %w", i, &domain.RecordError{Field: "counts", Reason: "negative value"})
		}
		obs, ok := byDate[date]
		if !ok {
			obs = &domain.Observation{EntityID: entityID, Timestamp: date}
			byDate[date] = obs
		}
		obs.Confirmed += uint64(row.Confirmed)
		obs.Deaths += uint64(row.Deaths)
		obs.Recovered += uint64(row.Recovered)
	}

	out := make([]domain.Observation, 0, len(byDate))
	for _, obs := range byDate {
		out = append(out, *obs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Provider API response types.

type dayRow struct {
	Country   string `json:"Country"`
	Province  string `json:"Province"`
	Confirmed int64  `json:"Confirmed"`
	Deaths    int64  `json:"Deaths"`
	Recovered int64  `json:"Recovered"`
	Date      string `json:"Date"`
}

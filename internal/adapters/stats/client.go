// Package stats implements the HTTP client for the external view-counting
// collaborator. The collaborator records endpoint hits and answers aggregated
// visit counts; its storage is opaque to this service.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"eventboard/internal/domain"
)

// timeLayout is the timestamp format the stats collaborator speaks.
const timeLayout = "2006-01-02 15:04:05"

type hitPayload struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

type statsRow struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

type httpStatsClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient returns a StatsClient that calls the stats server at baseURL.
func NewHTTPClient(baseURL string, client *http.Client) domain.StatsClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpStatsClient{baseURL: baseURL, client: client}
}

func (c *httpStatsClient) Hit(ctx context.Context, hit domain.EndpointHit) error {
	payload := hitPayload{
		App:       hit.App,
		URI:       hit.URI,
		IP:        hit.IP,
		Timestamp: hit.Timestamp.Format(timeLayout),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode hit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to record hit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("stats server returned status: %d", resp.StatusCode)
	}
	return nil
}

func (c *httpStatsClient) Stats(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]domain.ViewStats, error) {
	params := url.Values{}
	params.Set("start", start.Format(timeLayout))
	params.Set("end", end.Format(timeLayout))
	for _, uri := range uris {
		params.Add("uris", uri)
	}
	params.Set("unique", strconv.FormatBool(unique))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats server returned status: %d", resp.StatusCode)
	}

	var rows []statsRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode stats response: %w", err)
	}
	out := make([]domain.ViewStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ViewStats{App: row.App, URI: row.URI, Hits: row.Hits})
	}
	return out, nil
}

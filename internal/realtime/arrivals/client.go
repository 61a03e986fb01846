package arrivals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/budairport-bi/transit-etl/internal/config"
)

// Client fetches arrivals-and-departures snapshots from the feed
type Client struct {
	baseURL    string
	key        string
	appVersion string
	client     *http.Client
}

// NewClient creates a feed client with the configured request timeout
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.FeedBaseURL,
		key:        cfg.FeedKey,
		appVersion: cfg.FeedAppVersion,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
	}
}

// FetchArrivals issues one idempotent read for the stop's upcoming arrivals.
// It returns both the parsed payload and the verbatim body so the caller can
// archive the raw response.
func (c *Client) FetchArrivals(ctx context.Context, stopID string, minutesBefore, minutesAfter int) (*Payload, []byte, error) {
	q := url.Values{}
	q.Set("stopId", stopID)
	q.Set("minutesBefore", strconv.Itoa(minutesBefore))
	q.Set("minutesAfter", strconv.Itoa(minutesAfter))
	q.Set("key", c.key)
	q.Set("appVersion", c.appVersion)

	reqURL := c.baseURL + "/arrivals-and-departures-for-stop.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch arrivals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	payload := &Payload{}
	if err := json.Unmarshal(body, payload); err != nil {
		return nil, nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	return payload, body, nil
}

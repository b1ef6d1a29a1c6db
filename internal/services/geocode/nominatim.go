package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/terminal-bench/civicfix/internal/models"
)

const maxResponseBytes = 1 << 20

// NominatimClient reverse-geocodes through a Nominatim-compatible endpoint.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewNominatimClient creates a client for the given base URL. The user agent
// is required by Nominatim's usage policy.
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
	}
}

// nominatimResponse is the subset of the reverse-geocode payload we read.
// Address depth varies by location, so every component is optional.
type nominatimResponse struct {
	Address *struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
	} `json:"address"`
}

// Reverse resolves coordinates to a city/district pair. The most specific of
// city, town and village is used as the city; the county is the district.
// An answer without an address object is an error; an address without a city
// is not — the caller decides whether it can route on what came back.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (models.Address, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	reqURL := c.baseURL + "/reverse?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.Address{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Address{}, fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Address{}, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.Address{}, fmt.Errorf("read body: %w", err)
	}

	var parsed nominatimResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.Address{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Address == nil {
		return models.Address{}, fmt.Errorf("no address components for (%f, %f)", lat, lon)
	}

	city := parsed.Address.City
	if city == "" {
		city = parsed.Address.Town
	}
	if city == "" {
		city = parsed.Address.Village
	}

	return models.Address{
		City:     city,
		District: parsed.Address.County,
	}, nil
}

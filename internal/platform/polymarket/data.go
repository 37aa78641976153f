package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DataClient is the REST client for the Polymarket Data API, used to read
// on-chain position state for a wallet.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
	user       string // wallet address whose positions are queried
}

// NewDataClient creates a new Data API client.
//
// baseURL is the Data API root, e.g. "https://data-api.polymarket.com".
// user is the funder wallet address.
func NewDataClient(baseURL, user string) *DataClient {
	return &DataClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		user: user,
	}
}

// Positions returns the held size per token for the given token IDs. Tokens
// with no position are absent from the map.
func (d *DataClient) Positions(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("user", d.user)
	if len(tokenIDs) > 0 {
		params.Set("asset", strings.Join(tokenIDs, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/positions?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("polymarket/data: positions: %w", err)
	}

	var positions []APIPosition
	if err := json.Unmarshal(body, &positions); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode positions: %w", err)
	}

	out := make(map[string]float64, len(positions))
	for _, p := range positions {
		if p.Size > 0 {
			out[p.Asset] = p.Size
		}
	}
	return out, nil
}

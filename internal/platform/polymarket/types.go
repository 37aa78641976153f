package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kaiwenyuan/updownbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Outcomes and token IDs arrive as JSON-encoded string arrays inside string
// fields.
type APIMarket struct {
	ID             string   `json:"id"`
	Question       string   `json:"question"`
	Slug           string   `json:"slug"`
	ConditionID    string   `json:"conditionId"`
	Active         flexBool `json:"active"` // API may send bool or "true"/"false" string
	Closed         bool     `json:"closed"`
	Outcomes       string   `json:"outcomes"`      // e.g. "[\"Up\",\"Down\"]"
	OutcomePrices  string   `json:"outcomePrices"` // e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs   string   `json:"clobTokenIds"`  // e.g. "[\"123\",\"456\"]"
	Volume         string   `json:"volume"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	GameStartTime  string   `json:"gameStartTime"`
	AcceptingOrder flexBool `json:"acceptingOrders"`
}

// decodeStringArray parses Gamma's JSON-in-a-string array encoding.
func decodeStringArray(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode string array %q: %w", raw, err)
	}
	return out, nil
}

// ToResolvedMarket converts an APIMarket to a domain.ResolvedMarket, mapping
// the Up and Down outcomes to their CLOB token IDs. Markets whose outcome set
// is anything other than exactly {Up, Down} are rejected.
func (m *APIMarket) ToResolvedMarket() (domain.ResolvedMarket, error) {
	outcomes, err := decodeStringArray(m.Outcomes)
	if err != nil {
		return domain.ResolvedMarket{}, err
	}
	tokenIDs, err := decodeStringArray(m.ClobTokenIDs)
	if err != nil {
		return domain.ResolvedMarket{}, err
	}
	if len(outcomes) != 2 || len(tokenIDs) != 2 {
		return domain.ResolvedMarket{}, fmt.Errorf("%w: slug=%s outcomes=%d tokens=%d",
			domain.ErrNotBinaryMarket, m.Slug, len(outcomes), len(tokenIDs))
	}

	rm := domain.ResolvedMarket{
		Slug:     m.Slug,
		MarketID: m.ConditionID,
		Question: m.Question,
	}
	if rm.MarketID == "" {
		rm.MarketID = m.ID
	}

	for i, outcome := range outcomes {
		switch strings.ToLower(outcome) {
		case "up", "yes":
			rm.UpTokenID = tokenIDs[i]
		case "down", "no":
			rm.DownTokenID = tokenIDs[i]
		}
	}
	if rm.UpTokenID == "" || rm.DownTokenID == "" {
		return domain.ResolvedMarket{}, fmt.Errorf("%w: slug=%s outcomes=%v",
			domain.ErrNotBinaryMarket, m.Slug, outcomes)
	}

	for _, candidate := range []string{m.GameStartTime, m.StartDate} {
		if candidate == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, candidate); err == nil {
			rm.StartAt = t
			break
		}
	}
	if m.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
			rm.EndAt = t
		}
	}

	return rm, nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBookParams is one entry in a batch books/prices request body.
type APIBookParams struct {
	TokenID string `json:"token_id"`
}

// APIPriceLevel is a single price level in an orderbook response.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// APIBook is an orderbook snapshot as returned by the CLOB /books endpoint.
type APIBook struct {
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
	Timestamp string          `json:"timestamp"`
	Hash      string          `json:"hash"`
}

// BestAsk returns the lowest ask price and the size resting at it. Returns
// zeros when the ask side is empty.
func (b *APIBook) BestAsk() (price, size float64) {
	for _, lvl := range b.Asks {
		p, err1 := strconv.ParseFloat(lvl.Price, 64)
		s, err2 := strconv.ParseFloat(lvl.Size, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if price == 0 || p < price {
			price, size = p, s
		}
	}
	return price, size
}

// APILastTrade is one entry of the CLOB batch last-trade-price response.
type APILastTrade struct {
	TokenID string `json:"token_id"`
	Price   string `json:"price"`
	Side    string `json:"side"`
}

// APIOrderResult is the per-order response from the CLOB order endpoints.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	TransactID  string `json:"transactID,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// ToDomainOrderResult converts an APIOrderResult to a domain.OrderResult.
func (r *APIOrderResult) ToDomainOrderResult() domain.OrderResult {
	return domain.OrderResult{
		Success:     r.Success,
		OrderID:     r.OrderID,
		Status:      r.Status,
		Message:     r.ErrorMsg,
		ShouldRetry: r.ShouldRetry,
	}
}

// APIBalance is the response of the balance-allowance endpoint. Amounts are
// fixed-point with six decimals.
type APIBalance struct {
	Balance string `json:"balance"`
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APIPosition is one entry of the data-api /positions response.
type APIPosition struct {
	Asset    string  `json:"asset"`
	Size     float64 `json:"size"`
	AvgPrice float64 `json:"avgPrice"`
	Title    string  `json:"title"`
	Outcome  string  `json:"outcome"`
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSCommand is the JSON payload sent to the market channel to subscribe or
// unsubscribe from asset feeds.
type WSCommand struct {
	Type   string   `json:"type"` // "subscribe" or "unsubscribe"
	Assets []string `json:"assets_ids,omitempty"`
}

// WSBookMessage is a full orderbook snapshot delivered over the websocket.
type WSBookMessage struct {
	EventType string          `json:"event_type"`
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
	Timestamp string          `json:"timestamp"`
}

// WSLastTradeMessage carries the most recent trade price for an asset.
type WSLastTradeMessage struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

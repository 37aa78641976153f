package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kaiwenyuan/updownbot/internal/crypto"
	"github.com/kaiwenyuan/updownbot/internal/domain"
)

// usdcDecimals is the fixed-point scale of CLOB amounts (USDC has 6 decimals).
const usdcDecimals = 1e6

// ClobClient is the REST client for the Polymarket CLOB (Central Limit
// Order Book) API. It handles quote reads, order signing and placement, and
// balance queries.
type ClobClient struct {
	baseURL       string
	httpClient    *http.Client
	signer        *crypto.Signer
	hmacAuth      *crypto.HMACAuth
	funder        string // collateral wallet (Safe address for signature type 2)
	signatureType int
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// signer is the EIP-712 signer for order signatures and auth messages.
// funder is the address holding collateral; for EOA trading pass the signer
// address itself.
func NewClobClient(baseURL string, signer *crypto.Signer, funder string, signatureType int) *ClobClient {
	if funder == "" && signer != nil {
		funder = signer.Address().Hex()
	}
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:        signer,
		funder:        funder,
		signatureType: signatureType,
	}
}

// DeriveAPIKey performs the CLOB auth flow to obtain an HMAC API key. It
// signs a ClobAuth EIP-712 message and sends it with L1 headers to the
// derive-api-key endpoint. Per Polymarket docs, L1 requires POLY_ADDRESS,
// POLY_SIGNATURE, POLY_TIMESTAMP, POLY_NONCE. On success it populates the
// client's hmacAuth field.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) error {
	address := c.signer.Address().Hex()
	timestamp := time.Now().Unix()
	nonce := int64(0)

	sig, err := c.signer.SignAuthMessage(address, timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", address)
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("POLY_NONCE", strconv.FormatInt(nonce, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket/clob: auth failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.hmacAuth = &crypto.HMACAuth{
		Key:        authResp.APIKey,
		Secret:     authResp.Secret,
		Passphrase: authResp.Passphrase,
	}

	return nil
}

// LastTradePrices returns the last-trade price per token for a batch of
// token IDs. Tokens the venue has no trade for are absent from the map.
func (c *ClobClient) LastTradePrices(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	params := make([]APIBookParams, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		params = append(params, APIBookParams{TokenID: id})
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/last-trades-prices", params)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: last trade prices: %w", err)
	}

	var trades []APILastTrade
	if err := json.Unmarshal(body, &trades); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode last trade prices: %w", err)
	}

	out := make(map[string]float64, len(trades))
	for _, t := range trades {
		p, err := strconv.ParseFloat(t.Price, 64)
		if err != nil || p <= 0 {
			continue
		}
		out[t.TokenID] = p
	}
	return out, nil
}

// Books returns full orderbook snapshots for a batch of token IDs, keyed by
// token ID.
func (c *ClobClient) Books(ctx context.Context, tokenIDs []string) (map[string]APIBook, error) {
	params := make([]APIBookParams, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		params = append(params, APIBookParams{TokenID: id})
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/books", params)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: books: %w", err)
	}

	var books []APIBook
	if err := json.Unmarshal(body, &books); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode books: %w", err)
	}

	out := make(map[string]APIBook, len(books))
	for _, b := range books {
		out[b.AssetID] = b
	}
	return out, nil
}

// Quotes fetches last-trade prices and orderbooks for both legs in two batch
// calls and folds them into a single snapshot. It implements
// domain.QuoteSource.
func (c *ClobClient) Quotes(ctx context.Context, upTokenID, downTokenID string) (domain.QuoteSnapshot, error) {
	ids := []string{upTokenID, downTokenID}

	prices, err := c.LastTradePrices(ctx, ids)
	if err != nil {
		return domain.QuoteSnapshot{}, err
	}
	books, err := c.Books(ctx, ids)
	if err != nil {
		return domain.QuoteSnapshot{}, err
	}

	snap := domain.QuoteSnapshot{
		UpPrice:   prices[upTokenID],
		DownPrice: prices[downTokenID],
		At:        time.Now(),
	}
	if up, ok := books[upTokenID]; ok {
		snap.UpBestAsk, snap.UpAskSize = up.BestAsk()
	}
	if down, ok := books[downTokenID]; ok {
		snap.DownBestAsk, snap.DownAskSize = down.BestAsk()
	}

	if !snap.Valid() {
		return snap, fmt.Errorf("polymarket/clob: %w: up=%g down=%g",
			domain.ErrNoQuote, snap.UpPrice, snap.DownPrice)
	}
	return snap, nil
}

// Balance returns the free collateral balance in dollars. It implements the
// balance half of domain.ExecutionBackend.
func (c *ClobClient) Balance(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Set("asset_type", "COLLATERAL")
	params.Set("signature_type", strconv.Itoa(c.signatureType))

	body, err := c.doRequest(ctx, http.MethodGet, "/balance-allowance?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: balance: %w", err)
	}

	var bal APIBalance
	if err := json.Unmarshal(body, &bal); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode balance: %w", err)
	}
	raw, err := strconv.ParseFloat(bal.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: parse balance %q: %w", bal.Balance, err)
	}
	return raw / usdcDecimals, nil
}

// signedOrder is the JSON shape of one order in a batch submit.
type signedOrder struct {
	Order     map[string]any `json:"order"`
	Owner     string         `json:"owner"`
	OrderType string         `json:"orderType"`
}

// SignOrder converts a domain order into a signed CLOB payload without
// posting it. Multi-leg callers sign every leg first so the posts happen
// back to back.
func (c *ClobClient) SignOrder(order domain.Order) (map[string]any, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("polymarket/clob: %w: no signer configured", domain.ErrSigningFailed)
	}

	sideNum := 0
	if order.Side == domain.OrderSideSell {
		sideNum = 1
	}

	// Fixed-point amounts. For a BUY the maker gives collateral and takes
	// outcome tokens; a SELL is the inverse.
	collateral := strconv.FormatInt(int64(math.Round(order.Price*order.Size*usdcDecimals)), 10)
	tokens := strconv.FormatInt(int64(math.Round(order.Size*usdcDecimals)), 10)
	makerAmount, takerAmount := collateral, tokens
	if order.Side == domain.OrderSideSell {
		makerAmount, takerAmount = tokens, collateral
	}

	payload := crypto.OrderPayload{
		Salt:          strconv.FormatInt(rand.Int64N(math.MaxInt64), 10),
		Maker:         c.funder,
		Signer:        c.signer.Address().Hex(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       order.TokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          sideNum,
		SignatureType: c.signatureType,
	}

	sig, err := c.signer.SignOrder(payload)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: %w: %v", domain.ErrSigningFailed, err)
	}

	return map[string]any{
		"salt":          payload.Salt,
		"maker":         payload.Maker,
		"signer":        payload.Signer,
		"taker":         payload.Taker,
		"tokenId":       payload.TokenID,
		"makerAmount":   payload.MakerAmount,
		"takerAmount":   payload.TakerAmount,
		"expiration":    payload.Expiration,
		"nonce":         payload.Nonce,
		"feeRateBps":    payload.FeeRateBps,
		"side":          string(order.Side),
		"signatureType": payload.SignatureType,
		"signature":     sig,
	}, nil
}

// PostOrders signs every order first and then submits them in a single batch
// request, one result per order in input order.
func (c *ClobClient) PostOrders(ctx context.Context, orders []domain.Order) ([]domain.OrderResult, error) {
	if len(orders) == 0 {
		return nil, nil
	}

	owner := ""
	if c.hmacAuth != nil {
		owner = c.hmacAuth.Key
	}

	batch := make([]signedOrder, 0, len(orders))
	for _, o := range orders {
		payload, err := c.SignOrder(o)
		if err != nil {
			return nil, err
		}
		batch = append(batch, signedOrder{
			Order:     payload,
			Owner:     owner,
			OrderType: string(o.Type),
		})
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/orders", batch)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: post orders: %w", err)
	}

	var apiResults []APIOrderResult
	if err := json.Unmarshal(body, &apiResults); err != nil {
		// Single-order submits may come back as a bare object.
		var one APIOrderResult
		if err2 := json.Unmarshal(body, &one); err2 != nil {
			return nil, fmt.Errorf("polymarket/clob: decode order results: %w", err)
		}
		apiResults = []APIOrderResult{one}
	}

	results := make([]domain.OrderResult, 0, len(apiResults))
	for i := range apiResults {
		results = append(results, apiResults[i].ToDomainOrderResult())
	}
	return results, nil
}

// CancelAll cancels all open orders for the authenticated wallet.
func (c *ClobClient) CancelAll(ctx context.Context) error {
	body, err := c.doRequest(ctx, http.MethodDelete, "/cancel-all", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: cancel all: %w", err)
	}

	var result struct {
		Success  bool   `json:"success"`
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("polymarket/clob: decode cancel-all response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("polymarket/clob: cancel-all failed: %s", result.ErrorMsg)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, HMAC-signs (when credentials are present), sends, and
// reads an HTTP request against the CLOB API. It returns the raw response
// body.
func (c *ClobClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.hmacAuth != nil && c.signer != nil {
		headers := c.hmacAuth.L2Headers(c.signer.Address().Hex(), method, path, bodyStr)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

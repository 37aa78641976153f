package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kaiwenyuan/updownbot/internal/domain"
)

func TestFlexBool(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"True"`, true},
		{`"false"`, false},
		{`"1"`, true},
		{`"0"`, false},
	}
	for _, tc := range cases {
		var f flexBool
		if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if bool(f) != tc.want {
			t.Errorf("flexBool(%s) = %v, want %v", tc.in, bool(f), tc.want)
		}
	}
}

func TestToResolvedMarket(t *testing.T) {
	m := APIMarket{
		ID:           "519233",
		Question:     "Bitcoin Up or Down - August 29, 3:40PM ET",
		Slug:         "bitcoin-updown-5m-1756496400",
		ConditionID:  "0xdead",
		Outcomes:     `["Up","Down"]`,
		ClobTokenIDs: `["111","222"]`,
		StartDate:    "2026-08-29T19:40:00Z",
		EndDate:      "2026-08-29T19:45:00Z",
	}
	rm, err := m.ToResolvedMarket()
	if err != nil {
		t.Fatalf("ToResolvedMarket: %v", err)
	}
	if rm.UpTokenID != "111" || rm.DownTokenID != "222" {
		t.Errorf("token mapping = (%s, %s), want (111, 222)", rm.UpTokenID, rm.DownTokenID)
	}
	if rm.MarketID != "0xdead" {
		t.Errorf("MarketID = %s, want condition id", rm.MarketID)
	}
	if rm.StartAt.IsZero() || rm.EndAt.Sub(rm.StartAt) != 5*time.Minute {
		t.Errorf("timestamps not parsed: start=%v end=%v", rm.StartAt, rm.EndAt)
	}
}

func TestToResolvedMarketSwappedOutcomes(t *testing.T) {
	m := APIMarket{
		Slug:         "ethereum-updown-5m-1756496400",
		Outcomes:     `["Down","Up"]`,
		ClobTokenIDs: `["333","444"]`,
	}
	rm, err := m.ToResolvedMarket()
	if err != nil {
		t.Fatal(err)
	}
	if rm.UpTokenID != "444" || rm.DownTokenID != "333" {
		t.Errorf("token mapping = (%s, %s), want (444, 333)", rm.UpTokenID, rm.DownTokenID)
	}
}

func TestToResolvedMarketRejectsNonBinary(t *testing.T) {
	cases := []struct {
		name string
		m    APIMarket
	}{
		{"three outcomes", APIMarket{Outcomes: `["A","B","C"]`, ClobTokenIDs: `["1","2","3"]`}},
		{"one outcome", APIMarket{Outcomes: `["Up"]`, ClobTokenIDs: `["1"]`}},
		{"wrong labels", APIMarket{Outcomes: `["Red","Blue"]`, ClobTokenIDs: `["1","2"]`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.m.ToResolvedMarket()
			if !errors.Is(err, domain.ErrNotBinaryMarket) {
				t.Fatalf("expected ErrNotBinaryMarket, got %v", err)
			}
		})
	}
}

func TestBookBestAsk(t *testing.T) {
	b := APIBook{
		Asks: []APIPriceLevel{
			{Price: "0.60", Size: "120"},
			{Price: "0.47", Size: "250"},
			{Price: "0.52", Size: "80"},
		},
	}
	price, size := b.BestAsk()
	if price != 0.47 || size != 250 {
		t.Errorf("BestAsk = (%g, %g), want (0.47, 250)", price, size)
	}

	empty := APIBook{}
	price, size = empty.BestAsk()
	if price != 0 || size != 0 {
		t.Errorf("empty book BestAsk = (%g, %g), want zeros", price, size)
	}
}

func TestGammaResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") == "" {
			t.Error("missing slug query param")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": "1",
			"question": "Solana Up or Down",
			"slug": "solana-updown-5m-1756496400",
			"conditionId": "0xbeef",
			"outcomes": "[\"Up\",\"Down\"]",
			"clobTokenIds": "[\"9\",\"10\"]",
			"active": "true"
		}]`))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	rm, err := g.Resolve(context.Background(), "solana-updown-5m-1756496400")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rm.UpTokenID != "9" || rm.DownTokenID != "10" {
		t.Errorf("tokens = (%s, %s), want (9, 10)", rm.UpTokenID, rm.DownTokenID)
	}
}

func TestGammaResolveNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	_, err := g.Resolve(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClobQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/last-trades-prices":
			w.Write([]byte(`[
				{"token_id":"up1","price":"0.46"},
				{"token_id":"dn1","price":"0.52"}
			]`))
		case "/books":
			w.Write([]byte(`[
				{"asset_id":"up1","asks":[{"price":"0.47","size":"300"}],"bids":[]},
				{"asset_id":"dn1","asks":[{"price":"0.53","size":"150"}],"bids":[]}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, nil, "", 2)
	snap, err := c.Quotes(context.Background(), "up1", "dn1")
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if snap.UpPrice != 0.46 || snap.DownPrice != 0.52 {
		t.Errorf("prices = (%g, %g), want (0.46, 0.52)", snap.UpPrice, snap.DownPrice)
	}
	if snap.UpBestAsk != 0.47 || snap.UpAskSize != 300 {
		t.Errorf("up ask = (%g, %g), want (0.47, 300)", snap.UpBestAsk, snap.UpAskSize)
	}
	if snap.DownBestAsk != 0.53 || snap.DownAskSize != 150 {
		t.Errorf("down ask = (%g, %g), want (0.53, 150)", snap.DownBestAsk, snap.DownAskSize)
	}
}

func TestClobQuotesMissingLeg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/last-trades-prices":
			w.Write([]byte(`[{"token_id":"up1","price":"0.46"}]`))
		case "/books":
			w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, nil, "", 2)
	_, err := c.Quotes(context.Background(), "up1", "dn1")
	if !errors.Is(err, domain.ErrNoQuote) {
		t.Fatalf("expected ErrNoQuote, got %v", err)
	}
}

func TestClobBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/balance-allowance" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"balance":"123450000"}`))
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, nil, "", 2)
	bal, err := c.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 123.45 {
		t.Errorf("balance = %g, want 123.45", bal)
	}
}

func TestCheckHTTPStatus(t *testing.T) {
	if err := checkHTTPStatus(200, nil); err != nil {
		t.Errorf("2xx should pass, got %v", err)
	}
	if err := checkHTTPStatus(404, []byte("x")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("404 should map to ErrNotFound, got %v", err)
	}
	if err := checkHTTPStatus(401, []byte("x")); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("401 should map to ErrUnauthorized, got %v", err)
	}
	if err := checkHTTPStatus(429, []byte("x")); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("429 should map to ErrRateLimited, got %v", err)
	}
	if err := checkHTTPStatus(500, []byte("x")); err == nil {
		t.Error("500 should error")
	}
}

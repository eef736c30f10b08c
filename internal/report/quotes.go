package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Quote is one asset's market snapshot from a quote source.
type Quote struct {
	Symbol        string
	PriceUSD      float64
	Change24hPct  float64
	Volume24hUSD  float64
	MarketCapRank int
}

// QuoteSource fetches market quotes for canonical asset symbols. Unknown
// symbols are skipped, not errors.
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) ([]Quote, error)
}

// coinIDs maps canonical symbols to the quote API's coin identifiers.
var coinIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"HBAR": "hedera-hashgraph",
	"SOL":  "solana",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
	"ADA":  "cardano",
	"DOT":  "polkadot",
	"LINK": "chainlink",
	"AVAX": "avalanche-2",
}

// HTTPQuoteSource fetches quotes from a CoinGecko-compatible API.
type HTTPQuoteSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPQuoteSource creates a source against the given API base URL.
func NewHTTPQuoteSource(baseURL string) *HTTPQuoteSource {
	return &HTTPQuoteSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Quotes fetches simple price data for the given symbols.
func (s *HTTPQuoteSource) Quotes(ctx context.Context, symbols []string) ([]Quote, error) {
	ids := make([]string, 0, len(symbols))
	bySymbol := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		if id, ok := coinIDs[sym]; ok {
			ids = append(ids, id)
			bySymbol[id] = sym
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	endpoint := fmt.Sprintf(
		"%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true&include_24hr_vol=true",
		s.baseURL, url.QueryEscape(strings.Join(ids, ",")),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote API returned %d", resp.StatusCode)
	}

	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	// Preserve requested order
	quotes := make([]Quote, 0, len(ids))
	for _, id := range ids {
		data, ok := body[id]
		if !ok {
			continue
		}
		quotes = append(quotes, Quote{
			Symbol:       bySymbol[id],
			PriceUSD:     data["usd"],
			Change24hPct: data["usd_24h_change"],
			Volume24hUSD: data["usd_24h_vol"],
		})
	}
	return quotes, nil
}

// StaticQuoteSource serves fixed quotes; used in tests and offline mode.
type StaticQuoteSource struct {
	Table map[string]Quote
}

// Quotes returns the table entries for the requested symbols, in request
// order.
func (s *StaticQuoteSource) Quotes(ctx context.Context, symbols []string) ([]Quote, error) {
	var quotes []Quote
	for _, sym := range symbols {
		if q, ok := s.Table[sym]; ok {
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

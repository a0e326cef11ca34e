package market

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

// coinMapping translates user-facing symbols to CoinGecko coin ids.
var coinMapping = map[string]string{
	"cro":      "crypto-com-chain",
	"cronos":   "crypto-com-chain",
	"bitcoin":  "bitcoin",
	"btc":      "bitcoin",
	"ethereum": "ethereum",
	"eth":      "ethereum",
	"bnb":      "binancecoin",
	"cardano":  "cardano",
	"ada":      "cardano",
	"solana":   "solana",
	"sol":      "solana",
	"polkadot": "polkadot",
	"dot":      "polkadot",
	"dogecoin": "dogecoin",
	"doge":     "dogecoin",
	"matic":    "matic-network",
	"polygon":  "matic-network",
}

// SupportedSymbols lists every symbol the tool can resolve.
func SupportedSymbols() []string {
	out := make([]string, 0, len(coinMapping))
	for symbol := range coinMapping {
		out = append(out, symbol)
	}
	return out
}

type Quote struct {
	Symbol       string  `json:"symbol"`
	CoinID       string  `json:"coin_id"`
	PriceUSD     float64 `json:"price_usd"`
	Change24H    float64 `json:"price_change_24h"`
	MarketCapUSD float64 `json:"market_cap"`
	Volume24HUSD float64 `json:"volume_24h"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetPrice fetches a USD quote for the given symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (Quote, error) {
	coinID, ok := coinMapping[strings.ToLower(strings.TrimSpace(symbol))]
	if !ok {
		return Quote{}, fmt.Errorf("cryptocurrency %q not supported", symbol)
	}

	query := url.Values{}
	query.Set("ids", coinID)
	query.Set("vs_currencies", "usd")
	query.Set("include_market_cap", "true")
	query.Set("include_24hr_vol", "true")
	query.Set("include_24hr_change", "true")

	var payload map[string]struct {
		USD          float64 `json:"usd"`
		USDMarketCap float64 `json:"usd_market_cap"`
		USD24HVol    float64 `json:"usd_24h_vol"`
		USD24HChange float64 `json:"usd_24h_change"`
	}
	if err := c.fetchJSON(ctx, "/api/v3/simple/price?"+query.Encode(), &payload); err != nil {
		return Quote{}, err
	}
	data, ok := payload[coinID]
	if !ok {
		return Quote{}, fmt.Errorf("no data available for %s", symbol)
	}
	return Quote{
		Symbol:       strings.ToUpper(strings.TrimSpace(symbol)),
		CoinID:       coinID,
		PriceUSD:     data.USD,
		Change24H:    data.USD24HChange,
		MarketCapUSD: data.USDMarketCap,
		Volume24HUSD: data.USD24HVol,
	}, nil
}

func (c *Client) fetchJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg := "market request failed"
		if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			trimmed := strings.TrimSpace(string(body))
			if trimmed != "" {
				msg = fmt.Sprintf("%s: %s", msg, trimmed)
			}
		}
		return fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// IsMarketQuery reports whether a user query needs live market data: it must
// mention both a price-ish keyword and a supported symbol.
func IsMarketQuery(userQuery string) bool {
	queryLower := strings.ToLower(userQuery)
	hasKeyword := false
	for _, keyword := range marketKeywords {
		if strings.Contains(queryLower, keyword) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}
	return ExtractSymbol(userQuery) != ""
}

// ExtractSymbol pulls the first supported symbol out of a user query.
func ExtractSymbol(userQuery string) string {
	queryLower := strings.ToLower(userQuery)
	for symbol := range coinMapping {
		if strings.Contains(queryLower, symbol) {
			return symbol
		}
	}
	return ""
}

var marketKeywords = []string{
	"price", "cost", "worth", "value", "market", "trading",
	"buy", "sell", "exchange", "rate", "ticker", "quote",
	"how much",
}

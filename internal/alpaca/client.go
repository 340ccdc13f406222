// Package alpaca is a minimal Alpaca REST client covering the market-data
// and broker calls the controller needs: minute bars, latest trade, market
// orders, open positions and account balances.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Side is an order side accepted by the orders endpoint.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type Client struct {
	apiKey     string
	secretKey  string
	tradingURL string
	dataURL    string
	httpClient *http.Client
}

func NewClient(apiKey, secretKey, tradingURL, dataURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		tradingURL: tradingURL,
		dataURL:    dataURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Bar represents one minute candlestick from the data API.
type Bar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

type barsResponse struct {
	Bars          []Bar  `json:"bars"`
	Symbol        string `json:"symbol"`
	NextPageToken string `json:"next_page_token"`
}

type latestTradeResponse struct {
	Symbol string `json:"symbol"`
	Trade  struct {
		Timestamp time.Time `json:"t"`
		Price     float64   `json:"p"`
		Size      float64   `json:"s"`
	} `json:"trade"`
}

// Order is the trading API's acknowledgement of a submitted order.
type Order struct {
	ID            string  `json:"id"`
	ClientOrderID string  `json:"client_order_id"`
	Symbol        string  `json:"symbol"`
	Qty           float64 `json:"qty,string"`
	Side          string  `json:"side"`
	Type          string  `json:"type"`
	TimeInForce   string  `json:"time_in_force"`
	Status        string  `json:"status"`
}

// Position is an open position as reported by the trading API. Qty is
// negative for shorts.
type Position struct {
	Symbol        string  `json:"symbol"`
	Qty           int     `json:"qty,string"`
	AvgEntryPrice float64 `json:"avg_entry_price,string"`
	MarketValue   float64 `json:"market_value,string"`
}

// Account holds the cash and portfolio value snapshot.
type Account struct {
	Cash           float64 `json:"cash,string"`
	PortfolioValue float64 `json:"portfolio_value,string"`
	BuyingPower    float64 `json:"buying_power,string"`
	Status         string  `json:"status"`
}

// GetBars fetches minute-resolution bars for [start, end). The result may be
// empty when the market has produced no bars in the window yet.
func (c *Client) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	params := url.Values{}
	params.Set("timeframe", "1Min")
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	params.Set("limit", "1000")

	endpoint := fmt.Sprintf("%s/v2/stocks/%s/bars?%s", c.dataURL, symbol, params.Encode())

	var resp barsResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("error fetching bars for %s: %w", symbol, err)
	}
	return resp.Bars, nil
}

// GetLatestTrade returns the price of the most recent trade for symbol.
func (c *Client) GetLatestTrade(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", c.dataURL, symbol)

	var resp latestTradeResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return 0, fmt.Errorf("error fetching latest trade for %s: %w", symbol, err)
	}
	return resp.Trade.Price, nil
}

// SubmitMarketOrder places a day market order. The client order ID is
// generated here so a retried submission is distinguishable broker-side.
func (c *Client) SubmitMarketOrder(ctx context.Context, symbol string, qty int, side Side) (*Order, error) {
	payload := map[string]string{
		"symbol":          symbol,
		"qty":             strconv.Itoa(qty),
		"side":            string(side),
		"type":            "market",
		"time_in_force":   "day",
		"client_order_id": uuid.NewString(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding order: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/orders", c.tradingURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var order Order
	if err := c.do(req, &order); err != nil {
		return nil, fmt.Errorf("error placing %s order for %s: %w", side, symbol, err)
	}
	return &order, nil
}

// GetPositions returns all open positions.
func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	endpoint := fmt.Sprintf("%s/v2/positions", c.tradingURL)

	var positions []Position
	if err := c.get(ctx, endpoint, &positions); err != nil {
		return nil, fmt.Errorf("error fetching positions: %w", err)
	}
	return positions, nil
}

// GetAccount returns the account cash and portfolio value.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	endpoint := fmt.Sprintf("%s/v2/account", c.tradingURL)

	var account Account
	if err := c.get(ctx, endpoint, &account); err != nil {
		return nil, fmt.Errorf("error fetching account: %w", err)
	}
	return &account, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

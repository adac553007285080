package bybit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// DefaultBaseURL is the Bybit v5 API root.
const DefaultBaseURL = "https://api.bybit.com"

// recvWindow is the request validity window in milliseconds.
const recvWindow = "5000"

// category is fixed to USDT-settled linear perpetuals.
const category = "linear"

// Client is the REST client for the Bybit v5 API. It implements
// domain.VenueClient.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

var _ domain.VenueClient = (*Client)(nil)

// NewClient creates a Bybit client. An empty baseURL selects the production
// endpoint.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Venue implements domain.VenueClient.
func (c *Client) Venue() domain.Venue {
	return domain.VenueBybit
}

// PlaceOrder submits a new order. Bybit's create endpoint returns only the
// order ID, so the fill state is fetched with a follow-up realtime query.
func (c *Client) PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderResult, error) {
	payload := map[string]string{
		"category":    category,
		"symbol":      order.Symbol,
		"side":        SideToVenue(order.Side),
		"orderType":   TypeToVenue(order.Type),
		"qty":         formatFloat(order.Quantity),
		"orderLinkId": order.ID,
	}
	if order.Type == domain.OrderTypeLimit {
		if order.LimitPrice == nil {
			return domain.NewRejectedResult("limit order without limit price"), nil
		}
		payload["price"] = formatFloat(*order.LimitPrice)
	}

	body, err := c.doPost(ctx, "/v5/order/create", payload)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("bybit: place order: %w", err)
	}

	var created struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return domain.OrderResult{}, fmt.Errorf("bybit: decode create response: %w", err)
	}

	return c.queryOrderResult(ctx, order.Symbol, created.OrderID)
}

// CancelOrder cancels an open order by venue order ID.
func (c *Client) CancelOrder(ctx context.Context, venueOrderID, symbol string) (domain.OrderResult, error) {
	payload := map[string]string{
		"category": category,
		"symbol":   symbol,
		"orderId":  venueOrderID,
	}

	if _, err := c.doPost(ctx, "/v5/order/cancel", payload); err != nil {
		return domain.OrderResult{}, fmt.Errorf("bybit: cancel order %s: %w", venueOrderID, err)
	}

	return domain.OrderResult{
		Success:      true,
		VenueOrderID: venueOrderID,
		Status:       domain.OrderStatusCancelled,
	}, nil
}

// ModifyOrder amends the price and quantity of an open limit order.
func (c *Client) ModifyOrder(ctx context.Context, venueOrderID string, order domain.Order) (domain.OrderResult, error) {
	if order.Type != domain.OrderTypeLimit || order.LimitPrice == nil {
		return domain.NewRejectedResult("only limit orders with a price can be modified"), nil
	}

	payload := map[string]string{
		"category": category,
		"symbol":   order.Symbol,
		"orderId":  venueOrderID,
		"qty":      formatFloat(order.Quantity),
		"price":    formatFloat(*order.LimitPrice),
	}

	if _, err := c.doPost(ctx, "/v5/order/amend", payload); err != nil {
		return domain.OrderResult{}, fmt.Errorf("bybit: modify order %s: %w", venueOrderID, err)
	}

	return c.queryOrderResult(ctx, order.Symbol, venueOrderID)
}

type realtimeOrder struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	OrderStatus string `json:"orderStatus"`
	Qty         string `json:"qty"`
	Price       string `json:"price"`
	AvgPrice    string `json:"avgPrice"`
	CumExecQty  string `json:"cumExecQty"`
	CumExecFee  string `json:"cumExecFee"`
	CreatedTime string `json:"createdTime"`
}

// GetOpenOrders returns all open orders, optionally filtered by symbol.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	params := url.Values{}
	params.Set("category", category)
	if symbol != "" {
		params.Set("symbol", symbol)
	} else {
		params.Set("settleCoin", "USDT")
	}

	body, err := c.doGet(ctx, "/v5/order/realtime", params)
	if err != nil {
		return nil, fmt.Errorf("bybit: get open orders: %w", err)
	}

	var result struct {
		List []realtimeOrder `json:"list"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("bybit: decode open orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(result.List))
	for _, r := range result.List {
		o := domain.Order{
			ID:        r.OrderLinkID,
			Venue:     domain.VenueBybit,
			Symbol:    r.Symbol,
			Side:      SideFromVenue(r.Side),
			Type:      domain.OrderTypeMarket,
			Quantity:  parseFloat(r.Qty),
			Status:    StatusFromVenue(r.OrderStatus),
			FilledQty: parseFloat(r.CumExecQty),
			AvgPrice:  parseFloat(r.AvgPrice),
		}
		if strings.EqualFold(r.OrderType, "Limit") {
			o.Type = domain.OrderTypeLimit
			price := parseFloat(r.Price)
			o.LimitPrice = &price
		}
		if ms, err := strconv.ParseInt(r.CreatedTime, 10, 64); err == nil {
			o.CreatedAt = time.UnixMilli(ms)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// GetOpenPositions returns all non-flat USDT linear positions.
func (c *Client) GetOpenPositions(ctx context.Context) ([]domain.Position, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("settleCoin", "USDT")

	body, err := c.doGet(ctx, "/v5/position/list", params)
	if err != nil {
		return nil, fmt.Errorf("bybit: get positions: %w", err)
	}

	var result struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			AvgPrice      string `json:"avgPrice"`
			MarkPrice     string `json:"markPrice"`
			UnrealisedPnl string `json:"unrealisedPnl"`
			UpdatedTime   string `json:"updatedTime"`
		} `json:"list"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("bybit: decode positions: %w", err)
	}

	var positions []domain.Position
	for _, r := range result.List {
		size := parseFloat(r.Size)
		if size == 0 {
			continue
		}
		side := domain.PositionSideLong
		if strings.EqualFold(r.Side, "Sell") {
			side = domain.PositionSideShort
		}
		p := domain.Position{
			Venue:         domain.VenueBybit,
			Symbol:        r.Symbol,
			Side:          side,
			Quantity:      size,
			EntryPrice:    parseFloat(r.AvgPrice),
			CurrentPrice:  parseFloat(r.MarkPrice),
			UnrealizedPnL: parseFloat(r.UnrealisedPnl),
		}
		if ms, err := strconv.ParseInt(r.UpdatedTime, 10, 64); err == nil {
			p.UpdatedAt = time.UnixMilli(ms)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

// GetAccountBalance returns the unified account equity in USDT terms.
func (c *Client) GetAccountBalance(ctx context.Context) (domain.AccountBalance, error) {
	params := url.Values{}
	params.Set("accountType", "UNIFIED")

	body, err := c.doGet(ctx, "/v5/account/wallet-balance", params)
	if err != nil {
		return domain.AccountBalance{}, fmt.Errorf("bybit: get balance: %w", err)
	}

	var result struct {
		List []struct {
			TotalEquity           string `json:"totalEquity"`
			TotalAvailableBalance string `json:"totalAvailableBalance"`
			TotalPerpUPL          string `json:"totalPerpUPL"`
		} `json:"list"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.AccountBalance{}, fmt.Errorf("bybit: decode balance: %w", err)
	}
	if len(result.List) == 0 {
		return domain.AccountBalance{}, fmt.Errorf("bybit: empty wallet-balance response: %w", domain.ErrNotFound)
	}

	acct := result.List[0]
	return domain.AccountBalance{
		Venue:         domain.VenueBybit,
		Total:         parseFloat(acct.TotalEquity),
		Available:     parseFloat(acct.TotalAvailableBalance),
		UnrealizedPnL: parseFloat(acct.TotalPerpUPL),
		Currency:      "USDT",
		UpdatedAt:     time.Now(),
	}, nil
}

// GetCurrentPrice returns the last traded price for a symbol. The tickers
// endpoint is public and unsigned.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", symbol)

	fullURL := c.baseURL + "/v5/market/tickers?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, fmt.Errorf("bybit: create price request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("bybit: get price %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("bybit: read price response: %w", err)
	}

	payload, err := unwrapEnvelope(resp.StatusCode, body)
	if err != nil {
		return 0, err
	}

	var result struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return 0, fmt.Errorf("bybit: decode price response: %w", err)
	}
	if len(result.List) == 0 {
		return 0, fmt.Errorf("bybit: no ticker for %s: %w", symbol, domain.ErrNotFound)
	}
	return parseFloat(result.List[0].LastPrice), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// queryOrderResult fetches the current state of a single order and converts
// it into a placement result.
func (c *Client) queryOrderResult(ctx context.Context, symbol, orderID string) (domain.OrderResult, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	body, err := c.doGet(ctx, "/v5/order/realtime", params)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("bybit: query order %s: %w", orderID, err)
	}

	var result struct {
		List []realtimeOrder `json:"list"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.OrderResult{}, fmt.Errorf("bybit: decode order query: %w", err)
	}
	if len(result.List) == 0 {
		// Order accepted but not yet visible; report it as still working.
		return domain.OrderResult{
			Success:      true,
			VenueOrderID: orderID,
			Status:       domain.OrderStatusPending,
		}, nil
	}

	r := result.List[0]
	status := StatusFromVenue(r.OrderStatus)
	out := domain.OrderResult{
		Success:        status != domain.OrderStatusRejected,
		VenueOrderID:   r.OrderID,
		Status:         status,
		FilledQuantity: parseFloat(r.CumExecQty),
		FeeAsset:       "USDT",
	}
	if avg := parseFloat(r.AvgPrice); avg > 0 {
		out.AverageFillPrice = &avg
	}
	if fee := parseFloat(r.CumExecFee); fee != 0 {
		out.Fee = &fee
	}
	if status == domain.OrderStatusRejected {
		out.Message = "order rejected by venue"
	}
	return out, nil
}

// doGet sends a signed GET request. The signature covers
// timestamp + apiKey + recvWindow + queryString.
func (c *Client) doGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	query := params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.signRequest(req, query)

	return c.do(req)
}

// doPost sends a signed POST request with a JSON body. The signature covers
// timestamp + apiKey + recvWindow + body.
func (c *Client) doPost(ctx context.Context, path string, payload map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.signRequest(req, string(body))

	return c.do(req)
}

// signRequest sets the v5 authentication headers on req. signedPart is the
// query string for GETs or the JSON body for POSTs.
func (c *Client) signRequest(req *http.Request, signedPart string) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + c.apiKey + recvWindow + signedPart))
	sig := hex.EncodeToString(mac.Sum(nil))

	req.Header.Set("X-BAPI-API-KEY", c.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	req.Header.Set("X-BAPI-SIGN", sig)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return unwrapEnvelope(resp.StatusCode, body)
}

// unwrapEnvelope validates the v5 response envelope and returns the raw
// result payload. retCode 0 is success; anything else is a venue error.
func unwrapEnvelope(status int, body []byte) ([]byte, error) {
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("bybit: unexpected status %d: %s", status, string(body))
	}

	var envelope struct {
		RetCode int             `json:"retCode"`
		RetMsg  string          `json:"retMsg"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("bybit: decode envelope: %w", err)
	}
	if envelope.RetCode != 0 {
		return nil, fmt.Errorf("bybit: api error %d: %s", envelope.RetCode, envelope.RetMsg)
	}
	return envelope.Result, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

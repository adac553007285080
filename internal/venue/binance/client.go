package binance

import (
	"context"
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

// DefaultBaseURL is the Binance USD-margined futures API root.
const DefaultBaseURL = "https://fapi.binance.com"

// Client is the REST client for Binance USD-margined futures. It implements
// domain.VenueClient.
type Client struct {
	baseURL    string
	auth       HMACAuth
	httpClient *http.Client
}

var _ domain.VenueClient = (*Client)(nil)

// NewClient creates a Binance futures client. An empty baseURL selects the
// production endpoint.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    HMACAuth{Key: apiKey, Secret: apiSecret},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Venue implements domain.VenueClient.
func (c *Client) Venue() domain.Venue {
	return domain.VenueBinance
}

type orderResponse struct {
	OrderID     int64  `json:"orderId"`
	Symbol      string `json:"symbol"`
	Status      string `json:"status"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	Price       string `json:"price"`
	AvgPrice    string `json:"avgPrice"`
	OrigQty     string `json:"origQty"`
	ExecutedQty string `json:"executedQty"`
	ClientID    string `json:"clientOrderId"`
	UpdateTime  int64  `json:"updateTime"`
}

// PlaceOrder submits a new order. newOrderRespType=RESULT makes Binance wait
// for the final execution state so market fills come back in one round trip.
func (c *Client) PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", SideToVenue(order.Side))
	params.Set("type", TypeToVenue(order.Type))
	params.Set("quantity", formatFloat(order.Quantity))
	params.Set("newClientOrderId", order.ID)
	params.Set("newOrderRespType", "RESULT")
	if order.Type == domain.OrderTypeLimit {
		if order.LimitPrice == nil {
			return domain.NewRejectedResult("limit order without limit price"), nil
		}
		params.Set("price", formatFloat(*order.LimitPrice))
		params.Set("timeInForce", "GTC")
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: place order: %w", err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: decode order response: %w", err)
	}

	return resultFromOrder(resp), nil
}

// CancelOrder cancels an open order by venue order ID.
func (c *Client) CancelOrder(ctx context.Context, venueOrderID, symbol string) (domain.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", venueOrderID)

	body, err := c.doSigned(ctx, http.MethodDelete, "/fapi/v1/order", params)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: cancel order %s: %w", venueOrderID, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: decode cancel response: %w", err)
	}

	return resultFromOrder(resp), nil
}

// ModifyOrder amends the price and quantity of an open limit order.
func (c *Client) ModifyOrder(ctx context.Context, venueOrderID string, order domain.Order) (domain.OrderResult, error) {
	if order.Type != domain.OrderTypeLimit || order.LimitPrice == nil {
		return domain.NewRejectedResult("only limit orders with a price can be modified"), nil
	}

	params := url.Values{}
	params.Set("orderId", venueOrderID)
	params.Set("symbol", order.Symbol)
	params.Set("side", SideToVenue(order.Side))
	params.Set("quantity", formatFloat(order.Quantity))
	params.Set("price", formatFloat(*order.LimitPrice))

	body, err := c.doSigned(ctx, http.MethodPut, "/fapi/v1/order", params)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: modify order %s: %w", venueOrderID, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: decode modify response: %w", err)
	}

	return resultFromOrder(resp), nil
}

// GetOpenOrders returns all open orders, optionally filtered by symbol.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v1/openOrders", params)
	if err != nil {
		return nil, fmt.Errorf("binance: get open orders: %w", err)
	}

	var raw []orderResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: decode open orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(raw))
	for _, r := range raw {
		o := domain.Order{
			ID:        r.ClientID,
			Venue:     domain.VenueBinance,
			Symbol:    r.Symbol,
			Side:      SideFromVenue(r.Side),
			Type:      domain.OrderTypeMarket,
			Quantity:  parseFloat(r.OrigQty),
			Status:    StatusFromVenue(r.Status),
			FilledQty: parseFloat(r.ExecutedQty),
			AvgPrice:  parseFloat(r.AvgPrice),
			CreatedAt: time.UnixMilli(r.UpdateTime),
		}
		if strings.EqualFold(r.Type, "LIMIT") {
			o.Type = domain.OrderTypeLimit
			price := parseFloat(r.Price)
			o.LimitPrice = &price
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// GetOpenPositions returns all non-flat positions. Binance reports a signed
// positionAmt; the sign carries the direction.
func (c *Client) GetOpenPositions(ctx context.Context) ([]domain.Position, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v2/positionRisk", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("binance: get positions: %w", err)
	}

	var raw []struct {
		Symbol           string `json:"symbol"`
		PositionAmt      string `json:"positionAmt"`
		EntryPrice       string `json:"entryPrice"`
		MarkPrice        string `json:"markPrice"`
		UnrealizedProfit string `json:"unRealizedProfit"`
		UpdateTime       int64  `json:"updateTime"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: decode positions: %w", err)
	}

	var positions []domain.Position
	for _, r := range raw {
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		side := domain.PositionSideLong
		if amt < 0 {
			side = domain.PositionSideShort
			amt = -amt
		}
		positions = append(positions, domain.Position{
			Venue:         domain.VenueBinance,
			Symbol:        r.Symbol,
			Side:          side,
			Quantity:      amt,
			EntryPrice:    parseFloat(r.EntryPrice),
			CurrentPrice:  parseFloat(r.MarkPrice),
			UnrealizedPnL: parseFloat(r.UnrealizedProfit),
			UpdatedAt:     time.UnixMilli(r.UpdateTime),
		})
	}
	return positions, nil
}

// GetAccountBalance returns the USDT futures balance.
func (c *Client) GetAccountBalance(ctx context.Context) (domain.AccountBalance, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v2/balance", url.Values{})
	if err != nil {
		return domain.AccountBalance{}, fmt.Errorf("binance: get balance: %w", err)
	}

	var raw []struct {
		Asset            string `json:"asset"`
		Balance          string `json:"balance"`
		AvailableBalance string `json:"availableBalance"`
		CrossUnPnl       string `json:"crossUnPnl"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.AccountBalance{}, fmt.Errorf("binance: decode balance: %w", err)
	}

	for _, r := range raw {
		if r.Asset != "USDT" {
			continue
		}
		return domain.AccountBalance{
			Venue:         domain.VenueBinance,
			Total:         parseFloat(r.Balance),
			Available:     parseFloat(r.AvailableBalance),
			UnrealizedPnL: parseFloat(r.CrossUnPnl),
			Currency:      "USDT",
			UpdatedAt:     time.Now(),
		}, nil
	}
	return domain.AccountBalance{}, fmt.Errorf("binance: no USDT balance in response: %w", domain.ErrNotFound)
}

// GetCurrentPrice returns the last traded price for a symbol. The ticker
// endpoint is public and unsigned.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	fullURL := fmt.Sprintf("%s/fapi/v1/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, fmt.Errorf("binance: create price request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("binance: get price %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("binance: read price response: %w", err)
	}
	if err := c.checkStatus(resp.StatusCode, body); err != nil {
		return 0, err
	}

	var raw struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return 0, fmt.Errorf("binance: decode price response: %w", err)
	}
	return parseFloat(raw.Price), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doSigned builds, signs, sends, and reads a request against a signed
// endpoint. The signature covers the encoded query string including the
// timestamp parameter.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + c.auth.SignQuery(query)

	fullURL := c.baseURL + path + "?" + query

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.auth.Key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkStatus surfaces Binance error payloads ({"code":..,"msg":".."}) on
// non-2xx responses.
func (c *Client) checkStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var apiErr struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
		return fmt.Errorf("binance: api error %d (http %d): %s", apiErr.Code, status, apiErr.Msg)
	}
	return fmt.Errorf("binance: unexpected status %d: %s", status, string(body))
}

// resultFromOrder converts an order response into a placement result. A
// rejected status reports Success=false; everything else is a working or
// filled order.
func resultFromOrder(resp orderResponse) domain.OrderResult {
	status := StatusFromVenue(resp.Status)
	result := domain.OrderResult{
		Success:        status != domain.OrderStatusRejected,
		VenueOrderID:   strconv.FormatInt(resp.OrderID, 10),
		Status:         status,
		FilledQuantity: parseFloat(resp.ExecutedQty),
	}
	if avg := parseFloat(resp.AvgPrice); avg > 0 {
		result.AverageFillPrice = &avg
	}
	if status == domain.OrderStatusRejected {
		result.Message = "order rejected by venue"
	}
	return result
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

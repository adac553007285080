// Package paper implements domain.VenueClient as an in-process simulator.
// Orders fill immediately at the last observed price, and a virtual account
// balance is tracked in memory. It exists for paper-trading runs and tests;
// no network is involved.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// Client is a simulated venue. Prices must be fed through SetPrice; market
// orders fill at the latest price, limit orders fill at their limit price.
type Client struct {
	venue    domain.Venue
	currency string

	mu        sync.Mutex
	available float64
	prices    map[string]float64
	positions map[string]domain.Position
}

// New creates a paper venue with the given starting balance.
func New(initialBalance float64, currency string) *Client {
	return &Client{
		venue:     domain.VenuePaper,
		currency:  currency,
		available: initialBalance,
		prices:    make(map[string]float64),
		positions: make(map[string]domain.Position),
	}
}

func (c *Client) Venue() domain.Venue {
	return c.venue
}

// SetPrice records the latest observed price for a symbol.
func (c *Client) SetPrice(symbol string, price float64) {
	c.mu.Lock()
	c.prices[symbol] = price
	c.mu.Unlock()
}

// PlaceOrder fills the order immediately. Market orders need a known price;
// without one the order is rejected, mirroring how a real venue rejects
// orders it cannot price.
func (c *Client) PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderResult{}, err
	}
	if order.Quantity <= 0 {
		return domain.NewRejectedResult("quantity must be positive"), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var price float64
	switch order.Type {
	case domain.OrderTypeLimit:
		if order.LimitPrice == nil || *order.LimitPrice <= 0 {
			return domain.NewRejectedResult("limit order without limit price"), nil
		}
		price = *order.LimitPrice
	default:
		p, ok := c.prices[order.Symbol]
		if !ok || p <= 0 {
			return domain.NewRejectedResult(fmt.Sprintf("no price for %s", order.Symbol)), nil
		}
		price = p
	}

	notional := price * order.Quantity
	if order.Side == domain.OrderSideBuy {
		if notional > c.available {
			return domain.NewRejectedResult("insufficient balance"), nil
		}
		c.available -= notional
	} else {
		c.available += notional
	}

	c.applyFill(order, price)

	return domain.NewFillResult("paper-"+uuid.New().String(), domain.OrderStatusFilled, order.Quantity, price), nil
}

// applyFill keeps the simulator's own position view, used by GetOpenPositions
// so reconciliation drivers have something real to compare against.
func (c *Client) applyFill(order domain.Order, price float64) {
	now := time.Now().UTC()
	direction := domain.SideForOrder(order.Side)

	pos, ok := c.positions[order.Symbol]
	if !ok {
		c.positions[order.Symbol] = domain.Position{
			Venue:        c.venue,
			Symbol:       order.Symbol,
			Side:         direction,
			Quantity:     order.Quantity,
			EntryPrice:   price,
			CurrentPrice: price,
			OpenedAt:     now,
			UpdatedAt:    now,
		}
		return
	}

	if pos.Side == direction {
		total := pos.Quantity + order.Quantity
		pos.EntryPrice = (pos.EntryPrice*pos.Quantity + price*order.Quantity) / total
		pos.Quantity = total
	} else {
		pos.Quantity -= order.Quantity
		if pos.Quantity <= 0 {
			delete(c.positions, order.Symbol)
			return
		}
	}
	pos.UpdatedAt = now
	c.positions[order.Symbol] = pos
}

// CancelOrder always succeeds: paper orders fill instantly, so there is never
// anything resting to cancel.
func (c *Client) CancelOrder(ctx context.Context, venueOrderID, symbol string) (domain.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderResult{}, err
	}
	return domain.OrderResult{
		Success:      true,
		VenueOrderID: venueOrderID,
		Status:       domain.OrderStatusCancelled,
	}, nil
}

// ModifyOrder is unsupported on the paper venue.
func (c *Client) ModifyOrder(ctx context.Context, venueOrderID string, order domain.Order) (domain.OrderResult, error) {
	return domain.NewRejectedResult("modify not supported"), nil
}

// GetOpenOrders returns an empty list; paper orders never rest.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	return nil, nil
}

// GetOpenPositions returns the simulator's position snapshots.
func (c *Client) GetOpenPositions(ctx context.Context) ([]domain.Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Position, 0, len(c.positions))
	for _, pos := range c.positions {
		out = append(out, pos)
	}
	return out, nil
}

// GetAccountBalance reports the virtual balance. Unrealized P&L is summed
// from the simulator's positions at the latest known prices.
func (c *Client) GetAccountBalance(ctx context.Context) (domain.AccountBalance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var unrealized float64
	for _, pos := range c.positions {
		price, ok := c.prices[pos.Symbol]
		if !ok {
			price = pos.CurrentPrice
		}
		switch pos.Side {
		case domain.PositionSideLong:
			unrealized += (price - pos.EntryPrice) * pos.Quantity
		case domain.PositionSideShort:
			unrealized += (pos.EntryPrice - price) * pos.Quantity
		}
	}

	return domain.AccountBalance{
		Venue:         c.venue,
		Total:         c.available + unrealized,
		Available:     c.available,
		UnrealizedPnL: unrealized,
		Currency:      c.currency,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

// GetCurrentPrice returns the latest observed price for the symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	price, ok := c.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("paper: %w: no price for %s", domain.ErrNotFound, symbol)
	}
	return price, nil
}

var _ domain.VenueClient = (*Client)(nil)

package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType indicates the execution style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Order is a single placement request handed to a VenueClient. The core builds
// one per signal and does not retain it after the call returns.
type Order struct {
	ID         string
	SignalID   string
	Venue      Venue
	Symbol     string
	Side       OrderSide
	Type       OrderType
	Quantity   float64
	LimitPrice *float64 // nil for market orders
	Status     OrderStatus
	FilledQty  float64
	AvgPrice   float64
	CreatedAt  time.Time
}

// OrderResult is the outcome of a placement, cancel, or modify call.
type OrderResult struct {
	Success          bool
	VenueOrderID     string
	Status           OrderStatus
	FilledQuantity   float64
	AverageFillPrice *float64
	Fee              *float64
	FeeAsset         string
	Message          string
}

// NewFillResult builds a successful OrderResult with all fill fields set.
func NewFillResult(venueOrderID string, status OrderStatus, filledQty, avgPrice float64) OrderResult {
	return OrderResult{
		Success:          true,
		VenueOrderID:     venueOrderID,
		Status:           status,
		FilledQuantity:   filledQty,
		AverageFillPrice: &avgPrice,
	}
}

// NewRejectedResult builds a failed OrderResult. Status is always Rejected.
func NewRejectedResult(message string) OrderResult {
	return OrderResult{
		Success: false,
		Status:  OrderStatusRejected,
		Message: message,
	}
}

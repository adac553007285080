// Package binance holds the static translation tables between the desk's
// order enumerations and Binance wire values. The functions are pure and
// stateless; unknown inbound values map to a documented safe default rather
// than an error.
package binance

import (
	"strings"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// SideToVenue maps an order side to the Binance side string.
func SideToVenue(side domain.OrderSide) string {
	if side == domain.OrderSideSell {
		return "SELL"
	}
	return "BUY"
}

// SideFromVenue maps a Binance side string to an order side. Anything that is
// not SELL is treated as a buy.
func SideFromVenue(s string) domain.OrderSide {
	if strings.EqualFold(s, "SELL") {
		return domain.OrderSideSell
	}
	return domain.OrderSideBuy
}

// TypeToVenue maps an order type to the Binance type string.
func TypeToVenue(t domain.OrderType) string {
	if t == domain.OrderTypeLimit {
		return "LIMIT"
	}
	return "MARKET"
}

// StatusFromVenue maps a Binance order status to the local lifecycle status.
// Unknown statuses map to Pending: a status we cannot interpret is treated as
// still working, never as a terminal state.
func StatusFromVenue(s string) domain.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW":
		return domain.OrderStatusOpen
	case "PARTIALLY_FILLED":
		return domain.OrderStatusPartiallyFilled
	case "FILLED":
		return domain.OrderStatusFilled
	case "CANCELED", "EXPIRED", "EXPIRED_IN_MATCH":
		return domain.OrderStatusCancelled
	case "REJECTED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusPending
	}
}

// Package bybit implements the desk's venue boundary for the Bybit v5 API
// (linear perpetuals). Enum translation follows the same safe-default rule
// as the other venue packages: unknown inbound values never map to a
// terminal state.
package bybit

import (
	"strings"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// SideToVenue maps an order side to the Bybit side string.
func SideToVenue(side domain.OrderSide) string {
	if side == domain.OrderSideSell {
		return "Sell"
	}
	return "Buy"
}

// SideFromVenue maps a Bybit side string to an order side.
func SideFromVenue(s string) domain.OrderSide {
	if strings.EqualFold(s, "Sell") {
		return domain.OrderSideSell
	}
	return domain.OrderSideBuy
}

// TypeToVenue maps an order type to the Bybit orderType string.
func TypeToVenue(t domain.OrderType) string {
	if t == domain.OrderTypeLimit {
		return "Limit"
	}
	return "Market"
}

// StatusFromVenue maps a Bybit orderStatus to the local lifecycle status.
// Unknown statuses map to Pending, treated as still working.
func StatusFromVenue(s string) domain.OrderStatus {
	switch s {
	case "New", "Untriggered":
		return domain.OrderStatusOpen
	case "PartiallyFilled":
		return domain.OrderStatusPartiallyFilled
	case "Filled":
		return domain.OrderStatusFilled
	case "Cancelled", "PartiallyFilledCanceled", "Deactivated":
		return domain.OrderStatusCancelled
	case "Rejected":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusPending
	}
}

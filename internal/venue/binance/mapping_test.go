package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

func TestSideRoundTrip(t *testing.T) {
	assert.Equal(t, "BUY", SideToVenue(domain.OrderSideBuy))
	assert.Equal(t, "SELL", SideToVenue(domain.OrderSideSell))
	assert.Equal(t, domain.OrderSideBuy, SideFromVenue("buy"))
	assert.Equal(t, domain.OrderSideSell, SideFromVenue("sell"))
}

func TestTypeToVenue(t *testing.T) {
	assert.Equal(t, "MARKET", TypeToVenue(domain.OrderTypeMarket))
	assert.Equal(t, "LIMIT", TypeToVenue(domain.OrderTypeLimit))
}

func TestStatusFromVenue(t *testing.T) {
	cases := map[string]domain.OrderStatus{
		"NEW":              domain.OrderStatusOpen,
		"PARTIALLY_FILLED": domain.OrderStatusPartiallyFilled,
		"FILLED":           domain.OrderStatusFilled,
		"CANCELED":         domain.OrderStatusCancelled,
		"EXPIRED":          domain.OrderStatusCancelled,
		"REJECTED":         domain.OrderStatusRejected,
		"filled":           domain.OrderStatusFilled,
	}
	for in, want := range cases {
		assert.Equal(t, want, StatusFromVenue(in), in)
	}
}

func TestStatusFromVenueUnknownDefaultsToPending(t *testing.T) {
	assert.Equal(t, domain.OrderStatusPending, StatusFromVenue("PENDING_CANCEL"))
	assert.Equal(t, domain.OrderStatusPending, StatusFromVenue(""))
}

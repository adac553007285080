// Package feed streams price ticks from venue WebSocket endpoints into the
// position book and price cache.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// TickerHandler is called once per received tick. Handlers must tolerate late
// and duplicate ticks; per-symbol delivery order follows the wire order.
type TickerHandler func(ctx context.Context, tick domain.Ticker)

// subscribeRequest is the JSON frame sent after connecting.
type subscribeRequest struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// tickerMessage is the JSON frame pushed by the venue.
type tickerMessage struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Timestamp int64   `json:"ts"`
}

// WSFeed connects to one venue's ticker WebSocket, subscribes to the given
// symbols, and invokes the handler for each tick. It reconnects with a fixed
// pause on disconnect.
type WSFeed struct {
	venue     domain.Venue
	wsURL     string
	symbols   []string
	handler   TickerHandler
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewWSFeed creates a feed for one venue.
func NewWSFeed(v domain.Venue, wsURL string, symbols []string, handler TickerHandler, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		venue:   v,
		wsURL:   wsURL,
		symbols: symbols,
		handler: handler,
		logger: logger.With(
			slog.String("component", "price_feed"),
			slog.String("venue", string(v)),
		),
		done: make(chan struct{}),
	}
}

// Run connects and streams until the context is cancelled or Close is called.
func (f *WSFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no symbols to subscribe, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("feed disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *WSFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.wsURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	sub := subscribeRequest{Op: "subscribe", Symbols: f.symbols}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("subscribed", slog.Int("symbols", len(f.symbols)))

	// Close the connection when the context ends so ReadMessage unblocks.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-f.done:
			_ = conn.Close()
		case <-readDone:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: %w: %v", domain.ErrFeedDisconnected, err)
		}

		var msg tickerMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			f.logger.Debug("skipping unparseable frame", slog.String("error", err.Error()))
			continue
		}
		if msg.Symbol == "" || msg.Bid <= 0 || msg.Ask <= 0 {
			continue
		}

		f.handler(ctx, domain.Ticker{
			Venue:     f.venue,
			Symbol:    msg.Symbol,
			Bid:       msg.Bid,
			Ask:       msg.Ask,
			Timestamp: msg.Timestamp,
		})
	}
}

// Close stops the feed.
func (f *WSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

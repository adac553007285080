package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// TradeStore persists executed trades to PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

var _ domain.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates a TradeStore backed by the given client.
func NewTradeStore(client *Client) *TradeStore {
	return &TradeStore{pool: client.Pool()}
}

// Insert writes a single trade record.
func (s *TradeStore) Insert(ctx context.Context, trade domain.TradeRecord) error {
	const query = `
		INSERT INTO trades (
			id, order_id, venue_order_id, signal_id, venue, symbol,
			side, quantity, price, fee, fee_asset, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		trade.ID, trade.OrderID, trade.VenueOrderID, trade.SignalID,
		string(trade.Venue), trade.Symbol, string(trade.Side),
		trade.Quantity, trade.Price, trade.Fee, trade.FeeAsset, trade.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", trade.ID, err)
	}
	return nil
}

// InsertBatch writes multiple trade records in a single transaction.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin trade batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		INSERT INTO trades (
			id, order_id, venue_order_id, signal_id, venue, symbol,
			side, quantity, price, fee, fee_asset, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`

	for _, trade := range trades {
		if _, err := tx.Exec(ctx, query,
			trade.ID, trade.OrderID, trade.VenueOrderID, trade.SignalID,
			string(trade.Venue), trade.Symbol, string(trade.Side),
			trade.Quantity, trade.Price, trade.Fee, trade.FeeAsset, trade.ExecutedAt,
		); err != nil {
			return fmt.Errorf("postgres: insert trade %s in batch: %w", trade.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit trade batch: %w", err)
	}
	return nil
}

// ListByVenue returns trades for a venue, newest first.
func (s *TradeStore) ListByVenue(ctx context.Context, venue domain.Venue, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	query := `
		SELECT id, order_id, venue_order_id, signal_id, venue, symbol,
		       side, quantity, price, fee, fee_asset, executed_at
		FROM trades
		WHERE venue = $1`
	args := []any{string(venue)}

	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND executed_at >= $%d", len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		query += fmt.Sprintf(" AND executed_at < $%d", len(args))
	}
	query += " ORDER BY executed_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for %s: %w", venue, err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListBefore returns all trades executed before the cutoff, oldest first.
// Used by the archiver to export trades due for retention.
func (s *TradeStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.TradeRecord, error) {
	const query = `
		SELECT id, order_id, venue_order_id, signal_id, venue, symbol,
		       side, quantity, price, fee, fee_asset, executed_at
		FROM trades
		WHERE executed_at < $1
		ORDER BY executed_at ASC`

	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// DeleteBefore removes trades executed before the cutoff and returns the
// number of rows deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM trades WHERE executed_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func scanTrades(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var (
			t     domain.TradeRecord
			venue string
			side  string
		)
		if err := rows.Scan(
			&t.ID, &t.OrderID, &t.VenueOrderID, &t.SignalID, &venue, &t.Symbol,
			&side, &t.Quantity, &t.Price, &t.Fee, &t.FeeAsset, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade row: %w", err)
		}
		t.Venue = domain.Venue(venue)
		t.Side = domain.OrderSide(side)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate trade rows: %w", err)
	}
	return trades, nil
}

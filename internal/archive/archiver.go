// Package archive exports aged trade rows from the durable store to object
// storage and prunes them afterwards.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// Archiver periodically moves trades older than the retention window from
// the trade store to cold storage as newline-delimited JSON.
type Archiver struct {
	trades    domain.TradeStore
	writer    domain.BlobWriter
	audit     domain.AuditStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// New creates an Archiver. Trades executed more than retention ago are
// exported on each cycle; interval controls how often cycles run.
func New(trades domain.TradeStore, writer domain.BlobWriter, retention, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		trades:    trades,
		writer:    writer,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// WithAudit attaches an audit store that records each archive cycle.
func (a *Archiver) WithAudit(audit domain.AuditStore) *Archiver {
	a.audit = audit
	return a
}

// Run executes archive cycles on the configured interval until the context
// is cancelled. Cycle errors are logged and the loop continues.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("archiver started",
		slog.Duration("retention", a.retention),
		slog.Duration("interval", a.interval))

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.ArchiveOnce(ctx); err != nil {
				a.logger.Error("archive cycle failed", slog.Any("error", err))
			}
		}
	}
}

// ArchiveOnce exports all trades older than the retention window to object
// storage and deletes them from the store once the upload succeeds. It
// returns the number of trades archived.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-a.retention)

	trades, err := a.trades.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive: list trades: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("archive: marshal trades: %w", err)
	}

	path := archivePath(cutoff)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archive: upload %s: %w", path, err)
	}

	// Delete only after the upload succeeded so a failed cycle never loses
	// rows; re-uploads overwrite the same month partition.
	deleted, err := a.trades.DeleteBefore(ctx, cutoff)
	if err != nil {
		return int64(len(trades)), fmt.Errorf("archive: prune archived trades: %w", err)
	}

	a.logger.Info("trades archived",
		slog.String("path", path),
		slog.Int("count", len(trades)),
		slog.Int64("deleted", deleted))

	if a.audit != nil {
		if err := a.audit.Log(ctx, "trades_archived", map[string]any{
			"path":   path,
			"count":  len(trades),
			"cutoff": cutoff.Format(time.RFC3339),
		}); err != nil {
			a.logger.Warn("audit log failed", slog.Any("error", err))
		}
	}

	return int64(len(trades)), nil
}

// archivePath partitions archive objects by the year-month of the cutoff,
// e.g. archive/trades/2026-08.jsonl.
func archivePath(cutoff time.Time) string {
	return fmt.Sprintf("archive/trades/%s.jsonl", cutoff.Format("2006-01"))
}

func marshalJSONL(trades []domain.TradeRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, trade := range trades {
		if err := enc.Encode(trade); err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

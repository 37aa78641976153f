package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaiwenyuan/updownbot/internal/domain"
)

// ResultStore mirrors closed-window records into the window_results table.
// It implements domain.RecordSink alongside the CSV ledger; the table is the
// queryable copy, the CSV stays the canonical append-only log.
type ResultStore struct {
	pool *pgxpool.Pool
}

// NewResultStore creates a ResultStore backed by the given connection pool.
func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Append inserts one closed-window record. Replays of the same record ID are
// skipped via ON CONFLICT DO NOTHING.
func (s *ResultStore) Append(ctx context.Context, rec domain.WindowRecord) error {
	const query = `
		INSERT INTO window_results (
			id, recorded_at, slug, direction,
			entry_price, size, cost, stop_price, outcome, pnl
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10
		) ON CONFLICT (id) DO NOTHING`

	var direction *string
	if rec.Direction != "" {
		d := string(rec.Direction)
		direction = &d
	}

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.At, rec.Slug, direction,
		rec.EntryPrice, rec.Size, rec.Cost, rec.StopPrice,
		string(rec.Outcome), rec.PnL,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert window result %s: %w", rec.ID, err)
	}
	return nil
}

const resultSelectCols = `id, recorded_at, slug, direction,
	entry_price, size, cost, stop_price, outcome, pnl`

func scanResultRows(rows pgx.Rows) ([]domain.WindowRecord, error) {
	var records []domain.WindowRecord
	for rows.Next() {
		var (
			rec       domain.WindowRecord
			direction *string
			outcome   string
		)
		if err := rows.Scan(
			&rec.ID, &rec.At, &rec.Slug, &direction,
			&rec.EntryPrice, &rec.Size, &rec.Cost, &rec.StopPrice,
			&outcome, &rec.PnL,
		); err != nil {
			return nil, err
		}
		if direction != nil {
			rec.Direction = domain.Direction(*direction)
		}
		rec.Outcome = domain.Outcome(outcome)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Recent returns the most recently recorded windows, newest first.
func (s *ResultStore) Recent(ctx context.Context, limit int) ([]domain.WindowRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+resultSelectCols+" FROM window_results ORDER BY recorded_at DESC LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: query recent window results: %w", err)
	}
	defer rows.Close()

	records, err := scanResultRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan window results: %w", err)
	}
	return records, nil
}

// TotalPnL sums realized profit across all recorded windows.
func (s *ResultStore) TotalPnL(ctx context.Context) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(pnl), 0) FROM window_results",
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum pnl: %w", err)
	}
	return total, nil
}

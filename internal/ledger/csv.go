// Package ledger persists per-window trade results to local append-only
// files: a CSV ledger of closed windows and a free-text error log for failed
// order submissions.
package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/kaiwenyuan/updownbot/internal/domain"
)

// csvHeader is written once when the ledger file is first created.
var csvHeader = []string{
	"timestamp", "direction", "entry_price", "size", "cost",
	"stoploss_price", "outcome", "pnl",
}

// CSVLedger appends one row per closed market window to a CSV file. It
// implements domain.RecordSink.
type CSVLedger struct {
	path string
	mu   sync.Mutex
}

// NewCSVLedger creates a ledger writing to path. The file is created on the
// first append.
func NewCSVLedger(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

// Append writes one record, creating the file with a header row if needed.
// Each call opens, flushes, and closes the file so rows survive a crash.
func (l *CSVLedger) Append(ctx context.Context, rec domain.WindowRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	writeHeader := false
	if info, err := os.Stat(l.path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("ledger: write header: %w", err)
		}
	}

	stop := ""
	if rec.StopPrice != nil {
		stop = formatFloat(*rec.StopPrice)
	}

	row := []string{
		rec.At.UTC().Format(time.RFC3339),
		string(rec.Direction),
		formatFloat(rec.EntryPrice),
		formatFloat(rec.Size),
		formatFloat(rec.Cost),
		stop,
		string(rec.Outcome),
		formatFloat(rec.PnL),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("ledger: write row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("ledger: flush: %w", err)
	}
	return nil
}

// Path returns the ledger file location (used by the S3 archiver).
func (l *CSVLedger) Path() string {
	return l.path
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

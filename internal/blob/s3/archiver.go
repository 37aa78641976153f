package s3blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"
)

// Archiver periodically uploads the CSV trade ledger to object storage so
// results survive the host. Uploads are whole-file snapshots; the object key
// is date-partitioned and each upload overwrites that day's snapshot.
type Archiver struct {
	log      *slog.Logger
	writer   *Writer
	source   string
	prefix   string
	interval time.Duration
}

// NewArchiver creates an Archiver that snapshots the file at source every
// interval under the given key prefix.
func NewArchiver(log *slog.Logger, writer *Writer, source, prefix string, interval time.Duration) *Archiver {
	return &Archiver{
		log:      log.With("component", "s3_archiver"),
		writer:   writer,
		source:   source,
		prefix:   prefix,
		interval: interval,
	}
}

// Run uploads on a fixed interval until the context is cancelled, then takes
// a final snapshot so the last windows of the run are not lost.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Shutdown snapshot runs on a fresh context; the loop's
			// context is already cancelled.
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := a.Archive(flushCtx)
			cancel()
			if err != nil {
				a.log.Error("final ledger snapshot failed", "error", err)
			}
			return nil
		case <-ticker.C:
			if err := a.Archive(ctx); err != nil {
				a.log.Error("ledger snapshot failed", "error", err)
			}
		}
	}
}

// Archive uploads one snapshot of the ledger file. A missing or empty
// ledger is not an error; there is simply nothing to upload yet.
func (a *Archiver) Archive(ctx context.Context) error {
	f, err := os.Open(a.source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("s3blob: open ledger %s: %w", a.source, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("s3blob: stat ledger %s: %w", a.source, err)
	}
	if info.Size() == 0 {
		return nil
	}

	key := a.snapshotKey(time.Now().UTC())
	if err := a.writer.Put(ctx, key, f, "text/csv"); err != nil {
		return err
	}

	a.log.Info("ledger snapshot uploaded", "key", key, "bytes", info.Size())
	return nil
}

func (a *Archiver) snapshotKey(now time.Time) string {
	name := fmt.Sprintf("results-%s.csv", now.Format("2006-01-02"))
	return path.Join(a.prefix, "results", name)
}

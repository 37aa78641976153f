package ledger

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrorLog appends order-submission failures to a free-text file, one line
// per failure with timestamp and full detail.
type ErrorLog struct {
	path string
	mu   sync.Mutex
}

// NewErrorLog creates an error log writing to path.
func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path}
}

// Record appends one failure line. Write errors are returned rather than
// swallowed so the caller can at least surface them in its own log.
func (e *ErrorLog) Record(at time.Time, context string, cause error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open error log %s: %w", e.path, err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s %s: %v\n", at.UTC().Format(time.RFC3339), context, cause)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("ledger: write error log: %w", err)
	}
	return nil
}

// Package market derives and parses the slugs of 5-minute up/down markets.
// Slugs follow the pattern "<symbol>-updown-5m-<epoch>" where epoch is the
// window start aligned to a 5-minute boundary.
package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kaiwenyuan/updownbot/internal/domain"
)

const slugInfix = "-updown-5m-"

// ActiveSlug returns the slug of the window covering now for the given
// symbol ("bitcoin", "ethereum", ...).
func ActiveSlug(symbol string, now time.Time) string {
	start := now.UTC().Truncate(domain.MarketDuration)
	return fmt.Sprintf("%s%s%d", strings.ToLower(symbol), slugInfix, start.Unix())
}

// NextSlug returns the slug of the window immediately after the one slug
// names.
func NextSlug(slug string) (string, error) {
	symbol, start, err := Parse(slug)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%d", symbol, slugInfix, start.Add(domain.MarketDuration).Unix()), nil
}

// Parse splits a slug into its symbol and window start time.
func Parse(slug string) (symbol string, start time.Time, err error) {
	idx := strings.LastIndex(slug, slugInfix)
	if idx < 1 {
		return "", time.Time{}, fmt.Errorf("market: malformed slug %q", slug)
	}
	epochStr := slug[idx+len(slugInfix):]
	epoch, err := strconv.ParseInt(epochStr, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("market: slug %q has non-numeric epoch: %w", slug, err)
	}
	return slug[:idx], time.Unix(epoch, 0).UTC(), nil
}

// Start returns only the window start encoded in slug.
func Start(slug string) (time.Time, error) {
	_, start, err := Parse(slug)
	return start, err
}

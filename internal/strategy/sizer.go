package strategy

import "math"

// Venue order constraints: a $1 minimum notional and whole-cent totals.
const (
	minNotional = 1.0
	// defaultScanBound caps the exact-cent search before falling back.
	defaultScanBound = 200
)

// Sizer normalizes share counts so the submitted order clears the exchange
// minimum and its total cost lands on an exact cent.
type Sizer struct {
	// ScanBound overrides the exact-cent search length; zero means the
	// default of 200 candidates.
	ScanBound int
}

// NormalizeSize returns a share count for an order at the given unit price.
// When price*size already meets the $1 minimum the size passes through
// unchanged. Otherwise the size is bumped to the smallest count, in
// hundredths of a share, whose total cost is both >= $1 and an exact cent;
// if no such count is found within the scan bound, or the price rounds to
// zero cents, it falls back to ceil(1/price) whole shares. The fallback is
// always reachable, so a positive price never fails to size.
func (s Sizer) NormalizeSize(price, size float64) float64 {
	if price <= 0 {
		return size
	}
	if price*size >= minNotional {
		return size
	}

	cents := int(math.Round(price * 100))
	if cents <= 0 {
		return math.Ceil(1 / price)
	}

	bound := s.ScanBound
	if bound <= 0 {
		bound = defaultScanBound
	}

	// Work in hundredths of a share: h hundredths at `cents` cents per share
	// cost h*cents/10000 dollars, so h >= 10000/cents clears the minimum and
	// (h*cents) % 100 == 0 makes the total a whole cent.
	start := int(math.Ceil(10000 / float64(cents)))
	for h := start; h < start+bound; h++ {
		if (h*cents)%100 == 0 {
			return float64(h) / 100
		}
	}

	return math.Ceil(1 / price)
}

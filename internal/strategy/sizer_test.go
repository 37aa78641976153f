package strategy

import (
	"math"
	"testing"
)

func TestNormalizeSizePassThrough(t *testing.T) {
	var s Sizer
	// 50 shares at 0.46 is $23, far above the minimum.
	if got := s.NormalizeSize(0.46, 50); got != 50 {
		t.Errorf("NormalizeSize(0.46, 50) = %g, want 50", got)
	}
	// Exactly $1 passes through.
	if got := s.NormalizeSize(0.50, 2); got != 2 {
		t.Errorf("NormalizeSize(0.50, 2) = %g, want 2", got)
	}
}

func TestNormalizeSizeBumpsToExactCent(t *testing.T) {
	var s Sizer
	cases := []struct {
		price float64
		size  float64
		want  float64
	}{
		// 1 share at 0.47 is $0.47; smallest exact-cent count above $1 is
		// 3.00 shares ($1.41) since 47 and 100 are coprime.
		{0.47, 1, 3.00},
		// 0.50: 2.00 shares is exactly $1.
		{0.50, 1, 2.00},
		// 0.25: 4.00 shares is exactly $1.
		{0.25, 1, 4.00},
		// 0.10: 10.00 shares.
		{0.10, 1, 10.00},
	}
	for _, tc := range cases {
		got := s.NormalizeSize(tc.price, tc.size)
		if got != tc.want {
			t.Errorf("NormalizeSize(%g, %g) = %g, want %g", tc.price, tc.size, got, tc.want)
		}
	}
}

func TestNormalizeSizeProperties(t *testing.T) {
	var s Sizer
	for cents := 1; cents <= 99; cents++ {
		price := float64(cents) / 100
		size := s.NormalizeSize(price, 0.5)
		if size*price < minNotional-1e-9 {
			t.Errorf("price %g: size %g gives notional %g < $1", price, size, size*price)
		}
		costCents := size * float64(cents)
		if math.Abs(costCents-math.Round(costCents)) > 1e-6 {
			t.Errorf("price %g: size %g cost is not an exact cent", price, size)
		}
	}
}

func TestNormalizeSizeSubCentFallback(t *testing.T) {
	var s Sizer
	// 0.003 rounds to zero cents; fallback is ceil(1/0.003) = 334 shares.
	if got := s.NormalizeSize(0.003, 1); got != 334 {
		t.Errorf("NormalizeSize(0.003, 1) = %g, want 334", got)
	}
}

func TestNormalizeSizeScanBoundFallback(t *testing.T) {
	// With a scan bound of 1 nothing with a coprime cent price can land on
	// an exact cent, so the whole-share fallback applies.
	s := Sizer{ScanBound: 1}
	got := s.NormalizeSize(0.47, 1)
	want := math.Ceil(1 / 0.47) // 3
	if got != want {
		t.Errorf("NormalizeSize bound=1 = %g, want fallback %g", got, want)
	}
}

func TestNormalizeSizeZeroPrice(t *testing.T) {
	var s Sizer
	if got := s.NormalizeSize(0, 50); got != 50 {
		t.Errorf("zero price should pass size through, got %g", got)
	}
}

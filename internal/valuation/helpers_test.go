package valuation_test

import (
	"math"

	"homesquare/internal/domain"
)

func pf(f float64) *float64 { return &f }
func ps(s string) *string   { return &s }

func almostEqual(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

func comp(price, sqft int64, beds, baths *float64) domain.ComparableRecord {
	return domain.ComparableRecord{Price: price, Sqft: sqft, Beds: beds, Baths: baths}
}

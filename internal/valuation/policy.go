// Package valuation is the comparable-sales valuation engine: comp
// extraction, feature aggregation, hedonic estimate, deal classification
// and explanation. Everything here is pure computation over immutable
// inputs and is safe for concurrent use.
package valuation

// Policy carries the fixed constants of the heuristic model. They are not
// fitted; DefaultPolicy returns the production values and callers may
// override individual fields from configuration.
type Policy struct {
	// $/sqft blend when an external prior exists for the subject ZIP.
	LocalWeight    float64
	ExternalWeight float64

	// Relative price change per bedroom / bathroom difference.
	BedAdjustment  float64
	BathAdjustment float64

	// Absolute dollar window around the estimate classified as fair.
	FairBand float64

	BaseConfidence    float64
	PerCompConfidence float64
	MaxConfidence     float64
	UnknownConfidence float64

	// Comp sanity filter: records at or below these are discarded.
	MinCompPrice int64
	MinCompSqft  int64

	// Default cap on comps collected from one page state tree.
	CompLimit int
}

func DefaultPolicy() Policy {
	return Policy{
		LocalWeight:       0.6,
		ExternalWeight:    0.4,
		BedAdjustment:     0.03,
		BathAdjustment:    0.02,
		FairBand:          10_000,
		BaseConfidence:    0.5,
		PerCompConfidence: 0.02,
		MaxConfidence:     0.95,
		UnknownConfidence: 0.2,
		MinCompPrice:      10_000,
		MinCompSqft:       200,
		CompLimit:         80,
	}
}

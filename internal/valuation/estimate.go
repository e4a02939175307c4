package valuation

import "homesquare/internal/domain"

// EstimatePrice returns blended (or local) $/sqft times subject sqft with
// fixed hedonic bed/bath adjustments, clamped at zero. Nil when the subject
// sqft or the $/sqft basis is missing, or when extreme subject values push
// the product out of float range.
func (p Policy) EstimatePrice(l domain.Listing, f domain.FeatureSet) *float64 {
	basis := f.BlendedPPSqft
	if basis == nil {
		basis = f.MedianPPSqft
	}
	if l.Sqft == nil || *l.Sqft == 0 || !finite(*l.Sqft) {
		return nil
	}
	if basis == nil || *basis == 0 || !finite(*basis) {
		return nil
	}

	est := *basis * *l.Sqft
	if l.Beds != nil && f.MedianBeds != nil {
		est *= 1 + p.BedAdjustment*(*l.Beds-*f.MedianBeds)
	}
	if l.Baths != nil && f.MedianBaths != nil {
		est *= 1 + p.BathAdjustment*(*l.Baths-*f.MedianBaths)
	}
	if est < 0 {
		est = 0
	}
	if !finite(est) {
		return nil
	}
	return &est
}

package valuation

import (
	"strings"

	"homesquare/internal/domain"
)

// BuildFeatures aggregates comp statistics for one listing. With no usable
// comps the $/sqft fields stay nil so downstream stages report "unknown".
func (p Policy) BuildFeatures(l domain.Listing, comps []domain.ComparableRecord, prior domain.PriorStats) domain.FeatureSet {
	var ratios, beds, baths, sqfts []float64
	for _, c := range comps {
		if c.Sqft <= 0 {
			continue
		}
		ratios = append(ratios, float64(c.Price)/float64(c.Sqft))
		sqfts = append(sqfts, float64(c.Sqft))
		if c.Beds != nil {
			beds = append(beds, *c.Beds)
		}
		if c.Baths != nil {
			baths = append(baths, *c.Baths)
		}
	}

	f := domain.FeatureSet{
		MedianPPSqft: median(ratios),
		PPSqftIQR:    iqr(ratios),
		MedianBeds:   median(beds),
		MedianBaths:  median(baths),
		MedianSqft:   median(sqfts),
		CompCount:    len(ratios),
	}

	if l.ZipCode != nil && prior != nil {
		if zip := strings.TrimSpace(*l.ZipCode); zip != "" {
			if v, ok := prior[zip]; ok {
				f.ExternalPPSqft = ptr(v)
			}
		}
	}

	if f.MedianPPSqft != nil {
		blended := *f.MedianPPSqft
		if usableExternal(f.ExternalPPSqft) {
			blended = p.LocalWeight**f.MedianPPSqft + p.ExternalWeight**f.ExternalPPSqft
		}
		f.BlendedPPSqft = &blended
	}
	return f
}

// A zero or non-finite prior is treated as missing so it cannot drag the
// local median toward nonsense.
func usableExternal(v *float64) bool {
	return v != nil && finite(*v) && *v != 0
}

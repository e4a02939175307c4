package valuation

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"homesquare/internal/domain"
)

// Explain renders a deterministic rationale for one analysis. Identical
// inputs always produce identical text.
func (p Policy) Explain(l domain.Listing, estimate *float64, label domain.Label, pct *float64, f domain.FeatureSet) string {
	parts := make([]string, 0, 5)

	if estimate != nil {
		parts = append(parts, fmt.Sprintf("Estimated fair price ≈ $%s using median $/sqft × subject sqft", money(*estimate)))
	} else {
		parts = append(parts, "Fair price could not be estimated using median $/sqft × subject sqft")
	}

	if usableExternal(f.ExternalPPSqft) {
		parts = append(parts, fmt.Sprintf("(blended local comps + external prior; median $/sqft ≈ $%s).", moneyOrNA(f.BlendedPPSqft)))
	} else {
		parts = append(parts, fmt.Sprintf("(median $/sqft ≈ $%s from %d comps).", moneyOrNA(f.MedianPPSqft), f.CompCount))
	}

	if pct != nil {
		parts = append(parts, fmt.Sprintf("List price is %.1f%% vs estimate → **%s**.", *pct*100, strings.ToUpper(string(label))))
	}

	if f.PPSqftIQR != nil && *f.PPSqftIQR != 0 {
		parts = append(parts, fmt.Sprintf("Dispersion (IQR) in $/sqft ≈ $%s (pricing spread indicator).", money(*f.PPSqftIQR)))
	}

	parts = append(parts, fmt.Sprintf("Fair uses a ±$%s band around the estimate.", money(p.FairBand)))
	return strings.Join(parts, " ")
}

func money(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

func moneyOrNA(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return money(*v)
}

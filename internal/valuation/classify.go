package valuation

import (
	"math"

	"homesquare/internal/domain"
)

type Classification struct {
	Label       domain.Label
	Confidence  float64
	PercentDiff *float64
}

// Classify compares the asking price with the estimate using a closed
// absolute band: a difference of exactly FairBand is already a dud (or deal).
func (p Policy) Classify(asking, estimate *float64, compCount int) Classification {
	if asking == nil || *asking == 0 || !finite(*asking) ||
		estimate == nil || *estimate <= 0 || !finite(*estimate) {
		return Classification{Label: domain.LabelUnknown, Confidence: p.UnknownConfidence}
	}

	diff := *asking - *estimate
	pct := diff / *estimate

	label := domain.LabelFair
	switch {
	case diff <= -p.FairBand:
		label = domain.LabelDeal
	case diff >= p.FairBand:
		label = domain.LabelDud
	}

	margin := math.Max(0, math.Abs(diff)-p.FairBand)
	conf := p.BaseConfidence +
		p.PerCompConfidence*float64(max(0, compCount)) +
		margin/(2*p.FairBand)
	conf = math.Min(p.MaxConfidence, conf)

	return Classification{Label: label, Confidence: conf, PercentDiff: &pct}
}

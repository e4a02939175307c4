package valuation_test

import (
	"testing"

	"homesquare/internal/domain"
	"homesquare/internal/valuation"
)

func TestClassify_BandEdgesAreClosed(t *testing.T) {
	p := valuation.DefaultPolicy()
	est := pf(480000)

	tests := []struct {
		asking float64
		want   domain.Label
	}{
		{490000, domain.LabelDud},
		{470000, domain.LabelDeal},
		{489999.99, domain.LabelFair},
		{470000.01, domain.LabelFair},
		{480000, domain.LabelFair},
		{600000, domain.LabelDud},
		{300000, domain.LabelDeal},
	}
	for _, tt := range tests {
		got := p.Classify(pf(tt.asking), est, 5)
		if got.Label != tt.want {
			t.Errorf("asking %.2f: got %s, want %s", tt.asking, got.Label, tt.want)
		}
		if got.PercentDiff == nil {
			t.Errorf("asking %.2f: percent diff should be defined", tt.asking)
		}
	}
}

func TestClassify_Unknown(t *testing.T) {
	p := valuation.DefaultPolicy()
	cases := map[string]struct{ asking, est *float64 }{
		"no asking":         {nil, pf(480000)},
		"zero asking":       {pf(0), pf(480000)},
		"no estimate":       {pf(500000), nil},
		"zero estimate":     {pf(500000), pf(0)},
		"negative estimate": {pf(500000), pf(-1)},
	}
	for name, tc := range cases {
		got := p.Classify(tc.asking, tc.est, 12)
		if got.Label != domain.LabelUnknown || got.Confidence != 0.2 || got.PercentDiff != nil {
			t.Errorf("%s: got %+v", name, got)
		}
	}
}

func TestClassify_ConfidenceMonotoneAndCapped(t *testing.T) {
	p := valuation.DefaultPolicy()
	est := pf(400000)
	for _, asking := range []float64{400000, 405000, 410000, 415000, 395000, 380000, 1000000, 1} {
		prev := -1.0
		for n := -2; n <= 60; n++ {
			c := p.Classify(pf(asking), est, n)
			if c.Confidence < prev {
				t.Fatalf("asking %.0f: confidence dropped at %d comps (%.4f < %.4f)", asking, n, c.Confidence, prev)
			}
			if c.Confidence > 0.95 {
				t.Fatalf("asking %.0f, %d comps: confidence %.4f above cap", asking, n, c.Confidence)
			}
			prev = c.Confidence
		}
	}
}

func TestClassify_ConfidenceGrowsWithDistanceFromBand(t *testing.T) {
	p := valuation.DefaultPolicy()
	est := pf(400000)
	inside := p.Classify(pf(405000), est, 0)
	edge := p.Classify(pf(410000), est, 0)
	beyond := p.Classify(pf(414000), est, 0)

	if inside.Confidence != 0.5 || edge.Confidence != 0.5 {
		t.Fatalf("expected base confidence inside the band, got %.3f / %.3f", inside.Confidence, edge.Confidence)
	}
	if !almostEqual(beyond.Confidence, 0.7) {
		t.Fatalf("expected 0.5 + 4000/20000, got %.4f", beyond.Confidence)
	}
}

func TestClassify_PercentDiff(t *testing.T) {
	c := valuation.DefaultPolicy().Classify(pf(500000), pf(480000), 1)
	if c.PercentDiff == nil || !almostEqual(*c.PercentDiff, 20000.0/480000.0) {
		t.Fatalf("got %v", c.PercentDiff)
	}
}

package valuation

import "homesquare/internal/domain"

// Engine runs the full valuation pipeline against a fixed policy and a
// read-only prior snapshot. The prior must not be mutated after NewEngine.
type Engine struct {
	policy Policy
	prior  domain.PriorStats
}

func NewEngine(p Policy, prior domain.PriorStats) *Engine {
	return &Engine{policy: p, prior: prior}
}

func (e *Engine) Policy() Policy { return e.policy }

// PriorZips reports how many ZIP codes the prior snapshot covers.
func (e *Engine) PriorZips() int { return len(e.prior) }

// Analyze values the listing against already-filtered comps.
func (e *Engine) Analyze(l domain.Listing, comps []domain.ComparableRecord) domain.AnalysisResult {
	p := e.policy
	f := p.BuildFeatures(l, comps, e.prior)
	est := p.EstimatePrice(l, f)
	c := p.Classify(l.Price, est, f.CompCount)
	return domain.AnalysisResult{
		EstimatedPrice: est,
		Label:          c.Label,
		PercentDiff:    c.PercentDiff,
		Confidence:     c.Confidence,
		Explanation:    p.Explain(l, est, c.Label, c.PercentDiff, f),
		CompCount:      f.CompCount,
		Features:       f,
	}
}

// AnalyzeTree extracts comps from a page state tree and analyzes them. A
// non-positive limit uses the policy default.
func (e *Engine) AnalyzeTree(l domain.Listing, tree any, limit int) (domain.AnalysisResult, []domain.ComparableRecord) {
	if limit <= 0 {
		limit = e.policy.CompLimit
	}
	comps := e.policy.ExtractComps(tree, limit)
	return e.Analyze(l, comps), comps
}

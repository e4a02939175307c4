package domain

type Label string

const (
	LabelDeal    Label = "deal"
	LabelFair    Label = "fair"
	LabelDud     Label = "dud"
	LabelUnknown Label = "unknown"
)

func (l Label) Valid() bool {
	switch l {
	case LabelDeal, LabelFair, LabelDud, LabelUnknown:
		return true
	}
	return false
}

// FeatureSet holds aggregated comp statistics for one listing. A nil field
// means the statistic could not be computed from the available data.
type FeatureSet struct {
	MedianPPSqft   *float64 `json:"median_ppsqft"`
	PPSqftIQR      *float64 `json:"ppsqft_iqr"`
	MedianBeds     *float64 `json:"median_beds"`
	MedianBaths    *float64 `json:"median_baths"`
	MedianSqft     *float64 `json:"median_sqft"`
	CompCount      int      `json:"comp_count"`
	ExternalPPSqft *float64 `json:"external_ppsqft"`
	BlendedPPSqft  *float64 `json:"blended_ppsqft"`
}

type AnalysisResult struct {
	EstimatedPrice *float64   `json:"estimated_price"`
	Label          Label      `json:"label"`
	PercentDiff    *float64   `json:"percent_diff"`
	Confidence     float64    `json:"confidence"`
	Explanation    string     `json:"explanation"`
	CompCount      int        `json:"comp_count"`
	Features       FeatureSet `json:"features"`
}

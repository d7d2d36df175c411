package models

// The coach API returns two verdict shapes. Steps 2 and 3 use the
// tri-state shape (confidence plus a PROCEED/CAUTION/STAND_DOWN
// recommendation); steps 4 and 5 use a binary shape (valid plus a
// domain score checked against a threshold by the caller). The two are
// deliberately kept as distinct types and never coerced into each other.

// TrendVerdict is the step 2 response.
type TrendVerdict struct {
	Confidence     float64        `json:"confidence"`
	Feedback       string         `json:"feedback"`
	Recommendation Recommendation `json:"recommendation"`
	Warnings       []string       `json:"warnings"`
}

// AOIVerdict is the step 3 response.
type AOIVerdict struct {
	Confidence     float64        `json:"confidence"`
	Feedback       string         `json:"feedback"`
	Recommendation Recommendation `json:"recommendation"`
	Warnings       []string       `json:"warnings"`
}

// PatternVerdict is the step 4 response.
type PatternVerdict struct {
	Valid           bool     `json:"valid"`
	ConfluenceScore float64  `json:"confluence_score"`
	FinalApproval   bool     `json:"final_approval"`
	Warnings        []string `json:"warnings"`
}

// RiskVerdict is the step 5 response.
type RiskVerdict struct {
	Valid           bool    `json:"valid"`
	RRValid         bool    `json:"rr_valid"`
	RRRatio         float64 `json:"rr_ratio"`
	PositionSize    float64 `json:"position_size"`
	RiskAmount      float64 `json:"risk_amount"`
	PotentialProfit float64 `json:"potential_profit"`
}

// Gate outcomes derived from a verdict. A STAND_DOWN recommendation (or
// valid=false on the binary shape) must never permit any advance past
// the step that produced it.

// AutoAdvance reports whether the verdict advances the workflow without
// user action.
func (v TrendVerdict) AutoAdvance() bool { return v.Recommendation == RecommendProceed }

// ManualAdvance reports whether the user may override and advance.
func (v TrendVerdict) ManualAdvance() bool { return v.Recommendation == RecommendCaution }

// Blocks reports whether the verdict hard-blocks the step.
func (v TrendVerdict) Blocks() bool { return v.Recommendation == RecommendStandDown }

// AutoAdvance reports whether the verdict advances the workflow without
// user action.
func (v AOIVerdict) AutoAdvance() bool { return v.Recommendation == RecommendProceed }

// ManualAdvance reports whether the user may override and advance.
func (v AOIVerdict) ManualAdvance() bool { return v.Recommendation == RecommendCaution }

// Blocks reports whether the verdict hard-blocks the step.
func (v AOIVerdict) Blocks() bool { return v.Recommendation == RecommendStandDown }

// Passes reports whether the pattern verdict clears its gate: the service
// marked it valid AND the confluence score meets minScore AND final
// approval was granted. There is no override path on this shape.
func (v PatternVerdict) Passes(minScore float64) bool {
	return v.Valid && v.ConfluenceScore >= minScore && v.FinalApproval
}

// Passes reports whether the risk verdict clears its gate: the service
// marked the inputs valid and the R:R ratio met the minimum.
func (v RiskVerdict) Passes() bool {
	return v.Valid && v.RRValid
}

// Package models defines the domain types shared across the coaching
// application: workflow step payloads, validation verdicts, and journal
// records. Wire field names follow the coach API (snake_case).
package models

// Trend classifies the direction of a single timeframe.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendRanging Trend = "ranging"
)

// Valid reports whether the trend is one of the known values.
func (t Trend) Valid() bool {
	switch t {
	case TrendBullish, TrendBearish, TrendRanging:
		return true
	}
	return false
}

// AOIType classifies an area of interest on the chart.
type AOIType string

const (
	AOISupport    AOIType = "support"
	AOIResistance AOIType = "resistance"
	AOISupply     AOIType = "supply"
	AOIDemand     AOIType = "demand"
	AOIFibonacci  AOIType = "fibonacci"
	AOITrendline  AOIType = "trendline"
	AOIOther      AOIType = "other"
)

// Valid reports whether the AOI type is one of the known values.
func (a AOIType) Valid() bool {
	switch a {
	case AOISupport, AOIResistance, AOISupply, AOIDemand, AOIFibonacci, AOITrendline, AOIOther:
		return true
	}
	return false
}

// PatternType classifies a candlestick/chart pattern.
type PatternType string

const (
	PatternHeadAndShoulders PatternType = "head_and_shoulders"
	PatternEngulfing        PatternType = "engulfing"
	PatternOther            PatternType = "other"
)

// Valid reports whether the pattern type is one of the known values.
func (p PatternType) Valid() bool {
	switch p {
	case PatternHeadAndShoulders, PatternEngulfing, PatternOther:
		return true
	}
	return false
}

// Direction is the side of a planned trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Valid reports whether the direction is one of the known values.
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Recommendation is the tri-state gate verdict returned by the coach API
// for steps that support a manual override.
type Recommendation string

const (
	// RecommendProceed permits automatic advance to the next step.
	RecommendProceed Recommendation = "PROCEED"
	// RecommendCaution holds the step but arms a manual override.
	RecommendCaution Recommendation = "CAUTION"
	// RecommendStandDown hard-blocks the step with no override.
	RecommendStandDown Recommendation = "STAND_DOWN"
)

// Valid reports whether the recommendation is one of the known values.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendProceed, RecommendCaution, RecommendStandDown:
		return true
	}
	return false
}

// FXPairs is the fixed set of instruments the methodology covers.
var FXPairs = []string{
	"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD",
	"USDCHF", "NZDUSD", "EURGBP", "EURJPY", "GBPJPY",
	"AUDJPY", "AUDCHF", "AUDNZD", "EURAUD", "EURCHF",
}

// KnownPair reports whether pair is in the supported FX pair list.
func KnownPair(pair string) bool {
	for _, p := range FXPairs {
		if p == pair {
			return true
		}
	}
	return false
}

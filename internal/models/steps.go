package models

import "time"

// MarketSessionData is the step 1 payload: chosen instrument and the
// timestamp the evaluation started. The timestamp is what the final
// checklist judges session-window compliance against, not the time the
// checklist runs.
type MarketSessionData struct {
	Pair          string    `json:"pair"`
	Timestamp     time.Time `json:"timestamp"`
	InOptimalTime bool      `json:"is_optimal_time"`
}

// TrendAnalysisData is the step 2 payload: one trend call per timeframe
// plus optional freeform context for the scoring service.
type TrendAnalysisData struct {
	Pair          string `json:"pair"`
	WeeklyTrend   Trend  `json:"weekly_trend"`
	DailyTrend    Trend  `json:"daily_trend"`
	FourHourTrend Trend  `json:"four_hour_trend"`
	Context       string `json:"context,omitempty"`
}

// AOIData is the step 3 payload: a marked area of interest.
type AOIData struct {
	Pair        string  `json:"pair"`
	AOIType     AOIType `json:"aoi_type"`
	PriceLevel  float64 `json:"price_level"`
	Description string  `json:"description"`
}

// PatternData is the step 4 payload. PatternDetails carries the
// pattern-specific numeric fields (shoulder/head prices for
// head-and-shoulders, body size and wick ratio for engulfing).
type PatternData struct {
	Pair              string             `json:"pair"`
	PatternType       PatternType        `json:"pattern_type"`
	PatternDetails    map[string]float64 `json:"pattern_details"`
	ScreenshotURL     string             `json:"screenshot_url,omitempty"`
	ConfluenceFactors []string           `json:"confluence_factors"`
}

// RiskData is the step 5 payload.
type RiskData struct {
	AccountSize    float64 `json:"account_size"`
	RiskPercentage float64 `json:"risk_percentage"`
	StopPips       float64 `json:"stop_pips"`
	TargetPips     float64 `json:"target_pips"`
	Pair           string  `json:"pair"`
}

// JournalData is the step 6 payload: the fully assembled record posted to
// the journal-creation endpoint. It embeds all prior step data plus the
// derived entry/stop/target/position figures.
type JournalData struct {
	Pair            string             `json:"pair"`
	Entry           float64            `json:"entry"`
	StopLoss        float64            `json:"stop_loss"`
	TakeProfit      float64            `json:"take_profit"`
	PositionSize    float64            `json:"position_size"`
	ConfluenceScore float64            `json:"confluence_score"`
	Direction       Direction          `json:"direction"`
	SessionData     *MarketSessionData `json:"session_data"`
	TrendData       *TrendAnalysisData `json:"trend_data"`
	AOIData         *AOIData           `json:"aoi_data"`
	PatternData     *PatternData       `json:"pattern_data"`
	RiskData        *RiskData          `json:"risk_data"`
}

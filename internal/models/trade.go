package models

import "time"

// TradeStatus tracks whether a journaled trade is still open.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// TradeOutcome records how a closed trade ended.
type TradeOutcome string

const (
	OutcomeStopHit     TradeOutcome = "SL-hit"
	OutcomeTargetHit   TradeOutcome = "TP-hit"
	OutcomeManualClose TradeOutcome = "manual-close"
)

// Valid reports whether the outcome is one of the known values.
func (o TradeOutcome) Valid() bool {
	switch o {
	case OutcomeStopHit, OutcomeTargetHit, OutcomeManualClose:
		return true
	}
	return false
}

// Trade is a journaled trade record. It is owned by the journal service;
// the local store keeps a mirror for offline analytics.
type Trade struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	Pair            string             `json:"pair"`
	Direction       Direction          `json:"direction"`
	Entry           float64            `json:"entry"`
	StopLoss        float64            `json:"stop_loss"`
	TakeProfit      float64            `json:"take_profit"`
	PositionSize    float64            `json:"position_size"`
	ConfluenceScore float64            `json:"confluence_score"`
	RRRatio         float64            `json:"rr_ratio"`
	Status          TradeStatus        `json:"status"`
	Outcome         TradeOutcome       `json:"outcome,omitempty"`
	ActualEntry     float64            `json:"actual_entry,omitempty"`
	ActualExit      float64            `json:"actual_exit,omitempty"`
	PnL             float64            `json:"pnl,omitempty"`
	Thesis          string             `json:"ai_thesis"`
	CreatedAt       time.Time          `json:"created_at"`
	ClosedAt        *time.Time         `json:"closed_at,omitempty"`
	SessionData     *MarketSessionData `json:"session_data,omitempty"`
	TrendData       *TrendAnalysisData `json:"trend_data,omitempty"`
	AOIData         *AOIData           `json:"aoi_data,omitempty"`
	PatternData     *PatternData       `json:"pattern_data,omitempty"`
	RiskData        *RiskData          `json:"risk_data,omitempty"`
}

// OutcomeReport captures the user's account of how a trade played out.
type OutcomeReport struct {
	TradeID     string       `json:"trade_id"`
	ActualEntry float64      `json:"actual_entry,omitempty"`
	ActualExit  float64      `json:"actual_exit"`
	Outcome     TradeOutcome `json:"outcome"`
	Notes       string       `json:"notes,omitempty"`
}

// OutcomeResult is the journal's response to a logged outcome. The
// discipline flags surface departures from the planned entry/exit.
type OutcomeResult struct {
	PnL                 float64 `json:"pnl"`
	DisciplineViolation bool    `json:"discipline_violation,omitempty"`
	ViolationMessage    string  `json:"violation_message,omitempty"`
}

// EfficacyBucket aggregates win rate and average R:R for one grouping key
// (a pattern type or a market session).
type EfficacyBucket struct {
	Key     string  `json:"-"`
	WinRate float64 `json:"win_rate"`
	AvgRR   float64 `json:"avg_rr"`
	Count   int     `json:"count"`
}

// RRAchievement tracks how often closed trades reached the minimum and
// target R:R multiples.
type RRAchievement struct {
	Min1to2    float64 `json:"min_1_2"`
	Target1to4 float64 `json:"target_1_4"`
}

// JournalAnalysis is the coaching summary over the journal.
type JournalAnalysis struct {
	WinRate         float64          `json:"win_rate"`
	AvgRR           float64          `json:"avg_rr"`
	TotalTrades     int              `json:"total_trades"`
	TotalPnL        float64          `json:"total_pnl"`
	Recommendations []string         `json:"recommendations"`
	RRAchievement   RRAchievement    `json:"rr_achievement"`
	PatternEfficacy []EfficacyBucket `json:"pattern_efficacy"`
	SessionEfficacy []EfficacyBucket `json:"session_efficacy"`
}

// NotificationType classifies a coach notification.
type NotificationType string

const (
	NotifyAOIApproach         NotificationType = "aoi_approach"
	NotifyDisciplineViolation NotificationType = "discipline_violation"
	NotifyWeeklyReport        NotificationType = "weekly_report"
)

// Notification is a message pushed by the coach service.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

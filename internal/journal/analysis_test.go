package journal

import (
	"strings"
	"testing"
	"time"

	"confluence-coach/internal/config"
	"confluence-coach/internal/models"
	"confluence-coach/internal/session"
)

var testConfig = config.WorkflowConfig{
	MinConfluenceScore: 60,
	MinRiskReward:      2,
	TargetRiskReward:   4,
}

// londonTime is 03:00 in New York, inside the London session.
var londonTime = time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)

func closedTrade(id string, direction models.Direction, entry, stop, exit, pnl float64, pattern models.PatternType) models.Trade {
	return models.Trade{
		ID:         id,
		Pair:       "EURUSD",
		Direction:  direction,
		Entry:      entry,
		StopLoss:   stop,
		ActualExit: exit,
		PnL:        pnl,
		Status:     models.TradeClosed,
		CreatedAt:  londonTime,
		SessionData: &models.MarketSessionData{
			Pair:      "EURUSD",
			Timestamp: londonTime,
		},
		PatternData: &models.PatternData{Pair: "EURUSD", PatternType: pattern},
	}
}

func TestAchievedRR(t *testing.T) {
	tests := []struct {
		name  string
		trade models.Trade
		want  float64
		ok    bool
	}{
		{
			"long winner at 4R",
			closedTrade("a", models.DirectionLong, 1.0850, 1.0825, 1.0950, 400, models.PatternEngulfing),
			4, true,
		},
		{
			"long stopped out",
			closedTrade("b", models.DirectionLong, 1.0850, 1.0825, 1.0825, -100, models.PatternEngulfing),
			-1, true,
		},
		{
			"short winner at 2R",
			closedTrade("c", models.DirectionShort, 1.0850, 1.0875, 1.0800, 200, models.PatternEngulfing),
			2, true,
		},
		{
			"open trade skipped",
			models.Trade{Status: models.TradeOpen, Entry: 1.1, StopLoss: 1.09},
			0, false,
		},
		{
			"stop on wrong side skipped",
			closedTrade("d", models.DirectionLong, 1.0850, 1.0900, 1.0950, 100, models.PatternEngulfing),
			0, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := achievedRR(tt.trade)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("rr = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeAnalysis(t *testing.T) {
	clock := session.NewClock()
	trades := []models.Trade{
		closedTrade("a", models.DirectionLong, 1.0850, 1.0825, 1.0950, 400, models.PatternEngulfing),
		closedTrade("b", models.DirectionLong, 1.0850, 1.0825, 1.0825, -100, models.PatternEngulfing),
		closedTrade("c", models.DirectionShort, 1.0850, 1.0875, 1.0800, 200, models.PatternHeadAndShoulders),
		closedTrade("d", models.DirectionLong, 1.0850, 1.0825, 1.0900, 200, models.PatternEngulfing),
		{ID: "open", Status: models.TradeOpen, CreatedAt: londonTime},
	}

	a := ComputeAnalysis(trades, clock, testConfig)

	if a.TotalTrades != 5 {
		t.Errorf("total = %d, want 5", a.TotalTrades)
	}
	if a.WinRate != 75 {
		t.Errorf("win rate = %v, want 75 (open trades excluded)", a.WinRate)
	}
	if a.TotalPnL != 700 {
		t.Errorf("total pnl = %v, want 700", a.TotalPnL)
	}
	// Achieved multiples: 4, -1, 2, 2 over four closed trades.
	if diff := a.AvgRR - 1.75; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg rr = %v, want 1.75", a.AvgRR)
	}
	if a.RRAchievement.Min1to2 != 75 {
		t.Errorf("min achievement = %v, want 75", a.RRAchievement.Min1to2)
	}
	if a.RRAchievement.Target1to4 != 25 {
		t.Errorf("target achievement = %v, want 25", a.RRAchievement.Target1to4)
	}

	if len(a.PatternEfficacy) != 2 || a.PatternEfficacy[0].Key != string(models.PatternEngulfing) {
		t.Fatalf("pattern efficacy = %+v, want engulfing bucket first", a.PatternEfficacy)
	}
	engulfing := a.PatternEfficacy[0]
	if engulfing.Count != 3 || engulfing.WinRate < 66 || engulfing.WinRate > 67 {
		t.Errorf("engulfing bucket = %+v", engulfing)
	}

	if len(a.SessionEfficacy) != 1 || a.SessionEfficacy[0].Key != "London Session" {
		t.Errorf("session efficacy = %+v, want a single London bucket", a.SessionEfficacy)
	}

	if len(a.Recommendations) == 0 {
		t.Error("no recommendations produced")
	}
}

func TestComputeAnalysisEmpty(t *testing.T) {
	a := ComputeAnalysis(nil, session.NewClock(), testConfig)
	if a.TotalTrades != 0 || a.WinRate != 0 {
		t.Errorf("analysis = %+v, want zeroes", a)
	}
	if len(a.Recommendations) != 1 || !strings.Contains(a.Recommendations[0], "No closed trades") {
		t.Errorf("recommendations = %v", a.Recommendations)
	}
}

func TestRecommendationsFlagWeakResults(t *testing.T) {
	clock := session.NewClock()
	var trades []models.Trade
	// Four losers out of five: win rate 20%, negative realized R:R.
	for i, pnl := range []float64{-100, -100, -100, -100, 150} {
		exit := 1.0825
		if pnl > 0 {
			exit = 1.0890
		}
		trades = append(trades, closedTrade(string(rune('a'+i)), models.DirectionLong, 1.0850, 1.0825, exit, pnl, models.PatternEngulfing))
	}

	a := ComputeAnalysis(trades, clock, testConfig)
	joined := strings.Join(a.Recommendations, "\n")
	if !strings.Contains(joined, "Win rate") {
		t.Errorf("no win-rate warning in %q", joined)
	}
	if !strings.Contains(joined, "below") {
		t.Errorf("no R:R warning in %q", joined)
	}
	if !strings.Contains(joined, "Stand down") {
		t.Errorf("no losing-pattern warning in %q", joined)
	}
}

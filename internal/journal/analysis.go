package journal

import (
	"fmt"
	"sort"

	"confluence-coach/internal/config"
	"confluence-coach/internal/models"
	"confluence-coach/internal/session"
	"confluence-coach/pkg/utils"
)

// achievedRR returns the realized R multiple for a closed trade: the
// actual move measured in units of the planned stop distance. Trades
// without a usable stop distance are skipped.
func achievedRR(t models.Trade) (float64, bool) {
	if t.Status != models.TradeClosed {
		return 0, false
	}
	entry := t.ActualEntry
	if entry == 0 {
		entry = t.Entry
	}
	exit := t.ActualExit

	risk := entry - t.StopLoss
	reward := exit - entry
	if t.Direction == models.DirectionShort {
		risk = t.StopLoss - entry
		reward = entry - exit
	}
	if risk <= 0 {
		return 0, false
	}
	return reward / risk, true
}

type bucket struct {
	wins  int
	count int
	rrSum float64
	rrN   int
}

func (b *bucket) add(t models.Trade) {
	b.count++
	if t.PnL > 0 {
		b.wins++
	}
	if rr, ok := achievedRR(t); ok {
		b.rrSum += rr
		b.rrN++
	}
}

func (b *bucket) efficacy(key string) models.EfficacyBucket {
	e := models.EfficacyBucket{Key: key, Count: b.count}
	if b.count > 0 {
		e.WinRate = float64(b.wins) / float64(b.count) * 100
	}
	if b.rrN > 0 {
		e.AvgRR = b.rrSum / float64(b.rrN)
	}
	return e
}

func sortedEfficacy(buckets map[string]*bucket) []models.EfficacyBucket {
	out := make([]models.EfficacyBucket, 0, len(buckets))
	for key, b := range buckets {
		out = append(out, b.efficacy(key))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ComputeAnalysis derives the coaching summary from mirrored trades.
// Only closed trades carry results; open trades count toward totals but
// not toward win rate or R:R figures.
func ComputeAnalysis(trades []models.Trade, clock *session.Clock, cfg config.WorkflowConfig) *models.JournalAnalysis {
	analysis := &models.JournalAnalysis{TotalTrades: len(trades)}

	patterns := make(map[string]*bucket)
	sessions := make(map[string]*bucket)

	var closed, wins, reachedMin, reachedTarget int
	var rrSum float64
	var rrN int

	for _, t := range trades {
		if t.Status != models.TradeClosed {
			continue
		}
		closed++
		analysis.TotalPnL += t.PnL
		if t.PnL > 0 {
			wins++
		}

		if rr, ok := achievedRR(t); ok {
			rrSum += rr
			rrN++
			if rr >= cfg.MinRiskReward {
				reachedMin++
			}
			if rr >= cfg.TargetRiskReward {
				reachedTarget++
			}
		}

		if t.PatternData != nil {
			key := string(t.PatternData.PatternType)
			if patterns[key] == nil {
				patterns[key] = &bucket{}
			}
			patterns[key].add(t)
		}
		if t.SessionData != nil && !t.SessionData.Timestamp.IsZero() {
			key := session.SessionName(t.SessionData.Timestamp.In(clock.Location()))
			if sessions[key] == nil {
				sessions[key] = &bucket{}
			}
			sessions[key].add(t)
		}
	}

	if closed > 0 {
		analysis.WinRate = float64(wins) / float64(closed) * 100
	}
	if rrN > 0 {
		analysis.AvgRR = rrSum / float64(rrN)
		analysis.RRAchievement = models.RRAchievement{
			Min1to2:    float64(reachedMin) / float64(rrN) * 100,
			Target1to4: float64(reachedTarget) / float64(rrN) * 100,
		}
	}
	analysis.PatternEfficacy = sortedEfficacy(patterns)
	analysis.SessionEfficacy = sortedEfficacy(sessions)
	analysis.Recommendations = recommendations(analysis, closed, cfg)

	return analysis
}

func recommendations(a *models.JournalAnalysis, closed int, cfg config.WorkflowConfig) []string {
	if closed == 0 {
		return []string{"No closed trades yet. Log outcomes as trades resolve to unlock coaching insights."}
	}

	var recs []string
	if a.WinRate < 50 {
		recs = append(recs, fmt.Sprintf("Win rate is %.0f%%. Revisit entries that scored near the confluence minimum; marginal setups are dragging results.", a.WinRate))
	}
	if a.AvgRR < cfg.MinRiskReward {
		recs = append(recs, fmt.Sprintf("Average realized R:R is %s, below the %s floor. Exits are being taken early relative to plan.", utils.FormatRR(a.AvgRR), utils.FormatRR(cfg.MinRiskReward)))
	}
	if a.RRAchievement.Target1to4 < 25 && a.AvgRR >= cfg.MinRiskReward {
		recs = append(recs, fmt.Sprintf("Only %.0f%% of trades reached the %s target. Consider partial exits to hold runners longer.", a.RRAchievement.Target1to4, utils.FormatRR(cfg.TargetRiskReward)))
	}

	for _, p := range a.PatternEfficacy {
		if p.Count >= 3 && p.WinRate >= 70 {
			recs = append(recs, fmt.Sprintf("%s setups are your strongest (%.0f%% over %d trades). Weight them more heavily.", p.Key, p.WinRate, p.Count))
			break
		}
	}
	for _, p := range a.PatternEfficacy {
		if p.Count >= 3 && p.WinRate <= 30 {
			recs = append(recs, fmt.Sprintf("%s setups are losing (%.0f%% over %d trades). Stand down on them until reviewed.", p.Key, p.WinRate, p.Count))
			break
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "Discipline metrics look healthy. Keep following the checklist.")
	}
	return recs
}

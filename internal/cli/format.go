package cli

import (
	"time"

	"confluence-coach/internal/models"
	"confluence-coach/internal/session"
	"confluence-coach/internal/workflow"
	"confluence-coach/pkg/utils"
)

// recommendationText colors a verdict recommendation.
func recommendationText(o *Output, rec models.Recommendation) string {
	switch rec {
	case models.RecommendProceed:
		return o.Green(string(rec))
	case models.RecommendCaution:
		return o.Yellow(string(rec))
	case models.RecommendStandDown:
		return o.Red(string(rec))
	default:
		return string(rec)
	}
}

func renderWarnings(o *Output, warnings []string) {
	for _, w := range warnings {
		o.Warning("  ! %s", w)
	}
}

// renderStepResult prints a submit result: verdict, gate outcome, and
// what the user can do next.
func renderStepResult(o *Output, result *workflow.StepResult) {
	switch {
	case result.TrendVerdict != nil:
		v := result.TrendVerdict
		o.Printf("Recommendation: %s  (confidence %.0f)\n", recommendationText(o, v.Recommendation), v.Confidence)
		if v.Feedback != "" {
			o.Dim("  %s", v.Feedback)
		}
		renderWarnings(o, v.Warnings)
	case result.AOIVerdict != nil:
		v := result.AOIVerdict
		o.Printf("Recommendation: %s  (confidence %.0f)\n", recommendationText(o, v.Recommendation), v.Confidence)
		if v.Feedback != "" {
			o.Dim("  %s", v.Feedback)
		}
		renderWarnings(o, v.Warnings)
	case result.PatternVerdict != nil:
		v := result.PatternVerdict
		o.Printf("Confluence score: %s\n", utils.FormatConfluence(v.ConfluenceScore))
		renderWarnings(o, v.Warnings)
	case result.RiskVerdict != nil:
		v := result.RiskVerdict
		o.Printf("R:R %s   position %s   risking %s for %s\n",
			utils.FormatRR(v.RRRatio),
			utils.FormatLots(v.PositionSize),
			utils.FormatCurrency(v.RiskAmount),
			utils.FormatCurrency(v.PotentialProfit))
	case result.SessionID != "":
		o.Dim("Session logged (%s)", result.SessionID)
	}

	switch {
	case result.Advanced:
		o.Success("Advanced to step %d: %s", result.Step+1, workflow.StepTitle(result.Step+1))
	case result.OverrideAvailable:
		o.Warning("Not advanced. Review the warnings, then 'coach workflow next' to proceed anyway.")
	case result.Blocked:
		o.Error("Blocked. This setup does not meet the methodology; adjust and resubmit, or stand down.")
	}
}

// renderChecklist prints the final pre-journal checklist.
func renderChecklist(o *Output, checklist workflow.Checklist) {
	for _, item := range checklist.Items {
		mark := o.Red("✗")
		if item.Satisfied {
			mark = o.Green("✓")
		} else if !item.Required {
			mark = o.Yellow("-")
		}
		line := "  " + mark + " " + item.Label
		if item.Detail != "" {
			line += "  " + o.DimText("("+item.Detail+")")
		}
		if !item.Required {
			line += "  " + o.DimText("[optional]")
		}
		o.Println(line)
	}
	if checklist.ReadyToLog() {
		o.Success("All required checks pass. 'coach workflow log' to journal the trade.")
	} else {
		o.Error("Required checks failing; the trade cannot be journaled.")
	}
}

// renderWindowStatus prints the session window widget.
func renderWindowStatus(o *Output, status session.WindowStatus) {
	o.Printf("Reference time: %s (%s)\n", status.Now.Format("15:04 MST"), status.SessionName)
	o.Printf("Trading window: %s - %s New York\n", status.WindowStart, status.WindowEnd)
	if status.InWindow {
		o.Success("In window. Closes in %s.", session.FormatCountdown(status.Remaining))
	} else {
		o.Warning("Outside window. Opens in %s.", session.FormatCountdown(status.UntilStart))
	}
}

func renderTradeRow(o *Output, t models.Trade) {
	pnl := ""
	if t.Status == models.TradeClosed {
		pnl = utils.FormatPnL(t.PnL)
		if t.PnL > 0 {
			pnl = o.Green(pnl)
		} else if t.PnL < 0 {
			pnl = o.Red(pnl)
		}
	}
	o.Printf("%-10s  %s  %-7s %-5s  %-8s %8s  %s\n",
		t.ID,
		t.CreatedAt.Format(time.DateOnly),
		t.Pair,
		string(t.Direction),
		string(t.Status),
		pnl,
		o.DimText(utils.FormatRR(t.RRRatio)))
}

// renderTrade prints the full detail of one journaled trade.
func renderTrade(o *Output, t *models.Trade) {
	o.Bold("%s %s %s", t.Pair, t.Direction, o.DimText("("+t.ID+")"))
	o.Printf("Logged:     %s\n", t.CreatedAt.Format(time.RFC822))
	o.Printf("Entry:      %s   stop %s   target %s\n",
		utils.FormatPrice(t.Pair, t.Entry),
		utils.FormatPrice(t.Pair, t.StopLoss),
		utils.FormatPrice(t.Pair, t.TakeProfit))
	o.Printf("Size:       %s   planned %s   confluence %s\n",
		utils.FormatLots(t.PositionSize),
		utils.FormatRR(t.RRRatio),
		utils.FormatConfluence(t.ConfluenceScore))
	if t.Status == models.TradeClosed {
		o.Printf("Outcome:    %s   exit %s   P&L %s\n",
			string(t.Outcome),
			utils.FormatPrice(t.Pair, t.ActualExit),
			utils.FormatPnL(t.PnL))
	} else {
		o.Dim("Outcome:    still open")
	}
	if t.Thesis != "" {
		o.Println()
		o.Info("Thesis:")
		o.Printf("  %s\n", t.Thesis)
	}
}

// renderAnalysis prints the coaching summary.
func renderAnalysis(o *Output, a *models.JournalAnalysis) {
	o.Bold("Journal analysis (%d trades)", a.TotalTrades)
	o.Printf("Win rate:        %.0f%%\n", a.WinRate)
	o.Printf("Avg realized:    %s\n", utils.FormatRR(a.AvgRR))
	o.Printf("Total P&L:       %s\n", utils.FormatPnL(a.TotalPnL))
	o.Printf("Reached 1:2 / 1:4 targets:  %.0f%% / %.0f%%\n",
		a.RRAchievement.Min1to2, a.RRAchievement.Target1to4)

	if len(a.PatternEfficacy) > 0 {
		o.Println()
		o.Info("By pattern:")
		for _, p := range a.PatternEfficacy {
			o.Printf("  %-20s %3.0f%% win   %s avg   (%d trades)\n", p.Key, p.WinRate, utils.FormatRR(p.AvgRR), p.Count)
		}
	}
	if len(a.SessionEfficacy) > 0 {
		o.Println()
		o.Info("By session:")
		for _, s := range a.SessionEfficacy {
			o.Printf("  %-20s %3.0f%% win   %s avg   (%d trades)\n", s.Key, s.WinRate, utils.FormatRR(s.AvgRR), s.Count)
		}
	}
	if len(a.Recommendations) > 0 {
		o.Println()
		o.Info("Coaching:")
		for _, rec := range a.Recommendations {
			o.Printf("  • %s\n", rec)
		}
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/models"
	"confluence-coach/internal/workflow"
	"confluence-coach/pkg/utils"
)

// restoreActive loads the most recent draft into a fresh machine so the
// one-shot commands pick up where the last invocation left off. The
// pointer is re-derived by fast-forwarding through the recovered gates;
// a pending caution override always waits for an explicit 'next'.
func (a *App) restoreActive(ctx context.Context) {
	if a.Store == nil {
		return
	}
	if a.Machine.Snapshot().Step1Data != nil {
		return
	}
	drafts, err := a.Store.ListDrafts(ctx)
	if err != nil || len(drafts) == 0 {
		return
	}
	if err := a.Machine.RestoreDraft(ctx, drafts[0].DraftID); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to restore draft")
		return
	}
	a.Machine.FastForward()
}

// autosave persists the in-progress evaluation after each mutating
// command so the next invocation can resume it.
func (a *App) autosave(ctx context.Context) {
	if a.Store == nil || a.Machine.Snapshot().Step1Data == nil {
		return
	}
	if _, err := a.Machine.SaveDraft(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Autosave failed")
	}
}

func addWorkflowCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "The six-step pre-trade evaluation",
		Long: `Walk a trade idea through the six-step evaluation. Steps unlock in
order; each validated step gates the next. The in-progress evaluation is
saved automatically and resumed on the next invocation.`,
	}

	cmd.AddCommand(newStartCmd(app))
	cmd.AddCommand(newWorkflowStatusCmd(app))
	cmd.AddCommand(newTrendCmd(app))
	cmd.AddCommand(newAOICmd(app))
	cmd.AddCommand(newPatternCmd(app))
	cmd.AddCommand(newRiskCmd(app))
	cmd.AddCommand(newNextCmd(app))
	cmd.AddCommand(newBackCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newDraftsCmd(app))
	cmd.AddCommand(newResumeCmd(app))
	cmd.AddCommand(newChecklistCmd(app))
	cmd.AddCommand(newLogCmd(app))

	rootCmd.AddCommand(cmd)
}

func newStartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start <pair>",
		Short: "Start a new evaluation for a currency pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			pair := strings.ToUpper(args[0])

			app.Machine.Reset()
			if err := app.Machine.SetStepData(workflow.StepMarketSession, &models.MarketSessionData{
				Pair:      pair,
				Timestamp: time.Now(),
			}); err != nil {
				return err
			}

			status := app.Clock.Status(time.Now())
			if !status.InWindow {
				output.Warning("Outside the trading window (%s - %s New York). The final checklist will flag this trade.",
					status.WindowStart, status.WindowEnd)
			}

			result, err := app.Machine.SubmitStep(ctx, workflow.StepMarketSession)
			if err != nil {
				return err
			}
			renderStepResult(output, result)
			app.autosave(ctx)
			return nil
		},
	}
}

func newWorkflowStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current evaluation state",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			app.restoreActive(cmd.Context())
			snap := app.Machine.Snapshot()
			if output.IsJSON() {
				return output.JSON(snap)
			}

			if snap.Step1Data == nil {
				output.Dim("No evaluation in progress. 'coach workflow start <pair>' to begin.")
				return nil
			}

			output.Bold("Evaluating %s", snap.Step1Data.Pair)
			for step := workflow.FirstStep; step <= workflow.LastStep; step++ {
				marker := " "
				if step == snap.CurrentStep {
					marker = ">"
				}
				output.Printf("%s %d. %-18s %s\n", marker, step, workflow.StepTitle(step), stepSummary(output, snap, step))
			}
			return nil
		},
	}
}

func stepSummary(o *Output, snap workflow.Snapshot, step int) string {
	switch step {
	case workflow.StepMarketSession:
		if snap.Step1Data != nil {
			return o.Green("logged " + snap.Step1Data.Timestamp.Format("15:04"))
		}
	case workflow.StepTrendAnalysis:
		if v := snap.Step2Verdict; v != nil {
			return recommendationText(o, v.Recommendation)
		}
		if snap.Step2Data != nil {
			return o.DimText("unsubmitted")
		}
	case workflow.StepAOIMapping:
		if v := snap.Step3Verdict; v != nil {
			return recommendationText(o, v.Recommendation)
		}
		if snap.Step3Data != nil {
			return o.DimText("unsubmitted")
		}
	case workflow.StepPatternValidation:
		if v := snap.Step4Verdict; v != nil {
			return utils.FormatConfluence(v.ConfluenceScore)
		}
		if snap.Step4Data != nil {
			return o.DimText("unsubmitted")
		}
	case workflow.StepRiskCalculation:
		if v := snap.Step5Verdict; v != nil {
			return utils.FormatRR(v.RRRatio)
		}
		if snap.Step5Data != nil {
			return o.DimText("unsubmitted")
		}
	}
	return ""
}

func newTrendCmd(app *App) *cobra.Command {
	var weekly, daily, fourHour, marketContext string

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Step 2: submit the trend analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			app.restoreActive(ctx)

			if err := app.Machine.SetStepData(workflow.StepTrendAnalysis, &models.TrendAnalysisData{
				WeeklyTrend:   models.Trend(weekly),
				DailyTrend:    models.Trend(daily),
				FourHourTrend: models.Trend(fourHour),
				Context:       marketContext,
			}); err != nil {
				return err
			}

			result, err := app.Machine.SubmitStep(ctx, workflow.StepTrendAnalysis)
			if err != nil {
				return err
			}
			renderStepResult(output, result)
			app.autosave(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&weekly, "weekly", "", "weekly trend: bullish, bearish, or ranging")
	cmd.Flags().StringVar(&daily, "daily", "", "daily trend: bullish, bearish, or ranging")
	cmd.Flags().StringVar(&fourHour, "4h", "", "4-hour trend: bullish, bearish, or ranging")
	cmd.Flags().StringVar(&marketContext, "context", "", "optional freeform market context")
	cmd.MarkFlagRequired("weekly")
	cmd.MarkFlagRequired("daily")
	cmd.MarkFlagRequired("4h")

	return cmd
}

func newAOICmd(app *App) *cobra.Command {
	var aoiType, description string
	var level float64

	cmd := &cobra.Command{
		Use:   "aoi",
		Short: "Step 3: mark the area of interest",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			app.restoreActive(ctx)

			if err := app.Machine.SetStepData(workflow.StepAOIMapping, &models.AOIData{
				AOIType:     models.AOIType(aoiType),
				PriceLevel:  level,
				Description: description,
			}); err != nil {
				return err
			}

			result, err := app.Machine.SubmitStep(ctx, workflow.StepAOIMapping)
			if err != nil {
				return err
			}
			renderStepResult(output, result)
			app.autosave(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&aoiType, "type", "", "area type: support, resistance, supply, demand, fibonacci, trendline, other")
	cmd.Flags().Float64Var(&level, "level", 0, "price level of the area")
	cmd.Flags().StringVar(&description, "description", "", "what makes this area interesting")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("level")
	cmd.MarkFlagRequired("description")

	return cmd
}

func newPatternCmd(app *App) *cobra.Command {
	var patternType, screenshot string
	var details, factors []string

	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Step 4: submit the entry pattern for confluence scoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			app.restoreActive(ctx)

			parsed, err := parseDetails(details)
			if err != nil {
				return err
			}

			data := &models.PatternData{
				PatternType:       models.PatternType(patternType),
				PatternDetails:    parsed,
				ConfluenceFactors: factors,
			}

			if screenshot != "" {
				content, err := os.ReadFile(screenshot)
				if err != nil {
					return fmt.Errorf("failed to read screenshot: %w", err)
				}
				snap := app.Machine.Snapshot()
				pair := ""
				if snap.Step1Data != nil {
					pair = snap.Step1Data.Pair
				}
				upload, err := app.Gateway.UploadScreenshot(ctx, filepath.Base(screenshot), content, pair)
				if err != nil {
					output.Warning("Screenshot upload failed: %v. Continuing without it.", err)
				} else {
					data.ScreenshotURL = upload.ScreenshotURL
					output.Dim("Screenshot attached")
				}
			}

			if err := app.Machine.SetStepData(workflow.StepPatternValidation, data); err != nil {
				return err
			}

			result, err := app.Machine.SubmitStep(ctx, workflow.StepPatternValidation)
			if err != nil {
				return err
			}
			renderStepResult(output, result)
			app.autosave(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&patternType, "type", "", "pattern type: head_and_shoulders, engulfing, other")
	cmd.Flags().StringArrayVar(&details, "detail", nil, "pattern measurement as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&factors, "factor", nil, "confluence factor (repeatable)")
	cmd.Flags().StringVar(&screenshot, "screenshot", "", "path to a chart screenshot to attach")
	cmd.MarkFlagRequired("type")

	return cmd
}

func parseDetails(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		key, value, found := strings.Cut(p, "=")
		if !found {
			return nil, fmt.Errorf("detail %q is not key=value", p)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("detail %q has a non-numeric value", p)
		}
		out[strings.TrimSpace(key)] = f
	}
	return out, nil
}

func newRiskCmd(app *App) *cobra.Command {
	var account, riskPct, stop, target float64

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Step 5: submit the risk parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			app.restoreActive(ctx)

			snap := app.Machine.Snapshot()
			pair := ""
			if snap.Step1Data != nil {
				pair = snap.Step1Data.Pair
			}

			// Local preview so the user sees the math before the verdict.
			output.Dim("Planned: %s risking %s over %s for %s",
				utils.FormatLots(utils.PositionSize(account, riskPct, stop, pair)),
				utils.FormatCurrency(utils.RiskAmount(account, riskPct)),
				utils.FormatPips(stop),
				utils.FormatRR(utils.RRRatio(stop, target)))

			if err := app.Machine.SetStepData(workflow.StepRiskCalculation, &models.RiskData{
				AccountSize:    account,
				RiskPercentage: riskPct,
				StopPips:       stop,
				TargetPips:     target,
			}); err != nil {
				return err
			}

			result, err := app.Machine.SubmitStep(ctx, workflow.StepRiskCalculation)
			if err != nil {
				return err
			}
			renderStepResult(output, result)
			app.autosave(ctx)
			return nil
		},
	}

	cmd.Flags().Float64Var(&account, "account", 0, "account size in account currency")
	cmd.Flags().Float64Var(&riskPct, "risk", 1, "percent of the account to risk")
	cmd.Flags().Float64Var(&stop, "stop", 0, "stop distance in pips")
	cmd.Flags().Float64Var(&target, "target", 0, "target distance in pips")
	cmd.MarkFlagRequired("account")
	cmd.MarkFlagRequired("stop")
	cmd.MarkFlagRequired("target")

	return cmd
}

func newNextCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Advance to the next step (including caution overrides)",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			app.restoreActive(ctx)

			if err := app.Machine.Next(); err != nil {
				if coacherrors.Is(err, coacherrors.ErrStepBlocked) {
					output.Error("This step is blocked; it cannot be overridden.")
				}
				return err
			}
			step := app.Machine.CurrentStep()
			output.Success("Now on step %d: %s", step, workflow.StepTitle(step))
			app.autosave(ctx)
			return nil
		},
	}
}

func newBackCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "Go back one step",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			app.restoreActive(ctx)

			app.Machine.Previous()
			step := app.Machine.CurrentStep()
			output.Printf("Now on step %d: %s\n", step, workflow.StepTitle(step))
			app.autosave(ctx)
			return nil
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Abandon the current evaluation",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			app.restoreActive(ctx)

			snap := app.Machine.Snapshot()
			app.Machine.Reset()
			if app.Store != nil && snap.DraftID != "" {
				if err := app.Store.DeleteDraft(ctx, snap.DraftID); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to delete draft")
				}
			}
			output.Println("Evaluation abandoned.")
			return nil
		},
	}
}

func newDraftsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List saved evaluations",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return coacherrors.ErrDatabaseError
			}
			drafts, err := app.Store.ListDrafts(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(drafts)
			}
			if len(drafts) == 0 {
				output.Dim("No saved drafts.")
				return nil
			}
			for _, d := range drafts {
				output.Printf("%s  %-7s  saved %s\n", d.DraftID, d.Pair, d.SavedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newResumeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <draft-id>",
		Short: "Resume a saved evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			if app.Store == nil {
				return coacherrors.ErrDatabaseError
			}

			if err := app.Machine.RestoreDraft(ctx, args[0]); err != nil {
				return err
			}
			step := app.Machine.FastForward()
			snap := app.Machine.Snapshot()
			output.Success("Resumed %s at step %d: %s", snap.Step1Data.Pair, step, workflow.StepTitle(step))
			return nil
		},
	}
}

func newChecklistCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "checklist",
		Short: "Show the final pre-journal checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			app.restoreActive(cmd.Context())

			snap := app.Machine.Snapshot()
			checklist := workflow.BuildChecklist(snap, app.Clock, app.Config.Workflow)
			if output.IsJSON() {
				return output.JSON(checklist)
			}
			renderChecklist(output, checklist)
			return nil
		},
	}
}

func newLogCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Step 6: journal the trade",
		Long: `Assembles the journal entry from every completed step and posts it.
All required checklist items must pass. On success the evaluation resets
for the next trade.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			app.restoreActive(ctx)

			snap := app.Machine.Snapshot()
			result, err := app.Machine.LogTrade(ctx)
			if err != nil {
				if coacherrors.Is(err, coacherrors.ErrChecklistFailed) {
					output.Error("The checklist is failing:")
					renderChecklist(output, workflow.BuildChecklist(snap, app.Clock, app.Config.Workflow))
				}
				return err
			}

			if app.Store != nil && snap.DraftID != "" {
				if err := app.Store.DeleteDraft(ctx, snap.DraftID); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to delete draft")
				}
			}

			output.Success("Trade journaled (%s)", result.TradeID)
			if result.Thesis != "" {
				output.Println()
				output.Info("Thesis:")
				output.Printf("  %s\n", result.Thesis)
			}
			return nil
		},
	}
}

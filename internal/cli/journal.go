package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/gateway"
	"confluence-coach/internal/journal"
	"confluence-coach/internal/models"
	"confluence-coach/pkg/utils"
)

func addJournalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Review logged trades and their outcomes",
	}

	cmd.AddCommand(newJournalListCmd(app))
	cmd.AddCommand(newJournalShowCmd(app))
	cmd.AddCommand(newJournalOutcomeCmd(app))
	cmd.AddCommand(newJournalAnalysisCmd(app))
	cmd.AddCommand(newJournalExportCmd(app))

	rootCmd.AddCommand(cmd)
}

func requireJournal(app *App) error {
	if app.Journal == nil {
		return coacherrors.ErrDatabaseError
	}
	return nil
}

func newJournalListCmd(app *App) *cobra.Command {
	var pair, status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireJournal(app); err != nil {
				return err
			}

			trades, err := app.Journal.ListTrades(cmd.Context(), gateway.TradeListOptions{
				Pair:   strings.ToUpper(pair),
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Dim("No trades found.")
				return nil
			}
			for _, t := range trades {
				renderTradeRow(output, t)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pair, "pair", "", "filter by currency pair")
	cmd.Flags().StringVar(&status, "status", "", "filter by status: open or closed")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of trades")

	return cmd
}

func newJournalShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trade-id>",
		Short: "Show one trade in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireJournal(app); err != nil {
				return err
			}

			trade, err := app.Journal.GetTrade(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}
			renderTrade(output, trade)
			return nil
		},
	}
}

func newJournalOutcomeCmd(app *App) *cobra.Command {
	var entry, exit float64
	var outcome, notes string

	cmd := &cobra.Command{
		Use:   "outcome <trade-id>",
		Short: "Record how a trade resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireJournal(app); err != nil {
				return err
			}

			result, err := app.Journal.LogOutcome(cmd.Context(), models.OutcomeReport{
				TradeID:     args[0],
				ActualEntry: entry,
				ActualExit:  exit,
				Outcome:     models.TradeOutcome(outcome),
				Notes:       notes,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			output.Success("Outcome recorded: %s", utils.FormatPnL(result.PnL))
			if result.DisciplineViolation {
				output.Warning("%s", result.ViolationMessage)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&exit, "exit", 0, "actual exit price")
	cmd.Flags().Float64Var(&entry, "entry", 0, "actual entry price, if it differed from plan")
	cmd.Flags().StringVar(&outcome, "outcome", "", "how it closed: SL-hit, TP-hit, manual-close")
	cmd.Flags().StringVar(&notes, "notes", "", "post-trade notes")
	cmd.MarkFlagRequired("exit")
	cmd.MarkFlagRequired("outcome")

	return cmd
}

func newJournalAnalysisCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analysis",
		Short: "Summarize discipline and pattern efficacy across the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireJournal(app); err != nil {
				return err
			}

			analysis, err := app.Journal.Analysis(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(analysis)
			}
			renderAnalysis(output, analysis)
			return nil
		},
	}
}

func newJournalExportCmd(app *App) *cobra.Command {
	var outPath, pair string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the journal as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireJournal(app); err != nil {
				return err
			}

			trades, err := app.Journal.ListTrades(cmd.Context(), gateway.TradeListOptions{
				Pair: strings.ToUpper(pair),
			})
			if err != nil {
				return err
			}

			w := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := journal.ExportCSV(w, trades); err != nil {
				return err
			}
			if outPath != "" {
				output.Success("Exported %d trades to %s", len(trades), outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "write to a file instead of stdout")
	cmd.Flags().StringVar(&pair, "pair", "", "filter by currency pair")

	return cmd
}

package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func addSessionCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Session window information",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the trading window is open",
		Long: `Evaluates the current time against the methodology's trading
window (01:00-10:30 New York by default) and shows the countdown to the
window boundary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			status := app.Clock.Status(time.Now())
			if output.IsJSON() {
				return output.JSON(status)
			}
			renderWindowStatus(output, status)
			return nil
		},
	})

	rootCmd.AddCommand(cmd)
}

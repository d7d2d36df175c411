package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/monitor"
)

func addMonitorCommands(rootCmd *cobra.Command, app *App) {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Background polling of alerts and AOI monitoring",
	}
	monitorCmd.AddCommand(newMonitorRunCmd(app))
	monitorCmd.AddCommand(newMonitorStatusCmd(app))
	rootCmd.AddCommand(monitorCmd)

	notifyCmd := &cobra.Command{
		Use:   "notifications",
		Short: "View and acknowledge coaching alerts",
	}
	notifyCmd.AddCommand(newNotificationsListCmd(app))
	notifyCmd.AddCommand(newNotificationsReadCmd(app))
	rootCmd.AddCommand(notifyCmd)
}

func newMonitorRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitor in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return coacherrors.ErrDatabaseError
			}
			ctx := cmd.Context()

			mon := monitor.New(app.Gateway, app.Journal, app.Store, app.Clock, app.Config.Monitoring, app.Logger)
			if err := mon.Start(ctx); err != nil {
				return err
			}
			mon.PollNow(ctx)
			output.Info("Monitoring on schedule %q. Ctrl-C to stop.", app.Config.Monitoring.PollSchedule)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-ctx.Done():
			}
			mon.Stop()
			return nil
		},
	}
}

func newMonitorStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which areas of interest are being watched",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			status, err := app.Gateway.GetMonitoringStatus(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(status)
			}

			if !status.MonitoringEnabled {
				output.Dim("Monitoring is disabled on the server.")
				return nil
			}
			if len(status.ActiveAOIs) == 0 {
				output.Println("No areas of interest under watch.")
				return nil
			}
			output.Bold("Watching %d areas:", len(status.ActiveAOIs))
			for _, aoi := range status.ActiveAOIs {
				output.Printf("  %-8s %-11s %s\n", aoi.Pair, aoi.AOIType, aoi.Description)
			}
			return nil
		},
	}
}

func newNotificationsListCmd(app *App) *cobra.Command {
	var all bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return coacherrors.ErrDatabaseError
			}

			notifications, err := app.Store.GetNotifications(cmd.Context(), !all, limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(notifications)
			}
			if len(notifications) == 0 {
				output.Dim("No notifications.")
				return nil
			}
			for _, n := range notifications {
				mark := output.Yellow("*")
				if n.Read {
					mark = " "
				}
				output.Printf("%s %s  %s  %s\n", mark, n.CreatedAt.Local().Format("Jan 02 15:04"), output.ColoredString(ColorBold, n.Title), n.Message)
				output.Printf("    %s\n", output.DimText(n.ID))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include notifications already read")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number shown")

	return cmd
}

func newNotificationsReadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read [notification-id]",
		Short: "Mark one alert, or all of them, as read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return coacherrors.ErrDatabaseError
			}
			ctx := cmd.Context()

			if len(args) == 0 {
				if err := app.Store.MarkAllNotificationsRead(ctx); err != nil {
					return err
				}
				if err := app.Gateway.MarkAllNotificationsRead(ctx); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to sync read state to the server")
				}
				output.Success("All notifications marked read")
				return nil
			}

			id := args[0]
			if err := app.Store.MarkNotificationRead(ctx, id); err != nil {
				return err
			}
			if err := app.Gateway.MarkNotificationRead(ctx, id); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to sync read state to the server")
			}
			output.Success("Notification marked read")
			return nil
		},
	}
}

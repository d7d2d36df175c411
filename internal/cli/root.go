package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"confluence-coach/internal/config"
	"confluence-coach/internal/gateway"
	"confluence-coach/internal/journal"
	"confluence-coach/internal/logging"
	"confluence-coach/internal/security"
	"confluence-coach/internal/session"
	"confluence-coach/internal/store"
	"confluence-coach/internal/workflow"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-03-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Gateway *gateway.Client
	Store   store.DataStore
	Clock   *session.Clock
	Machine *workflow.Machine
	Journal *journal.Service
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	clock, err := session.NewClockWithConfig(cfg.Session)
	if err != nil {
		logger.Warn().Err(err).Msg("Bad session config, using the default window")
		clock = session.NewClock()
	}
	app.Clock = clock

	app.Gateway = gateway.NewClient(cfg.Gateway, cfg.Credentials.Coach, logger)

	dataStore, err := store.NewSQLiteStore(config.DefaultDBPath())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, drafts and offline journal unavailable")
	} else {
		app.Store = dataStore
	}

	app.Machine = workflow.NewMachine(app.Gateway, clock, cfg.Workflow, app.Store, logger)
	if app.Store != nil {
		app.Journal = journal.NewService(app.Gateway, app.Store, clock, cfg.Workflow, logger)
	}

	rootCmd := &cobra.Command{
		Use:   "coach",
		Short: "Confluence Coach - disciplined FX trade preparation",
		Long: `Confluence Coach walks every trade through a strict six-step
pre-trade evaluation: session, trend, area of interest, pattern, risk,
and the final journal entry. Each step is validated before the next
unlocks, and every journaled trade feeds the coaching analytics.

Use 'coach help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/confluence-coach)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addSessionCommands(rootCmd, app)
	addWorkflowCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addMonitorCommands(rootCmd, app)

	return rootCmd
}

func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Confluence Coach v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Bold("Gateway")
			output.Printf("  base_url: %s\n", app.Config.Gateway.BaseURL)
			output.Printf("  timeout:  %s\n", app.Config.Gateway.Timeout)
			output.Bold("Workflow")
			output.Printf("  min_confluence_score: %.0f\n", app.Config.Workflow.MinConfluenceScore)
			output.Printf("  min_risk_reward:      %.1f\n", app.Config.Workflow.MinRiskReward)
			output.Printf("  target_risk_reward:   %.1f\n", app.Config.Workflow.TargetRiskReward)
			output.Bold("Session")
			output.Printf("  window: %02d:%02d - %02d:%02d %s\n",
				app.Config.Session.StartHour, app.Config.Session.StartMinute,
				app.Config.Session.EndHour, app.Config.Session.EndMinute,
				app.Config.Session.Timezone)
			output.Bold("Monitoring")
			output.Printf("  enabled: %v  poll: %s\n", app.Config.Monitoring.Enabled, app.Config.Monitoring.PollSchedule)
			output.Bold("Credentials")
			output.Printf("  token: %s\n", security.MaskCredential(app.Config.Credentials.Coach.Token))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	return cmd
}

// Package monitor runs the background coaching loop: it polls the coach
// service for AOI alerts and discipline notifications on a schedule,
// caches them locally, and surfaces the weekly journal report.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"confluence-coach/internal/config"
	"confluence-coach/internal/gateway"
	"confluence-coach/internal/journal"
	"confluence-coach/internal/session"
	"confluence-coach/internal/store"
)

// Monitor owns the cron loop.
type Monitor struct {
	cron    *cron.Cron
	remote  gateway.Notifications
	journal *journal.Service
	store   store.DataStore
	clock   *session.Clock
	cfg     config.MonitoringConfig
	logger  zerolog.Logger
}

// New creates a monitor. Schedules come from the monitoring config and
// run in the session reference zone, so "poll during the window" means
// the New York window regardless of where the machine sits.
func New(remote gateway.Notifications, journalSvc *journal.Service, dataStore store.DataStore, clock *session.Clock, cfg config.MonitoringConfig, logger zerolog.Logger) *Monitor {
	return &Monitor{
		cron:    cron.New(cron.WithLocation(clock.Location())),
		remote:  remote,
		journal: journalSvc,
		store:   dataStore,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the configured tasks and starts the scheduler.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.logger.Info().Msg("Monitoring disabled")
		return nil
	}

	if _, err := m.cron.AddFunc(m.cfg.PollSchedule, func() { m.poll(ctx) }); err != nil {
		return fmt.Errorf("register poll task: %w", err)
	}
	if m.cfg.WeeklyReport {
		if _, err := m.cron.AddFunc(m.cfg.ReportSchedule, func() { m.weeklyReport(ctx) }); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}

	m.cron.Start()
	m.logger.Info().
		Str("poll", m.cfg.PollSchedule).
		Bool("weekly_report", m.cfg.WeeklyReport).
		Msg("Monitor started")
	return nil
}

// Stop stops the scheduler and waits for running tasks.
func (m *Monitor) Stop() {
	stopCtx := m.cron.Stop()
	<-stopCtx.Done()
	m.logger.Info().Msg("Monitor stopped")
}

// PollNow runs one poll cycle immediately.
func (m *Monitor) PollNow(ctx context.Context) {
	m.poll(ctx)
}

// poll fetches fresh notifications and the AOI monitoring status. Poll
// failures are logged and skipped; the next tick tries again.
func (m *Monitor) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	list, err := m.remote.GetNotifications(ctx, gateway.NotificationListOptions{UnreadOnly: true, Limit: 50})
	if err != nil {
		m.logger.Warn().Err(err).Msg("Notification poll failed")
	} else if len(list.Notifications) > 0 {
		if err := m.store.SaveNotifications(ctx, list.Notifications); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to cache notifications")
		}
		for _, n := range list.Notifications {
			m.logger.Info().
				Str("type", string(n.Type)).
				Str("title", n.Title).
				Msg("Coach notification")
		}
	}

	status, err := m.remote.GetMonitoringStatus(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Monitoring status poll failed")
		return
	}
	m.logger.Debug().
		Int("active_aois", len(status.ActiveAOIs)).
		Bool("in_window", status.InOptimalTime).
		Msg("Monitoring status")
	for _, aoi := range status.ActiveAOIs {
		m.logger.Debug().
			Str("pair", aoi.Pair).
			Str("aoi_type", aoi.AOIType).
			Msg("Watching AOI")
	}
}

// weeklyReport logs the journal analysis summary on the report schedule.
func (m *Monitor) weeklyReport(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	analysis, err := m.journal.Analysis(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Weekly report failed")
		return
	}

	m.logger.Info().
		Int("total_trades", analysis.TotalTrades).
		Float64("win_rate", analysis.WinRate).
		Float64("avg_rr", analysis.AvgRR).
		Float64("total_pnl", analysis.TotalPnL).
		Msg("Weekly journal report")
	for _, rec := range analysis.Recommendations {
		m.logger.Info().Str("recommendation", rec).Msg("Coaching recommendation")
	}
}

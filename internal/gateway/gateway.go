// Package gateway wraps the remote coach API: step validation, screenshot
// upload, journal persistence, and notifications. The scoring logic behind
// the API is an opaque collaborator; this package only owns the wire
// contracts and the error taxonomy (transient failure vs negative verdict).
package gateway

import (
	"context"
	"time"

	"confluence-coach/internal/models"
)

// StepValidator is the verdict service consumed by the workflow state
// machine for steps 2-5. Each call is at-most-once per submit action; the
// workflow never retries automatically.
type StepValidator interface {
	LogMarketSession(ctx context.Context, data models.MarketSessionData) (string, error)
	ValidateTrend(ctx context.Context, data models.TrendAnalysisData) (*models.TrendVerdict, error)
	ValidateAOI(ctx context.Context, data models.AOIData) (*models.AOIVerdict, error)
	ValidatePattern(ctx context.Context, data models.PatternData) (*models.PatternVerdict, error)
	CalculateRisk(ctx context.Context, data models.RiskData) (*models.RiskVerdict, error)
	CreateJournalEntry(ctx context.Context, data models.JournalData) (*JournalEntryResult, error)
}

// Journal is the read/outcome side of the coach API consumed by the
// journal view.
type Journal interface {
	GetTrades(ctx context.Context, opts TradeListOptions) ([]models.Trade, error)
	GetTrade(ctx context.Context, tradeID string) (*models.Trade, error)
	LogOutcome(ctx context.Context, report models.OutcomeReport) (*models.OutcomeResult, error)
	GetAnalysis(ctx context.Context) (*models.JournalAnalysis, error)
}

// Uploader pushes pattern screenshots and hands back an opaque URL.
type Uploader interface {
	UploadScreenshot(ctx context.Context, filename string, content []byte, pair string) (*UploadResult, error)
}

// Notifications is the monitoring/notification surface of the coach API.
type Notifications interface {
	GetNotifications(ctx context.Context, opts NotificationListOptions) (*NotificationList, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context) error
	GetMonitoringStatus(ctx context.Context) (*MonitoringStatus, error)
}

// JournalEntryResult is the response to the final journal submission.
type JournalEntryResult struct {
	Success bool   `json:"success"`
	TradeID string `json:"trade_id"`
	Thesis  string `json:"ai_thesis"`
}

// UploadResult is the response to a screenshot upload.
type UploadResult struct {
	Success       bool   `json:"success"`
	ScreenshotURL string `json:"screenshot_url"`
	FileID        string `json:"file_id"`
}

// SessionLogResult is the response to the step 1 session log.
type SessionLogResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

// TradeListOptions are query parameters for the trade list endpoint.
type TradeListOptions struct {
	Pair   string `url:"pair,omitempty"`
	Status string `url:"status,omitempty"`
	Limit  int    `url:"limit,omitempty"`
}

// NotificationListOptions are query parameters for the notification list.
type NotificationListOptions struct {
	Limit      int  `url:"limit,omitempty"`
	UnreadOnly bool `url:"unread_only,omitempty"`
}

// NotificationList is the notification list response.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

// ActiveAOI is one monitored area of interest.
type ActiveAOI struct {
	ID          string    `json:"id"`
	Pair        string    `json:"pair"`
	AOIType     string    `json:"aoi_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// MonitoringStatus is the AOI monitoring status response.
type MonitoringStatus struct {
	ActiveAOIs        []ActiveAOI `json:"active_aois"`
	InOptimalTime     bool        `json:"is_optimal_time"`
	MonitoringEnabled bool        `json:"monitoring_enabled"`
}

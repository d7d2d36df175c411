// Package store provides local persistence: workflow drafts, a trade
// mirror for offline analytics, and cached notifications.
package store

import (
	"context"
	"time"

	"confluence-coach/internal/models"
	"confluence-coach/internal/workflow"
)

// TradeFilter narrows trade mirror queries.
type TradeFilter struct {
	Pair      string
	Status    models.TradeStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// DataStore is the local persistence surface. SQLiteStore is the only
// implementation; the interface exists so the CLI and monitor can be
// tested against fakes.
type DataStore interface {
	workflow.DraftStore

	// Trade mirror
	SaveTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, tradeID string) (*models.Trade, error)
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
	UpdateTradeOutcome(ctx context.Context, tradeID string, report models.OutcomeReport, pnl float64) error

	// Notifications cache
	SaveNotifications(ctx context.Context, notifications []models.Notification) error
	GetNotifications(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context) error

	Close() error
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/models"
	"confluence-coach/internal/workflow"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ DataStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the local database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Workflow drafts, one JSON document per in-progress evaluation
	CREATE TABLE IF NOT EXISTS drafts (
		id TEXT PRIMARY KEY,
		pair TEXT,
		saved_at DATETIME NOT NULL,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Local mirror of journaled trades
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		pair TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		position_size REAL NOT NULL,
		confluence_score REAL NOT NULL,
		rr_ratio REAL NOT NULL,
		status TEXT NOT NULL,
		outcome TEXT,
		actual_entry REAL,
		actual_exit REAL,
		pnl REAL,
		thesis TEXT,
		step_data TEXT,
		created_at DATETIME NOT NULL,
		closed_at DATETIME
	);

	-- Cached coach notifications
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT,
		read INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_pair ON trades(pair);
	CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);
	CREATE INDEX IF NOT EXISTS idx_trades_created ON trades(created_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
	CREATE INDEX IF NOT EXISTS idx_drafts_saved ON drafts(saved_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveDraft upserts a workflow draft.
func (s *SQLiteStore) SaveDraft(ctx context.Context, draft *workflow.Draft) error {
	payload, err := draft.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, pair, saved_at, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET pair = excluded.pair, saved_at = excluded.saved_at, payload = excluded.payload, updated_at = CURRENT_TIMESTAMP
	`, draft.DraftID, draft.Pair, draft.SavedAt, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// GetDraft loads one draft by ID.
func (s *SQLiteStore) GetDraft(ctx context.Context, draftID string) (*workflow.Draft, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM drafts WHERE id = ?", draftID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, coacherrors.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query draft: %w", err)
	}
	return workflow.DecodeDraft([]byte(payload))
}

// ListDrafts returns all drafts, newest first.
func (s *SQLiteStore) ListDrafts(ctx context.Context) ([]*workflow.Draft, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM drafts ORDER BY saved_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*workflow.Draft
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		d, err := workflow.DecodeDraft([]byte(payload))
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// DeleteDraft removes a draft.
func (s *SQLiteStore) DeleteDraft(ctx context.Context, draftID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", draftID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// stepData bundles the embedded per-step payloads for the step_data
// JSON column.
type stepData struct {
	SessionData *models.MarketSessionData `json:"session_data,omitempty"`
	TrendData   *models.TrendAnalysisData `json:"trend_data,omitempty"`
	AOIData     *models.AOIData           `json:"aoi_data,omitempty"`
	PatternData *models.PatternData       `json:"pattern_data,omitempty"`
	RiskData    *models.RiskData          `json:"risk_data,omitempty"`
}

// SaveTrade upserts a trade into the local mirror.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *models.Trade) error {
	steps, err := json.Marshal(stepData{
		SessionData: trade.SessionData,
		TrendData:   trade.TrendData,
		AOIData:     trade.AOIData,
		PatternData: trade.PatternData,
		RiskData:    trade.RiskData,
	})
	if err != nil {
		return fmt.Errorf("failed to encode step data: %w", err)
	}

	var closedAt interface{}
	if trade.ClosedAt != nil {
		closedAt = *trade.ClosedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades (id, pair, direction, entry, stop_loss, take_profit, position_size, confluence_score, rr_ratio, status, outcome, actual_entry, actual_exit, pnl, thesis, step_data, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status, outcome = excluded.outcome,
			actual_entry = excluded.actual_entry, actual_exit = excluded.actual_exit,
			pnl = excluded.pnl, closed_at = excluded.closed_at
	`, trade.ID, trade.Pair, string(trade.Direction), trade.Entry, trade.StopLoss, trade.TakeProfit,
		trade.PositionSize, trade.ConfluenceScore, trade.RRRatio, string(trade.Status), string(trade.Outcome),
		trade.ActualEntry, trade.ActualExit, trade.PnL, trade.Thesis, string(steps), trade.CreatedAt, closedAt)
	if err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

const tradeColumns = "id, pair, direction, entry, stop_loss, take_profit, position_size, confluence_score, rr_ratio, status, outcome, actual_entry, actual_exit, pnl, thesis, step_data, created_at, closed_at"

func scanTrade(scan func(dest ...interface{}) error) (*models.Trade, error) {
	var t models.Trade
	var direction, status, outcome, thesis, stepsJSON string
	var actualEntry, actualExit, pnl sql.NullFloat64
	var closedAt sql.NullTime

	err := scan(&t.ID, &t.Pair, &direction, &t.Entry, &t.StopLoss, &t.TakeProfit, &t.PositionSize,
		&t.ConfluenceScore, &t.RRRatio, &status, &outcome, &actualEntry, &actualExit, &pnl,
		&thesis, &stepsJSON, &t.CreatedAt, &closedAt)
	if err != nil {
		return nil, err
	}

	t.Direction = models.Direction(direction)
	t.Status = models.TradeStatus(status)
	t.Outcome = models.TradeOutcome(outcome)
	t.Thesis = thesis
	t.ActualEntry = actualEntry.Float64
	t.ActualExit = actualExit.Float64
	t.PnL = pnl.Float64
	if closedAt.Valid {
		closed := closedAt.Time
		t.ClosedAt = &closed
	}

	var steps stepData
	if stepsJSON != "" {
		if err := json.Unmarshal([]byte(stepsJSON), &steps); err != nil {
			return nil, fmt.Errorf("failed to decode step data: %w", err)
		}
	}
	t.SessionData = steps.SessionData
	t.TrendData = steps.TrendData
	t.AOIData = steps.AOIData
	t.PatternData = steps.PatternData
	t.RiskData = steps.RiskData

	return &t, nil
}

// GetTrade loads one trade by ID.
func (s *SQLiteStore) GetTrade(ctx context.Context, tradeID string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ?", tradeID)
	t, err := scanTrade(row.Scan)
	if err == sql.ErrNoRows {
		return nil, coacherrors.ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query trade: %w", err)
	}
	return t, nil
}

// GetTrades retrieves trades from the mirror, newest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.Pair != "" {
		query += " AND pair = ?"
		args = append(args, filter.Pair)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// UpdateTradeOutcome closes a trade in the mirror with the reported
// outcome and computed P&L.
func (s *SQLiteStore) UpdateTradeOutcome(ctx context.Context, tradeID string, report models.OutcomeReport, pnl float64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE trades SET status = ?, outcome = ?, actual_entry = ?, actual_exit = ?, pnl = ?, closed_at = ?
		WHERE id = ?
	`, string(models.TradeClosed), string(report.Outcome), report.ActualEntry, report.ActualExit, pnl, time.Now().UTC(), tradeID)
	if err != nil {
		return fmt.Errorf("failed to update trade outcome: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return coacherrors.ErrTradeNotFound
	}
	return nil
}

// SaveNotifications caches notifications, keeping local read state for
// rows already present.
func (s *SQLiteStore) SaveNotifications(ctx context.Context, notifications []models.Notification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, n := range notifications {
		read := 0
		if n.Read {
			read = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (id, type, title, message, read, created_at) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET read = MAX(read, excluded.read)
		`, n.ID, string(n.Type), n.Title, n.Message, read, n.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save notification: %w", err)
		}
	}
	return tx.Commit()
}

// GetNotifications returns cached notifications, newest first.
func (s *SQLiteStore) GetNotifications(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := "SELECT id, type, title, message, read, created_at FROM notifications"
	if unreadOnly {
		query += " WHERE read = 0"
	}
	query += " ORDER BY created_at DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var ntype string
		var read int
		if err := rows.Scan(&n.ID, &ntype, &n.Title, &n.Message, &read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = models.NotificationType(ntype)
		n.Read = read == 1
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks one notification read locally.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, notificationID string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE id = ?", notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks every cached notification read.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = 1")
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

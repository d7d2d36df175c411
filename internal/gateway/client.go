package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"

	"confluence-coach/internal/config"
	"confluence-coach/internal/errors"
	"confluence-coach/internal/logging"
	"confluence-coach/internal/models"
	"confluence-coach/internal/resilience"
	"confluence-coach/internal/security"
)

// Client is the HTTP implementation of the coach API surfaces. It is safe
// for use from a single workflow owner; no retries are performed on
// validation POSTs (at-most-once per submit).
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
	logger     zerolog.Logger
}

// NewClient creates a coach API client from configuration.
func NewClient(cfg config.GatewayConfig, creds config.CoachCredentials, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   creds.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: resilience.NewBreaker(resilience.DefaultBreakerConfig()),
		logger:  logger,
	}
}

// interface conformance
var (
	_ StepValidator = (*Client)(nil)
	_ Journal       = (*Client)(nil)
	_ Uploader      = (*Client)(nil)
	_ Notifications = (*Client)(nil)
)

// LogMarketSession records the step 1 session choice and returns the
// server-side session ID.
func (c *Client) LogMarketSession(ctx context.Context, data models.MarketSessionData) (string, error) {
	var result SessionLogResult
	if err := c.postJSON(ctx, "log_session", data, &result); err != nil {
		return "", err
	}
	return result.SessionID, nil
}

// ValidateTrend submits the step 2 trend analysis for scoring.
func (c *Client) ValidateTrend(ctx context.Context, data models.TrendAnalysisData) (*models.TrendVerdict, error) {
	var verdict models.TrendVerdict
	if err := c.postJSON(ctx, "validate_trend", data, &verdict); err != nil {
		return nil, err
	}
	if !verdict.Recommendation.Valid() {
		return nil, errors.NewGatewayError("validate_trend", 0,
			fmt.Sprintf("unknown recommendation %q", verdict.Recommendation), nil)
	}
	return &verdict, nil
}

// ValidateAOI submits the step 3 area of interest for scoring.
func (c *Client) ValidateAOI(ctx context.Context, data models.AOIData) (*models.AOIVerdict, error) {
	var verdict models.AOIVerdict
	if err := c.postJSON(ctx, "validate_aoi", data, &verdict); err != nil {
		return nil, err
	}
	if !verdict.Recommendation.Valid() {
		return nil, errors.NewGatewayError("validate_aoi", 0,
			fmt.Sprintf("unknown recommendation %q", verdict.Recommendation), nil)
	}
	return &verdict, nil
}

// ValidatePattern submits the step 4 pattern for confluence scoring.
func (c *Client) ValidatePattern(ctx context.Context, data models.PatternData) (*models.PatternVerdict, error) {
	var verdict models.PatternVerdict
	if err := c.postJSON(ctx, "validate_pattern", data, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// CalculateRisk submits the step 5 risk parameters for calculation.
func (c *Client) CalculateRisk(ctx context.Context, data models.RiskData) (*models.RiskVerdict, error) {
	var verdict models.RiskVerdict
	if err := c.postJSON(ctx, "calculate_risk", data, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// CreateJournalEntry posts the assembled trade record to the journal.
func (c *Client) CreateJournalEntry(ctx context.Context, data models.JournalData) (*JournalEntryResult, error) {
	var result JournalEntryResult
	if err := c.postJSON(ctx, "journal_entry", data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTrades lists journaled trades.
func (c *Client) GetTrades(ctx context.Context, opts TradeListOptions) ([]models.Trade, error) {
	var result struct {
		Trades []models.Trade `json:"trades"`
	}
	if err := c.getJSON(ctx, "trades", opts, &result); err != nil {
		return nil, err
	}
	return result.Trades, nil
}

// GetTrade fetches a single trade by ID.
func (c *Client) GetTrade(ctx context.Context, tradeID string) (*models.Trade, error) {
	var result struct {
		Trade *models.Trade `json:"trade"`
	}
	if err := c.getJSON(ctx, "trades/"+tradeID, nil, &result); err != nil {
		return nil, err
	}
	if result.Trade == nil {
		return nil, errors.ErrTradeNotFound
	}
	return result.Trade, nil
}

// LogOutcome records the real-world outcome of a journaled trade.
func (c *Client) LogOutcome(ctx context.Context, report models.OutcomeReport) (*models.OutcomeResult, error) {
	var result models.OutcomeResult
	if err := c.postJSON(ctx, "log_outcome", report, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAnalysis fetches the precomputed coaching analytics summary.
func (c *Client) GetAnalysis(ctx context.Context) (*models.JournalAnalysis, error) {
	var analysis models.JournalAnalysis
	if err := c.getJSON(ctx, "journal_analysis", nil, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// GetNotifications lists coach notifications.
func (c *Client) GetNotifications(ctx context.Context, opts NotificationListOptions) (*NotificationList, error) {
	var result NotificationList
	if err := c.getJSON(ctx, "notifications", opts, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return c.postJSON(ctx, "notifications/"+notificationID+"/read", struct{}{}, nil)
}

// MarkAllNotificationsRead marks every notification as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.postJSON(ctx, "notifications/read_all", struct{}{}, nil)
}

// GetMonitoringStatus fetches the AOI monitoring status.
func (c *Client) GetMonitoringStatus(ctx context.Context) (*MonitoringStatus, error) {
	var status MonitoringStatus
	if err := c.getJSON(ctx, "monitoring/aoi/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// postJSON performs a single POST with a JSON body. Transport failures
// and non-2xx statuses map to GatewayError; the caller treats those as
// retryable and distinct from negative verdicts.
func (c *Client) postJSON(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "encoding %s request", endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.NewGatewayError(endpoint, 0, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, out)
}

// getJSON performs a GET with optional query parameters encoded from opts.
func (c *Client) getJSON(ctx context.Context, endpoint string, opts, out interface{}) error {
	url := c.baseURL + "/" + endpoint
	if opts != nil {
		values, err := query.Values(opts)
		if err != nil {
			return errors.Wrapf(err, "encoding %s query", endpoint)
		}
		if encoded := values.Encode(); encoded != "" {
			url += "?" + encoded
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewGatewayError(endpoint, 0, "building request", err)
	}

	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out interface{}) error {
	if err := c.breaker.Allow(); err != nil {
		return errors.NewGatewayError(endpoint, 0, "coach API unavailable", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	logging.LogAPICall(c.logger, req.Method, endpoint, time.Since(start), err)
	if err != nil {
		c.breaker.Failure()
		return errors.NewGatewayError(endpoint, 0, "request failed", err)
	}
	defer resp.Body.Close()

	// Any HTTP response means the API is answering; only server faults
	// and throttling count against the circuit.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		c.breaker.Failure()
	} else {
		c.breaker.Success()
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return errors.ErrNotAuthenticated
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		// Error bodies sometimes echo the request headers back.
		return errors.NewGatewayError(endpoint, resp.StatusCode, security.Redact(strings.TrimSpace(string(snippet))), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewGatewayError(endpoint, resp.StatusCode, "decoding response", err)
	}
	return nil
}

// Package journal reads the trade journal, records outcomes, and derives
// the coaching analytics. Remote reads retry on transient failures and
// fall back to the local mirror so the journal stays usable offline.
package journal

import (
	"context"

	"github.com/rs/zerolog"

	"confluence-coach/internal/config"
	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/gateway"
	"confluence-coach/internal/models"
	"confluence-coach/internal/session"
	"confluence-coach/internal/store"
	"confluence-coach/pkg/utils"
)

// Service is the journal facade over the remote coach API and the local
// trade mirror.
type Service struct {
	remote gateway.Journal
	store  store.DataStore
	clock  *session.Clock
	cfg    config.WorkflowConfig
	retry  utils.RetryConfig
	logger zerolog.Logger
}

// NewService creates a journal service.
func NewService(remote gateway.Journal, dataStore store.DataStore, clock *session.Clock, cfg config.WorkflowConfig, logger zerolog.Logger) *Service {
	retry := utils.DefaultRetryConfig()
	retry.Retryable = coacherrors.IsRetryable
	return &Service{
		remote: remote,
		store:  dataStore,
		clock:  clock,
		cfg:    cfg,
		retry:  retry,
		logger: logger,
	}
}

// ListTrades fetches trades from the journal, mirroring them locally.
// When the remote is unreachable it serves the mirror instead.
func (s *Service) ListTrades(ctx context.Context, opts gateway.TradeListOptions) ([]models.Trade, error) {
	trades, err := utils.RetryWithResult(ctx, s.retry, func() ([]models.Trade, error) {
		return s.remote.GetTrades(ctx, opts)
	})
	if err != nil {
		if !coacherrors.IsRetryable(err) {
			return nil, err
		}
		s.logger.Warn().Err(err).Msg("Journal unreachable, serving local mirror")
		return s.store.GetTrades(ctx, store.TradeFilter{
			Pair:   opts.Pair,
			Status: models.TradeStatus(opts.Status),
			Limit:  opts.Limit,
		})
	}

	for i := range trades {
		if err := s.store.SaveTrade(ctx, &trades[i]); err != nil {
			s.logger.Warn().Err(err).Str("trade_id", trades[i].ID).Msg("Failed to mirror trade")
		}
	}
	return trades, nil
}

// GetTrade fetches one trade, falling back to the mirror.
func (s *Service) GetTrade(ctx context.Context, tradeID string) (*models.Trade, error) {
	trade, err := utils.RetryWithResult(ctx, s.retry, func() (*models.Trade, error) {
		return s.remote.GetTrade(ctx, tradeID)
	})
	if err != nil {
		if !coacherrors.IsRetryable(err) {
			return nil, err
		}
		s.logger.Warn().Err(err).Msg("Journal unreachable, serving local mirror")
		return s.store.GetTrade(ctx, tradeID)
	}

	if err := s.store.SaveTrade(ctx, trade); err != nil {
		s.logger.Warn().Err(err).Str("trade_id", trade.ID).Msg("Failed to mirror trade")
	}
	return trade, nil
}

// LogOutcome records how a trade played out. Outcome writes are never
// retried automatically and never served locally; the journal of record
// must accept them.
func (s *Service) LogOutcome(ctx context.Context, report models.OutcomeReport) (*models.OutcomeResult, error) {
	if !report.Outcome.Valid() {
		return nil, &coacherrors.ValidationError{
			Field:   "outcome",
			Value:   string(report.Outcome),
			Message: "must be SL-hit, TP-hit, or manual-close",
		}
	}
	if report.ActualExit <= 0 {
		return nil, &coacherrors.ValidationError{
			Field:   "actual_exit",
			Message: "exit price is required",
		}
	}

	result, err := s.remote.LogOutcome(ctx, report)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateTradeOutcome(ctx, report.TradeID, report, result.PnL); err != nil {
		s.logger.Warn().Err(err).Str("trade_id", report.TradeID).Msg("Failed to close trade in mirror")
	}
	if result.DisciplineViolation {
		s.logger.Warn().
			Str("trade_id", report.TradeID).
			Str("violation", result.ViolationMessage).
			Msg("Discipline violation flagged")
	}
	return result, nil
}

// Analysis returns the coaching summary, preferring the remote analysis
// and computing one from the mirror when the remote is unreachable.
func (s *Service) Analysis(ctx context.Context) (*models.JournalAnalysis, error) {
	analysis, err := utils.RetryWithResult(ctx, s.retry, func() (*models.JournalAnalysis, error) {
		return s.remote.GetAnalysis(ctx)
	})
	if err == nil {
		return analysis, nil
	}
	if !coacherrors.IsRetryable(err) {
		return nil, err
	}

	s.logger.Warn().Err(err).Msg("Journal unreachable, computing local analysis")
	trades, err := s.store.GetTrades(ctx, store.TradeFilter{})
	if err != nil {
		return nil, err
	}
	return ComputeAnalysis(trades, s.clock, s.cfg), nil
}

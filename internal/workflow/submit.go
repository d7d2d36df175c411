package workflow

import (
	"context"
	"time"

	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/gateway"
	"confluence-coach/internal/logging"
	"confluence-coach/internal/models"
	"confluence-coach/pkg/utils"
)

// StepResult reports what a submit did: the verdict obtained and whether
// the pointer moved. A negative verdict is a successful result, not an
// error.
type StepResult struct {
	Step              int
	Advanced          bool
	Blocked           bool
	OverrideAvailable bool
	Warnings          []string

	SessionID      string
	TrendVerdict   *models.TrendVerdict
	AOIVerdict     *models.AOIVerdict
	PatternVerdict *models.PatternVerdict
	RiskVerdict    *models.RiskVerdict
}

// SubmitStep sends the active step's payload to the validation service
// and applies the verdict. The call is at-most-once: a transport failure
// leaves the session exactly as it was, and the user decides whether to
// retry. If the session moved on (another submit, a reset, a step change)
// before the response lands, the response is discarded and
// ErrStaleResponse is returned.
func (m *Machine) SubmitStep(ctx context.Context, step int) (*StepResult, error) {
	m.mu.Lock()

	if step < FirstStep || step >= LastStep {
		m.mu.Unlock()
		return nil, &coacherrors.StepError{Step: step, Operation: "submit", Err: coacherrors.ErrInputValidation}
	}
	if step != m.state.currentStep {
		m.mu.Unlock()
		return nil, &coacherrors.StepError{Step: step, Operation: "submit", Err: coacherrors.ErrStepBlocked}
	}

	pair := ""
	if m.state.step1Data != nil {
		pair = m.state.step1Data.Pair
	}
	if step > FirstStep && pair == "" {
		m.mu.Unlock()
		return nil, &coacherrors.StepError{Step: step, Operation: "submit", Err: coacherrors.ErrMissingStepData}
	}

	// Capture the epoch for this submit action. Any later submit, reset,
	// or pointer move invalidates it.
	m.epochs[step]++
	epoch := m.epochs[step]
	generation := m.generation

	var submit func(ctx context.Context) (*StepResult, error)
	switch step {
	case StepMarketSession:
		data := m.state.step1Data
		if data == nil {
			m.mu.Unlock()
			return nil, &coacherrors.StepError{Step: step, Operation: "submit", Err: coacherrors.ErrMissingStepData}
		}
		payload := *data
		payload.InOptimalTime = m.clock.InWindow(time.Now())
		submit = func(ctx context.Context) (*StepResult, error) {
			sessionID, err := m.validator.LogMarketSession(ctx, payload)
			if err != nil {
				return nil, err
			}
			return m.applySessionLog(step, epoch, generation, payload, sessionID)
		}
	case StepTrendAnalysis:
		data := m.state.step2Data
		if data == nil {
			m.mu.Unlock()
			return nil, &coacherrors.StepError{Step: step, Operation: "submit", Err: coacherrors.ErrMissingStepData}
		}
		payload := *data
		payload.Pair = pair
		submit = func(ctx context.Context) (*StepResult, error) {
			verdict, err := m.validator.ValidateTrend(ctx, payload)
			if err != nil {
				return nil, err
			}
			return m.applyTrendVerdict(step, epoch, generation, verdict)
		}
	case StepAOIMapping:
		data := m.state.step3Data
		if data == nil {
			m.mu.Unlock()
			return nil, &coacherrors.StepError{Step: step, Operation: "submit", Err: coacherrors.ErrMissingStepData}
		}
		payload := *data
		payload.Pair = pair
		submit = func(ctx context.Context) (*StepResult, error) {
			verdict, err := m.validator.ValidateAOI(ctx, payload)
			if err != nil {
				return nil, err
			}
			return m.applyAOIVerdict(step, epoch, generation, verdict)
		}
	case StepPatternValidation:
		data := m.state.step4Data
		if data == nil {
			m.mu.Unlock()
			return nil, &coacherrors.StepError{Step: step, Operation: "submit", Err: coacherrors.ErrMissingStepData}
		}
		payload := *data
		payload.Pair = pair
		submit = func(ctx context.Context) (*StepResult, error) {
			verdict, err := m.validator.ValidatePattern(ctx, payload)
			if err != nil {
				return nil, err
			}
			return m.applyPatternVerdict(step, epoch, generation, verdict)
		}
	case StepRiskCalculation:
		data := m.state.step5Data
		if data == nil {
			m.mu.Unlock()
			return nil, &coacherrors.StepError{Step: step, Operation: "submit", Err: coacherrors.ErrMissingStepData}
		}
		payload := *data
		payload.Pair = pair
		submit = func(ctx context.Context) (*StepResult, error) {
			verdict, err := m.validator.CalculateRisk(ctx, payload)
			if err != nil {
				return nil, err
			}
			return m.applyRiskVerdict(step, epoch, generation, verdict)
		}
	}

	// The gateway call runs without the lock so the session stays usable
	// and late responses can be detected instead of serialized away.
	m.mu.Unlock()

	result, err := submit(ctx)
	if err != nil {
		if coacherrors.Is(err, coacherrors.ErrStaleResponse) {
			m.logger.Debug().Int("step", step).Uint64("epoch", epoch).Msg("Discarded stale verdict")
			return nil, err
		}
		return nil, &coacherrors.StepError{Step: step, Operation: "submit", Err: err}
	}
	return result, nil
}

// fresh reports whether a response captured at (step, epoch, generation)
// may still be applied. Callers must hold m.mu.
func (m *Machine) fresh(step int, epoch, generation uint64) bool {
	return m.generation == generation &&
		m.epochs[step] == epoch &&
		m.state.currentStep == step
}

func (m *Machine) applySessionLog(step int, epoch, generation uint64, payload models.MarketSessionData, sessionID string) (*StepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.fresh(step, epoch, generation) {
		return nil, coacherrors.ErrStaleResponse
	}

	data := payload
	m.state.step1Data = &data
	m.state.currentStep = StepTrendAnalysis
	m.logTransition(step, m.state.currentStep, "session logged")

	return &StepResult{Step: step, Advanced: true, SessionID: sessionID}, nil
}

func (m *Machine) applyTrendVerdict(step int, epoch, generation uint64, verdict *models.TrendVerdict) (*StepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.fresh(step, epoch, generation) {
		return nil, coacherrors.ErrStaleResponse
	}

	m.state.step2Verdict = verdict
	logging.LogVerdict(m.logger, step, m.pairLocked(), string(verdict.Recommendation), verdict.Confidence)

	result := &StepResult{
		Step:              step,
		TrendVerdict:      verdict,
		Blocked:           verdict.Blocks(),
		OverrideAvailable: verdict.ManualAdvance(),
		Warnings:          verdict.Warnings,
	}
	if verdict.AutoAdvance() {
		m.state.currentStep = step + 1
		result.Advanced = true
		m.logTransition(step, m.state.currentStep, "proceed")
	}
	return result, nil
}

func (m *Machine) applyAOIVerdict(step int, epoch, generation uint64, verdict *models.AOIVerdict) (*StepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.fresh(step, epoch, generation) {
		return nil, coacherrors.ErrStaleResponse
	}

	m.state.step3Verdict = verdict
	logging.LogVerdict(m.logger, step, m.pairLocked(), string(verdict.Recommendation), verdict.Confidence)

	result := &StepResult{
		Step:              step,
		AOIVerdict:        verdict,
		Blocked:           verdict.Blocks(),
		OverrideAvailable: verdict.ManualAdvance(),
		Warnings:          verdict.Warnings,
	}
	if verdict.AutoAdvance() {
		m.state.currentStep = step + 1
		result.Advanced = true
		m.logTransition(step, m.state.currentStep, "proceed")
	}
	return result, nil
}

func (m *Machine) applyPatternVerdict(step int, epoch, generation uint64, verdict *models.PatternVerdict) (*StepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.fresh(step, epoch, generation) {
		return nil, coacherrors.ErrStaleResponse
	}

	m.state.step4Verdict = verdict
	logging.LogVerdict(m.logger, step, m.pairLocked(), verdictLabel(verdict.Passes(m.cfg.MinConfluenceScore)), verdict.ConfluenceScore)

	result := &StepResult{
		Step:           step,
		PatternVerdict: verdict,
		Warnings:       verdict.Warnings,
	}
	if verdict.Passes(m.cfg.MinConfluenceScore) {
		m.state.currentStep = step + 1
		result.Advanced = true
		m.logTransition(step, m.state.currentStep, "pattern approved")
	} else {
		result.Blocked = true
	}
	return result, nil
}

func (m *Machine) applyRiskVerdict(step int, epoch, generation uint64, verdict *models.RiskVerdict) (*StepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.fresh(step, epoch, generation) {
		return nil, coacherrors.ErrStaleResponse
	}

	m.state.step5Verdict = verdict
	logging.LogVerdict(m.logger, step, m.pairLocked(), verdictLabel(verdict.Passes()), verdict.RRRatio)

	result := &StepResult{
		Step:        step,
		RiskVerdict: verdict,
		Warnings:    nil,
	}
	if verdict.Passes() {
		m.state.currentStep = step + 1
		result.Advanced = true
		m.logTransition(step, m.state.currentStep, "risk approved")
	} else {
		result.Blocked = true
	}
	return result, nil
}

func verdictLabel(pass bool) string {
	if pass {
		return "pass"
	}
	return "fail"
}

func (m *Machine) pairLocked() string {
	if m.state.step1Data == nil {
		return ""
	}
	return m.state.step1Data.Pair
}

// gate is the advance policy for one step, evaluated by Next.
type gateDecision struct {
	err      error
	override bool
}

func (m *Machine) gateLocked(step int) gateDecision {
	switch step {
	case StepMarketSession:
		if m.state.step1Data == nil {
			return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrMissingStepData}}
		}
		return gateDecision{}
	case StepTrendAnalysis:
		verdict := m.state.step2Verdict
		if verdict == nil {
			return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrNoVerdict}}
		}
		if verdict.Blocks() {
			return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrStepBlocked}}
		}
		return gateDecision{override: verdict.ManualAdvance()}
	case StepAOIMapping:
		verdict := m.state.step3Verdict
		if verdict == nil {
			return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrNoVerdict}}
		}
		if verdict.Blocks() {
			return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrStepBlocked}}
		}
		return gateDecision{override: verdict.ManualAdvance()}
	case StepPatternValidation:
		verdict := m.state.step4Verdict
		if verdict == nil {
			return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrNoVerdict}}
		}
		if !verdict.Passes(m.cfg.MinConfluenceScore) {
			return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrStepBlocked}}
		}
		return gateDecision{}
	case StepRiskCalculation:
		verdict := m.state.step5Verdict
		if verdict == nil {
			return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrNoVerdict}}
		}
		if !verdict.Passes() {
			return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrStepBlocked}}
		}
		return gateDecision{}
	default:
		return gateDecision{err: &coacherrors.StepError{Step: step, Operation: "next", Err: coacherrors.ErrStepBlocked}}
	}
}

// LogTrade is the final commit on step 6: it assembles the journal record
// from every prior step, requires the checklist's required items to all
// pass, posts the entry, and resets the session on success.
func (m *Machine) LogTrade(ctx context.Context) (*gateway.JournalEntryResult, error) {
	m.mu.Lock()

	if m.state.currentStep != StepReviewJournal {
		m.mu.Unlock()
		return nil, &coacherrors.StepError{Step: m.state.currentStep, Operation: "log trade", Err: coacherrors.ErrStepBlocked}
	}

	checklist := buildChecklistLocked(m.snapshotLocked(), m.clock, m.cfg)
	if !checklist.ReadyToLog() {
		m.mu.Unlock()
		return nil, &coacherrors.StepError{Step: StepReviewJournal, Operation: "log trade", Err: coacherrors.ErrChecklistFailed}
	}

	entry := m.assembleJournalLocked()
	generation := m.generation
	m.mu.Unlock()

	result, err := m.validator.CreateJournalEntry(ctx, *entry)
	if err != nil {
		return nil, &coacherrors.StepError{Step: StepReviewJournal, Operation: "log trade", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != generation {
		return nil, coacherrors.ErrStaleResponse
	}

	logging.LogTrade(m.logger, result.TradeID, entry.Pair, string(entry.Direction), m.state.step5Verdict.RRRatio)
	m.state = initialState()
	m.generation++
	return result, nil
}

// assembleJournalLocked derives the tradable figures from the collected
// step data. Entry is the marked AOI level; stop and target are offset by
// the step 5 pip distances; direction follows the dominant trend call,
// daily first.
func (m *Machine) assembleJournalLocked() *models.JournalData {
	s := m.state
	pip := utils.PipSize(s.step1Data.Pair)
	entry := s.step3Data.PriceLevel
	direction := deriveDirection(s.step2Data)

	stop := entry - s.step5Data.StopPips*pip
	target := entry + s.step5Data.TargetPips*pip
	if direction == models.DirectionShort {
		stop = entry + s.step5Data.StopPips*pip
		target = entry - s.step5Data.TargetPips*pip
	}

	m.state.step6Data = &models.JournalData{
		Pair:            s.step1Data.Pair,
		Entry:           entry,
		StopLoss:        stop,
		TakeProfit:      target,
		PositionSize:    s.step5Verdict.PositionSize,
		ConfluenceScore: s.step4Verdict.ConfluenceScore,
		Direction:       direction,
		SessionData:     s.step1Data,
		TrendData:       s.step2Data,
		AOIData:         s.step3Data,
		PatternData:     s.step4Data,
		RiskData:        s.step5Data,
	}
	return m.state.step6Data
}

func deriveDirection(trend *models.TrendAnalysisData) models.Direction {
	for _, t := range []models.Trend{trend.DailyTrend, trend.WeeklyTrend, trend.FourHourTrend} {
		switch t {
		case models.TrendBullish:
			return models.DirectionLong
		case models.TrendBearish:
			return models.DirectionShort
		}
	}
	return models.DirectionLong
}

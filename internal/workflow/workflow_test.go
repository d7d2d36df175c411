package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"confluence-coach/internal/config"
	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/gateway"
	"confluence-coach/internal/models"
	"confluence-coach/internal/session"
)

// fakeValidator is a canned-response verdict service. Channels on the
// trend path let tests hold a response in flight to exercise the
// stale-response guard.
type fakeValidator struct {
	sessionID  string
	sessionErr error

	trendVerdict *models.TrendVerdict
	trendErr     error
	trendStarted chan struct{}
	trendHold    chan struct{}
	trendCalls   int

	aoiVerdict *models.AOIVerdict
	aoiErr     error

	patternVerdict *models.PatternVerdict
	patternErr     error

	riskVerdict *models.RiskVerdict
	riskErr     error

	journalResult *gateway.JournalEntryResult
	journalErr    error
	journalData   *models.JournalData
}

func (f *fakeValidator) LogMarketSession(ctx context.Context, data models.MarketSessionData) (string, error) {
	if f.sessionErr != nil {
		return "", f.sessionErr
	}
	if f.sessionID == "" {
		return "sess-1", nil
	}
	return f.sessionID, nil
}

func (f *fakeValidator) ValidateTrend(ctx context.Context, data models.TrendAnalysisData) (*models.TrendVerdict, error) {
	f.trendCalls++
	if f.trendStarted != nil {
		close(f.trendStarted)
		f.trendStarted = nil
	}
	if f.trendHold != nil {
		<-f.trendHold
	}
	return f.trendVerdict, f.trendErr
}

func (f *fakeValidator) ValidateAOI(ctx context.Context, data models.AOIData) (*models.AOIVerdict, error) {
	return f.aoiVerdict, f.aoiErr
}

func (f *fakeValidator) ValidatePattern(ctx context.Context, data models.PatternData) (*models.PatternVerdict, error) {
	return f.patternVerdict, f.patternErr
}

func (f *fakeValidator) CalculateRisk(ctx context.Context, data models.RiskData) (*models.RiskVerdict, error) {
	return f.riskVerdict, f.riskErr
}

func (f *fakeValidator) CreateJournalEntry(ctx context.Context, data models.JournalData) (*gateway.JournalEntryResult, error) {
	if f.journalErr != nil {
		return nil, f.journalErr
	}
	d := data
	f.journalData = &d
	if f.journalResult != nil {
		return f.journalResult, nil
	}
	return &gateway.JournalEntryResult{Success: true, TradeID: "trade-1"}, nil
}

var testConfig = config.WorkflowConfig{
	MinConfluenceScore: 60,
	MinRiskReward:      2,
	TargetRiskReward:   4,
}

func newTestMachine(v gateway.StepValidator) *Machine {
	return NewMachine(v, session.NewClock(), testConfig, newMemoryDraftStore(), zerolog.Nop())
}

// inWindowTime is 06:00 UTC on a Wednesday, 01:00 in New York: inside
// the session window.
var inWindowTime = time.Date(2025, 1, 15, 6, 0, 0, 0, time.UTC)

func validSession() *models.MarketSessionData {
	return &models.MarketSessionData{Pair: "EURUSD", Timestamp: inWindowTime}
}

func validTrend() *models.TrendAnalysisData {
	return &models.TrendAnalysisData{
		WeeklyTrend:   models.TrendBullish,
		DailyTrend:    models.TrendBullish,
		FourHourTrend: models.TrendRanging,
	}
}

func validAOI() *models.AOIData {
	return &models.AOIData{
		AOIType:     models.AOISupport,
		PriceLevel:  1.0850,
		Description: "weekly support retest",
	}
}

func validPattern() *models.PatternData {
	return &models.PatternData{
		PatternType:       models.PatternEngulfing,
		PatternDetails:    map[string]float64{"body_size": 25, "wick_ratio": 0.3},
		ConfluenceFactors: []string{"trend alignment", "aoi confluence"},
	}
}

func validRisk() *models.RiskData {
	return &models.RiskData{
		AccountSize:    10000,
		RiskPercentage: 1,
		StopPips:       25,
		TargetPips:     100,
	}
}

func proceedTrend() *models.TrendVerdict {
	return &models.TrendVerdict{Confidence: 85, Recommendation: models.RecommendProceed}
}

func proceedAOI() *models.AOIVerdict {
	return &models.AOIVerdict{Confidence: 80, Recommendation: models.RecommendProceed}
}

func passingPattern() *models.PatternVerdict {
	return &models.PatternVerdict{Valid: true, ConfluenceScore: 75, FinalApproval: true}
}

func passingRisk() *models.RiskVerdict {
	return &models.RiskVerdict{Valid: true, RRValid: true, RRRatio: 4, PositionSize: 0.4, RiskAmount: 100, PotentialProfit: 400}
}

// driveTo walks a machine through passing submissions until it sits on
// the given step.
func driveTo(t *testing.T, m *Machine, v *fakeValidator, step int) {
	t.Helper()
	ctx := context.Background()

	v.trendVerdict = proceedTrend()
	v.aoiVerdict = proceedAOI()
	v.patternVerdict = passingPattern()
	v.riskVerdict = passingRisk()

	steps := []struct {
		n       int
		payload any
	}{
		{StepMarketSession, validSession()},
		{StepTrendAnalysis, validTrend()},
		{StepAOIMapping, validAOI()},
		{StepPatternValidation, validPattern()},
		{StepRiskCalculation, validRisk()},
	}
	for _, s := range steps {
		if m.CurrentStep() >= step {
			return
		}
		if s.n < m.CurrentStep() {
			continue
		}
		if err := m.SetStepData(s.n, s.payload); err != nil {
			t.Fatalf("set step %d data: %v", s.n, err)
		}
		if _, err := m.SubmitStep(ctx, s.n); err != nil {
			t.Fatalf("submit step %d: %v", s.n, err)
		}
	}
}

func TestSubmitSessionAdvancesToTrend(t *testing.T) {
	v := &fakeValidator{sessionID: "sess-42"}
	m := newTestMachine(v)

	if err := m.SetStepData(StepMarketSession, validSession()); err != nil {
		t.Fatalf("set data: %v", err)
	}
	result, err := m.SubmitStep(context.Background(), StepMarketSession)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Advanced || result.SessionID != "sess-42" {
		t.Errorf("result = %+v, want advanced with session id", result)
	}
	if got := m.CurrentStep(); got != StepTrendAnalysis {
		t.Errorf("current step = %d, want %d", got, StepTrendAnalysis)
	}
}

func TestSetStepDataRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		step    int
		payload any
	}{
		{"unknown pair", StepMarketSession, &models.MarketSessionData{Pair: "FOOBAR", Timestamp: inWindowTime}},
		{"zero timestamp", StepMarketSession, &models.MarketSessionData{Pair: "EURUSD"}},
		{"bad trend value", StepTrendAnalysis, &models.TrendAnalysisData{WeeklyTrend: "sideways", DailyTrend: models.TrendBullish, FourHourTrend: models.TrendBullish}},
		{"bad aoi type", StepAOIMapping, &models.AOIData{AOIType: "zone", PriceLevel: 1.1, Description: "x"}},
		{"negative price level", StepAOIMapping, &models.AOIData{AOIType: models.AOISupport, PriceLevel: -1, Description: "x"}},
		{"missing shoulder", StepPatternValidation, &models.PatternData{PatternType: models.PatternHeadAndShoulders, PatternDetails: map[string]float64{"head": 1.2}}},
		{"zero stop", StepRiskCalculation, &models.RiskData{AccountSize: 10000, RiskPercentage: 1, StopPips: 0, TargetPips: 50}},
		{"risk over 100", StepRiskCalculation, &models.RiskData{AccountSize: 10000, RiskPercentage: 150, StopPips: 20, TargetPips: 50}},
		{"wrong type", StepTrendAnalysis, validRisk()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(&fakeValidator{})
			err := m.SetStepData(tt.step, tt.payload)
			if !coacherrors.Is(err, coacherrors.ErrInputValidation) {
				t.Fatalf("err = %v, want input validation error", err)
			}
			snap := m.Snapshot()
			if snap.CurrentStep != FirstStep {
				t.Errorf("step pointer moved to %d on invalid payload", snap.CurrentStep)
			}
			if snap.Step2Data != nil || snap.Step3Data != nil || snap.Step4Data != nil || snap.Step5Data != nil {
				t.Error("invalid payload was stored")
			}
		})
	}
}

func TestSubmitInactiveStepRejected(t *testing.T) {
	m := newTestMachine(&fakeValidator{})
	if err := m.SetStepData(StepTrendAnalysis, validTrend()); err != nil {
		t.Fatalf("set data: %v", err)
	}
	_, err := m.SubmitStep(context.Background(), StepTrendAnalysis)
	if !coacherrors.Is(err, coacherrors.ErrStepBlocked) {
		t.Fatalf("err = %v, want step blocked", err)
	}
}

func TestTrendProceedAutoAdvances(t *testing.T) {
	v := &fakeValidator{trendVerdict: proceedTrend()}
	m := newTestMachine(v)
	driveTo(t, m, v, StepTrendAnalysis)

	if err := m.SetStepData(StepTrendAnalysis, validTrend()); err != nil {
		t.Fatalf("set data: %v", err)
	}
	result, err := m.SubmitStep(context.Background(), StepTrendAnalysis)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Advanced || result.Blocked || result.OverrideAvailable {
		t.Errorf("result = %+v, want clean auto-advance", result)
	}
	if got := m.CurrentStep(); got != StepAOIMapping {
		t.Errorf("current step = %d, want %d", got, StepAOIMapping)
	}
}

func TestTrendCautionRequiresExplicitNext(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)
	driveTo(t, m, v, StepTrendAnalysis)

	v.trendVerdict = &models.TrendVerdict{
		Confidence:     55,
		Recommendation: models.RecommendCaution,
		Warnings:       []string{"weekly and daily disagree"},
	}
	if err := m.SetStepData(StepTrendAnalysis, validTrend()); err != nil {
		t.Fatalf("set data: %v", err)
	}
	result, err := m.SubmitStep(context.Background(), StepTrendAnalysis)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Advanced {
		t.Error("caution verdict advanced automatically")
	}
	if !result.OverrideAvailable {
		t.Error("caution verdict did not offer a manual override")
	}
	if got := m.CurrentStep(); got != StepTrendAnalysis {
		t.Fatalf("current step = %d, want %d", got, StepTrendAnalysis)
	}

	if err := m.Next(); err != nil {
		t.Fatalf("manual override: %v", err)
	}
	if got := m.CurrentStep(); got != StepAOIMapping {
		t.Errorf("current step after override = %d, want %d", got, StepAOIMapping)
	}
}

func TestTrendStandDownHardBlocks(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)
	driveTo(t, m, v, StepTrendAnalysis)

	v.trendVerdict = &models.TrendVerdict{Confidence: 20, Recommendation: models.RecommendStandDown}
	if err := m.SetStepData(StepTrendAnalysis, validTrend()); err != nil {
		t.Fatalf("set data: %v", err)
	}
	result, err := m.SubmitStep(context.Background(), StepTrendAnalysis)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Blocked || result.Advanced || result.OverrideAvailable {
		t.Errorf("result = %+v, want hard block", result)
	}

	err = m.Next()
	if !coacherrors.Is(err, coacherrors.ErrStepBlocked) {
		t.Fatalf("Next err = %v, want step blocked", err)
	}
	if got := m.CurrentStep(); got != StepTrendAnalysis {
		t.Errorf("pointer moved to %d past a stand-down", got)
	}
}

func TestNextWithoutVerdict(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)
	driveTo(t, m, v, StepTrendAnalysis)

	if err := m.SetStepData(StepTrendAnalysis, validTrend()); err != nil {
		t.Fatalf("set data: %v", err)
	}
	err := m.Next()
	if !coacherrors.Is(err, coacherrors.ErrNoVerdict) {
		t.Fatalf("err = %v, want no verdict", err)
	}
}

func TestPatternThresholdGate(t *testing.T) {
	tests := []struct {
		name    string
		verdict *models.PatternVerdict
		advance bool
	}{
		{"score at threshold", &models.PatternVerdict{Valid: true, ConfluenceScore: 60, FinalApproval: true}, true},
		{"score below threshold", &models.PatternVerdict{Valid: true, ConfluenceScore: 59, FinalApproval: true}, false},
		{"invalid pattern", &models.PatternVerdict{Valid: false, ConfluenceScore: 90, FinalApproval: true}, false},
		{"approval withheld", &models.PatternVerdict{Valid: true, ConfluenceScore: 90, FinalApproval: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeValidator{}
			m := newTestMachine(v)
			driveTo(t, m, v, StepPatternValidation)

			v.patternVerdict = tt.verdict
			if err := m.SetStepData(StepPatternValidation, validPattern()); err != nil {
				t.Fatalf("set data: %v", err)
			}
			result, err := m.SubmitStep(context.Background(), StepPatternValidation)
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if result.Advanced != tt.advance {
				t.Errorf("advanced = %v, want %v", result.Advanced, tt.advance)
			}
			if !tt.advance {
				// Binary gates have no override path.
				if result.OverrideAvailable {
					t.Error("binary gate offered an override")
				}
				if err := m.Next(); !coacherrors.Is(err, coacherrors.ErrStepBlocked) {
					t.Errorf("Next err = %v, want step blocked", err)
				}
			}
		})
	}
}

func TestRiskGate(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)
	driveTo(t, m, v, StepRiskCalculation)

	v.riskVerdict = &models.RiskVerdict{Valid: true, RRValid: false, RRRatio: 1.5}
	if err := m.SetStepData(StepRiskCalculation, validRisk()); err != nil {
		t.Fatalf("set data: %v", err)
	}
	result, err := m.SubmitStep(context.Background(), StepRiskCalculation)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Blocked || result.Advanced {
		t.Errorf("result = %+v, want blocked on thin reward", result)
	}
	if err := m.Next(); !coacherrors.Is(err, coacherrors.ErrStepBlocked) {
		t.Errorf("Next err = %v, want step blocked", err)
	}
}

func TestPreviousAndReset(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)
	driveTo(t, m, v, StepAOIMapping)

	m.Previous()
	if got := m.CurrentStep(); got != StepTrendAnalysis {
		t.Fatalf("current step = %d, want %d", got, StepTrendAnalysis)
	}

	// Earlier data and verdicts survive going backward.
	snap := m.Snapshot()
	if snap.Step2Data == nil || snap.Step2Verdict == nil {
		t.Error("previous dropped step 2 state")
	}

	m.Previous()
	m.Previous() // already at 1: no-op
	if got := m.CurrentStep(); got != FirstStep {
		t.Fatalf("current step = %d, want %d", got, FirstStep)
	}

	m.Reset()
	snap = m.Snapshot()
	if snap.CurrentStep != FirstStep || snap.Step1Data != nil || snap.Step2Verdict != nil {
		t.Errorf("reset left residue: %+v", snap)
	}
}

func TestTransportFailureLeavesStateUntouched(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)
	driveTo(t, m, v, StepTrendAnalysis)

	v.trendErr = &coacherrors.GatewayError{Operation: "validate_trend", StatusCode: 503, Message: "unavailable"}
	if err := m.SetStepData(StepTrendAnalysis, validTrend()); err != nil {
		t.Fatalf("set data: %v", err)
	}
	_, err := m.SubmitStep(context.Background(), StepTrendAnalysis)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if !coacherrors.IsRetryable(err) {
		t.Errorf("err = %v, want retryable", err)
	}
	snap := m.Snapshot()
	if snap.CurrentStep != StepTrendAnalysis || snap.Step2Verdict != nil {
		t.Errorf("failed submit mutated state: %+v", snap)
	}

	// The retry is the user's call, and it goes through cleanly.
	v.trendErr = nil
	v.trendVerdict = proceedTrend()
	if _, err := m.SubmitStep(context.Background(), StepTrendAnalysis); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if got := m.CurrentStep(); got != StepAOIMapping {
		t.Errorf("current step = %d, want %d", got, StepAOIMapping)
	}
}

func TestStaleResponseAfterResetDiscarded(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)
	driveTo(t, m, v, StepTrendAnalysis)

	started := make(chan struct{})
	hold := make(chan struct{})
	v.trendStarted = started
	v.trendHold = hold
	v.trendVerdict = proceedTrend()

	if err := m.SetStepData(StepTrendAnalysis, validTrend()); err != nil {
		t.Fatalf("set data: %v", err)
	}

	errs := make(chan error, 1)
	go func() {
		_, err := m.SubmitStep(context.Background(), StepTrendAnalysis)
		errs <- err
	}()

	<-started
	m.Reset()
	close(hold)

	if err := <-errs; !coacherrors.Is(err, coacherrors.ErrStaleResponse) {
		t.Fatalf("err = %v, want stale response", err)
	}
	snap := m.Snapshot()
	if snap.CurrentStep != FirstStep || snap.Step2Verdict != nil {
		t.Errorf("stale verdict was applied: %+v", snap)
	}
}

func TestResubmitInvalidatesEarlierSubmit(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)
	driveTo(t, m, v, StepTrendAnalysis)

	started := make(chan struct{})
	hold := make(chan struct{})
	v.trendStarted = started
	v.trendHold = hold
	v.trendVerdict = &models.TrendVerdict{Confidence: 90, Recommendation: models.RecommendProceed}

	if err := m.SetStepData(StepTrendAnalysis, validTrend()); err != nil {
		t.Fatalf("set data: %v", err)
	}

	errs := make(chan error, 1)
	go func() {
		_, err := m.SubmitStep(context.Background(), StepTrendAnalysis)
		errs <- err
	}()
	<-started

	// Second submit completes first; the held first response must then
	// be discarded even though the verdicts are identical.
	v.trendHold = nil
	v.trendVerdict = &models.TrendVerdict{Confidence: 40, Recommendation: models.RecommendStandDown}
	result, err := m.SubmitStep(context.Background(), StepTrendAnalysis)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !result.Blocked {
		t.Fatalf("second verdict not applied: %+v", result)
	}

	close(hold)
	if err := <-errs; !coacherrors.Is(err, coacherrors.ErrStaleResponse) {
		t.Fatalf("first submit err = %v, want stale response", err)
	}
	snap := m.Snapshot()
	if snap.Step2Verdict == nil || !snap.Step2Verdict.Blocks() {
		t.Errorf("stale proceed overwrote the live stand-down: %+v", snap.Step2Verdict)
	}
	if snap.CurrentStep != StepTrendAnalysis {
		t.Errorf("current step = %d, want %d", snap.CurrentStep, StepTrendAnalysis)
	}
}

func TestLogTradeAssemblesAndResets(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)
	driveTo(t, m, v, StepReviewJournal)

	result, err := m.LogTrade(context.Background())
	if err != nil {
		t.Fatalf("log trade: %v", err)
	}
	if result.TradeID != "trade-1" {
		t.Errorf("trade id = %q", result.TradeID)
	}

	entry := v.journalData
	if entry == nil {
		t.Fatal("no journal entry posted")
	}
	if entry.Pair != "EURUSD" || entry.Direction != models.DirectionLong {
		t.Errorf("entry = %+v, want long EURUSD", entry)
	}
	if entry.Entry != 1.0850 {
		t.Errorf("entry price = %v, want AOI level", entry.Entry)
	}
	wantStop := 1.0850 - 25*0.0001
	wantTarget := 1.0850 + 100*0.0001
	if diff := entry.StopLoss - wantStop; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("stop = %v, want %v", entry.StopLoss, wantStop)
	}
	if diff := entry.TakeProfit - wantTarget; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("target = %v, want %v", entry.TakeProfit, wantTarget)
	}
	if entry.ConfluenceScore != 75 || entry.PositionSize != 0.4 {
		t.Errorf("entry figures = %+v, want verdict figures carried over", entry)
	}
	if entry.SessionData == nil || entry.TrendData == nil || entry.AOIData == nil || entry.PatternData == nil || entry.RiskData == nil {
		t.Error("journal entry missing embedded step data")
	}

	snap := m.Snapshot()
	if snap.CurrentStep != FirstStep || snap.Step1Data != nil {
		t.Errorf("session not reset after logging: %+v", snap)
	}
}

func TestLogTradeBlockedOutsideSessionWindow(t *testing.T) {
	v := &fakeValidator{}
	m := newTestMachine(v)

	// 20:00 UTC is 15:00 in New York: outside the window.
	late := &models.MarketSessionData{Pair: "EURUSD", Timestamp: time.Date(2025, 1, 15, 20, 0, 0, 0, time.UTC)}
	if err := m.SetStepData(StepMarketSession, late); err != nil {
		t.Fatalf("set data: %v", err)
	}
	if _, err := m.SubmitStep(context.Background(), StepMarketSession); err != nil {
		t.Fatalf("submit session: %v", err)
	}
	driveTo(t, m, v, StepReviewJournal)

	_, err := m.LogTrade(context.Background())
	if !coacherrors.Is(err, coacherrors.ErrChecklistFailed) {
		t.Fatalf("err = %v, want checklist failure", err)
	}
	if got := m.CurrentStep(); got != StepReviewJournal {
		t.Errorf("current step = %d, blocked log should not move the pointer", got)
	}
	if v.journalData != nil {
		t.Error("journal entry posted despite failed checklist")
	}
}

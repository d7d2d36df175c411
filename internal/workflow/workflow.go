// Package workflow implements the guided pre-trade evaluation pipeline:
// a strict six-step sequence with per-step validation gates, manual
// override semantics, draft persistence, and the final pre-journal
// checklist. The remote scoring service only returns verdicts; every
// sequencing and gating decision is made here.
package workflow

import (
	"sync"

	"github.com/rs/zerolog"

	"confluence-coach/internal/config"
	"confluence-coach/internal/gateway"
	"confluence-coach/internal/models"
	"confluence-coach/internal/session"
)

// Workflow step numbers. The sequence is linear: no skipping, no branches.
const (
	StepMarketSession     = 1
	StepTrendAnalysis     = 2
	StepAOIMapping        = 3
	StepPatternValidation = 4
	StepRiskCalculation   = 5
	StepReviewJournal     = 6

	FirstStep = StepMarketSession
	LastStep  = StepReviewJournal
)

// StepTitle returns the display title for a step.
func StepTitle(step int) string {
	switch step {
	case StepMarketSession:
		return "Market & Session"
	case StepTrendAnalysis:
		return "Trend Analysis"
	case StepAOIMapping:
		return "AOI Mapping"
	case StepPatternValidation:
		return "Pattern & Signal"
	case StepRiskCalculation:
		return "Risk & R:R"
	case StepReviewJournal:
		return "Review & Journal"
	default:
		return "Unknown"
	}
}

// state is the mutable aggregate for one in-progress trade evaluation.
// It is owned exclusively by the Machine; callers see copies via Snapshot.
type state struct {
	currentStep int

	step1Data *models.MarketSessionData
	step2Data *models.TrendAnalysisData
	step3Data *models.AOIData
	step4Data *models.PatternData
	step5Data *models.RiskData
	step6Data *models.JournalData

	step2Verdict *models.TrendVerdict
	step3Verdict *models.AOIVerdict
	step4Verdict *models.PatternVerdict
	step5Verdict *models.RiskVerdict

	draftID string
}

func initialState() state {
	return state{currentStep: FirstStep}
}

// Snapshot is a read-only copy of the workflow state for rendering and
// checklist derivation. Payload pointers are shared but treated as
// immutable once stored.
type Snapshot struct {
	CurrentStep int

	Step1Data *models.MarketSessionData
	Step2Data *models.TrendAnalysisData
	Step3Data *models.AOIData
	Step4Data *models.PatternData
	Step5Data *models.RiskData
	Step6Data *models.JournalData

	Step2Verdict *models.TrendVerdict
	Step3Verdict *models.AOIVerdict
	Step4Verdict *models.PatternVerdict
	Step5Verdict *models.RiskVerdict

	DraftID string
}

// Machine drives the workflow: it owns the session state, talks to the
// validation gateway, and enforces the gating invariants. A Machine is
// safe for concurrent use, though the intended owner is a single
// interactive client; the locking exists so that late gateway responses
// can be detected and discarded rather than applied.
type Machine struct {
	mu    sync.Mutex
	state state

	// epochs count submit actions per step; a verdict is applied only if
	// the step's epoch still matches the one captured at submit time.
	epochs [LastStep + 1]uint64
	// generation counts resets, so responses from before a reset can
	// never resurrect the session.
	generation uint64

	validator gateway.StepValidator
	clock     *session.Clock
	cfg       config.WorkflowConfig
	drafts    DraftStore
	logger    zerolog.Logger
}

// NewMachine creates a workflow machine in the initial state (step 1,
// no data, no verdicts).
func NewMachine(validator gateway.StepValidator, clock *session.Clock, cfg config.WorkflowConfig, drafts DraftStore, logger zerolog.Logger) *Machine {
	return &Machine{
		state:     initialState(),
		validator: validator,
		clock:     clock,
		cfg:       cfg,
		drafts:    drafts,
		logger:    logger,
	}
}

// CurrentStep returns the current step pointer.
func (m *Machine) CurrentStep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.currentStep
}

// Snapshot returns a copy of the current workflow state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		CurrentStep:  m.state.currentStep,
		Step1Data:    m.state.step1Data,
		Step2Data:    m.state.step2Data,
		Step3Data:    m.state.step3Data,
		Step4Data:    m.state.step4Data,
		Step5Data:    m.state.step5Data,
		Step6Data:    m.state.step6Data,
		Step2Verdict: m.state.step2Verdict,
		Step3Verdict: m.state.step3Verdict,
		Step4Verdict: m.state.step4Verdict,
		Step5Verdict: m.state.step5Verdict,
		DraftID:      m.state.draftID,
	}
}

// Next advances the pointer by exactly one step. It is the explicit user
// action: it succeeds when the active step's gate permits advancing
// (PROCEED, a CAUTION manual override, or a passing binary verdict) and
// is a no-op returning an error otherwise. A STAND_DOWN or failed binary
// verdict can never be bypassed here.
func (m *Machine) Next() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.currentStep >= LastStep {
		return nil
	}

	gate := m.gateLocked(m.state.currentStep)
	if gate.err != nil {
		return gate.err
	}

	from := m.state.currentStep
	m.state.currentStep++
	reason := "advance"
	if gate.override {
		reason = "caution override"
	}
	m.logTransition(from, m.state.currentStep, reason)
	return nil
}

// FastForward advances the pointer while the active step's gate passes
// cleanly, stopping at the first step that is incomplete, blocked, or
// waiting on an explicit caution override. It is used after restoring a
// draft: the pointer is never persisted, so the walk re-derives it from
// the recovered data and verdicts.
func (m *Machine) FastForward() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.state.currentStep < LastStep {
		gate := m.gateLocked(m.state.currentStep)
		if gate.err != nil || gate.override {
			break
		}
		from := m.state.currentStep
		m.state.currentStep++
		m.logTransition(from, m.state.currentStep, "fast-forward")
	}
	return m.state.currentStep
}

// Previous moves the pointer back by one step. Going backward never
// requires re-validation; at step 1 it is a no-op.
func (m *Machine) Previous() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.currentStep <= FirstStep {
		return
	}
	from := m.state.currentStep
	m.state.currentStep--
	m.logTransition(from, m.state.currentStep, "previous")
}

// Reset clears the session back to the initial state: step 1, all data
// and verdicts absent. Any in-flight gateway responses are invalidated.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = initialState()
	m.generation++
	m.logger.Info().Str("event", "reset").Msg("Workflow reset")
}

func (m *Machine) logTransition(from, to int, reason string) {
	m.logger.Info().
		Str("event", "transition").
		Int("from", from).
		Int("to", to).
		Str("reason", reason).
		Msg("Workflow transition")
}

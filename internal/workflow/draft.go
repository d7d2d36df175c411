package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/models"
)

// Draft is the persisted form of an in-progress evaluation: every step
// payload and verdict collected so far. The step pointer is deliberately
// not part of the draft; a restored session always re-enters at step 1
// and re-walks the sequence over the recovered data.
type Draft struct {
	DraftID string    `json:"draft_id"`
	Pair    string    `json:"pair,omitempty"`
	SavedAt time.Time `json:"saved_at"`

	Step1Data *models.MarketSessionData `json:"step1_data,omitempty"`
	Step2Data *models.TrendAnalysisData `json:"step2_data,omitempty"`
	Step3Data *models.AOIData           `json:"step3_data,omitempty"`
	Step4Data *models.PatternData       `json:"step4_data,omitempty"`
	Step5Data *models.RiskData          `json:"step5_data,omitempty"`

	Step2Verdict *models.TrendVerdict   `json:"step2_validation,omitempty"`
	Step3Verdict *models.AOIVerdict     `json:"step3_validation,omitempty"`
	Step4Verdict *models.PatternVerdict `json:"step4_validation,omitempty"`
	Step5Verdict *models.RiskVerdict    `json:"step5_validation,omitempty"`
}

// Encode serializes the draft for storage.
func (d *Draft) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// DecodeDraft deserializes a stored draft.
func DecodeDraft(data []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, coacherrors.Wrap(err, "decode draft")
	}
	return &d, nil
}

// DraftStore persists drafts locally.
type DraftStore interface {
	SaveDraft(ctx context.Context, draft *Draft) error
	GetDraft(ctx context.Context, draftID string) (*Draft, error)
	ListDrafts(ctx context.Context) ([]*Draft, error)
	DeleteDraft(ctx context.Context, draftID string) error
}

// SaveDraft persists the current session as a draft and returns the
// draft ID. Saving the same session again overwrites the same draft.
func (m *Machine) SaveDraft(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.state.draftID == "" {
		m.state.draftID = uuid.NewString()
	}
	draft := &Draft{
		DraftID:      m.state.draftID,
		Pair:         m.pairLocked(),
		SavedAt:      time.Now().UTC(),
		Step1Data:    m.state.step1Data,
		Step2Data:    m.state.step2Data,
		Step3Data:    m.state.step3Data,
		Step4Data:    m.state.step4Data,
		Step5Data:    m.state.step5Data,
		Step2Verdict: m.state.step2Verdict,
		Step3Verdict: m.state.step3Verdict,
		Step4Verdict: m.state.step4Verdict,
		Step5Verdict: m.state.step5Verdict,
	}
	m.mu.Unlock()

	if err := m.drafts.SaveDraft(ctx, draft); err != nil {
		return "", coacherrors.Wrap(err, "save draft")
	}
	m.logger.Info().Str("draft_id", draft.DraftID).Str("pair", draft.Pair).Msg("Draft saved")
	return draft.DraftID, nil
}

// RestoreDraft loads a draft into a freshly reset session. Step data and
// verdicts are restored; the step pointer starts at 1.
func (m *Machine) RestoreDraft(ctx context.Context, draftID string) error {
	draft, err := m.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = initialState()
	m.generation++
	m.state.draftID = draft.DraftID
	m.state.step1Data = draft.Step1Data
	m.state.step2Data = draft.Step2Data
	m.state.step3Data = draft.Step3Data
	m.state.step4Data = draft.Step4Data
	m.state.step5Data = draft.Step5Data
	m.state.step2Verdict = draft.Step2Verdict
	m.state.step3Verdict = draft.Step3Verdict
	m.state.step4Verdict = draft.Step4Verdict
	m.state.step5Verdict = draft.Step5Verdict

	m.logger.Info().Str("draft_id", draftID).Msg("Draft restored")
	return nil
}

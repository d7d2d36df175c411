package workflow

import (
	"fmt"

	"confluence-coach/internal/config"
	"confluence-coach/internal/session"
	"confluence-coach/pkg/utils"
)

// ChecklistItem is one line of the final pre-journal checklist.
type ChecklistItem struct {
	Label     string
	Satisfied bool
	Required  bool
	Detail    string
}

// Checklist is the step 6 gate. It is recomputed from the current
// snapshot every time it is built; no item state is cached between
// builds, so a score that later changes changes the checklist with it.
type Checklist struct {
	Items []ChecklistItem
}

// ReadyToLog reports whether every required item is satisfied.
// Informational items never block.
func (c Checklist) ReadyToLog() bool {
	for _, item := range c.Items {
		if item.Required && !item.Satisfied {
			return false
		}
	}
	return true
}

// BuildChecklist derives the pre-journal checklist from a snapshot. The
// session-window item judges the step 1 timestamp, the moment the
// evaluation started, not the moment the checklist renders.
func BuildChecklist(snap Snapshot, clock *session.Clock, cfg config.WorkflowConfig) Checklist {
	return buildChecklistLocked(snap, clock, cfg)
}

func buildChecklistLocked(snap Snapshot, clock *session.Clock, cfg config.WorkflowConfig) Checklist {
	var items []ChecklistItem

	inWindow := false
	sessionDetail := "no session logged"
	if snap.Step1Data != nil {
		status := clock.Status(snap.Step1Data.Timestamp)
		inWindow = status.InWindow
		sessionDetail = fmt.Sprintf("logged %s (%s - %s)",
			snap.Step1Data.Timestamp.In(clock.Location()).Format("15:04"),
			status.WindowStart, status.WindowEnd)
	}
	items = append(items, ChecklistItem{
		Label:     "Traded within session window",
		Satisfied: inWindow,
		Required:  true,
		Detail:    sessionDetail,
	})

	items = append(items, ChecklistItem{
		Label:     "Trend analysis completed",
		Satisfied: snap.Step2Data != nil && snap.Step2Verdict != nil,
		Required:  true,
	})

	items = append(items, ChecklistItem{
		Label:     "Area of interest marked",
		Satisfied: snap.Step3Data != nil && snap.Step3Verdict != nil,
		Required:  true,
	})

	confluenceOK := false
	confluenceDetail := "not scored"
	if snap.Step4Verdict != nil {
		confluenceOK = snap.Step4Verdict.ConfluenceScore >= cfg.MinConfluenceScore
		confluenceDetail = fmt.Sprintf("%.0f/%.0f", snap.Step4Verdict.ConfluenceScore, cfg.MinConfluenceScore)
	}
	items = append(items, ChecklistItem{
		Label:     "Confluence score meets minimum",
		Satisfied: confluenceOK,
		Required:  true,
		Detail:    confluenceDetail,
	})

	rrOK := false
	rrDetail := "not calculated"
	if snap.Step5Verdict != nil {
		rrOK = snap.Step5Verdict.RRValid
		rrDetail = utils.FormatRR(snap.Step5Verdict.RRRatio)
	}
	items = append(items, ChecklistItem{
		Label:     fmt.Sprintf("Risk:reward at least 1:%.0f", cfg.MinRiskReward),
		Satisfied: rrOK,
		Required:  true,
		Detail:    rrDetail,
	})

	items = append(items, ChecklistItem{
		Label:     "Pattern screenshot attached",
		Satisfied: snap.Step4Data != nil && snap.Step4Data.ScreenshotURL != "",
		Required:  false,
	})

	return Checklist{Items: items}
}

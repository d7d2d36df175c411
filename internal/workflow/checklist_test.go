package workflow

import (
	"testing"
	"time"

	"confluence-coach/internal/models"
	"confluence-coach/internal/session"
)

func fullSnapshot() Snapshot {
	return Snapshot{
		CurrentStep:  StepReviewJournal,
		Step1Data:    validSession(),
		Step2Data:    validTrend(),
		Step3Data:    validAOI(),
		Step4Data:    validPattern(),
		Step5Data:    validRisk(),
		Step2Verdict: proceedTrend(),
		Step3Verdict: proceedAOI(),
		Step4Verdict: passingPattern(),
		Step5Verdict: passingRisk(),
	}
}

func findItem(t *testing.T, c Checklist, label string) ChecklistItem {
	t.Helper()
	for _, item := range c.Items {
		if item.Label == label {
			return item
		}
	}
	t.Fatalf("no checklist item %q", label)
	return ChecklistItem{}
}

func TestChecklistAllRequiredSatisfied(t *testing.T) {
	clock := session.NewClock()
	c := BuildChecklist(fullSnapshot(), clock, testConfig)

	if !c.ReadyToLog() {
		t.Fatalf("checklist not ready: %+v", c.Items)
	}
	screenshot := findItem(t, c, "Pattern screenshot attached")
	if screenshot.Satisfied || screenshot.Required {
		t.Errorf("screenshot item = %+v, want unsatisfied informational", screenshot)
	}
}

func TestChecklistConfluenceThresholdFlip(t *testing.T) {
	clock := session.NewClock()

	snap := fullSnapshot()
	snap.Step4Verdict = &models.PatternVerdict{Valid: true, ConfluenceScore: 59, FinalApproval: true}
	c := BuildChecklist(snap, clock, testConfig)
	if c.ReadyToLog() {
		t.Fatal("checklist passed with confluence below minimum")
	}

	// The checklist is derived fresh each build; a better score flips it
	// with no cached state in the way.
	snap.Step4Verdict = &models.PatternVerdict{Valid: true, ConfluenceScore: 60, FinalApproval: true}
	c = BuildChecklist(snap, clock, testConfig)
	if !c.ReadyToLog() {
		t.Fatalf("checklist failed at the exact minimum: %+v", c.Items)
	}
}

func TestChecklistJudgesStepOneTimestamp(t *testing.T) {
	clock := session.NewClock()

	snap := fullSnapshot()
	snap.Step1Data = &models.MarketSessionData{
		Pair: "EURUSD",
		// 15:00 in New York, hours after the window closed.
		Timestamp: time.Date(2025, 1, 15, 20, 0, 0, 0, time.UTC),
	}
	c := BuildChecklist(snap, clock, testConfig)
	item := findItem(t, c, "Traded within session window")
	if item.Satisfied {
		t.Error("out-of-window session marked compliant")
	}
	if c.ReadyToLog() {
		t.Error("checklist ready despite session-window violation")
	}
}

func TestChecklistMissingPieces(t *testing.T) {
	clock := session.NewClock()

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"no session", func(s *Snapshot) { s.Step1Data = nil }},
		{"no trend verdict", func(s *Snapshot) { s.Step2Verdict = nil }},
		{"no aoi verdict", func(s *Snapshot) { s.Step3Verdict = nil }},
		{"no pattern verdict", func(s *Snapshot) { s.Step4Verdict = nil }},
		{"no risk verdict", func(s *Snapshot) { s.Step5Verdict = nil }},
		{"rr invalid", func(s *Snapshot) {
			s.Step5Verdict = &models.RiskVerdict{Valid: true, RRValid: false, RRRatio: 1.2}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := fullSnapshot()
			tt.mutate(&snap)
			if BuildChecklist(snap, clock, testConfig).ReadyToLog() {
				t.Error("checklist ready with a required item missing")
			}
		})
	}
}

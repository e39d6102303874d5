package store

import (
	"errors"
	"testing"
	"time"

	"github.com/carebridge/intakepipe/internal/audit"
	"github.com/carebridge/intakepipe/internal/models"
)

func TestInMemorySessionLifecycle(t *testing.T) {
	st := NewInMemoryStore()
	now := time.Now()

	sess := models.Session{ID: "s1", ChildAge: 14, CreatedAt: now, UpdatedAt: now}
	if err := st.CreateSession(sess); err != nil {
		t.Fatalf("CreateSession error = %v", err)
	}

	got, err := st.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession error = %v", err)
	}
	if got.ChildAge != 14 || got.ReadyForAssessment {
		t.Errorf("session = %+v, want age 14 and not ready", got)
	}

	if _, err := st.GetSession("missing"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("GetSession(missing) error = %v, want ErrSessionNotFound", err)
	}

	if err := st.SetSessionReady("s1", true); err != nil {
		t.Fatalf("SetSessionReady error = %v", err)
	}
	got, _ = st.GetSession("s1")
	if !got.ReadyForAssessment {
		t.Error("ready flag not persisted")
	}

	if err := st.SetSessionReady("missing", true); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("SetSessionReady(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestInMemoryConversationStateRoundTrip(t *testing.T) {
	st := NewInMemoryStore()

	// Absent state is nil, not an error: the engine creates it lazily.
	state, err := st.GetConversationState("s1")
	if err != nil || state != nil {
		t.Fatalf("GetConversationState(absent) = %+v, %v; want nil, nil", state, err)
	}

	original := models.NewConversationState(time.Now())
	original.Mode = models.ModeHelp
	original.Phase = models.PhaseInsurance
	original.OffTopicCount = 3
	original.Help = &models.HelpContext{Field: "insurance_provider", Question: "What is your insurance provider?"}
	original.MarkFieldCollected("parent_name")

	if err := st.SaveConversationState("s1", original); err != nil {
		t.Fatalf("SaveConversationState error = %v", err)
	}

	loaded, err := st.GetConversationState("s1")
	if err != nil {
		t.Fatalf("GetConversationState error = %v", err)
	}
	if loaded.Version != models.StateVersion {
		t.Errorf("version = %d, want %d", loaded.Version, models.StateVersion)
	}
	if loaded.Mode != models.ModeHelp || loaded.Phase != models.PhaseInsurance {
		t.Errorf("loaded = %s/%s, want help/insurance", loaded.Mode, loaded.Phase)
	}
	if loaded.OffTopicCount != 3 {
		t.Errorf("off-topic count = %d, want 3", loaded.OffTopicCount)
	}
	if loaded.Help == nil || loaded.Help.Field != "insurance_provider" {
		t.Errorf("help context = %+v", loaded.Help)
	}
	if !loaded.HasCollectedField("parent_name") {
		t.Error("collected fields lost in round trip")
	}
}

func TestInMemoryAssessmentStateRoundTrip(t *testing.T) {
	st := NewInMemoryStore()

	state, err := st.GetAssessmentState("s1")
	if err != nil || state != nil {
		t.Fatalf("GetAssessmentState(absent) = %+v, %v; want nil, nil", state, err)
	}

	original := models.NewAssessmentState(time.Now())
	original.Responses = append(original.Responses, models.AssessmentResponse{
		Instrument: models.InstrumentPHQA,
		ItemNumber: 9,
		Value:      2,
		RawText:    "more than half the days",
		Confidence: models.ParseConfidenceHigh,
		AnsweredAt: time.Now(),
	})
	original.RiskFlags = []models.RiskType{models.RiskSuicidalIdeation}

	if err := st.SaveAssessmentState("s1", original); err != nil {
		t.Fatalf("SaveAssessmentState error = %v", err)
	}

	loaded, err := st.GetAssessmentState("s1")
	if err != nil {
		t.Fatalf("GetAssessmentState error = %v", err)
	}
	if loaded.Status != models.AssessmentInProgress || loaded.CurrentInstrument != models.InstrumentPHQA {
		t.Errorf("loaded = %s/%s", loaded.Status, loaded.CurrentInstrument)
	}
	resp := loaded.FindResponse(models.InstrumentPHQA, 9)
	if resp == nil || resp.Value != 2 {
		t.Errorf("response lost in round trip: %+v", resp)
	}
	if len(loaded.RiskFlags) != 1 || loaded.RiskFlags[0] != models.RiskSuicidalIdeation {
		t.Errorf("risk flags = %v", loaded.RiskFlags)
	}
}

func TestInMemoryAuditEntriesOrderedPerSession(t *testing.T) {
	st := NewInMemoryStore()
	now := time.Now()

	for _, e := range []audit.Entry{
		{SessionID: "s1", Action: audit.ActionSessionCreated, RecordedAt: now},
		{SessionID: "s2", Action: audit.ActionSessionCreated, RecordedAt: now},
		{SessionID: "s1", Action: audit.ActionMessageClassified, RecordedAt: now},
	} {
		if err := st.AddAuditEntry(e); err != nil {
			t.Fatalf("AddAuditEntry error = %v", err)
		}
	}

	entries, err := st.GetAuditEntries("s1")
	if err != nil {
		t.Fatalf("GetAuditEntries error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Action != audit.ActionSessionCreated || entries[1].Action != audit.ActionMessageClassified {
		t.Errorf("entries out of order: %+v", entries)
	}
}

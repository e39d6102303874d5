package responder

import (
	"context"
	"strings"
	"testing"

	"github.com/carebridge/intakepipe/internal/engine"
	"github.com/carebridge/intakepipe/internal/models"
)

func TestTemplateComposeEscalation(t *testing.T) {
	var tpl Template
	got := tpl.Compose(engine.ResponseSignals{
		Mode:                models.ModeEscalation,
		EscalationTriggered: true,
	})
	if !strings.Contains(got, "care team will reach out") {
		t.Errorf("escalation message missing handoff promise: %q", got)
	}
}

func TestTemplateComposeHelpIncludesQuestion(t *testing.T) {
	var tpl Template
	got := tpl.Compose(engine.ResponseSignals{
		Mode:         models.ModeHelp,
		HelpQuestion: "What is your insurance provider?",
	})
	if !strings.Contains(got, "What is your insurance provider?") {
		t.Errorf("help message should restate the question: %q", got)
	}
}

func TestTemplateComposeOffTopicAcknowledgesAndRedirects(t *testing.T) {
	var tpl Template
	tests := []struct {
		topic models.TopicCategory
		want  string
	}{
		{models.TopicCostConcern, "costs"},
		{models.TopicTimelineConcern, "timelines"},
		{models.TopicLocationConcern, "location"},
	}
	for _, tt := range tests {
		got := tpl.Compose(engine.ResponseSignals{Mode: models.ModeOffTopic, OffTopicTopic: tt.topic})
		if !strings.Contains(got, tt.want) {
			t.Errorf("topic %s: message %q missing %q", tt.topic, got, tt.want)
		}
		if !strings.Contains(got, "pick up where we left off") {
			t.Errorf("topic %s: message should redirect back to intake: %q", tt.topic, got)
		}
	}
}

func TestTemplateComposeClarificationAndNextQuestion(t *testing.T) {
	var tpl Template
	got := tpl.Compose(engine.ResponseSignals{
		Mode:                models.ModeIntake,
		ClarificationPrompt: "Would you say not at all, several days, more than half the days, or nearly every day?",
		NextQuestionText:    "",
	})
	if !strings.Contains(got, "not at all, several days") {
		t.Errorf("clarification prompt not delivered: %q", got)
	}

	got = tpl.Compose(engine.ResponseSignals{
		Mode:             models.ModeIntake,
		NextQuestionText: "Over the last 2 weeks, how often has your child felt down?",
	})
	if !strings.Contains(got, "felt down") {
		t.Errorf("next question not asked: %q", got)
	}
}

func TestClientWithoutKeyUsesTemplates(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c := NewClient()
	got, err := c.Compose(context.Background(), engine.ResponseSignals{Mode: models.ModeIntake})
	if err != nil {
		t.Fatalf("Compose error = %v", err)
	}
	if got == "" {
		t.Error("template fallback returned empty prose")
	}
}

package scoring

import (
	"testing"

	"github.com/carebridge/intakepipe/internal/models"
	"github.com/carebridge/intakepipe/internal/questionnaire"
)

// phqResponses builds PHQ-A responses with the given values, item 1 onward.
func phqResponses(values ...int) []models.AssessmentResponse {
	responses := make([]models.AssessmentResponse, 0, len(values))
	for i, v := range values {
		responses = append(responses, models.AssessmentResponse{
			Instrument: models.InstrumentPHQA,
			ItemNumber: i + 1,
			Value:      v,
		})
	}
	return responses
}

func gadResponses(values ...int) []models.AssessmentResponse {
	responses := make([]models.AssessmentResponse, 0, len(values))
	for i, v := range values {
		responses = append(responses, models.AssessmentResponse{
			Instrument: models.InstrumentGAD7,
			ItemNumber: i + 1,
			Value:      v,
		})
	}
	return responses
}

func TestScoreInstrumentEmpty(t *testing.T) {
	if got := ScoreInstrument(models.InstrumentPHQA, nil); got != nil {
		t.Errorf("expected nil score with no responses, got %+v", got)
	}
}

func TestScoreInstrumentAllOnes(t *testing.T) {
	got := ScoreInstrument(models.InstrumentPHQA, phqResponses(1, 1, 1, 1, 1, 1, 1, 1, 1))
	if got == nil {
		t.Fatal("expected a score")
	}
	if got.Total != 9 {
		t.Errorf("total = %d, want 9", got.Total)
	}
	if got.Severity != models.SeverityMild {
		t.Errorf("severity = %s, want mild", got.Severity)
	}
	if !got.Complete {
		t.Error("expected complete with all 9 items answered")
	}
	if got.Max != PHQAMaxScore {
		t.Errorf("max = %d, want %d", got.Max, PHQAMaxScore)
	}
}

func TestScoreInstrumentPartialNotComplete(t *testing.T) {
	got := ScoreInstrument(models.InstrumentGAD7, gadResponses(2, 2))
	if got == nil {
		t.Fatal("expected a score")
	}
	if got.Complete {
		t.Error("2 of 7 items should not be complete")
	}
	if got.Total != 4 {
		t.Errorf("total = %d, want 4", got.Total)
	}
}

func TestPHQASeverityBands(t *testing.T) {
	tests := []struct {
		total int
		want  models.Severity
	}{
		{0, models.SeverityMinimal},
		{4, models.SeverityMinimal},
		{5, models.SeverityMild},
		{9, models.SeverityMild},
		{10, models.SeverityModerate},
		{14, models.SeverityModerate},
		{15, models.SeverityModeratelySevere},
		{19, models.SeverityModeratelySevere},
		{20, models.SeveritySevere},
		{27, models.SeveritySevere},
	}
	for _, tt := range tests {
		if got := severityFor(models.InstrumentPHQA, tt.total); got != tt.want {
			t.Errorf("severityFor(phq_a, %d) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestGAD7SeverityBands(t *testing.T) {
	tests := []struct {
		total int
		want  models.Severity
	}{
		{0, models.SeverityMinimal},
		{4, models.SeverityMinimal},
		{5, models.SeverityMild},
		{9, models.SeverityMild},
		{10, models.SeverityModerate},
		{14, models.SeverityModerate},
		{15, models.SeveritySevere},
		{21, models.SeveritySevere},
	}
	for _, tt := range tests {
		if got := severityFor(models.InstrumentGAD7, tt.total); got != tt.want {
			t.Errorf("severityFor(gad_7, %d) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestScoreCombinedNormalization(t *testing.T) {
	// 12 + 12 = 24 raw out of 48 -> 50.
	responses := append(phqResponses(2, 2, 2, 2, 2, 2, 0, 0, 0), gadResponses(2, 2, 2, 2, 2, 2, 0)...)
	got := ScoreCombined(responses)
	if got.RawTotal != 24 {
		t.Errorf("raw total = %d, want 24", got.RawTotal)
	}
	if got.NormalizedScore != 50 {
		t.Errorf("normalized = %d, want 50", got.NormalizedScore)
	}
}

func TestScoreCombinedWorseSeverityWins(t *testing.T) {
	// PHQ-A mild (6), GAD-7 severe (16): overall must be severe.
	responses := append(phqResponses(1, 1, 1, 1, 1, 1, 0, 0, 0), gadResponses(3, 3, 3, 3, 2, 2, 0)...)
	got := ScoreCombined(responses)
	if got.OverallSeverity != models.SeveritySevere {
		t.Errorf("overall severity = %s, want severe", got.OverallSeverity)
	}
}

func TestSuicidalIdeationIndicator(t *testing.T) {
	tests := []struct {
		value int
		want  models.Severity
	}{
		{1, models.SeverityModerate},
		{2, models.SeverityModeratelySevere},
		{3, models.SeveritySevere},
	}
	for _, tt := range tests {
		responses := []models.AssessmentResponse{
			{Instrument: models.InstrumentPHQA, ItemNumber: 9, Value: tt.value},
		}
		indicators := DetectRiskIndicators(responses)
		if len(indicators) != 1 {
			t.Fatalf("value %d: expected 1 indicator, got %d", tt.value, len(indicators))
		}
		ind := indicators[0]
		if ind.Type != models.RiskSuicidalIdeation {
			t.Errorf("value %d: type = %s, want suicidal_ideation", tt.value, ind.Type)
		}
		if ind.Severity != tt.want {
			t.Errorf("value %d: severity = %s, want %s", tt.value, ind.Severity, tt.want)
		}
		if !ind.RequiresImmediateAttention {
			t.Errorf("value %d: suicidal ideation must always require immediate attention", tt.value)
		}
	}
}

func TestSuicidalIdeationZeroNotFlagged(t *testing.T) {
	responses := []models.AssessmentResponse{
		{Instrument: models.InstrumentPHQA, ItemNumber: 9, Value: 0},
	}
	if got := DetectRiskIndicators(responses); len(got) != 0 {
		t.Errorf("expected no indicators for item 9 value 0, got %+v", got)
	}
}

func TestIdeationNotSuppressedByLowTotal(t *testing.T) {
	// Everything else zero: total is 1 (minimal), yet the indicator fires.
	responses := phqResponses(0, 0, 0, 0, 0, 0, 0, 0, 1)
	indicators := DetectRiskIndicators(responses)
	if len(indicators) != 1 || indicators[0].Type != models.RiskSuicidalIdeation {
		t.Fatalf("expected suicidal_ideation indicator despite minimal total, got %+v", indicators)
	}
}

func TestSevereTotalsRaiseReviewIndicators(t *testing.T) {
	// PHQ-A total 21 (severe, item 9 = 0) and GAD-7 total 16 (severe).
	responses := append(phqResponses(3, 3, 3, 3, 3, 3, 3, 0, 0), gadResponses(3, 3, 3, 3, 2, 2, 0)...)
	indicators := DetectRiskIndicators(responses)
	if len(indicators) != 2 {
		t.Fatalf("expected 2 indicators, got %d: %+v", len(indicators), indicators)
	}
	byType := map[models.RiskType]models.RiskIndicator{}
	for _, ind := range indicators {
		byType[ind.Type] = ind
	}
	dep, ok := byType[models.RiskSevereDepression]
	if !ok || !dep.RequiresClinicalReview {
		t.Errorf("expected severe_depression indicator requiring clinical review, got %+v", byType)
	}
	if dep.RequiresImmediateAttention {
		t.Error("severe_depression alone should not require immediate attention")
	}
	if _, ok := byType[models.RiskSevereAnxiety]; !ok {
		t.Errorf("expected severe_anxiety indicator, got %+v", byType)
	}
}

func TestMaxScoreConstants(t *testing.T) {
	if PHQAMaxScore != 27 || GAD7MaxScore != 21 || CombinedMaxScore != 48 {
		t.Errorf("score maximums = %d/%d/%d, want 27/21/48", PHQAMaxScore, GAD7MaxScore, CombinedMaxScore)
	}
	if questionnaire.TotalItemCount != 16 {
		t.Errorf("total item count = %d, want 16", questionnaire.TotalItemCount)
	}
}

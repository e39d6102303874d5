// Package scoring computes instrument totals, severity bands, and safety
// risk indicators from recorded assessment responses.
//
// All functions are pure and deterministic so that scoring decisions can be
// audited and replayed from the recorded responses alone.
package scoring

import (
	"math"

	"github.com/carebridge/intakepipe/internal/models"
	"github.com/carebridge/intakepipe/internal/questionnaire"
)

// Instrument maximums, fixed by the item counts and the 0-3 scale.
const (
	PHQAMaxScore     = questionnaire.PHQAItemCount * models.MaxLikertValue // 27
	GAD7MaxScore     = questionnaire.GAD7ItemCount * models.MaxLikertValue // 21
	CombinedMaxScore = PHQAMaxScore + GAD7MaxScore                         // 48
)

// suicidalIdeationItem is the PHQ-A item whose non-zero answer always emits
// a risk indicator, regardless of the total score.
const suicidalIdeationItem = 9

// InstrumentScore is the per-instrument scoring summary.
type InstrumentScore struct {
	Instrument models.Instrument `json:"instrument"`
	Total      int               `json:"total"`
	Max        int               `json:"max"`
	ItemCount  int               `json:"item_count"`
	Complete   bool              `json:"complete"`
	Severity   models.Severity   `json:"severity"`
}

// CombinedScore normalizes the two instrument totals onto a 0-100 scale.
type CombinedScore struct {
	RawTotal        int             `json:"raw_total"`
	NormalizedScore int             `json:"normalized_score"`
	OverallSeverity models.Severity `json:"overall_severity"`
}

// ScoreInstrument totals the recorded responses for one instrument. It
// returns nil when no responses for that instrument exist yet.
func ScoreInstrument(instrument models.Instrument, responses []models.AssessmentResponse) *InstrumentScore {
	total, count := 0, 0
	for _, r := range responses {
		if r.Instrument != instrument {
			continue
		}
		total += r.Value
		count++
	}
	if count == 0 {
		return nil
	}

	max, items := PHQAMaxScore, questionnaire.PHQAItemCount
	if instrument == models.InstrumentGAD7 {
		max, items = GAD7MaxScore, questionnaire.GAD7ItemCount
	}

	return &InstrumentScore{
		Instrument: instrument,
		Total:      total,
		Max:        max,
		ItemCount:  count,
		Complete:   count == items,
		Severity:   severityFor(instrument, total),
	}
}

// ScoreCombined computes the normalized 0-100 score across both instruments
// and the worse of the two severity bands.
func ScoreCombined(responses []models.AssessmentResponse) CombinedScore {
	raw := 0
	for _, r := range responses {
		raw += r.Value
	}
	normalized := int(math.Round(float64(raw) / float64(CombinedMaxScore) * 100))

	overall := models.SeverityMinimal
	if phq := ScoreInstrument(models.InstrumentPHQA, responses); phq != nil {
		overall = models.WorseSeverity(overall, phq.Severity)
	}
	if gad := ScoreInstrument(models.InstrumentGAD7, responses); gad != nil {
		overall = models.WorseSeverity(overall, gad.Severity)
	}

	return CombinedScore{
		RawTotal:        raw,
		NormalizedScore: normalized,
		OverallSeverity: overall,
	}
}

// DetectRiskIndicators evaluates the safety rules over all recorded
// responses. The rules are independent of the severity bands and are always
// evaluated in full: in particular, a non-zero PHQ-A item 9 answer emits a
// suicidal_ideation indicator no matter what the totals say, and is never
// suppressed by averaging.
func DetectRiskIndicators(responses []models.AssessmentResponse) []models.RiskIndicator {
	var indicators []models.RiskIndicator

	for _, r := range responses {
		if r.Instrument != models.InstrumentPHQA || r.ItemNumber != suicidalIdeationItem {
			continue
		}
		if r.Value > 0 {
			indicators = append(indicators, models.RiskIndicator{
				Type:                       models.RiskSuicidalIdeation,
				Severity:                   ideationSeverity(r.Value),
				RequiresImmediateAttention: true,
				RequiresClinicalReview:     true,
			})
		}
	}

	if phq := ScoreInstrument(models.InstrumentPHQA, responses); phq != nil && phq.Severity == models.SeveritySevere {
		indicators = append(indicators, models.RiskIndicator{
			Type:                   models.RiskSevereDepression,
			Severity:               models.SeveritySevere,
			RequiresClinicalReview: true,
		})
	}
	if gad := ScoreInstrument(models.InstrumentGAD7, responses); gad != nil && gad.Severity == models.SeveritySevere {
		indicators = append(indicators, models.RiskIndicator{
			Type:                   models.RiskSevereAnxiety,
			Severity:               models.SeveritySevere,
			RequiresClinicalReview: true,
		})
	}

	return indicators
}

// ideationSeverity scales the indicator severity by the Likert value.
func ideationSeverity(value int) models.Severity {
	switch value {
	case 1:
		return models.SeverityModerate
	case 2:
		return models.SeverityModeratelySevere
	default:
		return models.SeveritySevere
	}
}

// severityFor maps an instrument total onto its published severity bands.
//
//	PHQ-A (max 27): minimal 0-4, mild 5-9, moderate 10-14,
//	                moderately_severe 15-19, severe 20-27.
//	GAD-7 (max 21): minimal 0-4, mild 5-9, moderate 10-14, severe 15-21.
func severityFor(instrument models.Instrument, total int) models.Severity {
	switch {
	case total <= 4:
		return models.SeverityMinimal
	case total <= 9:
		return models.SeverityMild
	case total <= 14:
		return models.SeverityModerate
	}
	if instrument == models.InstrumentGAD7 {
		return models.SeveritySevere
	}
	if total <= 19 {
		return models.SeverityModeratelySevere
	}
	return models.SeveritySevere
}

// Package intent provides rule-based classification of inbound parent
// messages and the side-channel escalation scan.
//
// The classifier is an ordered, inspectable rule table rather than a model,
// so clinicians can audit why a message was classified a certain way.
package intent

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/carebridge/intakepipe/internal/models"
)

// Fixed confidences for the keyword tier. Hand-picked starting defaults,
// not calibrated optima.
const (
	confidenceHelp          = 0.95
	confidenceClarification = 0.90
	confidenceQuestion      = 0.80
	// highConfidenceThreshold gates whether the keyword tier result stands
	// on its own or the heuristic tier runs.
	highConfidenceThreshold = 0.80
	// confidenceFallback is the absolute floor: ordinary data-collection
	// answers must never be misclassified as something requiring a state
	// change, so unrecognized text resolves to answer at this confidence.
	confidenceFallback = 0.50
)

// Context carries the conversational signals that let the same text mean
// different things in different places ("no" after a yes/no question is an
// answer, not an off-topic remark).
type Context struct {
	// LastQuestion is the question text the assistant just asked, if any.
	LastQuestion string
	// PendingRequiredFields counts intake fields still outstanding for the
	// current phase.
	PendingRequiredFields int
	// ExpectingYesNo is true when the last question was a yes/no prompt.
	ExpectingYesNo bool
}

// topicPattern binds an off-topic pattern group to its category and
// confidence.
type topicPattern struct {
	category   models.TopicCategory
	confidence float64
	patterns   []*regexp.Regexp
}

// Classifier performs two-tier intent classification: a fast keyword pass,
// then a heuristic signal pass that never blocks progress.
type Classifier struct {
	helpPatterns          []*regexp.Regexp
	clarificationPatterns []*regexp.Regexp
	topicPatterns         []topicPattern
	questionWords         *regexp.Regexp
	uncertaintyMarkers    []string
	personalInfoPatterns  []*regexp.Regexp
}

// NewClassifier compiles the rule table once.
func NewClassifier() *Classifier {
	return &Classifier{
		helpPatterns: compilePatterns([]string{
			`\bi need help\b`,
			`\bhelp me\b`,
			`\bcan you help\b`,
			`\bi don'?t understand\b`,
			`\bi'?m (?:so )?confused\b`,
			`\bwhat do(?:es)? (?:you|this|that) mean\b`,
			`\bnot sure (?:what|how) (?:you|to|i)\b`,
			`\bhow do i answer\b`,
			`\bwhat should i (?:say|put|write|answer)\b`,
		}),
		clarificationPatterns: compilePatterns([]string{
			`\bcan you (?:repeat|rephrase|explain)\b`,
			`\bcould you (?:repeat|rephrase|explain)\b`,
			`\bsay that again\b`,
			`\bwhat was the question\b`,
			`\bcome again\b`,
			`\bplease clarify\b`,
		}),
		topicPatterns: []topicPattern{
			{
				category:   models.TopicCostConcern,
				confidence: 0.85,
				patterns: compilePatterns([]string{
					`\bhow much\b`,
					`\b(?:cost|costs|price|pricing|fee|fees|charge|copay|co-pay)\b`,
					`\b(?:expensive|afford|affordable)\b`,
					`\binsurance (?:cover|covers|pay)\b`,
				}),
			},
			{
				category:   models.TopicTimelineConcern,
				confidence: 0.84,
				patterns: compilePatterns([]string{
					`\bhow long (?:does|will|until)\b`,
					`\bhow soon\b`,
					`\bwhen (?:will|can) (?:we|i|my child)\b`,
					`\b(?:wait list|waitlist|wait time|waiting)\b`,
					`\btimeline\b`,
				}),
			},
			{
				category:   models.TopicLocationConcern,
				confidence: 0.83,
				patterns: compilePatterns([]string{
					`\bwhere (?:is|are|do)\b`,
					`\b(?:location|address|directions|parking)\b`,
					`\b(?:office|clinic) (?:located|near)\b`,
					`\bin person\b`,
				}),
			},
			{
				category:   models.TopicGeneralQuestion,
				confidence: 0.82,
				patterns: compilePatterns([]string{
					`\bby the way\b`,
					`\b(?:unrelated|random|different) question\b`,
					`\bquick question\b`,
					`\boff topic\b`,
				}),
			},
		},
		questionWords: regexp.MustCompile(`^(?:what|when|where|who|why|how|is|are|can|could|do|does|will|would|should)\b`),
		uncertaintyMarkers: []string{
			"not sure", "maybe", "i think", "i guess", "kind of", "sort of", "it varies",
		},
		personalInfoPatterns: compilePatterns([]string{
			`\b[\w.+-]+@[\w-]+\.[\w.]+\b`,                   // email
			`\b\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`,       // phone
			`\bmy (?:name|son|daughter|child)(?:'s name)? is\b`, // name-shaped
			`\b(?:he|she|they) (?:is|are|turns?) \d{1,2}\b`, // age-shaped
			`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`,             // date
			`\b\d{1,2} years? old\b`,
		}),
	}
}

// Classify determines the intent of a message. The keyword pass runs first;
// if it produces a high-confidence result that result stands, otherwise the
// heuristic pass combines boolean signals with a fixed decision order and
// falls back to answer so classification uncertainty never blocks the
// data-collection flow.
func (c *Classifier) Classify(message string, ctx Context) models.ClassificationResult {
	normalized := normalize(message)

	if result, ok := c.keywordPass(normalized, ctx); ok {
		slog.Debug("intent classified by keyword pass",
			"intent", result.Intent, "confidence", result.Confidence)
		return result
	}

	result := c.heuristicPass(normalized, ctx)
	slog.Debug("intent classified by heuristic pass",
		"intent", result.Intent, "confidence", result.Confidence)
	return result
}

// keywordPass checks the pattern groups in priority order: help requests,
// clarification, off-topic, then generic question indicators.
func (c *Classifier) keywordPass(normalized string, ctx Context) (models.ClassificationResult, bool) {
	if p := firstMatch(normalized, c.helpPatterns); p != "" {
		return models.ClassificationResult{
			Intent:         models.IntentHelpRequest,
			Confidence:     confidenceHelp,
			MatchedPattern: p,
			Method:         "keyword",
		}, true
	}

	if p := firstMatch(normalized, c.clarificationPatterns); p != "" {
		return models.ClassificationResult{
			Intent:         models.IntentClarification,
			Confidence:     confidenceClarification,
			MatchedPattern: p,
			Method:         "keyword",
		}, true
	}

	for _, tp := range c.topicPatterns {
		if p := firstMatch(normalized, tp.patterns); p != "" {
			return models.ClassificationResult{
				Intent:         models.IntentOffTopic,
				Confidence:     tp.confidence,
				MatchedPattern: string(tp.category),
				Method:         "keyword",
			}, true
		}
	}

	if strings.Contains(normalized, "?") || c.questionWords.MatchString(normalized) {
		// A question about the question itself is an answer-path signal
		// when the assistant just asked something; leave that to the
		// heuristic pass for context weighing.
		if ctx.LastQuestion == "" {
			return models.ClassificationResult{
				Intent:         models.IntentQuestion,
				Confidence:     confidenceQuestion,
				MatchedPattern: "question_indicator",
				Method:         "keyword",
			}, true
		}
	}

	return models.ClassificationResult{}, false
}

// heuristicPass computes boolean signals and combines them with the fixed
// decision order help < question < off_topic < answer. Its results carry
// lower confidence (0.5-0.85) and never block progress.
func (c *Classifier) heuristicPass(normalized string, ctx Context) models.ClassificationResult {
	hasQuestionMark := strings.Contains(normalized, "?")
	hasQuestionWords := c.questionWords.MatchString(normalized)
	wordCount := len(strings.Fields(normalized))
	veryShort := wordCount <= 2
	veryLong := len(normalized) > 280
	uncertain := containsAny(normalized, c.uncertaintyMarkers)
	personalInfo := firstMatch(normalized, c.personalInfoPatterns) != ""
	contextAsked := ctx.LastQuestion != ""
	hasPendingFields := ctx.PendingRequiredFields > 0

	switch {
	case uncertain && contextAsked && !personalInfo:
		// Uncertainty about a just-asked question reads as a help request.
		return models.ClassificationResult{
			Intent:         models.IntentHelpRequest,
			Confidence:     0.60,
			MatchedPattern: "uncertainty_in_context",
			Method:         "heuristic",
		}

	case (hasQuestionMark || hasQuestionWords) && !personalInfo && !(veryShort && contextAsked):
		return models.ClassificationResult{
			Intent:         models.IntentQuestion,
			Confidence:     0.70,
			MatchedPattern: "question_shape",
			Method:         "heuristic",
		}

	case (veryLong || veryShort) && !contextAsked && !hasPendingFields && !personalInfo:
		// Length extremes with nothing asked and nothing outstanding read
		// as a detour ("no" is only an answer when a question is pending).
		return models.ClassificationResult{
			Intent:         models.IntentOffTopic,
			Confidence:     0.55,
			MatchedPattern: string(models.TopicGeneralQuestion),
			Method:         "heuristic",
		}

	case personalInfo:
		return models.ClassificationResult{
			Intent:         models.IntentAnswer,
			Confidence:     0.85,
			MatchedPattern: "personal_info_shape",
			Method:         "heuristic",
		}

	case contextAsked || hasPendingFields:
		return models.ClassificationResult{
			Intent:         models.IntentAnswer,
			Confidence:     0.75,
			MatchedPattern: "context_expecting_answer",
			Method:         "heuristic",
		}
	}

	return models.ClassificationResult{
		Intent:     models.IntentAnswer,
		Confidence: confidenceFallback,
		Method:     "heuristic",
	}
}

// normalize lowercases, trims, and collapses repeated whitespace.
func normalize(input string) string {
	text := strings.ToLower(strings.TrimSpace(input))
	return strings.Join(strings.Fields(text), " ")
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// firstMatch returns the text matched by the first pattern that fires.
func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

package intent

import (
	"log/slog"
	"regexp"

	"github.com/carebridge/intakepipe/internal/models"
)

// escalationPhrase pairs a canonical phrase label with a flexible word-gap
// pattern, so "I want to talk to a real person" matches the canonical
// "talk to ... real person".
type escalationPhrase struct {
	label   string
	pattern *regexp.Regexp
}

// gap allows up to three filler words between the phrase halves.
const gap = `(?:\s+\w+){0,3}`

// escalationPhrases is the fixed table of human-contact phrases. Matching is
// re-evaluated on every inbound message; acting only once per session is the
// caller's responsibility.
var escalationPhrases = []escalationPhrase{
	{"talk to ... person", regexp.MustCompile(`\btalk(?:ing)?\s+to` + gap + `\s+person\b`)},
	{"talk to ... human", regexp.MustCompile(`\btalk(?:ing)?\s+to` + gap + `\s+human\b`)},
	{"speak to ... someone", regexp.MustCompile(`\bspeak(?:ing)?\s+(?:to|with)` + gap + `\s+(?:person|someone|human)\b`)},
	{"real person", regexp.MustCompile(`\breal\s+person\b`)},
	{"actual human", regexp.MustCompile(`\bactual\s+(?:human|person)\b`)},
	{"human being", regexp.MustCompile(`\bhuman\s+being\b`)},
	{"call me", regexp.MustCompile(`\b(?:call|phone)\s+me\b`)},
	{"contact ... clinician", regexp.MustCompile(`\b(?:talk|speak|connect|contact)\w*\s+(?:to|with|me)` + gap + `\s+(?:doctor|clinician|therapist|counselor|nurse)\b`)},
	{"not a bot", regexp.MustCompile(`\bnot\s+(?:a\s+)?(?:bot|robot|machine)\b`)},
	{"stop the bot", regexp.MustCompile(`\bstop\s+(?:the\s+)?(?:bot|robot)\b`)},
	{"live agent", regexp.MustCompile(`\b(?:live|real)\s+(?:agent|operator|representative)\b`)},
}

// EscalationDetector scans messages for requests to reach a human. It runs
// independently of intent classification on every inbound message and is not
// mutually exclusive with any intent.
type EscalationDetector struct{}

// NewEscalationDetector creates the detector.
func NewEscalationDetector() *EscalationDetector {
	return &EscalationDetector{}
}

// Detect returns every phrase variant the message matches. Detection is
// idempotent: the same text always yields the same result.
func (d *EscalationDetector) Detect(message string) models.EscalationResult {
	normalized := normalize(message)
	if normalized == "" {
		return models.EscalationResult{}
	}

	var matched []string
	for _, p := range escalationPhrases {
		if p.pattern.MatchString(normalized) {
			matched = append(matched, p.label)
		}
	}

	if len(matched) > 0 {
		slog.Debug("escalation phrases detected", "count", len(matched))
	}
	return models.EscalationResult{
		Detected:       len(matched) > 0,
		MatchedPhrases: matched,
	}
}

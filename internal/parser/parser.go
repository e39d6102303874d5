// Package parser converts free-text screening answers into Likert values.
//
// The parser is a deterministic rule table, not a statistical model:
// auditability matters more than recall on unseen phrasings. Any text that
// doesn't match a known anchor is treated as needing clarification rather
// than guessed.
package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/carebridge/intakepipe/internal/models"
)

// Result is the structured outcome of one parse attempt.
type Result struct {
	// Value is the matched Likert value, or nil when no confident match exists.
	Value              *int                   `json:"value"`
	Confidence         models.ParseConfidence `json:"confidence,omitempty"`
	Ambiguous          bool                   `json:"ambiguous"`
	NeedsClarification bool                   `json:"needs_clarification"`
	MatchedAnchor      string                 `json:"matched_anchor,omitempty"`
	Error              string                 `json:"error,omitempty"`
}

// ValidationResult reports input validation before parsing.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// anchor binds a canonical phrase to a Likert value.
type anchor struct {
	phrase string
	value  int
}

// anchors are the canonical PHQ/GAD response-scale phrases. Order matters:
// longer phrases are listed before their substrings ("not at all" before
// "not really") so the first match is the most specific one.
var anchors = []anchor{
	{"more than half the days", 2},
	{"nearly every day", 3},
	{"almost every day", 3},
	{"all the time", 3},
	{"several days", 1},
	{"not at all", 0},
	{"not really", 0},
	{"sometimes", 1},
	{"always", 3},
	{"never", 0},
	{"often", 2},
}

// secondaryAnchors are looser colloquial phrasings that map to a value with
// medium confidence only. Kept separate so the high-confidence table stays
// exactly the canonical scale.
var secondaryAnchors = []anchor{
	{"once or twice", 1},
	{"a few days", 1},
	{"a couple of days", 1},
	{"most days", 2},
	{"a lot", 2},
	{"every day", 3},
	{"constantly", 3},
	{"rarely", 0},
	{"no", 0},
}

// ambiguityMarkers flag uncertainty language. These always win over any
// anchor match: uncertainty must never be silently resolved to a number.
var ambiguityMarkers = []string{
	"not sure",
	"maybe",
	"it varies",
	"kind of",
	"sort of",
	"hard to say",
	"i don't know",
	"no idea",
	"no clue",
	"depends",
}

// negators invert the meaning of a frequency anchor when they immediately
// precede it: "not always" is not an answer of always. Negated matches of
// any non-zero anchor route to clarification instead of being guessed.
// Zero-valued anchors ("not at all", "never") carry their own negation and
// are exempt.
var negators = []string{"not", "never", "no", "hardly", "barely"}

// wordBoundary matches anchors only on word boundaries so "often" doesn't
// fire inside "soften".
var anchorPatterns = compileAnchors(anchors)
var secondaryPatterns = compileAnchors(secondaryAnchors)

func compileAnchors(table []anchor) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(table))
	for i, a := range table {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(a.phrase) + `\b`)
	}
	return patterns
}

// bareDigit matches a standalone 0-3 answer.
var bareDigit = regexp.MustCompile(`^\s*([0-3])\s*$`)

// Parser converts free-text answers to Likert values.
type Parser struct{}

// New creates a response parser.
func New() *Parser {
	return &Parser{}
}

// Parse applies the rule table in fixed order: blank check, ambiguity
// markers, canonical anchors (high confidence), bare digits, then secondary
// phrasings (medium confidence). Unmatched text falls through ambiguous.
func (p *Parser) Parse(text string) Result {
	normalized := normalize(text)

	if normalized == "" {
		return Result{Ambiguous: true, Error: "Empty response"}
	}

	for _, marker := range ambiguityMarkers {
		if strings.Contains(normalized, marker) {
			slog.Debug("parser ambiguity marker matched", "marker", marker)
			return Result{
				Ambiguous:          true,
				NeedsClarification: true,
				MatchedAnchor:      marker,
			}
		}
	}

	for i, re := range anchorPatterns {
		if loc := re.FindStringIndex(normalized); loc != nil {
			if anchors[i].value > 0 && negatedBefore(normalized, loc[0]) {
				slog.Debug("parser anchor negated", "anchor", anchors[i].phrase)
				return Result{Ambiguous: true, NeedsClarification: true}
			}
			v := anchors[i].value
			return Result{
				Value:         &v,
				Confidence:    models.ParseConfidenceHigh,
				MatchedAnchor: anchors[i].phrase,
			}
		}
	}

	if m := bareDigit.FindStringSubmatch(normalized); m != nil {
		v := int(m[1][0] - '0')
		return Result{
			Value:         &v,
			Confidence:    models.ParseConfidenceHigh,
			MatchedAnchor: m[1],
		}
	}

	for i, re := range secondaryPatterns {
		if loc := re.FindStringIndex(normalized); loc != nil {
			if secondaryAnchors[i].value > 0 && negatedBefore(normalized, loc[0]) {
				slog.Debug("parser anchor negated", "anchor", secondaryAnchors[i].phrase)
				return Result{Ambiguous: true, NeedsClarification: true}
			}
			v := secondaryAnchors[i].value
			return Result{
				Value:         &v,
				Confidence:    models.ParseConfidenceMedium,
				MatchedAnchor: secondaryAnchors[i].phrase,
			}
		}
	}

	return Result{Ambiguous: true, NeedsClarification: true}
}

// negatedBefore reports whether the text immediately preceding the matched
// span ends in a negator word. Contractions count: "doesn't every day" is
// negated the same as "not every day".
func negatedBefore(text string, start int) bool {
	prefix := strings.TrimRight(text[:start], " \t,.;:")
	if strings.HasSuffix(prefix, "n't") {
		return true
	}
	for _, n := range negators {
		if prefix == n || strings.HasSuffix(prefix, " "+n) {
			return true
		}
	}
	return false
}

// Validate checks raw answer text before parsing. Exactly
// MaxResponseTextLength characters is still accepted.
func (p *Parser) Validate(text string) ValidationResult {
	var errs []string
	if strings.TrimSpace(text) == "" {
		errs = append(errs, models.ErrEmptyResponseText.Error())
	}
	if len(text) > models.MaxResponseTextLength {
		errs = append(errs, fmt.Sprintf("%s: %d > %d characters",
			models.ErrResponseTextTooLong.Error(), len(text), models.MaxResponseTextLength))
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// normalize lowercases, trims, and collapses whitespace.
func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.Join(strings.Fields(text), " ")
}

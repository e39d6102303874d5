// Package questionnaire provides the static catalog of the PHQ-A and GAD-7
// screening instruments, with age-banded phrasing and fixed item ordering.
package questionnaire

import (
	"log/slog"

	"github.com/carebridge/intakepipe/internal/models"
)

// AgeBand selects which phrasing variant a question uses.
type AgeBand string

const (
	// BandSimplified covers children aged 5-12.
	BandSimplified AgeBand = "simplified"
	// BandStandard covers adolescents aged 13-18.
	BandStandard AgeBand = "standard"
)

// BandForAge maps a child age to its phrasing band.
func BandForAge(age int) AgeBand {
	if age <= 12 {
		return BandSimplified
	}
	return BandStandard
}

// Item counts are fixed by the instruments themselves.
const (
	PHQAItemCount  = 9
	GAD7ItemCount  = 7
	TotalItemCount = PHQAItemCount + GAD7ItemCount
)

// Question is an immutable catalog entry, loaded once at process start.
type Question struct {
	ID             string            `json:"id"`
	Instrument     models.Instrument `json:"instrument"`
	ItemNumber     int               `json:"item_number"`
	Domain         string            `json:"domain"`
	StandardText   string            `json:"-"`
	SimplifiedText string            `json:"-"`
	// Text carries the band-resolved phrasing on questions returned by the
	// registry lookups.
	Text string `json:"text"`
}

// resolve returns a copy with Text set for the band.
func (q Question) resolve(band AgeBand) Question {
	if band == BandSimplified {
		q.Text = q.SimplifiedText
	} else {
		q.Text = q.StandardText
	}
	return q
}

// Registry serves ordered, age-banded question lookups. It is safe for
// concurrent use; the catalog never changes after construction.
type Registry struct {
	byID  map[string]Question
	order []Question
}

// NewRegistry builds the registry from the static catalog.
func NewRegistry() *Registry {
	order := make([]Question, 0, TotalItemCount)
	order = append(order, phqAItems...)
	order = append(order, gad7Items...)

	byID := make(map[string]Question, len(order))
	for _, q := range order {
		byID[q.ID] = q
	}

	slog.Debug("questionnaire registry loaded", "items", len(order))
	return &Registry{byID: byID, order: order}
}

// QuestionsFor returns the ordered items of one instrument, phrased for the
// child's age band.
func (r *Registry) QuestionsFor(instrument models.Instrument, age int) []Question {
	band := BandForAge(age)
	out := make([]Question, 0, PHQAItemCount)
	for _, q := range r.order {
		if q.Instrument == instrument {
			out = append(out, q.resolve(band))
		}
	}
	return out
}

// Find looks up a question by id, phrased for the child's age band.
func (r *Registry) Find(questionID string, age int) (Question, bool) {
	q, ok := r.byID[questionID]
	if !ok {
		return Question{}, false
	}
	return q.resolve(BandForAge(age)), true
}

// IsValidID reports whether the id names a catalog question.
func (r *Registry) IsValidID(questionID string) bool {
	_, ok := r.byID[questionID]
	return ok
}

// NextQuestion returns the question after currentID in the fixed sequence,
// bridging transparently from the last PHQ-A item to the first GAD-7 item.
// It returns nil after the final GAD-7 item.
func (r *Registry) NextQuestion(currentID string, age int) *Question {
	for i, q := range r.order {
		if q.ID != currentID {
			continue
		}
		if i+1 >= len(r.order) {
			return nil
		}
		next := r.order[i+1].resolve(BandForAge(age))
		return &next
	}
	return nil
}

// FirstQuestion returns the opening item of the full sequence.
func (r *Registry) FirstQuestion(age int) Question {
	return r.order[0].resolve(BandForAge(age))
}

package model

import (
	"sort"
	"time"
)

// Journey statuses. A journey transitions active -> converted exactly once
// (triggers scoring) or active -> abandoned (produces zero results). Both
// transitions are terminal.
const (
	JourneyStatusActive    = "active"
	JourneyStatusConverted = "converted"
	JourneyStatusAbandoned = "abandoned"
)

// Journey is the unit of attribution: the ordered touchpoint history of one
// customer/session. Mutated only by appending touchpoints while active or by
// recording the terminal conversion/abandonment event.
type Journey struct {
	ID                  string   `gorm:"primary_key:true" json:"id"`
	Status              string   `gorm:"not null;default:'active'" json:"status"`
	StartTimestamp      int64    `json:"start_timestamp"`
	EndTimestamp        int64    `json:"end_timestamp"`
	ConversionValue     *float64 `json:"conversion_value,omitempty"`
	ConversionCurrency  string   `json:"conversion_currency,omitempty"`
	ConversionType      string   `json:"conversion_type,omitempty"`
	ConversionTimestamp *int64   `json:"conversion_timestamp,omitempty"`
	// LastEventAt moves on every touchpoint append and on the terminal
	// transition. The recomputation job watermarks on it.
	LastEventAt int64     `gorm:"index:idx_journey_last_event_at" json:"last_event_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (journey *Journey) IsTerminal() bool {
	return journey.Status == JourneyStatusConverted ||
		journey.Status == JourneyStatusAbandoned
}

// AssembledJourney is a journey with its validated, position-assigned
// touchpoint sequence, ready for scoring.
type AssembledJourney struct {
	Journey     Journey      `json:"journey"`
	Touchpoints []Touchpoint `json:"touchpoints"`
}

// AssembleJourney orders the journey's touchpoints by timestamp, applies the
// caller supplied tiebreak for identical timestamps and assigns 1-based
// positions. Re-assembling an unchanged journey yields a structurally
// identical result.
//
// Identical timestamps without a distinguishing tiebreak are rejected with
// ErrAmbiguousOrdering rather than silently ordered.
func AssembleJourney(journey *Journey, touchpoints []Touchpoint,
	tiebreak TouchpointTiebreak) (*AssembledJourney, error) {

	if len(touchpoints) == 0 {
		return nil, ErrNoTouchpoints
	}

	ordered := make([]Touchpoint, len(touchpoints))
	copy(ordered, touchpoints)

	ambiguous := false
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp != ordered[j].Timestamp {
			return ordered[i].Timestamp < ordered[j].Timestamp
		}
		if tiebreak == nil {
			ambiguous = true
			return false
		}
		order := tiebreak(&ordered[i], &ordered[j])
		if order == 0 {
			ambiguous = true
		}
		return order < 0
	})
	if ambiguous {
		return nil, ErrAmbiguousOrdering
	}

	for i := range ordered {
		ordered[i].Position = i + 1
	}

	assembled := &AssembledJourney{Journey: *journey, Touchpoints: ordered}
	assembled.Journey.StartTimestamp = ordered[0].Timestamp
	if assembled.Journey.EndTimestamp < ordered[len(ordered)-1].Timestamp {
		assembled.Journey.EndTimestamp = ordered[len(ordered)-1].Timestamp
	}
	return assembled, nil
}

// ConversionInstant returns the timestamp credit decay is measured against:
// the recorded conversion timestamp, falling back to the last touchpoint.
func (assembled *AssembledJourney) ConversionInstant() int64 {
	if assembled.Journey.ConversionTimestamp != nil {
		return *assembled.Journey.ConversionTimestamp
	}
	if len(assembled.Touchpoints) > 0 {
		return assembled.Touchpoints[len(assembled.Touchpoints)-1].Timestamp
	}
	return assembled.Journey.EndTimestamp
}

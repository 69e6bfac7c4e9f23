package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembleJourneyOrdersByTimestamp(t *testing.T) {
	journey := &Journey{ID: "j1", Status: JourneyStatusActive}
	touchpoints := []Touchpoint{
		{ID: "c", JourneyID: "j1", Channel: ChannelEmail, Timestamp: 300},
		{ID: "a", JourneyID: "j1", Channel: ChannelPaidSearch, Timestamp: 100},
		{ID: "b", JourneyID: "j1", Channel: ChannelOrganic, Timestamp: 200},
	}

	assembled, err := AssembleJourney(journey, touchpoints, nil)
	assert.Nil(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, []string{assembled.Touchpoints[0].ID,
		assembled.Touchpoints[1].ID, assembled.Touchpoints[2].ID})
	for i := range assembled.Touchpoints {
		assert.Equal(t, i+1, assembled.Touchpoints[i].Position)
	}
	assert.Equal(t, int64(100), assembled.Journey.StartTimestamp)
	assert.Equal(t, int64(300), assembled.Journey.EndTimestamp)

	// Input slice stays untouched.
	assert.Equal(t, "c", touchpoints[0].ID)
	assert.Equal(t, 0, touchpoints[0].Position)
}

func TestAssembleJourneyTiebreakByIngestSeq(t *testing.T) {
	journey := &Journey{ID: "j1", Status: JourneyStatusActive}
	touchpoints := []Touchpoint{
		{ID: "b", JourneyID: "j1", IngestSeq: 2, Timestamp: 100},
		{ID: "a", JourneyID: "j1", IngestSeq: 1, Timestamp: 100},
	}

	assembled, err := AssembleJourney(journey, touchpoints, TiebreakByIngestSeq)
	assert.Nil(t, err)
	assert.Equal(t, "a", assembled.Touchpoints[0].ID)
	assert.Equal(t, "b", assembled.Touchpoints[1].ID)
}

func TestAssembleJourneyAmbiguousOrdering(t *testing.T) {
	journey := &Journey{ID: "j1", Status: JourneyStatusActive}
	touchpoints := []Touchpoint{
		{ID: "a", JourneyID: "j1", Timestamp: 100},
		{ID: "b", JourneyID: "j1", Timestamp: 100},
	}

	// No tiebreak given.
	_, err := AssembleJourney(journey, touchpoints, nil)
	assert.Equal(t, ErrAmbiguousOrdering, err)

	// Tiebreak that cannot distinguish.
	_, err = AssembleJourney(journey, touchpoints, TiebreakByIngestSeq)
	assert.Equal(t, ErrAmbiguousOrdering, err)
}

func TestAssembleJourneyEmpty(t *testing.T) {
	_, err := AssembleJourney(&Journey{ID: "j1"}, nil, nil)
	assert.Equal(t, ErrNoTouchpoints, err)
}

func TestAssembleJourneyIdempotent(t *testing.T) {
	journey := &Journey{ID: "j1", Status: JourneyStatusConverted}
	touchpoints := []Touchpoint{
		{ID: "b", JourneyID: "j1", IngestSeq: 2, Timestamp: 200},
		{ID: "a", JourneyID: "j1", IngestSeq: 1, Timestamp: 100},
	}

	first, err := AssembleJourney(journey, touchpoints, TiebreakByIngestSeq)
	assert.Nil(t, err)
	second, err := AssembleJourney(journey, touchpoints, TiebreakByIngestSeq)
	assert.Nil(t, err)
	assert.True(t, reflect.DeepEqual(first, second))
}

func TestConversionInstantFallsBackToLastTouchpoint(t *testing.T) {
	conversionTimestamp := int64(500)
	assembled := &AssembledJourney{
		Journey:     Journey{ID: "j1", ConversionTimestamp: &conversionTimestamp},
		Touchpoints: []Touchpoint{{ID: "a", Timestamp: 100}},
	}
	assert.Equal(t, int64(500), assembled.ConversionInstant())

	assembled.Journey.ConversionTimestamp = nil
	assert.Equal(t, int64(100), assembled.ConversionInstant())
}

func TestJourneyIsTerminal(t *testing.T) {
	assert.False(t, (&Journey{Status: JourneyStatusActive}).IsTerminal())
	assert.True(t, (&Journey{Status: JourneyStatusConverted}).IsTerminal())
	assert.True(t, (&Journey{Status: JourneyStatusAbandoned}).IsTerminal())
}

package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func insightFixture() ([]AttributionResult, []AssembledJourney, map[string]float64) {
	campaign := "camp1"

	results := []AttributionResult{
		{JourneyID: "j1", ModelID: "m1", TouchpointID: "tp1", Channel: ChannelPaidSearch,
			CampaignID: &campaign, Position: 1, CreditFraction: 0.5, AttributedValue: 50},
		{JourneyID: "j1", ModelID: "m1", TouchpointID: "tp2", Channel: ChannelEmail,
			Position: 2, IsLastTouch: true, CreditFraction: 0.5, AttributedValue: 50},
		{JourneyID: "j2", ModelID: "m1", TouchpointID: "tp3", Channel: ChannelEmail,
			Position: 1, IsLastTouch: true, CreditFraction: 1.0, AttributedValue: 200},
	}

	journeys := []AssembledJourney{
		{
			Journey: Journey{ID: "j1", Status: JourneyStatusConverted},
			Touchpoints: []Touchpoint{
				{ID: "tp1", JourneyID: "j1", Channel: ChannelPaidSearch,
					CampaignID: &campaign, Timestamp: 100, Position: 1},
				{ID: "tp2", JourneyID: "j1", Channel: ChannelEmail, Timestamp: 200, Position: 2},
			},
		},
		{
			Journey: Journey{ID: "j2", Status: JourneyStatusConverted},
			Touchpoints: []Touchpoint{
				{ID: "tp3", JourneyID: "j2", Channel: ChannelEmail, Timestamp: 150, Position: 1},
			},
		},
		{
			// Abandoned journeys count against conversion rate only.
			Journey: Journey{ID: "j3", Status: JourneyStatusAbandoned},
			Touchpoints: []Touchpoint{
				{ID: "tp4", JourneyID: "j3", Channel: ChannelPaidSearch,
					CampaignID: &campaign, Timestamp: 120, Position: 1},
			},
		},
	}

	spend := map[string]float64{campaign: 50.0}
	return results, journeys, spend
}

func insightByCell(insights []AttributionInsight, channel, campaignID string) *AttributionInsight {
	for i := range insights {
		if insights[i].Channel == channel && insights[i].CampaignID == campaignID {
			return &insights[i]
		}
	}
	return nil
}

func TestBuildAttributionInsights(t *testing.T) {
	results, journeys, spend := insightFixture()
	insights := BuildAttributionInsights(results, journeys, spend, "m1",
		"days", 1704067200, 1704100000)

	paidSearch := insightByCell(insights, ChannelPaidSearch, "camp1")
	assert.NotNil(t, paidSearch)
	assert.Equal(t, 50.0, paidSearch.TotalAttributedValue)
	assert.Equal(t, int64(1), paidSearch.TotalTouchpoints)
	assert.Equal(t, int64(1), paidSearch.TotalConversions)
	assert.InDelta(t, 0.5, paidSearch.AverageCredit, 1e-9)
	// j1 converted, j3 abandoned: half the touched journeys converted.
	assert.InDelta(t, 0.5, paidSearch.ConversionRate, 1e-9)
	assert.Equal(t, int64(1), paidSearch.AssistedConversions)
	assert.Equal(t, int64(1), paidSearch.FirstClickConversions)
	assert.Equal(t, int64(0), paidSearch.LastClickConversions)
	assert.Equal(t, 50.0, paidSearch.Spend)
	assert.Equal(t, 50.0, paidSearch.CostPerConversion)

	email := insightByCell(insights, ChannelEmail, "")
	assert.NotNil(t, email)
	assert.Equal(t, 250.0, email.TotalAttributedValue)
	assert.Equal(t, int64(2), email.TotalTouchpoints)
	assert.Equal(t, int64(2), email.TotalConversions)
	assert.InDelta(t, 0.75, email.AverageCredit, 1e-9)
	assert.InDelta(t, 1.0, email.ConversionRate, 1e-9)
	assert.Equal(t, int64(0), email.AssistedConversions)
	assert.Equal(t, int64(1), email.FirstClickConversions)
	assert.Equal(t, int64(2), email.LastClickConversions)
	assert.Equal(t, 0.0, email.Spend)

	for i := range insights {
		assert.Equal(t, "m1", insights[i].ModelID)
		assert.Equal(t, "days", insights[i].Granularity)
		assert.Equal(t, int64(1704067200), insights[i].PeriodStart)
		assert.Equal(t, int64(1704100000), insights[i].ComputedAt)
	}
}

func TestBuildAttributionInsightsSortedAndRederivable(t *testing.T) {
	results, journeys, spend := insightFixture()

	first := BuildAttributionInsights(results, journeys, spend, "m1", "days", 1704067200, 1)
	second := BuildAttributionInsights(results, journeys, spend, "m1", "days", 1704067200, 1)
	assert.True(t, reflect.DeepEqual(first, second),
		"rebuilding from the same inputs must converge")

	for i := 1; i < len(first); i++ {
		previous, current := first[i-1], first[i]
		assert.True(t, previous.Channel < current.Channel ||
			(previous.Channel == current.Channel && previous.CampaignID <= current.CampaignID))
	}
}

func TestBuildAttributionInsightsEmpty(t *testing.T) {
	insights := BuildAttributionInsights(nil, nil, nil, "m1", "days", 1704067200, 1)
	assert.Len(t, insights, 0)
}

func TestBuildAttributionInsightsZeroCreditRowsStayVisible(t *testing.T) {
	// A first_touch scoring leaves zero credit on later touchpoints. Their
	// channels must still appear, with zero value but counted touchpoints.
	results := []AttributionResult{
		{JourneyID: "j1", ModelID: "m1", TouchpointID: "tp1", Channel: ChannelPaidSearch,
			Position: 1, CreditFraction: 1.0, AttributedValue: 100},
		{JourneyID: "j1", ModelID: "m1", TouchpointID: "tp2", Channel: ChannelEmail,
			Position: 2, IsLastTouch: true, CreditFraction: 0, AttributedValue: 0},
	}
	journeys := []AssembledJourney{{
		Journey: Journey{ID: "j1", Status: JourneyStatusConverted},
		Touchpoints: []Touchpoint{
			{ID: "tp1", JourneyID: "j1", Channel: ChannelPaidSearch, Timestamp: 100, Position: 1},
			{ID: "tp2", JourneyID: "j1", Channel: ChannelEmail, Timestamp: 200, Position: 2},
		},
	}}

	insights := BuildAttributionInsights(results, journeys, nil, "m1", "days", 1704067200, 1)
	email := insightByCell(insights, ChannelEmail, "")
	assert.NotNil(t, email)
	assert.Equal(t, 0.0, email.TotalAttributedValue)
	assert.Equal(t, int64(1), email.TotalTouchpoints)
	assert.Equal(t, int64(1), email.TotalConversions)
}

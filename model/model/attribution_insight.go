package model

import (
	"sort"
	"time"
)

// AttributionInsight is a materialized aggregate of AttributionResult rows
// for one (model, channel, campaign, period) cell. Fully re-derivable from
// results and journey data; never hand-edited.
type AttributionInsight struct {
	ID          uint64 `gorm:"primary_key:true" json:"id"`
	ModelID     string `gorm:"not null;unique_index:uix_attribution_insight_cell" json:"model_id"`
	Granularity string `gorm:"not null;unique_index:uix_attribution_insight_cell" json:"granularity"`
	PeriodStart int64  `gorm:"not null;unique_index:uix_attribution_insight_cell" json:"period_start"`
	Channel     string `gorm:"not null;unique_index:uix_attribution_insight_cell" json:"channel"`
	// CampaignID is empty for touchpoints that carried no campaign tag.
	CampaignID           string  `gorm:"unique_index:uix_attribution_insight_cell" json:"campaign_id,omitempty"`
	TotalAttributedValue float64 `json:"total_attributed_value"`
	TotalTouchpoints     int64   `json:"total_touchpoints"`
	TotalConversions     int64   `json:"total_conversions"`
	AverageCredit        float64 `json:"average_credit"`
	ConversionRate       float64 `json:"conversion_rate"`
	// AssistedConversions counts converted journeys where this channel
	// contributed a touchpoint but was not the terminal one.
	AssistedConversions int64 `json:"assisted_conversions"`
	// First/last-click baselines are recomputed from journey data directly,
	// independent of the configured model.
	FirstClickConversions int64     `json:"first_click_conversions"`
	LastClickConversions  int64     `json:"last_click_conversions"`
	Spend                 float64   `json:"spend"`
	CostPerConversion     float64   `json:"cost_per_conversion"`
	ComputedAt            int64     `json:"computed_at"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type insightCell struct {
	channel    string
	campaignID string
}

type insightAccumulator struct {
	totalValue  float64
	creditSum   float64
	touchpoints int64
	journeys    map[string]bool
	touched     map[string]bool
	converted   map[string]bool
	assisted    int64
	firstClick  int64
	lastClick   int64
}

func touchpointCampaignKey(campaignID *string) string {
	if campaignID == nil {
		return ""
	}
	return *campaignID
}

// BuildAttributionInsights re-derives the insight rows of one period window
// from its AttributionResult rows and terminal journeys. Pure: the same
// inputs always produce identical rows, which is what makes concurrent
// re-aggregation of overlapping batches converge.
//
// journeys must be the terminal (converted and abandoned) journeys whose
// terminal timestamps fall in the period; abandoned ones only feed the
// conversion-rate denominator.
func BuildAttributionInsights(results []AttributionResult, journeys []AssembledJourney,
	campaignSpend map[string]float64, modelID, granularity string,
	periodStart int64, computedAt int64) []AttributionInsight {

	cells := make(map[insightCell]*insightAccumulator)
	getCell := func(channel, campaignID string) *insightAccumulator {
		key := insightCell{channel: channel, campaignID: campaignID}
		acc, exists := cells[key]
		if !exists {
			acc = &insightAccumulator{
				journeys:  make(map[string]bool),
				touched:   make(map[string]bool),
				converted: make(map[string]bool),
			}
			cells[key] = acc
		}
		return acc
	}

	for i := range results {
		result := &results[i]
		acc := getCell(result.Channel, touchpointCampaignKey(result.CampaignID))
		acc.totalValue += result.AttributedValue
		acc.creditSum += result.CreditFraction
		acc.touchpoints++
		acc.journeys[result.JourneyID] = true
	}

	for i := range journeys {
		journey := &journeys[i]
		if len(journey.Touchpoints) == 0 {
			continue
		}
		lastTouchpoint := &journey.Touchpoints[len(journey.Touchpoints)-1]
		isConverted := journey.Journey.Status == JourneyStatusConverted

		seen := make(map[insightCell]bool)
		for j := range journey.Touchpoints {
			touchpoint := &journey.Touchpoints[j]
			key := insightCell{channel: touchpoint.Channel,
				campaignID: touchpointCampaignKey(touchpoint.CampaignID)}
			if seen[key] {
				continue
			}
			seen[key] = true

			acc := getCell(key.channel, key.campaignID)
			acc.touched[journey.Journey.ID] = true
			if !isConverted {
				continue
			}
			acc.converted[journey.Journey.ID] = true
			if touchpoint.Channel != lastTouchpoint.Channel {
				acc.assisted++
			}
		}

		if isConverted {
			firstTouchpoint := &journey.Touchpoints[0]
			getCell(firstTouchpoint.Channel,
				touchpointCampaignKey(firstTouchpoint.CampaignID)).firstClick++
			getCell(lastTouchpoint.Channel,
				touchpointCampaignKey(lastTouchpoint.CampaignID)).lastClick++
		}
	}

	insights := make([]AttributionInsight, 0, len(cells))
	for key, acc := range cells {
		insight := AttributionInsight{
			ModelID:               modelID,
			Granularity:           granularity,
			PeriodStart:           periodStart,
			Channel:               key.channel,
			CampaignID:            key.campaignID,
			TotalAttributedValue:  acc.totalValue,
			TotalTouchpoints:      acc.touchpoints,
			TotalConversions:      int64(len(acc.journeys)),
			AssistedConversions:   acc.assisted,
			FirstClickConversions: acc.firstClick,
			LastClickConversions:  acc.lastClick,
			ComputedAt:            computedAt,
		}
		if acc.touchpoints > 0 {
			insight.AverageCredit = acc.creditSum / float64(acc.touchpoints)
		}
		if len(acc.touched) > 0 {
			insight.ConversionRate = float64(len(acc.converted)) / float64(len(acc.touched))
		}
		if key.campaignID != "" {
			insight.Spend = campaignSpend[key.campaignID]
			if insight.TotalConversions > 0 {
				insight.CostPerConversion = insight.Spend / float64(insight.TotalConversions)
			}
		}
		insights = append(insights, insight)
	}

	sort.Slice(insights, func(i, j int) bool {
		if insights[i].Channel != insights[j].Channel {
			return insights[i].Channel < insights[j].Channel
		}
		return insights[i].CampaignID < insights[j].CampaignID
	})
	return insights
}

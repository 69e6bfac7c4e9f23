package model

import (
	"math"
	"time"
)

// AttributionResult is the persisted form of one credit entry. Keyed
// uniquely by (journey, model, touchpoint) so recomputation is an upsert,
// not an append. Channel, campaign and position are denormalized from the
// touchpoint for query efficiency.
type AttributionResult struct {
	ID           uint64  `gorm:"primary_key:true" json:"id"`
	JourneyID    string  `gorm:"not null;unique_index:uix_attribution_result_journey_model_touchpoint" json:"journey_id"`
	ModelID      string  `gorm:"not null;unique_index:uix_attribution_result_journey_model_touchpoint" json:"model_id"`
	TouchpointID string  `gorm:"not null;unique_index:uix_attribution_result_journey_model_touchpoint" json:"touchpoint_id"`
	CampaignID   *string `json:"campaign_id,omitempty"`
	Channel      string  `gorm:"not null" json:"channel"`
	Position     int     `gorm:"not null" json:"position"`
	IsLastTouch  bool    `gorm:"not null" json:"is_last_touch"`
	// CreditFraction in [0,1]; fractions of one (journey, model) sum to 1.0.
	CreditFraction float64 `gorm:"not null" json:"credit_fraction"`
	// AttributedValue = CreditFraction * conversion value, exact at the
	// currency minor unit. Values of one (journey, model) sum to the
	// conversion value exactly.
	AttributedValue float64   `gorm:"not null" json:"attributed_value"`
	ComputedAt      int64     `gorm:"not null" json:"computed_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BuildAttributionResults materializes the persisted rows of one (journey,
// model) scoring. Pure: the same scoring always yields the same row set,
// which together with the (journey, model, touchpoint) keyed upsert is what
// makes rewriting a pair converge to identical storage state.
func BuildAttributionResults(journey *AssembledJourney, am *AttributionModel,
	credits []AttributionCredit, computedAt int64) ([]AttributionResult, error) {

	if len(credits) == 0 {
		return nil, ErrNoTouchpoints
	}

	conversionValue := 0.0
	if journey.Journey.ConversionValue != nil {
		conversionValue = *journey.Journey.ConversionValue
	}
	minorUnit := GetCurrencyMinorUnit(journey.Journey.ConversionCurrency)
	values, err := AllocateAttributedValue(credits, conversionValue, minorUnit)
	if err != nil {
		return nil, err
	}

	lastPosition := len(credits)
	results := make([]AttributionResult, 0, len(credits))
	for i := range credits {
		results = append(results, AttributionResult{
			JourneyID:       journey.Journey.ID,
			ModelID:         am.ID,
			TouchpointID:    credits[i].TouchpointID,
			CampaignID:      credits[i].CampaignID,
			Channel:         credits[i].Channel,
			Position:        credits[i].Position,
			IsLastTouch:     credits[i].Position == lastPosition,
			CreditFraction:  credits[i].Weight,
			AttributedValue: values[i],
			ComputedAt:      computedAt,
		})
	}
	return results, nil
}

// GetCurrencyMinorUnit returns the minor-unit exponent for an ISO 4217
// currency code. Unknown currencies default to 2.
func GetCurrencyMinorUnit(currency string) int {
	switch currency {
	case "JPY", "KRW", "VND", "CLP", "ISK":
		return 0
	case "BHD", "KWD", "OMR", "IQD", "JOD", "TND":
		return 3
	}
	return 2
}

// AllocateAttributedValue distributes conversionValue across credits,
// rounding each share to the currency minor unit with banker's rounding.
// The rounding remainder is assigned to the touchpoint with the largest
// pre-rounding weight (lowest position on ties) so the attributed values
// sum to the conversion value exactly.
func AllocateAttributedValue(credits []AttributionCredit, conversionValue float64,
	minorUnit int) ([]float64, error) {

	if len(credits) == 0 {
		return nil, ErrNoTouchpoints
	}

	factor := math.Pow(10, float64(minorUnit))
	targetMinor := int64(math.RoundToEven(conversionValue * factor))

	minor := make([]int64, len(credits))
	var allocatedMinor int64
	largest := 0
	for i := range credits {
		minor[i] = int64(math.RoundToEven(credits[i].Weight * conversionValue * factor))
		allocatedMinor += minor[i]
		if credits[i].Weight > credits[largest].Weight {
			largest = i
		}
	}

	if remainder := targetMinor - allocatedMinor; remainder != 0 {
		minor[largest] += remainder
	}

	values := make([]float64, len(credits))
	var total int64
	for i := range minor {
		values[i] = float64(minor[i]) / factor
		total += minor[i]
	}
	if total != targetMinor {
		return nil, ErrValueConservation
	}
	return values, nil
}

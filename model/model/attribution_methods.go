package model

import (
	"math"

	log "github.com/sirupsen/logrus"

	"marketpulse/metrics"
	U "marketpulse/util"
)

// AttributionCredit is one touchpoint's share of a journey's conversion
// under one model. Ephemeral: persisted only through AttributionResult.
type AttributionCredit struct {
	TouchpointID string  `json:"touchpoint_id"`
	Position     int     `json:"position"`
	Channel      string  `json:"channel"`
	CampaignID   *string `json:"campaign_id,omitempty"`
	Weight       float64 `json:"weight"`
}

// DataDrivenHook supplies raw weights from an externally trained model. The
// engine only normalizes them; it never trains.
type DataDrivenHook func(journey *AssembledJourney) []float64

// ApplyAttributionModel maps an assembled, converted journey to credit
// fractions under the given model. Pure: same journey and model always
// yield bit-identical weights.
//
// Invariant: weights sum to 1.0 within CreditEpsilon for every non-empty
// converted journey. A violation is a bug and fails the call rather than
// returning approximately-correct credits.
func ApplyAttributionModel(journey *AssembledJourney, am *AttributionModel,
	hook DataDrivenHook) ([]AttributionCredit, error) {

	if journey.Journey.Status != JourneyStatusConverted {
		return nil, ErrJourneyNotTerminal
	}
	if len(journey.Touchpoints) == 0 {
		return nil, ErrNoTouchpoints
	}

	params, err := am.GetParams()
	if err != nil {
		return nil, err
	}

	credits := creditsForTouchpoints(journey.Touchpoints)

	switch am.Kind {
	case AttributionModelFirstTouch:
		credits[0].Weight = 1.0

	case AttributionModelLastTouch:
		credits[len(credits)-1].Weight = 1.0

	case AttributionModelLinear:
		applyLinear(credits)

	case AttributionModelTimeDecay:
		applyTimeDecay(credits, journey, params.HalfLifeDays)

	case AttributionModelPositionBased:
		applyPositionBased(credits, params)

	case AttributionModelDataDriven:
		applyDataDriven(credits, journey, am, hook)

	default:
		return nil, ErrInvalidModelParams
	}

	sum := 0.0
	for i := range credits {
		sum += credits[i].Weight
	}
	if !U.Float64Equal(sum, 1.0, CreditEpsilon) {
		log.WithFields(log.Fields{"journey_id": journey.Journey.ID,
			"model_id": am.ID, "kind": am.Kind, "credit_sum": sum}).
			Error("Credit conservation violated.")
		return nil, ErrCreditConservation
	}
	return credits, nil
}

func creditsForTouchpoints(touchpoints []Touchpoint) []AttributionCredit {
	credits := make([]AttributionCredit, 0, len(touchpoints))
	for i := range touchpoints {
		credits = append(credits, AttributionCredit{
			TouchpointID: touchpoints[i].ID,
			Position:     touchpoints[i].Position,
			Channel:      touchpoints[i].Channel,
			CampaignID:   touchpoints[i].CampaignID,
			Weight:       0,
		})
	}
	return credits
}

func applyLinear(credits []AttributionCredit) {
	for i := range credits {
		credits[i].Weight = 1 / float64(len(credits))
	}
}

// applyTimeDecay weights each touchpoint by 2^(-daysBeforeConversion/halfLife)
// and normalizes. A touchpoint at the conversion instant gets the maximum
// un-normalized weight of 1. If touchpoint x1 is one half-life before x2 and
// x2 receives credit y, x1 receives y/2; the formula ensures it.
func applyTimeDecay(credits []AttributionCredit, journey *AssembledJourney, halfLifeDays float64) {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	conversionTime := journey.ConversionInstant()

	totalWeight := 0.0
	for i := range credits {
		days := float64(conversionTime-journey.Touchpoints[i].Timestamp) / float64(SecsInADay)
		if days < 0 {
			days = 0
		}
		weight := math.Pow(2, -days/halfLifeDays)
		credits[i].Weight = weight
		totalWeight += weight
	}
	for i := range credits {
		credits[i].Weight = credits[i].Weight / totalWeight
	}
}

// applyPositionBased gives the first and last touchpoints their fixed shares
// and splits the middle share evenly across interior touchpoints. Journeys
// shorter than 3 touchpoints collapse gracefully: a single touchpoint takes
// everything, two touchpoints split the first/last shares re-normalized.
func applyPositionBased(credits []AttributionCredit, params *AttributionModelParams) {
	first, middle, last := params.FirstWeight, params.MiddleWeight, params.LastWeight
	if first == 0 && middle == 0 && last == 0 {
		// Unset params default to the common 40/20/40 U-shape.
		first, middle, last = 0.4, 0.2, 0.4
	}

	switch len(credits) {
	case 1:
		credits[0].Weight = 1.0

	case 2:
		if first+last == 0 {
			// Degenerate params with all weight on the middle.
			credits[0].Weight = 0.5
			credits[1].Weight = 0.5
			return
		}
		credits[0].Weight = first / (first + last)
		credits[1].Weight = last / (first + last)

	default:
		credits[0].Weight = first
		credits[len(credits)-1].Weight = last
		interior := float64(len(credits) - 2)
		for i := 1; i < len(credits)-1; i++ {
			credits[i].Weight = middle / interior
		}
	}
}

// applyDataDriven normalizes the hook's raw weights. Fails closed to linear
// when the hook is missing or returns unusable weights; the degradation is
// logged and counted, never swallowed.
func applyDataDriven(credits []AttributionCredit, journey *AssembledJourney,
	am *AttributionModel, hook DataDrivenHook) {

	var raw []float64
	if hook != nil {
		raw = hook(journey)
	}

	if !isUsableRawWeights(raw, len(credits)) {
		log.WithFields(log.Fields{"journey_id": journey.Journey.ID, "model_id": am.ID,
			"raw_weights": raw}).Warn("Data driven hook returned unusable weights. Falling back to linear.")
		metrics.Increment(metrics.IncrAttributionHookFallback)
		applyLinear(credits)
		return
	}

	totalWeight := 0.0
	for _, weight := range raw {
		totalWeight += weight
	}
	for i := range credits {
		credits[i].Weight = raw[i] / totalWeight
	}
}

func isUsableRawWeights(raw []float64, expectedLen int) bool {
	if len(raw) != expectedLen {
		return false
	}
	total := 0.0
	for _, weight := range raw {
		if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
			return false
		}
		total += weight
	}
	return total > 0
}

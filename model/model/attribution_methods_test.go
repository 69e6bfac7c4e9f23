package model

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/jinzhu/gorm/dialects/postgres"
	"github.com/stretchr/testify/assert"
)

const testDayStart = int64(1704067200) // 2024-01-01 00:00:00 UTC

func convertedJourney(timestamps []int64) *AssembledJourney {
	touchpoints := make([]Touchpoint, 0, len(timestamps))
	channels := []string{ChannelPaidSearch, ChannelEmail, ChannelOrganic, ChannelDirect}
	for i, timestamp := range timestamps {
		touchpoints = append(touchpoints, Touchpoint{
			ID:        "tp" + string(rune('a'+i)),
			JourneyID: "j1",
			Channel:   channels[i%len(channels)],
			Type:      TouchpointTypeClick,
			Timestamp: timestamp,
			Position:  i + 1,
		})
	}

	value := 100.0
	conversionTimestamp := timestamps[len(timestamps)-1]
	return &AssembledJourney{
		Journey: Journey{
			ID:                  "j1",
			Status:              JourneyStatusConverted,
			ConversionValue:     &value,
			ConversionCurrency:  "USD",
			ConversionTimestamp: &conversionTimestamp,
		},
		Touchpoints: touchpoints,
	}
}

func modelOfKind(kind string, params *AttributionModelParams) *AttributionModel {
	am := &AttributionModel{ID: "m1", Name: "test_" + kind, Kind: kind, Version: 1, Active: true}
	if params != nil {
		raw, _ := json.Marshal(params)
		am.Params = &postgres.Jsonb{RawMessage: raw}
	}
	return am
}

func creditSum(credits []AttributionCredit) float64 {
	sum := 0.0
	for i := range credits {
		sum += credits[i].Weight
	}
	return sum
}

func TestApplyAttributionModelCreditConservation(t *testing.T) {
	kinds := []string{AttributionModelFirstTouch, AttributionModelLastTouch,
		AttributionModelLinear, AttributionModelTimeDecay,
		AttributionModelPositionBased, AttributionModelDataDriven}

	for _, kind := range kinds {
		for journeyLength := 1; journeyLength <= 6; journeyLength++ {
			timestamps := make([]int64, 0, journeyLength)
			for i := 0; i < journeyLength; i++ {
				timestamps = append(timestamps, testDayStart+int64(i)*3600)
			}
			journey := convertedJourney(timestamps)

			credits, err := ApplyAttributionModel(journey, modelOfKind(kind, nil), nil)
			assert.Nil(t, err, kind)
			assert.Len(t, credits, journeyLength, kind)
			assert.InDelta(t, 1.0, creditSum(credits), CreditEpsilon, kind)
			for i := range credits {
				assert.True(t, credits[i].Weight >= 0, kind)
				assert.Equal(t, i+1, credits[i].Position, kind)
			}
		}
	}
}

func TestApplyAttributionModelSingleTouchpoint(t *testing.T) {
	kinds := []string{AttributionModelFirstTouch, AttributionModelLastTouch,
		AttributionModelLinear, AttributionModelTimeDecay, AttributionModelPositionBased}

	for _, kind := range kinds {
		journey := convertedJourney([]int64{testDayStart})
		credits, err := ApplyAttributionModel(journey, modelOfKind(kind, nil), nil)
		assert.Nil(t, err, kind)
		assert.Equal(t, 1.0, credits[0].Weight, kind)
	}
}

func TestApplyAttributionModelFirstAndLastTouch(t *testing.T) {
	journey := convertedJourney([]int64{testDayStart, testDayStart + 100, testDayStart + 200})

	credits, err := ApplyAttributionModel(journey, modelOfKind(AttributionModelFirstTouch, nil), nil)
	assert.Nil(t, err)
	assert.Equal(t, []float64{1, 0, 0},
		[]float64{credits[0].Weight, credits[1].Weight, credits[2].Weight})

	credits, err = ApplyAttributionModel(journey, modelOfKind(AttributionModelLastTouch, nil), nil)
	assert.Nil(t, err)
	assert.Equal(t, []float64{0, 0, 1},
		[]float64{credits[0].Weight, credits[1].Weight, credits[2].Weight})
}

func TestApplyAttributionModelLinear(t *testing.T) {
	journey := convertedJourney([]int64{testDayStart, testDayStart + 100,
		testDayStart + 200, testDayStart + 300})
	credits, err := ApplyAttributionModel(journey, modelOfKind(AttributionModelLinear, nil), nil)
	assert.Nil(t, err)
	for i := range credits {
		assert.InDelta(t, 0.25, credits[i].Weight, CreditEpsilon)
	}
}

func TestApplyAttributionModelTimeDecayHalfLife(t *testing.T) {
	// One touchpoint exactly one half-life before the other: its credit must
	// be exactly half.
	halfLife := 7.0
	journey := convertedJourney([]int64{
		testDayStart,
		testDayStart + int64(halfLife)*SecsInADay,
	})

	credits, err := ApplyAttributionModel(journey,
		modelOfKind(AttributionModelTimeDecay, &AttributionModelParams{HalfLifeDays: halfLife}), nil)
	assert.Nil(t, err)
	assert.InDelta(t, credits[1].Weight/2, credits[0].Weight, CreditEpsilon)
	assert.InDelta(t, 1.0/3.0, credits[0].Weight, 1e-9)
	assert.InDelta(t, 2.0/3.0, credits[1].Weight, 1e-9)
}

func TestApplyAttributionModelTimeDecayMonotonic(t *testing.T) {
	journey := convertedJourney([]int64{testDayStart, testDayStart + SecsInADay,
		testDayStart + 3*SecsInADay, testDayStart + 10*SecsInADay})

	credits, err := ApplyAttributionModel(journey, modelOfKind(AttributionModelTimeDecay, nil), nil)
	assert.Nil(t, err)
	for i := 1; i < len(credits); i++ {
		assert.True(t, credits[i].Weight >= credits[i-1].Weight,
			"later touchpoints must never get less credit")
	}
}

func TestApplyAttributionModelTimeDecayGapWidening(t *testing.T) {
	// Pushing the first touchpoint further from the conversion, while the
	// second stays put, must never increase the first one's credit relative
	// to the second's.
	am := modelOfKind(AttributionModelTimeDecay, &AttributionModelParams{HalfLifeDays: 7})
	conversion := testDayStart + 20*SecsInADay
	secondTouch := conversion - 2*SecsInADay

	previousRatio := 1.0
	for gapDays := int64(3); gapDays <= 15; gapDays += 3 {
		journey := convertedJourney([]int64{conversion - gapDays*SecsInADay, secondTouch, conversion})
		credits, err := ApplyAttributionModel(journey, am, nil)
		assert.Nil(t, err)

		ratio := credits[0].Weight / credits[1].Weight
		assert.True(t, ratio <= previousRatio+CreditEpsilon,
			"widening the gap must not increase the first touchpoint's relative credit")
		previousRatio = ratio
	}
}

func TestApplyAttributionModelPositionBased(t *testing.T) {
	params := &AttributionModelParams{FirstWeight: 0.4, MiddleWeight: 0.2, LastWeight: 0.4}

	// Five touchpoints: interior three split the middle share evenly.
	journey := convertedJourney([]int64{testDayStart, testDayStart + 100,
		testDayStart + 200, testDayStart + 300, testDayStart + 400})
	credits, err := ApplyAttributionModel(journey,
		modelOfKind(AttributionModelPositionBased, params), nil)
	assert.Nil(t, err)
	assert.InDelta(t, 0.4, credits[0].Weight, CreditEpsilon)
	assert.InDelta(t, 0.4, credits[4].Weight, CreditEpsilon)
	for i := 1; i <= 3; i++ {
		assert.InDelta(t, 0.2/3, credits[i].Weight, CreditEpsilon)
	}

	// Two touchpoints: first/last shares re-normalized, no middle.
	journey = convertedJourney([]int64{testDayStart, testDayStart + 100})
	credits, err = ApplyAttributionModel(journey,
		modelOfKind(AttributionModelPositionBased, params), nil)
	assert.Nil(t, err)
	assert.InDelta(t, 0.5, credits[0].Weight, CreditEpsilon)
	assert.InDelta(t, 0.5, credits[1].Weight, CreditEpsilon)

	// Asymmetric shares survive the two touchpoint collapse.
	params = &AttributionModelParams{FirstWeight: 0.6, MiddleWeight: 0.2, LastWeight: 0.2}
	credits, err = ApplyAttributionModel(journey,
		modelOfKind(AttributionModelPositionBased, params), nil)
	assert.Nil(t, err)
	assert.InDelta(t, 0.75, credits[0].Weight, CreditEpsilon)
	assert.InDelta(t, 0.25, credits[1].Weight, CreditEpsilon)
}

func TestApplyAttributionModelDataDriven(t *testing.T) {
	journey := convertedJourney([]int64{testDayStart, testDayStart + 100, testDayStart + 200})
	am := modelOfKind(AttributionModelDataDriven, nil)

	// Raw weights get normalized.
	hook := func(j *AssembledJourney) []float64 { return []float64{1, 2, 1} }
	credits, err := ApplyAttributionModel(journey, am, hook)
	assert.Nil(t, err)
	assert.InDelta(t, 0.25, credits[0].Weight, CreditEpsilon)
	assert.InDelta(t, 0.5, credits[1].Weight, CreditEpsilon)
	assert.InDelta(t, 0.25, credits[2].Weight, CreditEpsilon)

	// Missing hook falls back to linear.
	credits, err = ApplyAttributionModel(journey, am, nil)
	assert.Nil(t, err)
	for i := range credits {
		assert.InDelta(t, 1.0/3, credits[i].Weight, CreditEpsilon)
	}

	// Unusable weights fall back to linear.
	for _, badHook := range []DataDrivenHook{
		func(j *AssembledJourney) []float64 { return []float64{1, 2} },
		func(j *AssembledJourney) []float64 { return []float64{1, -1, 1} },
		func(j *AssembledJourney) []float64 { return []float64{0, 0, 0} },
	} {
		credits, err = ApplyAttributionModel(journey, am, badHook)
		assert.Nil(t, err)
		for i := range credits {
			assert.InDelta(t, 1.0/3, credits[i].Weight, CreditEpsilon)
		}
	}
}

func TestApplyAttributionModelPreconditions(t *testing.T) {
	journey := convertedJourney([]int64{testDayStart})
	journey.Journey.Status = JourneyStatusActive
	_, err := ApplyAttributionModel(journey, modelOfKind(AttributionModelLinear, nil), nil)
	assert.Equal(t, ErrJourneyNotTerminal, err)

	journey = convertedJourney([]int64{testDayStart})
	journey.Touchpoints = nil
	_, err = ApplyAttributionModel(journey, modelOfKind(AttributionModelLinear, nil), nil)
	assert.Equal(t, ErrNoTouchpoints, err)

	journey = convertedJourney([]int64{testDayStart})
	_, err = ApplyAttributionModel(journey, modelOfKind("median_touch", nil), nil)
	assert.Equal(t, ErrInvalidModelParams, err)
}

func TestApplyAttributionModelDeterminism(t *testing.T) {
	journey := convertedJourney([]int64{testDayStart, testDayStart + SecsInADay,
		testDayStart + 2*SecsInADay, testDayStart + 5*SecsInADay})

	for _, kind := range []string{AttributionModelLinear, AttributionModelTimeDecay,
		AttributionModelPositionBased} {
		am := modelOfKind(kind, nil)
		first, err := ApplyAttributionModel(journey, am, nil)
		assert.Nil(t, err)
		second, err := ApplyAttributionModel(journey, am, nil)
		assert.Nil(t, err)
		assert.True(t, reflect.DeepEqual(first, second),
			"same journey and model must yield bit-identical credits")
	}
}

func TestValidateAttributionModelParams(t *testing.T) {
	assert.Nil(t, ValidateAttributionModelParams(AttributionModelTimeDecay,
		&AttributionModelParams{HalfLifeDays: 7}))
	assert.NotNil(t, ValidateAttributionModelParams(AttributionModelTimeDecay,
		&AttributionModelParams{HalfLifeDays: -1}))
	// Zero means unset; the calculator applies DefaultHalfLifeDays.
	assert.Nil(t, ValidateAttributionModelParams(AttributionModelTimeDecay,
		&AttributionModelParams{}))

	assert.Nil(t, ValidateAttributionModelParams(AttributionModelPositionBased,
		&AttributionModelParams{FirstWeight: 0.4, MiddleWeight: 0.2, LastWeight: 0.4}))
	assert.NotNil(t, ValidateAttributionModelParams(AttributionModelPositionBased,
		&AttributionModelParams{FirstWeight: 0.5, MiddleWeight: 0.2, LastWeight: 0.4}))
	assert.NotNil(t, ValidateAttributionModelParams(AttributionModelPositionBased,
		&AttributionModelParams{FirstWeight: -0.2, MiddleWeight: 0.8, LastWeight: 0.4}))
	// All three unset is the 40/20/40 default, not a zero-sum error.
	assert.Nil(t, ValidateAttributionModelParams(AttributionModelPositionBased,
		&AttributionModelParams{}))
	// A partially set triple still has to sum to 1.
	assert.NotNil(t, ValidateAttributionModelParams(AttributionModelPositionBased,
		&AttributionModelParams{FirstWeight: 0.4}))
}

func TestApplyAttributionModelPositionBasedDefaults(t *testing.T) {
	// No params at all resolves to the 40/20/40 U-shape.
	journey := convertedJourney([]int64{testDayStart, testDayStart + 100,
		testDayStart + 200, testDayStart + 300, testDayStart + 400})
	credits, err := ApplyAttributionModel(journey,
		modelOfKind(AttributionModelPositionBased, nil), nil)
	assert.Nil(t, err)
	assert.InDelta(t, 0.4, credits[0].Weight, CreditEpsilon)
	assert.InDelta(t, 0.4, credits[4].Weight, CreditEpsilon)
	for i := 1; i <= 3; i++ {
		assert.InDelta(t, 0.2/3, credits[i].Weight, CreditEpsilon)
	}

	// Registered params with the zero triple behave the same way.
	credits, err = ApplyAttributionModel(journey,
		modelOfKind(AttributionModelPositionBased, &AttributionModelParams{}), nil)
	assert.Nil(t, err)
	assert.InDelta(t, 0.4, credits[0].Weight, CreditEpsilon)
	assert.InDelta(t, 0.2/3, credits[2].Weight, CreditEpsilon)
	assert.InDelta(t, 0.4, credits[4].Weight, CreditEpsilon)
}

func TestApplyAttributionModelTimeDecayDefaultHalfLife(t *testing.T) {
	// Half-life zero means unset; two touchpoints DefaultHalfLifeDays apart
	// must credit the earlier one exactly half of the later one.
	journey := convertedJourney([]int64{
		testDayStart,
		testDayStart + int64(DefaultHalfLifeDays)*SecsInADay,
	})
	credits, err := ApplyAttributionModel(journey,
		modelOfKind(AttributionModelTimeDecay, &AttributionModelParams{}), nil)
	assert.Nil(t, err)
	assert.InDelta(t, credits[1].Weight/2, credits[0].Weight, CreditEpsilon)
}

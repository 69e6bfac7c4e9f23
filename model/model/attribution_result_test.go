package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCurrencyMinorUnit(t *testing.T) {
	assert.Equal(t, 2, GetCurrencyMinorUnit("USD"))
	assert.Equal(t, 2, GetCurrencyMinorUnit("EUR"))
	assert.Equal(t, 0, GetCurrencyMinorUnit("JPY"))
	assert.Equal(t, 3, GetCurrencyMinorUnit("KWD"))
	assert.Equal(t, 2, GetCurrencyMinorUnit(""))
	assert.Equal(t, 2, GetCurrencyMinorUnit("XYZ"))
}

func weightsToCredits(weights []float64) []AttributionCredit {
	credits := make([]AttributionCredit, 0, len(weights))
	for i, weight := range weights {
		credits = append(credits, AttributionCredit{
			TouchpointID: "tp" + string(rune('a'+i)),
			Position:     i + 1,
			Weight:       weight,
		})
	}
	return credits
}

func sumOf(values []float64) float64 {
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum
}

func TestAllocateAttributedValueRemainderToFirstOnEqualWeights(t *testing.T) {
	// 100.00 split three ways leaves one cent; equal weights send it to the
	// earliest touchpoint.
	values, err := AllocateAttributedValue(weightsToCredits([]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}), 100.0, 2)
	assert.Nil(t, err)
	assert.Equal(t, []float64{33.34, 33.33, 33.33}, values)
	assert.InDelta(t, 100.0, sumOf(values), 1e-9)
}

func TestAllocateAttributedValueZeroMinorUnit(t *testing.T) {
	values, err := AllocateAttributedValue(weightsToCredits([]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}), 100.0, 0)
	assert.Nil(t, err)
	assert.Equal(t, []float64{34, 33, 33}, values)
	assert.Equal(t, 100.0, sumOf(values))
}

func TestAllocateAttributedValueRemainderToLargestWeight(t *testing.T) {
	// Every share rounds to zero cents; the largest weight absorbs the whole
	// value.
	values, err := AllocateAttributedValue(weightsToCredits([]float64{0.2, 0.5, 0.3}), 0.01, 2)
	assert.Nil(t, err)
	assert.Equal(t, []float64{0, 0.01, 0}, values)
}

func TestAllocateAttributedValueConservation(t *testing.T) {
	cases := []struct {
		weights   []float64
		value     float64
		minorUnit int
	}{
		{[]float64{1}, 99.99, 2},
		{[]float64{0.5, 0.5}, 0.05, 2},
		{[]float64{0.4, 0.2, 0.4}, 123.45, 2},
		{[]float64{0.1, 0.2, 0.3, 0.4}, 7777, 0},
		{[]float64{0.25, 0.25, 0.25, 0.25}, 10.001, 3},
		{[]float64{2.0 / 3, 1.0 / 3}, 0.0, 2},
	}

	for _, c := range cases {
		values, err := AllocateAttributedValue(weightsToCredits(c.weights), c.value, c.minorUnit)
		assert.Nil(t, err)

		factor := 1.0
		for i := 0; i < c.minorUnit; i++ {
			factor *= 10
		}
		var totalMinor int64
		for _, value := range values {
			totalMinor += int64(value*factor + 0.5)
		}
		assert.Equal(t, int64(c.value*factor+0.5), totalMinor)
	}
}

func TestAllocateAttributedValueNoCredits(t *testing.T) {
	_, err := AllocateAttributedValue(nil, 100.0, 2)
	assert.Equal(t, ErrNoTouchpoints, err)
}

func TestBuildAttributionResultsRewriteYieldsIdenticalRows(t *testing.T) {
	// Rewriting a (journey, model) pair is safe because the row set of a
	// scoring is a pure function of its inputs: two builds from the same
	// credits carry identical keys and content, so the keyed upsert leaves
	// storage exactly as after the first write.
	journey := convertedJourney([]int64{testDayStart, testDayStart + 3600,
		testDayStart + 7200})
	am := modelOfKind(AttributionModelLinear, nil)
	credits, err := ApplyAttributionModel(journey, am, nil)
	assert.Nil(t, err)

	computedAt := int64(1704100000)
	first, err := BuildAttributionResults(journey, am, credits, computedAt)
	assert.Nil(t, err)
	second, err := BuildAttributionResults(journey, am, credits, computedAt)
	assert.Nil(t, err)

	assert.Len(t, first, len(credits))
	assert.True(t, reflect.DeepEqual(first, second))

	seen := make(map[string]bool)
	totalValue := 0.0
	for i := range first {
		key := first[i].JourneyID + ":" + first[i].ModelID + ":" + first[i].TouchpointID
		assert.False(t, seen[key], "row keys must be unique within one scoring")
		seen[key] = true
		totalValue += first[i].AttributedValue
		assert.Equal(t, i+1, first[i].Position)
		assert.Equal(t, i == len(first)-1, first[i].IsLastTouch)
	}
	assert.InDelta(t, *journey.Journey.ConversionValue, totalValue, 1e-9)
}

func TestBuildAttributionResultsEmptyCredits(t *testing.T) {
	journey := convertedJourney([]int64{testDayStart})
	_, err := BuildAttributionResults(journey, modelOfKind(AttributionModelLinear, nil), nil, 1)
	assert.Equal(t, ErrNoTouchpoints, err)
}

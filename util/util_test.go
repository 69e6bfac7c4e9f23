package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUUID(t *testing.T) {
	id := GetUUID()
	assert.True(t, IsValidUUID(id))
	assert.NotEqual(t, id, GetUUID())
}

func TestFloat64Equal(t *testing.T) {
	assert.True(t, Float64Equal(1.0, 1.0, 1e-9))
	assert.True(t, Float64Equal(0.1+0.2, 0.3, 1e-9))
	assert.False(t, Float64Equal(1.0, 1.0001, 1e-9))
}

func TestContainsStringInArray(t *testing.T) {
	list := []string{"paid_search", "email", "direct"}
	assert.True(t, ContainsStringInArray(list, "email"))
	assert.False(t, ContainsStringInArray(list, "organic"))
	assert.False(t, ContainsStringInArray(nil, "email"))
}

func TestFloatRoundOffWithPrecision(t *testing.T) {
	value, err := FloatRoundOffWithPrecision(2.667, 2)
	assert.Nil(t, err)
	assert.Equal(t, 2.67, value)
}

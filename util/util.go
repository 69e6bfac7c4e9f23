package util

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

type TimeZoneString string

const (
	TimeZoneStringUTC TimeZoneString = "UTC"
)

// Aggregation granularities supported for attribution insights.
const (
	GranularityDays    = "days"
	GranularityWeek    = "week"
	GranularityMonth   = "month"
	GranularityQuarter = "quarter"
)

func GetUUID() string {
	return uuid.New().String()
}

func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// GetRequestID returns a sortable unique id for request scoping.
func GetRequestID() string {
	return xid.New().String()
}

// FloatRoundOffWithPrecision Rounds of a float64 value to given precision. Ex: 2.667 with precision 2 -> 2.67.
func FloatRoundOffWithPrecision(value float64, precision int) (float64, error) {
	valueString := fmt.Sprintf("%0.*f", precision, value)
	roundOffValue, err := strconv.ParseFloat(valueString, 64)
	if err != nil {
		log.WithFields(log.Fields{"value": value,
			"precision": precision}).Error("error while rounding off float value")
		return roundOffValue, err
	}
	return roundOffValue, nil
}

// Float64Equal compares two floats within the given epsilon.
func Float64Equal(a, b, epsilon float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= epsilon
}

func ContainsStringInArray(list []string, value string) bool {
	for _, val := range list {
		if val == value {
			return true
		}
	}
	return false
}

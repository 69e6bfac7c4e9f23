package util

import (
	"errors"
	"time"

	"github.com/jinzhu/now"
)

// Datetime related utility functions.
// General convention for date functions - suffix Z if utc based, In if timezone is passed.
const (
	DATETIME_FORMAT_YYYYMMDD string = "20060102"
)

// TimeNowZ Return current time in UTC. Should be used everywhere to avoid local timezone.
func TimeNowZ() time.Time {
	return time.Now().UTC()
}

// TimeNowUnix Returns current epoch time.
func TimeNowUnix() int64 {
	return TimeNowZ().Unix()
}

// GetDateOnlyFromTimestampZ Returns date in YYYYMMDD format.
func GetDateOnlyFromTimestampZ(timestamp int64) string {
	return time.Unix(timestamp, 0).UTC().Format(DATETIME_FORMAT_YYYYMMDD)
}

// GetBeginningOfDayTimestampIn Get's beginning of the day timestamp in given timezone.
func GetBeginningOfDayTimestampIn(timestamp int64, timezoneString TimeZoneString) int64 {
	location, _ := time.LoadLocation(string(timezoneString))
	t := time.Unix(timestamp, 0).In(location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Unix()
}

// GetEndOfDayTimestampIn Get's end of the day timestamp in given timezone.
func GetEndOfDayTimestampIn(timestamp int64, timezoneString TimeZoneString) int64 {
	location, _ := time.LoadLocation(string(timezoneString))
	t := time.Unix(timestamp, 0).In(location)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location()).Unix()
}

// GetPeriodStartTimestampIn Returns the beginning of the period containing
// timestamp for the given granularity, in the given timezone.
func GetPeriodStartTimestampIn(timestamp int64, granularity string,
	timezoneString TimeZoneString) (int64, error) {

	location, err := time.LoadLocation(string(timezoneString))
	if err != nil {
		return 0, err
	}
	t := time.Unix(timestamp, 0).In(location)

	switch granularity {
	case GranularityDays:
		return GetBeginningOfDayTimestampIn(timestamp, timezoneString), nil
	case GranularityWeek:
		return now.New(t).BeginningOfWeek().Unix(), nil
	case GranularityMonth:
		return now.New(t).BeginningOfMonth().Unix(), nil
	case GranularityQuarter:
		return now.New(t).BeginningOfQuarter().Unix(), nil
	}
	return 0, errors.New("invalid granularity")
}

// GetPeriodEndTimestampIn Returns the last second of the period starting at
// periodStart for the given granularity.
func GetPeriodEndTimestampIn(periodStart int64, granularity string,
	timezoneString TimeZoneString) (int64, error) {

	location, err := time.LoadLocation(string(timezoneString))
	if err != nil {
		return 0, err
	}
	t := time.Unix(periodStart, 0).In(location)

	switch granularity {
	case GranularityDays:
		return GetEndOfDayTimestampIn(periodStart, timezoneString), nil
	case GranularityWeek:
		return now.New(t).EndOfWeek().Unix(), nil
	case GranularityMonth:
		return now.New(t).EndOfMonth().Unix(), nil
	case GranularityQuarter:
		return now.New(t).EndOfQuarter().Unix(), nil
	}
	return 0, errors.New("invalid granularity")
}

// IsValidGranularity reports whether granularity is one of the supported
// aggregation window sizes.
func IsValidGranularity(granularity string) bool {
	switch granularity {
	case GranularityDays, GranularityWeek, GranularityMonth, GranularityQuarter:
		return true
	}
	return false
}

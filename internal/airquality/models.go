package airquality

import (
	"time"
)

// Level is the descriptive label for an AQI value, per the US EPA bands.
type Level string

const (
	LevelGood          Level = "Good"
	LevelModerate      Level = "Moderate"
	LevelSensitive     Level = "Unhealthy for Sensitive Groups"
	LevelUnhealthy     Level = "Unhealthy"
	LevelVeryUnhealthy Level = "Very Unhealthy"
	LevelHazardous     Level = "Hazardous"
)

// LevelForAQI maps a non-negative AQI value to its descriptive level.
func LevelForAQI(aqi int) Level {
	switch {
	case aqi <= 50:
		return LevelGood
	case aqi <= 100:
		return LevelModerate
	case aqi <= 150:
		return LevelSensitive
	case aqi <= 200:
		return LevelUnhealthy
	case aqi <= 300:
		return LevelVeryUnhealthy
	default:
		return LevelHazardous
	}
}

// pollutantNames maps AirVisual pollutant codes to readable names.
var pollutantNames = map[string]string{
	"p2": "PM2.5",
	"p1": "PM10",
	"o3": "Ozone",
	"n2": "NO2",
	"s2": "SO2",
	"co": "CO",
}

// PollutantName converts an AirVisual pollutant code to a readable name.
// Unknown codes are returned verbatim.
func PollutantName(code string) string {
	if name, ok := pollutantNames[code]; ok {
		return name
	}
	return code
}

// KnownPollutant reports whether code is one of the documented AirVisual codes.
func KnownPollutant(code string) bool {
	_, ok := pollutantNames[code]
	return ok
}

// Reading is a single validated air-quality observation.
type Reading struct {
	AQI           int       `json:"aqi"`
	MainPollutant string    `json:"mainPollutant"`
	Level         Level     `json:"aqiLevel"`
	ObservedAt    time.Time `json:"observedAt"` // always UTC
}

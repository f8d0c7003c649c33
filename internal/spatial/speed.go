package spatial

import (
	"math"
	"time"
)

// Speed calculates an average speed in m/s over a distance (meters) and a
// duration. Zero or negative durations yield NaN so that degenerate segments
// can be flagged downstream instead of aborting a batch.
func Speed(distance float64, duration time.Duration) float64 {
	if duration <= 0 {
		return math.NaN()
	}
	return distance / duration.Seconds()
}

// KmhToMs converts km/h to m/s
func KmhToMs(kmh float64) float64 {
	return kmh / 3.6
}

// MsToKmh converts m/s to km/h
func MsToKmh(ms float64) float64 {
	return ms * 3.6
}

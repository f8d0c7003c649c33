package models

import (
	"time"

	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// TransportMode constants. The coarse three-class scheme comes from speed
// band classification; the finer labels are available through custom bands.
const (
	ModeSlow      = "SLOW_MOBILITY"      // < 15 km/h, e.g. walking, cycling
	ModeMotorized = "MOTORIZED_MOBILITY" // < 100 km/h, e.g. car, bus, tram
	ModeFast      = "FAST_MOBILITY"      // >= 100 km/h, e.g. high-speed rail, plane
	ModeWalk      = "WALK"
	ModeBike      = "BIKE"
	ModeCar       = "CAR"
	ModeBus       = "BUS_TRAM"
	ModeTrain     = "TRAIN"
	ModePlane     = "PLANE"
	ModeUnknown   = "UNKNOWN"
)

// Tripleg represents continuous movement between two staypoints. Invariant:
// it is immediately preceded and followed by a staypoint or a sequence
// boundary; two triplegs are never temporally adjacent without an
// intervening staypoint.
type Tripleg struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`

	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`

	// Ordered linestring of member positionfix coordinates
	Geom []spatial.Point `json:"geom" db:"geom"`

	// Predicted transport mode; empty until predicted
	Mode string `json:"mode,omitempty" db:"mode"`

	TripID *int64 `json:"trip_id,omitempty" db:"trip_id"`
}

// Duration returns the travel time of the tripleg
func (t Tripleg) Duration() time.Duration {
	return t.FinishedAt.Sub(t.StartedAt)
}

// Length returns the haversine length of the tripleg geometry in meters
func (t Tripleg) Length() float64 {
	return spatial.PathLength(t.Geom)
}

// TriplegsResponse represents a paginated response of triplegs
type TriplegsResponse struct {
	Data       []Tripleg `json:"data"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
}

package models

import "time"

// Staypoint represents a period of quasi-stationary presence detected from a
// run of temporally and spatially close positionfixes. Invariant:
// StartedAt < FinishedAt, and for a given user staypoints and triplegs tile
// the tracked time without overlap.
type Staypoint struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`

	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`

	// Center of the member positionfixes
	Latitude  float64  `json:"latitude" db:"latitude"`
	Longitude float64  `json:"longitude" db:"longitude"`
	Elevation *float64 `json:"elevation,omitempty" db:"elevation"`

	// Semantic annotation
	Purpose *string `json:"purpose,omitempty" db:"purpose"`

	// Activity flag set by the inference module; nil until labeled
	Activity *bool `json:"activity,omitempty" db:"activity"`

	// Weak references resolved by later pipeline stages
	LocationID *int64 `json:"location_id,omitempty" db:"location_id"`
	TripID     *int64 `json:"trip_id,omitempty" db:"trip_id"`
	PrevTripID *int64 `json:"prev_trip_id,omitempty" db:"prev_trip_id"`
	NextTripID *int64 `json:"next_trip_id,omitempty" db:"next_trip_id"`
}

// Duration returns the length of the stay
func (s Staypoint) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// IsActivity reports whether the staypoint has been flagged as an activity
func (s Staypoint) IsActivity() bool {
	return s.Activity != nil && *s.Activity
}

// StaypointsResponse represents a paginated response of staypoints
type StaypointsResponse struct {
	Data       []Staypoint `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

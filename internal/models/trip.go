package models

import "time"

// Trip represents movement between two consecutive activity staypoints. All
// triplegs and any intervening non-activity staypoints in between belong to
// the trip. Origin/destination are nil when the trip starts or ends in a
// recording gap (unknown activity).
type Trip struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`

	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`

	OriginStaypointID      *int64 `json:"origin_staypoint_id,omitempty" db:"origin_staypoint_id"`
	DestinationStaypointID *int64 `json:"destination_staypoint_id,omitempty" db:"destination_staypoint_id"`
}

// Duration returns the time span of the trip
func (t Trip) Duration() time.Duration {
	return t.FinishedAt.Sub(t.StartedAt)
}

// TripsResponse represents a paginated response of trips
type TripsResponse struct {
	Data       []Trip `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

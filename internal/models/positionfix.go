package models

import "time"

// Positionfix represents a raw timestamped GPS point. Positionfixes are
// immutable input: the segmentation engine never changes tracked_at or the
// coordinates, it only annotates the fix with the id of the staypoint or
// tripleg it was absorbed into.
type Positionfix struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	TrackedAt time.Time `json:"tracked_at" db:"tracked_at"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`

	// Optional sensor fields
	Accuracy  *float64 `json:"accuracy,omitempty" db:"accuracy"`
	Elevation *float64 `json:"elevation,omitempty" db:"elevation"`

	// Back-references filled in by the segmentation engine. A fix belongs to
	// at most one of the two.
	StaypointID *int64 `json:"staypoint_id,omitempty" db:"staypoint_id"`
	TriplegID   *int64 `json:"tripleg_id,omitempty" db:"tripleg_id"`
}

// PositionfixesResponse represents a paginated response of positionfixes
type PositionfixesResponse struct {
	Data       []Positionfix `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

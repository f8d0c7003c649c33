package models

import "time"

// Tour represents a closed chain of consecutive trips whose first origin and
// last destination resolve to the same location. Tours and trips are
// many-to-many: nested and overlapping tours share trips, so membership is
// kept in an explicit assignment table rather than an embedded list.
type Tour struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`

	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`

	// Anchor location shared by the first origin and last destination
	OriginDestinationLocationID *int64 `json:"origin_destination_location_id,omitempty" db:"origin_destination_location_id"`

	// True when the anchor location is the user's designated home location
	Journey bool `json:"journey" db:"journey"`
}

// TripTourAssignment is a row of the trip/tour join table. Position is the
// chronological rank of the trip within the tour.
type TripTourAssignment struct {
	TripID   int64 `json:"trip_id" db:"trip_id"`
	TourID   int64 `json:"tour_id" db:"tour_id"`
	Position int   `json:"position" db:"position"`
}

// ToursResponse represents a paginated response of tours
type ToursResponse struct {
	Data       []Tour `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

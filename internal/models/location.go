package models

import "github.com/jharte/mobility-backend-go/internal/spatial"

// Location represents a persistent place derived by clustering recurring
// staypoints. Many staypoints reference one location; the location does not
// own its staypoints.
type Location struct {
	ID int64 `json:"id" db:"id"`

	// nil for dataset-level clustering rows that are shared across users
	UserID *int64 `json:"user_id,omitempty" db:"user_id"`

	// Centroid of member staypoints
	Center spatial.Point `json:"center" db:"center"`

	// Convex hull of member staypoints, or an epsilon buffer when members
	// collapse to a point or a line
	Extent []spatial.Point `json:"extent,omitempty" db:"extent"`
}

// LocationsResponse represents a paginated response of locations
type LocationsResponse struct {
	Data       []Location `json:"data"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

package models

// PositionfixFilter represents filter parameters for querying positionfixes
type PositionfixFilter struct {
	UserID    int64  `form:"userId"`
	StartTime string `form:"startTime"` // RFC3339
	EndTime   string `form:"endTime"`   // RFC3339
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// StaypointFilter represents filter parameters for querying staypoints
type StaypointFilter struct {
	UserID       int64  `form:"userId"`
	LocationID   int64  `form:"locationId"`
	TripID       int64  `form:"tripId"`
	ActivityOnly bool   `form:"activityOnly"`
	MinDuration  int64  `form:"minDuration"` // seconds
	StartTime    string `form:"startTime"`
	EndTime      string `form:"endTime"`
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
}

// TriplegFilter represents filter parameters for querying triplegs
type TriplegFilter struct {
	UserID    int64  `form:"userId"`
	Mode      string `form:"mode"`
	TripID    int64  `form:"tripId"`
	StartTime string `form:"startTime"`
	EndTime   string `form:"endTime"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// TripFilter represents filter parameters for querying trips
type TripFilter struct {
	UserID    int64  `form:"userId"`
	StartTime string `form:"startTime"`
	EndTime   string `form:"endTime"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// TourFilter represents filter parameters for querying tours
type TourFilter struct {
	UserID      int64 `form:"userId"`
	JourneyOnly bool  `form:"journeyOnly"`
	Page        int   `form:"page"`
	PageSize    int   `form:"pageSize"`
}

// LocationFilter represents filter parameters for querying locations
type LocationFilter struct {
	UserID   int64 `form:"userId"`
	Page     int   `form:"page"`
	PageSize int   `form:"pageSize"`
}

package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jharte/mobility-backend-go/internal/models"
)

// StaypointRepository handles database operations for staypoints
type StaypointRepository struct {
	db *sql.DB
}

// NewStaypointRepository creates a new staypoint repository
func NewStaypointRepository(db *sql.DB) *StaypointRepository {
	return &StaypointRepository{db: db}
}

const staypointColumns = `id, user_id, started_at, finished_at, latitude, longitude,
	elevation, purpose, activity, location_id, trip_id, prev_trip_id, next_trip_id`

func scanStaypoint(scanner interface{ Scan(...interface{}) error }) (models.Staypoint, error) {
	var sp models.Staypoint
	var startedAt, finishedAt string
	err := scanner.Scan(
		&sp.ID, &sp.UserID, &startedAt, &finishedAt, &sp.Latitude, &sp.Longitude,
		&sp.Elevation, &sp.Purpose, &sp.Activity, &sp.LocationID,
		&sp.TripID, &sp.PrevTripID, &sp.NextTripID,
	)
	if err != nil {
		return sp, err
	}
	if sp.StartedAt, err = parseTime(startedAt); err != nil {
		return sp, err
	}
	sp.FinishedAt, err = parseTime(finishedAt)
	return sp, err
}

// List retrieves staypoints with filtering and pagination
func (r *StaypointRepository) List(filter models.StaypointFilter) ([]models.Staypoint, int64, error) {
	query := "SELECT " + staypointColumns + " FROM staypoints"

	var conditions []string
	var args []interface{}

	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.LocationID > 0 {
		conditions = append(conditions, "location_id = ?")
		args = append(args, filter.LocationID)
	}
	if filter.TripID > 0 {
		conditions = append(conditions, "trip_id = ?")
		args = append(args, filter.TripID)
	}
	if filter.ActivityOnly {
		conditions = append(conditions, "activity = 1")
	}
	if filter.MinDuration > 0 {
		conditions = append(conditions, "(julianday(finished_at) - julianday(started_at)) * 86400 >= ?")
		args = append(args, filter.MinDuration)
	}
	if filter.StartTime != "" {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime != "" {
		conditions = append(conditions, "finished_at <= ?")
		args = append(args, filter.EndTime)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM staypoints"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count staypoints: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}
	offset := (filter.Page - 1) * filter.PageSize

	query += where + " ORDER BY user_id, started_at LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query staypoints: %w", err)
	}
	defer rows.Close()

	var sps []models.Staypoint
	for rows.Next() {
		sp, err := scanStaypoint(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan staypoint: %w", err)
		}
		sps = append(sps, sp)
	}

	return sps, total, rows.Err()
}

// GetByID retrieves a single staypoint by ID, nil when not found
func (r *StaypointRepository) GetByID(id int64) (*models.Staypoint, error) {
	row := r.db.QueryRow("SELECT "+staypointColumns+" FROM staypoints WHERE id = ?", id)
	sp, err := scanStaypoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staypoint: %w", err)
	}
	return &sp, nil
}

// AllOrdered retrieves every staypoint ordered by user and start time
func (r *StaypointRepository) AllOrdered() ([]models.Staypoint, error) {
	rows, err := r.db.Query("SELECT " + staypointColumns +
		" FROM staypoints ORDER BY user_id, started_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query staypoints: %w", err)
	}
	defer rows.Close()

	var sps []models.Staypoint
	for rows.Next() {
		sp, err := scanStaypoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staypoint: %w", err)
		}
		sps = append(sps, sp)
	}
	return sps, rows.Err()
}

// ReplaceAll clears the table and inserts the given staypoints with their
// engine-assigned ids. Used by full pipeline recomputes.
func (r *StaypointRepository) ReplaceAll(tx *sql.Tx, sps []models.Staypoint) error {
	if _, err := tx.Exec("DELETE FROM staypoints"); err != nil {
		return fmt.Errorf("failed to clear staypoints: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO staypoints (id, user_id, started_at, finished_at, latitude, longitude,
			elevation, purpose, activity, location_id, trip_id, prev_trip_id, next_trip_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare staypoint insert: %w", err)
	}
	defer stmt.Close()

	for _, sp := range sps {
		if _, err := stmt.Exec(sp.ID, sp.UserID, formatTime(sp.StartedAt), formatTime(sp.FinishedAt),
			sp.Latitude, sp.Longitude, sp.Elevation, sp.Purpose, sp.Activity,
			sp.LocationID, sp.TripID, sp.PrevTripID, sp.NextTripID); err != nil {
			return fmt.Errorf("failed to insert staypoint %d: %w", sp.ID, err)
		}
	}
	return nil
}

// UpdateLocations rewrites the location references after clustering
func (r *StaypointRepository) UpdateLocations(tx *sql.Tx, sps []models.Staypoint) error {
	stmt, err := tx.Prepare("UPDATE staypoints SET location_id = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare location update: %w", err)
	}
	defer stmt.Close()

	for _, sp := range sps {
		if _, err := stmt.Exec(sp.LocationID, sp.ID); err != nil {
			return fmt.Errorf("failed to update location for staypoint %d: %w", sp.ID, err)
		}
	}
	return nil
}

// UpdateActivityFlags rewrites the activity flags after inference
func (r *StaypointRepository) UpdateActivityFlags(tx *sql.Tx, sps []models.Staypoint) error {
	stmt, err := tx.Prepare("UPDATE staypoints SET activity = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare activity update: %w", err)
	}
	defer stmt.Close()

	for _, sp := range sps {
		if _, err := stmt.Exec(sp.Activity, sp.ID); err != nil {
			return fmt.Errorf("failed to update activity for staypoint %d: %w", sp.ID, err)
		}
	}
	return nil
}

// UpdateTripRefs rewrites the trip references after trip generation
func (r *StaypointRepository) UpdateTripRefs(tx *sql.Tx, sps []models.Staypoint) error {
	stmt, err := tx.Prepare(
		"UPDATE staypoints SET trip_id = ?, prev_trip_id = ?, next_trip_id = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare trip ref update: %w", err)
	}
	defer stmt.Close()

	for _, sp := range sps {
		if _, err := stmt.Exec(sp.TripID, sp.PrevTripID, sp.NextTripID, sp.ID); err != nil {
			return fmt.Errorf("failed to update trip refs for staypoint %d: %w", sp.ID, err)
		}
	}
	return nil
}

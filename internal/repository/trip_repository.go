package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jharte/mobility-backend-go/internal/models"
)

// TripRepository handles database operations for trips
type TripRepository struct {
	db *sql.DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripColumns = "id, user_id, started_at, finished_at, origin_staypoint_id, destination_staypoint_id"

func scanTrip(scanner interface{ Scan(...interface{}) error }) (models.Trip, error) {
	var t models.Trip
	var startedAt, finishedAt string
	err := scanner.Scan(&t.ID, &t.UserID, &startedAt, &finishedAt,
		&t.OriginStaypointID, &t.DestinationStaypointID)
	if err != nil {
		return t, err
	}
	if t.StartedAt, err = parseTime(startedAt); err != nil {
		return t, err
	}
	t.FinishedAt, err = parseTime(finishedAt)
	return t, err
}

// List retrieves trips with filtering and pagination
func (r *TripRepository) List(filter models.TripFilter) ([]models.Trip, int64, error) {
	query := "SELECT " + tripColumns + " FROM trips"

	var conditions []string
	var args []interface{}

	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
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
	if err := r.db.QueryRow("SELECT COUNT(*) FROM trips"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
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
		return nil, 0, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}

	return trips, total, rows.Err()
}

// GetByID retrieves a single trip by ID, nil when not found
func (r *TripRepository) GetByID(id int64) (*models.Trip, error) {
	row := r.db.QueryRow("SELECT "+tripColumns+" FROM trips WHERE id = ?", id)
	t, err := scanTrip(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &t, nil
}

// AllOrdered retrieves every trip ordered by user and start time
func (r *TripRepository) AllOrdered() ([]models.Trip, error) {
	rows, err := r.db.Query("SELECT " + tripColumns + " FROM trips ORDER BY user_id, started_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// ReplaceAll clears the table and inserts the given trips with their
// engine-assigned ids. Used by full pipeline recomputes.
func (r *TripRepository) ReplaceAll(tx *sql.Tx, trips []models.Trip) error {
	if _, err := tx.Exec("DELETE FROM trips"); err != nil {
		return fmt.Errorf("failed to clear trips: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO trips (id, user_id, started_at, finished_at,
			origin_staypoint_id, destination_staypoint_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare trip insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trips {
		if _, err := stmt.Exec(t.ID, t.UserID, formatTime(t.StartedAt), formatTime(t.FinishedAt),
			t.OriginStaypointID, t.DestinationStaypointID); err != nil {
			return fmt.Errorf("failed to insert trip %d: %w", t.ID, err)
		}
	}
	return nil
}

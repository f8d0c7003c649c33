package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jharte/mobility-backend-go/internal/models"
)

// TourRepository handles database operations for tours and the trip/tour
// assignment table
type TourRepository struct {
	db *sql.DB
}

// NewTourRepository creates a new tour repository
func NewTourRepository(db *sql.DB) *TourRepository {
	return &TourRepository{db: db}
}

const tourColumns = "id, user_id, started_at, finished_at, origin_destination_location_id, journey"

func scanTour(scanner interface{ Scan(...interface{}) error }) (models.Tour, error) {
	var t models.Tour
	var startedAt, finishedAt string
	err := scanner.Scan(&t.ID, &t.UserID, &startedAt, &finishedAt,
		&t.OriginDestinationLocationID, &t.Journey)
	if err != nil {
		return t, err
	}
	if t.StartedAt, err = parseTime(startedAt); err != nil {
		return t, err
	}
	t.FinishedAt, err = parseTime(finishedAt)
	return t, err
}

// List retrieves tours with filtering and pagination
func (r *TourRepository) List(filter models.TourFilter) ([]models.Tour, int64, error) {
	query := "SELECT " + tourColumns + " FROM tours"

	var conditions []string
	var args []interface{}

	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.JourneyOnly {
		conditions = append(conditions, "journey = 1")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tours"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tours: %w", err)
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
		return nil, 0, fmt.Errorf("failed to query tours: %w", err)
	}
	defer rows.Close()

	var tours []models.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, t)
	}

	return tours, total, rows.Err()
}

// GetByID retrieves a single tour by ID, nil when not found
func (r *TourRepository) GetByID(id int64) (*models.Tour, error) {
	row := r.db.QueryRow("SELECT "+tourColumns+" FROM tours WHERE id = ?", id)
	t, err := scanTour(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return &t, nil
}

// Assignments retrieves the ordered trip memberships of a tour
func (r *TourRepository) Assignments(tourID int64) ([]models.TripTourAssignment, error) {
	rows, err := r.db.Query(
		"SELECT trip_id, tour_id, position FROM trip_tour_assignments WHERE tour_id = ? ORDER BY position",
		tourID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tour assignments: %w", err)
	}
	defer rows.Close()

	var asg []models.TripTourAssignment
	for rows.Next() {
		var a models.TripTourAssignment
		if err := rows.Scan(&a.TripID, &a.TourID, &a.Position); err != nil {
			return nil, fmt.Errorf("failed to scan tour assignment: %w", err)
		}
		asg = append(asg, a)
	}
	return asg, rows.Err()
}

// ReplaceAll clears both tables and inserts the given tours and assignments
// with their engine-assigned ids. Used by full pipeline recomputes.
func (r *TourRepository) ReplaceAll(tx *sql.Tx, tours []models.Tour, assignments []models.TripTourAssignment) error {
	if _, err := tx.Exec("DELETE FROM trip_tour_assignments"); err != nil {
		return fmt.Errorf("failed to clear tour assignments: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM tours"); err != nil {
		return fmt.Errorf("failed to clear tours: %w", err)
	}

	tourStmt, err := tx.Prepare(`
		INSERT INTO tours (id, user_id, started_at, finished_at,
			origin_destination_location_id, journey)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare tour insert: %w", err)
	}
	defer tourStmt.Close()

	for _, t := range tours {
		if _, err := tourStmt.Exec(t.ID, t.UserID, formatTime(t.StartedAt), formatTime(t.FinishedAt),
			t.OriginDestinationLocationID, t.Journey); err != nil {
			return fmt.Errorf("failed to insert tour %d: %w", t.ID, err)
		}
	}

	asgStmt, err := tx.Prepare(
		"INSERT INTO trip_tour_assignments (trip_id, tour_id, position) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare assignment insert: %w", err)
	}
	defer asgStmt.Close()

	for _, a := range assignments {
		if _, err := asgStmt.Exec(a.TripID, a.TourID, a.Position); err != nil {
			return fmt.Errorf("failed to insert assignment trip %d tour %d: %w", a.TripID, a.TourID, err)
		}
	}
	return nil
}

package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
)

// Timestamps are stored as RFC 3339 text so each user's UTC offset survives
// the round trip through SQLite.
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// PositionfixRepository handles database operations for positionfixes
type PositionfixRepository struct {
	db *sql.DB
}

// NewPositionfixRepository creates a new positionfix repository
func NewPositionfixRepository(db *sql.DB) *PositionfixRepository {
	return &PositionfixRepository{db: db}
}

const positionfixColumns = `id, user_id, tracked_at, latitude, longitude,
	elevation, accuracy, staypoint_id, tripleg_id`

func scanPositionfix(scanner interface{ Scan(...interface{}) error }) (models.Positionfix, error) {
	var pf models.Positionfix
	var trackedAt string
	err := scanner.Scan(
		&pf.ID, &pf.UserID, &trackedAt, &pf.Latitude, &pf.Longitude,
		&pf.Elevation, &pf.Accuracy, &pf.StaypointID, &pf.TriplegID,
	)
	if err != nil {
		return pf, err
	}
	pf.TrackedAt, err = parseTime(trackedAt)
	return pf, err
}

// List retrieves positionfixes with filtering and pagination
func (r *PositionfixRepository) List(filter models.PositionfixFilter) ([]models.Positionfix, int64, error) {
	query := "SELECT " + positionfixColumns + " FROM positionfixes"

	var conditions []string
	var args []interface{}

	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.StartTime != "" {
		conditions = append(conditions, "tracked_at >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime != "" {
		conditions = append(conditions, "tracked_at <= ?")
		args = append(args, filter.EndTime)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM positionfixes"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count positionfixes: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 10000 {
		filter.PageSize = 10000
	}
	offset := (filter.Page - 1) * filter.PageSize

	query += where + " ORDER BY user_id, tracked_at LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query positionfixes: %w", err)
	}
	defer rows.Close()

	var pfs []models.Positionfix
	for rows.Next() {
		pf, err := scanPositionfix(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan positionfix: %w", err)
		}
		pfs = append(pfs, pf)
	}

	return pfs, total, rows.Err()
}

// AllOrdered retrieves every positionfix ordered by user and time, the
// ingestion contract the pipeline engines expect.
func (r *PositionfixRepository) AllOrdered() ([]models.Positionfix, error) {
	rows, err := r.db.Query("SELECT " + positionfixColumns +
		" FROM positionfixes ORDER BY user_id, tracked_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query positionfixes: %w", err)
	}
	defer rows.Close()

	var pfs []models.Positionfix
	for rows.Next() {
		pf, err := scanPositionfix(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan positionfix: %w", err)
		}
		pfs = append(pfs, pf)
	}
	return pfs, rows.Err()
}

// Count returns the number of stored positionfixes
func (r *PositionfixRepository) Count() (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM positionfixes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count positionfixes: %w", err)
	}
	return count, nil
}

// BulkInsert inserts a batch of positionfixes inside one transaction and
// returns the number of inserted rows.
func (r *PositionfixRepository) BulkInsert(tx *sql.Tx, pfs []models.Positionfix) (int64, error) {
	stmt, err := tx.Prepare(`
		INSERT INTO positionfixes (user_id, tracked_at, latitude, longitude, elevation, accuracy)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare positionfix insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, pf := range pfs {
		if _, err := stmt.Exec(pf.UserID, formatTime(pf.TrackedAt), pf.Latitude, pf.Longitude,
			pf.Elevation, pf.Accuracy); err != nil {
			return inserted, fmt.Errorf("failed to insert positionfix: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// UpdateSegmentRefs rewrites the staypoint/tripleg back-references of the
// given fixes. Used by the segmentation stage after a recompute.
func (r *PositionfixRepository) UpdateSegmentRefs(tx *sql.Tx, pfs []models.Positionfix) error {
	stmt, err := tx.Prepare("UPDATE positionfixes SET staypoint_id = ?, tripleg_id = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare segment ref update: %w", err)
	}
	defer stmt.Close()

	for _, pf := range pfs {
		if _, err := stmt.Exec(pf.StaypointID, pf.TriplegID, pf.ID); err != nil {
			return fmt.Errorf("failed to update segment refs for positionfix %d: %w", pf.ID, err)
		}
	}
	return nil
}

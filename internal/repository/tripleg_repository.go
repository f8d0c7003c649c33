package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// TriplegRepository handles database operations for triplegs
type TriplegRepository struct {
	db *sql.DB
}

// NewTriplegRepository creates a new tripleg repository
func NewTriplegRepository(db *sql.DB) *TriplegRepository {
	return &TriplegRepository{db: db}
}

const triplegColumns = "id, user_id, started_at, finished_at, mode, trip_id, geom"

func marshalGeom(geom []spatial.Point) (string, error) {
	b, err := json.Marshal(geom)
	if err != nil {
		return "", fmt.Errorf("failed to encode geometry: %w", err)
	}
	return string(b), nil
}

func scanTripleg(scanner interface{ Scan(...interface{}) error }) (models.Tripleg, error) {
	var tpl models.Tripleg
	var startedAt, finishedAt, geom string
	var mode sql.NullString
	err := scanner.Scan(
		&tpl.ID, &tpl.UserID, &startedAt, &finishedAt, &mode, &tpl.TripID, &geom,
	)
	if err != nil {
		return tpl, err
	}
	tpl.Mode = mode.String
	if tpl.StartedAt, err = parseTime(startedAt); err != nil {
		return tpl, err
	}
	if tpl.FinishedAt, err = parseTime(finishedAt); err != nil {
		return tpl, err
	}
	if err := json.Unmarshal([]byte(geom), &tpl.Geom); err != nil {
		return tpl, fmt.Errorf("failed to decode geometry of tripleg %d: %w", tpl.ID, err)
	}
	return tpl, nil
}

// List retrieves triplegs with filtering and pagination
func (r *TriplegRepository) List(filter models.TriplegFilter) ([]models.Tripleg, int64, error) {
	query := "SELECT " + triplegColumns + " FROM triplegs"

	var conditions []string
	var args []interface{}

	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Mode != "" {
		conditions = append(conditions, "mode = ?")
		args = append(args, filter.Mode)
	}
	if filter.TripID > 0 {
		conditions = append(conditions, "trip_id = ?")
		args = append(args, filter.TripID)
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
	if err := r.db.QueryRow("SELECT COUNT(*) FROM triplegs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count triplegs: %w", err)
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
		return nil, 0, fmt.Errorf("failed to query triplegs: %w", err)
	}
	defer rows.Close()

	var tpls []models.Tripleg
	for rows.Next() {
		tpl, err := scanTripleg(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan tripleg: %w", err)
		}
		tpls = append(tpls, tpl)
	}

	return tpls, total, rows.Err()
}

// GetByID retrieves a single tripleg by ID, nil when not found
func (r *TriplegRepository) GetByID(id int64) (*models.Tripleg, error) {
	row := r.db.QueryRow("SELECT "+triplegColumns+" FROM triplegs WHERE id = ?", id)
	tpl, err := scanTripleg(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tripleg: %w", err)
	}
	return &tpl, nil
}

// AllOrdered retrieves every tripleg ordered by user and start time
func (r *TriplegRepository) AllOrdered() ([]models.Tripleg, error) {
	rows, err := r.db.Query("SELECT " + triplegColumns +
		" FROM triplegs ORDER BY user_id, started_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query triplegs: %w", err)
	}
	defer rows.Close()

	var tpls []models.Tripleg
	for rows.Next() {
		tpl, err := scanTripleg(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tripleg: %w", err)
		}
		tpls = append(tpls, tpl)
	}
	return tpls, rows.Err()
}

// ReplaceAll clears the table and inserts the given triplegs with their
// engine-assigned ids. Used by full pipeline recomputes.
func (r *TriplegRepository) ReplaceAll(tx *sql.Tx, tpls []models.Tripleg) error {
	if _, err := tx.Exec("DELETE FROM triplegs"); err != nil {
		return fmt.Errorf("failed to clear triplegs: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO triplegs (id, user_id, started_at, finished_at, mode, trip_id, geom)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare tripleg insert: %w", err)
	}
	defer stmt.Close()

	for _, tpl := range tpls {
		geom, err := marshalGeom(tpl.Geom)
		if err != nil {
			return err
		}
		var mode interface{}
		if tpl.Mode != "" {
			mode = tpl.Mode
		}
		if _, err := stmt.Exec(tpl.ID, tpl.UserID, formatTime(tpl.StartedAt),
			formatTime(tpl.FinishedAt), mode, tpl.TripID, geom); err != nil {
			return fmt.Errorf("failed to insert tripleg %d: %w", tpl.ID, err)
		}
	}
	return nil
}

// UpdateModes rewrites the transport mode labels after inference
func (r *TriplegRepository) UpdateModes(tx *sql.Tx, tpls []models.Tripleg) error {
	stmt, err := tx.Prepare("UPDATE triplegs SET mode = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare mode update: %w", err)
	}
	defer stmt.Close()

	for _, tpl := range tpls {
		if _, err := stmt.Exec(tpl.Mode, tpl.ID); err != nil {
			return fmt.Errorf("failed to update mode for tripleg %d: %w", tpl.ID, err)
		}
	}
	return nil
}

// UpdateTripRefs rewrites the trip references after trip generation
func (r *TriplegRepository) UpdateTripRefs(tx *sql.Tx, tpls []models.Tripleg) error {
	stmt, err := tx.Prepare("UPDATE triplegs SET trip_id = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare trip ref update: %w", err)
	}
	defer stmt.Close()

	for _, tpl := range tpls {
		if _, err := stmt.Exec(tpl.TripID, tpl.ID); err != nil {
			return fmt.Errorf("failed to update trip ref for tripleg %d: %w", tpl.ID, err)
		}
	}
	return nil
}

package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jharte/mobility-backend-go/internal/models"
)

// LocationRepository handles database operations for locations
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

const locationColumns = "id, user_id, center_lat, center_lon, extent"

func scanLocation(scanner interface{ Scan(...interface{}) error }) (models.Location, error) {
	var loc models.Location
	var extent sql.NullString
	err := scanner.Scan(&loc.ID, &loc.UserID, &loc.Center.Lat, &loc.Center.Lon, &extent)
	if err != nil {
		return loc, err
	}
	if extent.Valid {
		if err := json.Unmarshal([]byte(extent.String), &loc.Extent); err != nil {
			return loc, fmt.Errorf("failed to decode extent of location %d: %w", loc.ID, err)
		}
	}
	return loc, nil
}

// List retrieves locations with filtering and pagination
func (r *LocationRepository) List(filter models.LocationFilter) ([]models.Location, int64, error) {
	query := "SELECT " + locationColumns + " FROM locations"

	var conditions []string
	var args []interface{}

	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM locations"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count locations: %w", err)
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

	query += where + " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locs []models.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan location: %w", err)
		}
		locs = append(locs, loc)
	}

	return locs, total, rows.Err()
}

// AllOrdered retrieves all locations ordered by id
func (r *LocationRepository) AllOrdered() ([]models.Location, error) {
	rows, err := r.db.Query("SELECT " + locationColumns + " FROM locations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locs []models.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}

// GetByID retrieves a single location by ID, nil when not found
func (r *LocationRepository) GetByID(id int64) (*models.Location, error) {
	row := r.db.QueryRow("SELECT "+locationColumns+" FROM locations WHERE id = ?", id)
	loc, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &loc, nil
}

// ReplaceAll clears the table and inserts the given locations with their
// engine-assigned ids. Used by full pipeline recomputes.
func (r *LocationRepository) ReplaceAll(tx *sql.Tx, locs []models.Location) error {
	if _, err := tx.Exec("DELETE FROM locations"); err != nil {
		return fmt.Errorf("failed to clear locations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO locations (id, user_id, center_lat, center_lon, extent)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare location insert: %w", err)
	}
	defer stmt.Close()

	for _, loc := range locs {
		var extent interface{}
		if len(loc.Extent) > 0 {
			b, err := json.Marshal(loc.Extent)
			if err != nil {
				return fmt.Errorf("failed to encode extent of location %d: %w", loc.ID, err)
			}
			extent = string(b)
		}
		if _, err := stmt.Exec(loc.ID, loc.UserID, loc.Center.Lat, loc.Center.Lon, extent); err != nil {
			return fmt.Errorf("failed to insert location %d: %w", loc.ID, err)
		}
	}
	return nil
}

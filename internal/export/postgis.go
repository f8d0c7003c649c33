// Package export writes the pipeline output to a PostGIS database so it can
// be used from GIS tooling.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// Exporter writes movement data to a PostGIS target. The exporter owns its
// connection and must be closed after use.
type Exporter struct {
	db   *sql.DB
	srid int
}

// NewExporter opens a connection to the PostGIS target
func NewExporter(dsn string, srid int) (*Exporter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	return &Exporter{db: db, srid: srid}, nil
}

// Close releases the connection
func (e *Exporter) Close() error {
	return e.db.Close()
}

var exportSchema = []string{
	`CREATE TABLE IF NOT EXISTS positionfixes (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		tracked_at TIMESTAMPTZ NOT NULL,
		elevation DOUBLE PRECISION,
		accuracy DOUBLE PRECISION,
		staypoint_id BIGINT,
		tripleg_id BIGINT,
		geom GEOMETRY(Point, %[1]d) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS staypoints (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		elevation DOUBLE PRECISION,
		purpose TEXT,
		activity BOOLEAN,
		location_id BIGINT,
		trip_id BIGINT,
		geom GEOMETRY(Point, %[1]d) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS triplegs (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		mode TEXT,
		trip_id BIGINT,
		geom GEOMETRY(LineString, %[1]d) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id BIGINT PRIMARY KEY,
		user_id BIGINT,
		center GEOMETRY(Point, %[1]d) NOT NULL,
		extent GEOMETRY(Polygon, %[1]d)
	)`,
}

// Counts reports how many rows of each kind were exported.
type Counts struct {
	Positionfixes int `json:"positionfixes"`
	Staypoints    int `json:"staypoints"`
	Triplegs      int `json:"triplegs"`
	Locations     int `json:"locations"`
}

// Export truncates the target tables and writes the given data in one
// transaction.
func (e *Exporter) Export(ctx context.Context, pfs []models.Positionfix, sps []models.Staypoint, tpls []models.Tripleg, locs []models.Location) (Counts, error) {
	var counts Counts

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range exportSchema {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(ddl, e.srid)); err != nil {
			return counts, fmt.Errorf("failed to create export tables: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "TRUNCATE positionfixes, staypoints, triplegs, locations"); err != nil {
		return counts, fmt.Errorf("failed to truncate export tables: %w", err)
	}

	if counts.Positionfixes, err = e.exportPositionfixes(ctx, tx, pfs); err != nil {
		return counts, err
	}
	if counts.Staypoints, err = e.exportStaypoints(ctx, tx, sps); err != nil {
		return counts, err
	}
	if counts.Triplegs, err = e.exportTriplegs(ctx, tx, tpls); err != nil {
		return counts, err
	}
	if counts.Locations, err = e.exportLocations(ctx, tx, locs); err != nil {
		return counts, err
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("failed to commit export: %w", err)
	}

	log.Printf("[Export] Wrote %d positionfixes, %d staypoints, %d triplegs, %d locations",
		counts.Positionfixes, counts.Staypoints, counts.Triplegs, counts.Locations)
	return counts, nil
}

func (e *Exporter) exportPositionfixes(ctx context.Context, tx *sql.Tx, pfs []models.Positionfix) (int, error) {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO positionfixes (id, user_id, tracked_at, elevation, accuracy, staypoint_id, tripleg_id, geom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, ST_GeomFromText($8, %d))
	`, e.srid))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare positionfix export: %w", err)
	}
	defer stmt.Close()

	for _, pf := range pfs {
		wkt := pointWKT(pf.Latitude, pf.Longitude)
		if _, err := stmt.ExecContext(ctx, pf.ID, pf.UserID, pf.TrackedAt, pf.Elevation, pf.Accuracy,
			pf.StaypointID, pf.TriplegID, wkt); err != nil {
			return 0, fmt.Errorf("failed to export positionfix %d: %w", pf.ID, err)
		}
	}
	return len(pfs), nil
}

func (e *Exporter) exportStaypoints(ctx context.Context, tx *sql.Tx, sps []models.Staypoint) (int, error) {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO staypoints (id, user_id, started_at, finished_at, elevation, purpose, activity, location_id, trip_id, geom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, ST_GeomFromText($10, %d))
	`, e.srid))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare staypoint export: %w", err)
	}
	defer stmt.Close()

	for _, sp := range sps {
		wkt := pointWKT(sp.Latitude, sp.Longitude)
		if _, err := stmt.ExecContext(ctx, sp.ID, sp.UserID, sp.StartedAt, sp.FinishedAt, sp.Elevation,
			sp.Purpose, sp.Activity, sp.LocationID, sp.TripID, wkt); err != nil {
			return 0, fmt.Errorf("failed to export staypoint %d: %w", sp.ID, err)
		}
	}
	return len(sps), nil
}

func (e *Exporter) exportTriplegs(ctx context.Context, tx *sql.Tx, tpls []models.Tripleg) (int, error) {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO triplegs (id, user_id, started_at, finished_at, mode, trip_id, geom)
		VALUES ($1, $2, $3, $4, $5, $6, ST_GeomFromText($7, %d))
	`, e.srid))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare tripleg export: %w", err)
	}
	defer stmt.Close()

	exported := 0
	for _, tpl := range tpls {
		// PostGIS rejects linestrings with fewer than two points
		if len(tpl.Geom) < 2 {
			continue
		}
		var mode interface{}
		if tpl.Mode != "" {
			mode = tpl.Mode
		}
		if _, err := stmt.ExecContext(ctx, tpl.ID, tpl.UserID, tpl.StartedAt, tpl.FinishedAt,
			mode, tpl.TripID, lineStringWKT(tpl.Geom)); err != nil {
			return 0, fmt.Errorf("failed to export tripleg %d: %w", tpl.ID, err)
		}
		exported++
	}
	return exported, nil
}

func (e *Exporter) exportLocations(ctx context.Context, tx *sql.Tx, locs []models.Location) (int, error) {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO locations (id, user_id, center, extent)
		VALUES ($1, $2, ST_GeomFromText($3, %[1]d), ST_GeomFromText($4, %[1]d))
	`, e.srid))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare location export: %w", err)
	}
	defer stmt.Close()

	for _, loc := range locs {
		var extent interface{}
		if len(loc.Extent) >= 3 {
			extent = polygonWKT(loc.Extent)
		}
		if _, err := stmt.ExecContext(ctx, loc.ID, loc.UserID,
			pointWKT(loc.Center.Lat, loc.Center.Lon), extent); err != nil {
			return 0, fmt.Errorf("failed to export location %d: %w", loc.ID, err)
		}
	}
	return len(locs), nil
}

// WKT uses lon/lat (x y) order.

func pointWKT(lat, lon float64) string {
	return fmt.Sprintf("POINT(%g %g)", lon, lat)
}

func lineStringWKT(points []spatial.Point) string {
	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%g %g", p.Lon, p.Lat)
	}
	return "LINESTRING(" + strings.Join(coords, ", ") + ")"
}

func polygonWKT(ring []spatial.Point) string {
	coords := make([]string, 0, len(ring)+1)
	for _, p := range ring {
		coords = append(coords, fmt.Sprintf("%g %g", p.Lon, p.Lat))
	}
	// close the ring
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		coords = append(coords, fmt.Sprintf("%g %g", ring[0].Lon, ring[0].Lat))
	}
	return "POLYGON((" + strings.Join(coords, ", ") + "))"
}

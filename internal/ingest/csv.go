// Package ingest parses raw tracking data into positionfixes.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
)

// ErrBadRecord marks rows that cannot be parsed into a positionfix.
var ErrBadRecord = errors.New("bad record")

// CSV column names. user_id, tracked_at, latitude and longitude are
// required; the rest are optional and may be absent or empty.
const (
	colUserID    = "user_id"
	colTrackedAt = "tracked_at"
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colElevation = "elevation"
	colAccuracy  = "accuracy"
)

// ReadPositionfixesCSV parses a header-first CSV stream of positionfixes.
// Timestamps must be RFC3339 and timezone-aware; rows with missing required
// fields or out-of-range coordinates fail the whole read so a partial
// dataset is never ingested.
func ReadPositionfixesCSV(r io.Reader) ([]models.Positionfix, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrBadRecord)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{colUserID, colTrackedAt, colLatitude, colLongitude} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadRecord, required)
		}
	}

	var pfs []models.Positionfix
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		line++

		pf, err := parseRow(record, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pfs = append(pfs, pf)
	}

	return pfs, nil
}

func parseRow(record []string, idx map[string]int) (models.Positionfix, error) {
	var pf models.Positionfix

	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	userID, err := strconv.ParseInt(field(colUserID), 10, 64)
	if err != nil {
		return pf, fmt.Errorf("%w: invalid user_id %q", ErrBadRecord, field(colUserID))
	}
	pf.UserID = userID

	trackedAt, err := time.Parse(time.RFC3339, field(colTrackedAt))
	if err != nil {
		return pf, fmt.Errorf("%w: invalid tracked_at %q", ErrBadRecord, field(colTrackedAt))
	}
	pf.TrackedAt = trackedAt

	if pf.Latitude, err = strconv.ParseFloat(field(colLatitude), 64); err != nil {
		return pf, fmt.Errorf("%w: invalid latitude %q", ErrBadRecord, field(colLatitude))
	}
	if pf.Longitude, err = strconv.ParseFloat(field(colLongitude), 64); err != nil {
		return pf, fmt.Errorf("%w: invalid longitude %q", ErrBadRecord, field(colLongitude))
	}
	if pf.Latitude < -90 || pf.Latitude > 90 {
		return pf, fmt.Errorf("%w: latitude %v out of range", ErrBadRecord, pf.Latitude)
	}
	if pf.Longitude < -180 || pf.Longitude > 180 {
		return pf, fmt.Errorf("%w: longitude %v out of range", ErrBadRecord, pf.Longitude)
	}

	if v := field(colElevation); v != "" {
		elevation, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return pf, fmt.Errorf("%w: invalid elevation %q", ErrBadRecord, v)
		}
		pf.Elevation = &elevation
	}
	if v := field(colAccuracy); v != "" {
		accuracy, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return pf, fmt.Errorf("%w: invalid accuracy %q", ErrBadRecord, v)
		}
		pf.Accuracy = &accuracy
	}

	return pf, nil
}

package clustering

import (
	"fmt"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// MergeStaypoints combines consecutive staypoints of a user that were
// detected at the same location and are separated by at most maxTimeGap.
// This repairs split detections, e.g. a noisy fix briefly breaking a long
// stay in two. Staypoints without a location are never merged. The merged
// staypoint spans from the first started_at to the last finished_at and its
// center is the centroid of the merged members.
func MergeStaypoints(sps []models.Staypoint, maxTimeGap time.Duration) ([]models.Staypoint, error) {
	if maxTimeGap <= 0 {
		return nil, fmt.Errorf("%w: max_time_gap must be positive, got %v", pipeline.ErrInvalidConfig, maxTimeGap)
	}

	var out []models.Staypoint
	for _, group := range pipeline.GroupStaypointsByUser(sps) {
		var run []models.Staypoint
		flush := func() {
			if len(run) == 0 {
				return
			}
			out = append(out, mergeRun(run))
			run = nil
		}

		for _, sp := range group.Staypoints {
			if len(run) == 0 {
				run = append(run, sp)
				continue
			}
			prev := run[len(run)-1]
			sameLoc := sp.LocationID != nil && prev.LocationID != nil && *sp.LocationID == *prev.LocationID
			if sameLoc && sp.StartedAt.Sub(prev.FinishedAt) <= maxTimeGap {
				run = append(run, sp)
				continue
			}
			flush()
			run = append(run, sp)
		}
		flush()
	}
	return out, nil
}

func mergeRun(run []models.Staypoint) models.Staypoint {
	if len(run) == 1 {
		return run[0]
	}
	pts := make([]spatial.Point, len(run))
	for i, sp := range run {
		pts[i] = spatial.Point{Lat: sp.Latitude, Lon: sp.Longitude}
	}
	center := spatial.Centroid(pts)

	merged := run[0]
	merged.FinishedAt = run[len(run)-1].FinishedAt
	merged.Latitude = center.Lat
	merged.Longitude = center.Lon
	return merged
}

// Package segmentation converts per-user ordered positionfix series into
// alternating staypoints and triplegs under configurable spatial and
// temporal thresholds.
//
// The sliding-window detection follows Li et al. (2008): a window is
// anchored at a fix and grows while subsequent fixes stay within
// DistThreshold of the anchor; when a fix falls outside and at least
// TimeThreshold has elapsed, the window is closed as a staypoint at the last
// fix still inside the bound. Boundary rules are inclusive: a fix exactly on
// DistThreshold stays inside the window, a window of exactly TimeThreshold
// is accepted. The gap-aware variant additionally force-closes the open
// segment when the delta between consecutive fixes exceeds GapThreshold; a
// closed staypoint is never reopened after a gap.
package segmentation

import (
	"fmt"
	"sync"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// Segmentation methods
const (
	MethodSliding  = "sliding"
	MethodGapAware = "gap-aware"
)

// Config holds the segmentation thresholds. All values are explicit; the
// engine has no ambient defaults.
type Config struct {
	Method        string
	DistThreshold float64       // meters, distance bound around the window anchor
	TimeThreshold time.Duration // minimum dwell time for a staypoint
	GapThreshold  time.Duration // required for MethodGapAware, ignored otherwise
}

// Validate fails fast on out-of-range configuration.
func (c Config) Validate() error {
	switch c.Method {
	case MethodSliding, MethodGapAware:
	default:
		return fmt.Errorf("%w: unknown segmentation method %q", pipeline.ErrInvalidConfig, c.Method)
	}
	if c.DistThreshold <= 0 {
		return fmt.Errorf("%w: dist_threshold must be positive, got %v", pipeline.ErrInvalidConfig, c.DistThreshold)
	}
	if c.TimeThreshold <= 0 {
		return fmt.Errorf("%w: time_threshold must be positive, got %v", pipeline.ErrInvalidConfig, c.TimeThreshold)
	}
	if c.Method == MethodGapAware && c.GapThreshold <= 0 {
		return fmt.Errorf("%w: gap_threshold must be positive for gap-aware segmentation, got %v",
			pipeline.ErrInvalidConfig, c.GapThreshold)
	}
	return nil
}

// Result carries the generated segments plus copies of the input
// positionfixes annotated with their containing segment. Boundary fixes
// shared between a staypoint and an adjacent tripleg are attributed to the
// staypoint.
type Result struct {
	Positionfixes []models.Positionfix
	Staypoints    []models.Staypoint
	Triplegs      []models.Tripleg
}

// userResult is the per-user output before global id assignment.
type userResult struct {
	fixes      []models.Positionfix
	staypoints []models.Staypoint
	triplegs   []models.Tripleg
	// segment membership of each fix, indices into the local slices
	spIndex  []int // -1 when the fix is not part of a staypoint
	tplIndex []int
}

// Generate segments positionfixes into staypoints and triplegs. Users are
// processed independently and concurrently; output ids are assigned in
// ascending user order and chronological order within a user, so identical
// input and configuration produce identical output. A user series with
// fewer than two fixes yields no segments.
func Generate(pfs []models.Positionfix, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	series, err := pipeline.GroupFixesByUser(pfs)
	if err != nil {
		return Result{}, err
	}

	results := make([]userResult, len(series))
	var wg sync.WaitGroup
	for i := range series {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = segmentUser(series[i].Fixes, cfg)
		}(i)
	}
	wg.Wait()

	// concatenate in user order and assign ids, starting at 1 so every
	// assigned id passes the repositories' positive-id filters
	var out Result
	nextSpID, nextTplID := int64(1), int64(1)
	for _, r := range results {
		spBase := nextSpID
		tplBase := nextTplID
		for s := range r.staypoints {
			r.staypoints[s].ID = spBase + int64(s)
			nextSpID++
		}
		for t := range r.triplegs {
			r.triplegs[t].ID = tplBase + int64(t)
			nextTplID++
		}
		for f := range r.fixes {
			if r.spIndex[f] >= 0 {
				id := spBase + int64(r.spIndex[f])
				r.fixes[f].StaypointID = &id
			} else if r.tplIndex[f] >= 0 {
				id := tplBase + int64(r.tplIndex[f])
				r.fixes[f].TriplegID = &id
			}
		}
		out.Staypoints = append(out.Staypoints, r.staypoints...)
		out.Triplegs = append(out.Triplegs, r.triplegs...)
		out.Positionfixes = append(out.Positionfixes, r.fixes...)
	}
	return out, nil
}

// segmentUser runs the sliding window over one user's series.
func segmentUser(fixes []models.Positionfix, cfg Config) userResult {
	n := len(fixes)
	res := userResult{
		fixes:    append([]models.Positionfix(nil), fixes...),
		spIndex:  make([]int, n),
		tplIndex: make([]int, n),
	}
	for k := range res.spIndex {
		res.spIndex[k] = -1
		res.tplIndex[k] = -1
	}
	if n < 2 {
		return res
	}

	gapAware := cfg.Method == MethodGapAware

	// legStart is the first fix of the open tripleg candidate. closeLeg
	// flushes it up to (and including) the boundary fix `end`.
	legStart := 0
	closeLeg := func(end int) {
		if end <= legStart {
			return
		}
		geom := make([]spatial.Point, 0, end-legStart+1)
		for k := legStart; k <= end; k++ {
			geom = append(geom, spatial.Point{Lat: fixes[k].Latitude, Lon: fixes[k].Longitude})
		}
		tpl := models.Tripleg{
			UserID:     fixes[0].UserID,
			StartedAt:  fixes[legStart].TrackedAt,
			FinishedAt: fixes[end].TrackedAt,
			Geom:       geom,
		}
		res.triplegs = append(res.triplegs, tpl)
		for k := legStart; k <= end; k++ {
			res.tplIndex[k] = len(res.triplegs) - 1
		}
	}

	// closeStay emits a staypoint over members [first, last].
	closeStay := func(first, last int) {
		pts := make([]spatial.Point, 0, last-first+1)
		var elevSum float64
		var elevCount int
		for k := first; k <= last; k++ {
			pts = append(pts, spatial.Point{Lat: fixes[k].Latitude, Lon: fixes[k].Longitude})
			if fixes[k].Elevation != nil {
				elevSum += *fixes[k].Elevation
				elevCount++
			}
		}
		center := spatial.Centroid(pts)
		sp := models.Staypoint{
			UserID:     fixes[0].UserID,
			StartedAt:  fixes[first].TrackedAt,
			FinishedAt: fixes[last].TrackedAt,
			Latitude:   center.Lat,
			Longitude:  center.Lon,
		}
		if elevCount > 0 {
			elev := elevSum / float64(elevCount)
			sp.Elevation = &elev
		}
		res.staypoints = append(res.staypoints, sp)
		for k := first; k <= last; k++ {
			res.spIndex[k] = len(res.staypoints) - 1
		}
	}

	i := 0
	for i < n-1 {
		j := i + 1
		broke := false
		for j < n {
			if gapAware && fixes[j].TrackedAt.Sub(fixes[j-1].TrackedAt) > cfg.GapThreshold {
				// Tracking outage: force-close at the gap boundary. The open
				// window becomes a staypoint only if it already dwelled long
				// enough, otherwise its fixes stay with the tripleg.
				if fixes[j-1].TrackedAt.Sub(fixes[i].TrackedAt) >= cfg.TimeThreshold {
					closeLeg(i)
					closeStay(i, j-1)
				} else {
					closeLeg(j - 1)
				}
				legStart = j
				i = j
				broke = true
				break
			}

			dist := spatial.HaversineDistance(
				fixes[i].Latitude, fixes[i].Longitude,
				fixes[j].Latitude, fixes[j].Longitude)
			if dist > cfg.DistThreshold {
				if fixes[j].TrackedAt.Sub(fixes[i].TrackedAt) >= cfg.TimeThreshold {
					// staypoint closed at the last fix still inside the bound
					closeLeg(i)
					closeStay(i, j-1)
					legStart = j - 1
				}
				i = j
				broke = true
				break
			}
			j++
		}
		if !broke {
			// The trailing window never crossed the distance bound again.
			// If it dwelled long enough it is still a staypoint, otherwise
			// its fixes are flushed with the final tripleg below.
			if fixes[n-1].TrackedAt.Sub(fixes[i].TrackedAt) >= cfg.TimeThreshold {
				closeLeg(i)
				closeStay(i, n-1)
				legStart = n - 1
			}
			break
		}
	}

	// trailing run: flushed as a final tripleg when it has >= 2 fixes,
	// dropped when only the boundary fix remains
	closeLeg(n - 1)

	return res
}

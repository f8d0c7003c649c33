package reconstruction

import (
	"fmt"
	"sort"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// TourConfig holds the tour generation parameters.
type TourConfig struct {
	// MaxDist is the spatial tolerance in meters for matching two trip
	// endpoints when their staypoints carry no location id.
	MaxDist float64

	// MaxTime is the maximum span from the first trip's start to the last
	// trip's end for the chain to count as one tour.
	MaxTime time.Duration

	// MaxNrGaps is the number of non-matching trips tolerated inside a
	// tour chain. Zero means the chain breaks at the first mismatch.
	MaxNrGaps int

	// HomeLocationIDs maps a user id to their home location. A tour anchored
	// at the home location is flagged as a journey. Optional.
	HomeLocationIDs map[int64]int64
}

// Validate fails fast on out-of-range configuration.
func (c TourConfig) Validate() error {
	if c.MaxDist <= 0 {
		return fmt.Errorf("%w: max_dist must be positive, got %v", pipeline.ErrInvalidConfig, c.MaxDist)
	}
	if c.MaxTime <= 0 {
		return fmt.Errorf("%w: max_time must be positive, got %v", pipeline.ErrInvalidConfig, c.MaxTime)
	}
	if c.MaxNrGaps < 0 {
		return fmt.Errorf("%w: max_nr_gaps must be non-negative, got %d", pipeline.ErrInvalidConfig, c.MaxNrGaps)
	}
	return nil
}

// TourResult carries the generated tours and the trip memberships. Trips
// and tours are many-to-many: a trip can sit inside a nested tour and its
// enclosing tour at the same time, so membership lives in assignment rows
// rather than on the trip itself.
type TourResult struct {
	Tours       []models.Tour
	Assignments []models.TripTourAssignment
}

// gapMarker stands in for a trip whose endpoints did not line up with its
// neighbor. It occupies a slot in the candidate stack so gaps can be counted.
const gapMarker = -1

// GenerateTours chains each user's trips, ordered by start time, into tours:
// runs of consecutive trips where the first trip's origin matches the last
// trip's destination. Matching uses the staypoints' location ids when both
// endpoints carry one and falls back to haversine distance within
// cfg.MaxDist otherwise. Tours may nest; every closed chain is emitted.
func GenerateTours(trips []models.Trip, sps []models.Staypoint, cfg TourConfig) (TourResult, error) {
	if err := cfg.Validate(); err != nil {
		return TourResult{}, err
	}

	spByID := make(map[int64]*models.Staypoint, len(sps))
	for i := range sps {
		spByID[sps[i].ID] = &sps[i]
	}

	byUser := make(map[int64][]models.Trip)
	var userIDs []int64
	for _, t := range trips {
		if _, ok := byUser[t.UserID]; !ok {
			userIDs = append(userIDs, t.UserID)
		}
		byUser[t.UserID] = append(byUser[t.UserID], t)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	var res TourResult
	nextTourID := int64(1)
	for _, uid := range userIDs {
		ut := byUser[uid]
		sort.Slice(ut, func(i, j int) bool { return ut[i].StartedAt.Before(ut[j].StartedAt) })
		tours, asg := generateToursUser(ut, spByID, cfg, nextTourID)
		nextTourID += int64(len(tours))
		res.Tours = append(res.Tours, tours...)
		res.Assignments = append(res.Assignments, asg...)
	}
	return res, nil
}

func generateToursUser(trips []models.Trip, spByID map[int64]*models.Staypoint, cfg TourConfig, nextID int64) ([]models.Tour, []models.TripTourAssignment) {
	var tours []models.Tour
	var assignments []models.TripTourAssignment

	// candidates holds indices into trips of possible tour starts; a
	// gapMarker entry records one tolerated endpoint mismatch
	var candidates []int

	for r := range trips {
		// the chain only continues if this trip departs where the previous
		// candidate ended
		if len(candidates) > 0 {
			prev := candidates[len(candidates)-1]
			contiguous := prev != gapMarker &&
				sameEndpoint(destSp(trips[prev], spByID), originSp(trips[r], spByID), cfg.MaxDist)
			if !contiguous {
				if cfg.MaxNrGaps == 0 {
					candidates = candidates[:0]
				} else {
					candidates = append(candidates, gapMarker)
				}
			}
		}
		candidates = append(candidates, r)

		dest := destSp(trips[r], spByID)
		if dest == nil {
			continue
		}

		// walk the stack backwards looking for a start whose origin matches
		// this trip's destination, counting tolerated gaps on the way
		gaps := 0
		crop := -1
		for j := len(candidates) - 1; j >= 0; j-- {
			cand := candidates[j]
			if cand == gapMarker {
				gaps++
				if gaps > cfg.MaxNrGaps {
					crop = j + 1
					break
				}
				continue
			}
			if trips[r].FinishedAt.Sub(trips[cand].StartedAt) > cfg.MaxTime {
				crop = j + 1
				break
			}
			origin := originSp(trips[cand], spByID)
			if origin == nil {
				continue
			}
			if sameEndpoint(origin, dest, cfg.MaxDist) {
				id := nextID + int64(len(tours))
				tour, asg := buildTour(id, trips, candidates[j:], origin, cfg)
				tours = append(tours, tour)
				assignments = append(assignments, asg...)
				break
			}
		}
		if crop >= 0 {
			candidates = append(candidates[:0], candidates[crop:]...)
		}
	}
	return tours, assignments
}

func buildTour(id int64, trips []models.Trip, members []int, anchor *models.Staypoint, cfg TourConfig) (models.Tour, []models.TripTourAssignment) {
	first := trips[members[0]]
	tour := models.Tour{
		ID:                          id,
		UserID:                      first.UserID,
		StartedAt:                   first.StartedAt,
		OriginDestinationLocationID: anchor.LocationID,
	}
	if home, ok := cfg.HomeLocationIDs[first.UserID]; ok && anchor.LocationID != nil {
		tour.Journey = *anchor.LocationID == home
	}

	var asg []models.TripTourAssignment
	pos := 0
	for _, m := range members {
		if m == gapMarker {
			continue
		}
		tour.FinishedAt = trips[m].FinishedAt
		asg = append(asg, models.TripTourAssignment{TripID: trips[m].ID, TourID: id, Position: pos})
		pos++
	}
	return tour, asg
}

func originSp(t models.Trip, spByID map[int64]*models.Staypoint) *models.Staypoint {
	if t.OriginStaypointID == nil {
		return nil
	}
	return spByID[*t.OriginStaypointID]
}

func destSp(t models.Trip, spByID map[int64]*models.Staypoint) *models.Staypoint {
	if t.DestinationStaypointID == nil {
		return nil
	}
	return spByID[*t.DestinationStaypointID]
}

// sameEndpoint reports whether two staypoints stand for the same place:
// equal location ids when both are clustered, haversine proximity otherwise.
func sameEndpoint(a, b *models.Staypoint, maxDist float64) bool {
	if a == nil || b == nil {
		return false
	}
	if a.LocationID != nil && b.LocationID != nil {
		return *a.LocationID == *b.LocationID
	}
	return spatial.HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude) <= maxDist
}

// TripsByTour groups assignment rows into an ordered list of trip ids per
// tour.
func TripsByTour(assignments []models.TripTourAssignment) map[int64][]int64 {
	rows := make(map[int64][]models.TripTourAssignment)
	for _, a := range assignments {
		rows[a.TourID] = append(rows[a.TourID], a)
	}
	byTour := make(map[int64][]int64, len(rows))
	for id, list := range rows {
		sort.Slice(list, func(i, j int) bool { return list[i].Position < list[j].Position })
		ids := make([]int64, len(list))
		for i, a := range list {
			ids[i] = a.TripID
		}
		byTour[id] = ids
	}
	return byTour
}

// Package reconstruction stitches staypoints and triplegs into trips, and
// trips into tours. A trip is the maximal run of triplegs and intervening
// non-activity staypoints between two consecutive activity staypoints; a
// tour is a chain of consecutive trips whose first origin and last
// destination resolve to the same location.
package reconstruction

import (
	"fmt"
	"sort"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
)

// TripConfig holds the trip generation parameters.
type TripConfig struct {
	// GapThreshold is the maximum tolerated recording gap inside a trip. A
	// longer untracked span is assumed to hide an activity: the open trip is
	// closed with an unknown destination and the next one starts with an
	// unknown origin.
	GapThreshold time.Duration

	// AllowZeroLegTrips emits a degenerate trip for two consecutive activity
	// staypoints with no tripleg between them. Off by default: no movement,
	// no trip.
	AllowZeroLegTrips bool
}

// Validate fails fast on out-of-range configuration.
func (c TripConfig) Validate() error {
	if c.GapThreshold <= 0 {
		return fmt.Errorf("%w: gap_threshold must be positive, got %v", pipeline.ErrInvalidConfig, c.GapThreshold)
	}
	return nil
}

// TripResult carries the generated trips plus the input staypoints and
// triplegs annotated with their trip membership. Activity staypoints receive
// prev/next trip ids, absorbed waiting staypoints and triplegs receive the
// trip id itself.
type TripResult struct {
	Trips      []models.Trip
	Staypoints []models.Staypoint
	Triplegs   []models.Tripleg
}

// timeline item kinds
const (
	itemStaypoint = iota
	itemTripleg
)

type timelineItem struct {
	kind       int
	index      int // index into the user's staypoint/tripleg slice
	startedAt  time.Time
	finishedAt time.Time
}

// GenerateTrips walks each user's merged chronological sequence of
// staypoints and triplegs and cuts it at activity staypoints and recording
// gaps. Every staypoint must carry an activity flag (see
// inference.CreateActivityFlag). Triplegs at the very start or end of a
// user's series with no bounding activity staypoint are excluded from any
// trip. Trips of a user never overlap and are strictly ordered.
func GenerateTrips(sps []models.Staypoint, tpls []models.Tripleg, cfg TripConfig) (TripResult, error) {
	if err := cfg.Validate(); err != nil {
		return TripResult{}, err
	}
	for _, sp := range sps {
		if sp.Activity == nil {
			return TripResult{}, fmt.Errorf("%w: staypoint %d of user %d has no activity flag",
				pipeline.ErrContractViolation, sp.ID, sp.UserID)
		}
	}

	res := TripResult{
		Staypoints: append([]models.Staypoint(nil), sps...),
		Triplegs:   append([]models.Tripleg(nil), tpls...),
	}

	// index positions per user, users in ascending id order
	userIDs, spByUser, tplByUser := indexByUser(res.Staypoints, res.Triplegs)

	// ids start at 1, id 0 is never assigned
	nextTripID := int64(1)
	for _, uid := range userIDs {
		trips := generateTripsUser(res, spByUser[uid], tplByUser[uid], cfg, nextTripID)
		res.Trips = append(res.Trips, trips...)
		nextTripID += int64(len(trips))
	}
	return res, nil
}

func indexByUser(sps []models.Staypoint, tpls []models.Tripleg) ([]int64, map[int64][]int, map[int64][]int) {
	spByUser := make(map[int64][]int)
	tplByUser := make(map[int64][]int)
	seen := make(map[int64]bool)
	var userIDs []int64

	for i, sp := range sps {
		spByUser[sp.UserID] = append(spByUser[sp.UserID], i)
		if !seen[sp.UserID] {
			seen[sp.UserID] = true
			userIDs = append(userIDs, sp.UserID)
		}
	}
	for i, tpl := range tpls {
		tplByUser[tpl.UserID] = append(tplByUser[tpl.UserID], i)
		if !seen[tpl.UserID] {
			seen[tpl.UserID] = true
			userIDs = append(userIDs, tpl.UserID)
		}
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
	return userIDs, spByUser, tplByUser
}

// tripBuilder accumulates the members of one open trip.
type tripBuilder struct {
	originSp  *int64 // nil: unknown origin (trip started after a recording gap)
	startedAt time.Time
	legs      []int // tripleg indices
	waits     []int // non-activity staypoint indices
}

func generateTripsUser(res TripResult, spIdx, tplIdx []int, cfg TripConfig, nextID int64) []models.Trip {
	items := make([]timelineItem, 0, len(spIdx)+len(tplIdx))
	for _, i := range spIdx {
		items = append(items, timelineItem{itemStaypoint, i, res.Staypoints[i].StartedAt, res.Staypoints[i].FinishedAt})
	}
	for _, i := range tplIdx {
		items = append(items, timelineItem{itemTripleg, i, res.Triplegs[i].StartedAt, res.Triplegs[i].FinishedAt})
	}
	sort.SliceStable(items, func(a, b int) bool {
		if !items[a].startedAt.Equal(items[b].startedAt) {
			return items[a].startedAt.Before(items[b].startedAt)
		}
		// a staypoint sharing its boundary with the following tripleg sorts first
		return items[a].finishedAt.Before(items[b].finishedAt)
	})

	var trips []models.Trip
	var cur *tripBuilder
	userID := int64(0)
	if len(spIdx) > 0 {
		userID = res.Staypoints[spIdx[0]].UserID
	} else if len(tplIdx) > 0 {
		userID = res.Triplegs[tplIdx[0]].UserID
	}

	closeTrip := func(destSp *int64, finishedAt time.Time) {
		if cur == nil {
			return
		}
		if len(cur.legs) == 0 && !(cfg.AllowZeroLegTrips && cur.originSp != nil && destSp != nil) {
			cur = nil
			return
		}
		id := nextID + int64(len(trips))
		trip := models.Trip{
			ID:                     id,
			UserID:                 userID,
			StartedAt:              cur.startedAt,
			FinishedAt:             finishedAt,
			OriginStaypointID:      cur.originSp,
			DestinationStaypointID: destSp,
		}
		for _, li := range cur.legs {
			res.Triplegs[li].TripID = &trip.ID
		}
		for _, wi := range cur.waits {
			res.Staypoints[wi].TripID = &trip.ID
		}
		if cur.originSp != nil {
			setNextTrip(res.Staypoints, spIdx, *cur.originSp, trip.ID)
		}
		if destSp != nil {
			setPrevTrip(res.Staypoints, spIdx, *destSp, trip.ID)
		}
		trips = append(trips, trip)
		cur = nil
	}

	// afterActivity tracks the staypoint a new trip would depart from;
	// nil while still before the user's first activity staypoint.
	var departure *models.Staypoint
	departureKnown := false // true also after a gap, with departure == nil

	openTrip := func(startedAt time.Time) {
		cur = &tripBuilder{startedAt: startedAt}
		if departure != nil {
			cur.originSp = &departure.ID
			cur.startedAt = departure.FinishedAt
		}
	}

	var lastEnd time.Time
	for n, it := range items {
		// recording gap: close the open trip with an unknown destination,
		// movement after the gap departs from an unknown origin
		if n > 0 && it.startedAt.Sub(lastEnd) > cfg.GapThreshold {
			closeTrip(nil, lastEnd)
			departure = nil
			departureKnown = true
		}

		switch it.kind {
		case itemStaypoint:
			sp := &res.Staypoints[it.index]
			if sp.IsActivity() {
				if cur != nil {
					closeTrip(&sp.ID, sp.StartedAt)
				} else if cfg.AllowZeroLegTrips && departure != nil {
					// two consecutive activity staypoints with nothing between
					cur = &tripBuilder{originSp: &departure.ID, startedAt: departure.FinishedAt}
					closeTrip(&sp.ID, sp.StartedAt)
				}
				departure = sp
				departureKnown = true
			} else {
				// waiting staypoint: belongs to the surrounding trip
				if cur == nil && departureKnown {
					openTrip(it.startedAt)
				}
				if cur != nil {
					cur.waits = append(cur.waits, it.index)
				}
			}
		case itemTripleg:
			if cur == nil {
				if !departureKnown {
					// leading tripleg with no bounding activity staypoint: excluded
					lastEnd = it.finishedAt
					continue
				}
				openTrip(it.startedAt)
			}
			cur.legs = append(cur.legs, it.index)
		}
		lastEnd = it.finishedAt
	}

	// a trip still open at the end of the series has no bounding activity
	// staypoint and is dropped
	cur = nil

	return trips
}

func setNextTrip(sps []models.Staypoint, spIdx []int, spID, tripID int64) {
	for _, i := range spIdx {
		if sps[i].ID == spID {
			id := tripID
			sps[i].NextTripID = &id
			return
		}
	}
}

func setPrevTrip(sps []models.Staypoint, spIdx []int, spID, tripID int64) {
	for _, i := range spIdx {
		if sps[i].ID == spID {
			id := tripID
			sps[i].PrevTripID = &id
			return
		}
	}
}

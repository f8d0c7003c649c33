// Package pipeline holds the error taxonomy and the per-user grouping
// helpers shared by the segmentation, clustering, reconstruction and
// inference engines. The engines are pure: they take entity slices and
// explicit configuration, perform no I/O, and are safe to run concurrently
// for disjoint users.
package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jharte/mobility-backend-go/internal/models"
)

// Contract and configuration violations fail fast before any segment is
// emitted. Insufficient data and degenerate geometry are not errors.
var (
	// ErrContractViolation marks invalid input: non-monotonic timestamps
	// within a user, missing timestamps, or mixed timezones in a user series.
	ErrContractViolation = errors.New("input contract violation")

	// ErrInvalidConfig marks out-of-range configuration, e.g. a non-positive
	// threshold or min_samples < 1.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserSeries is one user's chronologically ordered positionfixes.
type UserSeries struct {
	UserID int64
	Fixes  []models.Positionfix
}

// GroupFixesByUser validates the ingestion contract and splits positionfixes
// into per-user series ordered by user id. Within a user the input order is
// preserved and must already be chronological.
func GroupFixesByUser(pfs []models.Positionfix) ([]UserSeries, error) {
	byUser := make(map[int64][]models.Positionfix)
	for _, pf := range pfs {
		if pf.TrackedAt.IsZero() {
			return nil, fmt.Errorf("%w: positionfix %d of user %d has no tracked_at",
				ErrContractViolation, pf.ID, pf.UserID)
		}
		byUser[pf.UserID] = append(byUser[pf.UserID], pf)
	}

	users := make([]int64, 0, len(byUser))
	for uid := range byUser {
		users = append(users, uid)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	series := make([]UserSeries, 0, len(users))
	for _, uid := range users {
		fixes := byUser[uid]
		loc := fixes[0].TrackedAt.Location()
		for i := 1; i < len(fixes); i++ {
			if fixes[i].TrackedAt.Before(fixes[i-1].TrackedAt) {
				return nil, fmt.Errorf("%w: non-monotonic tracked_at for user %d at positionfix %d",
					ErrContractViolation, uid, fixes[i].ID)
			}
			if fixes[i].TrackedAt.Location() != loc {
				return nil, fmt.Errorf("%w: mixed timezones for user %d at positionfix %d",
					ErrContractViolation, uid, fixes[i].ID)
			}
		}
		series = append(series, UserSeries{UserID: uid, Fixes: fixes})
	}
	return series, nil
}

// GroupStaypointsByUser splits staypoints into per-user slices sorted by
// started_at, with users in ascending id order.
func GroupStaypointsByUser(sps []models.Staypoint) []struct {
	UserID     int64
	Staypoints []models.Staypoint
} {
	byUser := make(map[int64][]models.Staypoint)
	for _, sp := range sps {
		byUser[sp.UserID] = append(byUser[sp.UserID], sp)
	}

	users := make([]int64, 0, len(byUser))
	for uid := range byUser {
		users = append(users, uid)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	out := make([]struct {
		UserID     int64
		Staypoints []models.Staypoint
	}, 0, len(users))
	for _, uid := range users {
		group := byUser[uid]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].StartedAt.Before(group[j].StartedAt)
		})
		out = append(out, struct {
			UserID     int64
			Staypoints []models.Staypoint
		}{UserID: uid, Staypoints: group})
	}
	return out
}

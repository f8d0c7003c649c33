package inference

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
)

// Granularity selects the bucketing of temporal tracking quality.
type Granularity string

const (
	// GranularityAll yields one value per user over their whole extent.
	GranularityAll Granularity = "all"
	// GranularityDay yields one value per user and calendar day.
	GranularityDay Granularity = "day"
	// GranularityWeek yields one value per user and seven-day window.
	GranularityWeek Granularity = "week"
	// GranularityHour yields one value per user and hour of day, pooled
	// over all tracked days.
	GranularityHour Granularity = "hour"
)

// Interval is a tracked time span of one user. Tracking quality treats the
// union of a user's staypoints and triplegs as their tracked time.
type Interval struct {
	UserID     int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Quality is the tracked share of one bucket for one user, in [0, 1].
// Bucket is the day index since the dataset's first tracked day for
// GranularityDay, that index divided by seven for GranularityWeek, the hour
// of day (0-23) for GranularityHour, and zero for GranularityAll.
type Quality struct {
	UserID  int64   `json:"user_id"`
	Bucket  int     `json:"bucket"`
	Quality float64 `json:"quality"`
}

// IntervalsFromMovement collects the tracked spans of the given staypoints
// and triplegs.
func IntervalsFromMovement(sps []models.Staypoint, tpls []models.Tripleg) []Interval {
	out := make([]Interval, 0, len(sps)+len(tpls))
	for _, sp := range sps {
		out = append(out, Interval{sp.UserID, sp.StartedAt, sp.FinishedAt})
	}
	for _, tpl := range tpls {
		out = append(out, Interval{tpl.UserID, tpl.StartedAt, tpl.FinishedAt})
	}
	return out
}

// TemporalTrackingQuality measures how much of each time bucket is covered
// by tracked intervals. Intervals spanning a bucket boundary are split at
// the boundary and each part attributed to its bucket. Users or buckets
// without any tracked time yield no row. An empty input yields an empty
// result.
func TemporalTrackingQuality(intervals []Interval, g Granularity) ([]Quality, error) {
	for _, iv := range intervals {
		if iv.FinishedAt.Before(iv.StartedAt) {
			return nil, fmt.Errorf("%w: interval of user %d finishes before it starts",
				pipeline.ErrContractViolation, iv.UserID)
		}
	}
	if len(intervals) == 0 {
		return []Quality{}, nil
	}

	var out []Quality
	switch g {
	case GranularityAll:
		out = qualityAll(intervals)
	case GranularityDay:
		out = qualityByDay(intervals, 1)
	case GranularityWeek:
		out = qualityByDay(intervals, 7)
	case GranularityHour:
		out = qualityByHour(intervals)
	default:
		return nil, fmt.Errorf("%w: unknown granularity %q", pipeline.ErrInvalidConfig, g)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Bucket < out[j].Bucket
	})
	return out, nil
}

func qualityAll(intervals []Interval) []Quality {
	type span struct {
		tracked     time.Duration
		first, last time.Time
		set         bool
	}
	byUser := make(map[int64]*span)
	for _, iv := range intervals {
		s := byUser[iv.UserID]
		if s == nil {
			s = &span{}
			byUser[iv.UserID] = s
		}
		s.tracked += iv.FinishedAt.Sub(iv.StartedAt)
		if !s.set || iv.StartedAt.Before(s.first) {
			s.first = iv.StartedAt
		}
		if !s.set || iv.FinishedAt.After(s.last) {
			s.last = iv.FinishedAt
		}
		s.set = true
	}

	var out []Quality
	for uid, s := range byUser {
		extent := s.last.Sub(s.first)
		if extent <= 0 {
			continue
		}
		out = append(out, Quality{UserID: uid, Quality: s.tracked.Seconds() / extent.Seconds()})
	}
	return out
}

// qualityByDay buckets tracked time into calendar days counted from the
// dataset's first tracked day, then pools daysPerBucket days per bucket.
func qualityByDay(intervals []Interval, daysPerBucket int) []Quality {
	start := midnight(earliestStart(intervals))
	parts := splitIntervals(intervals, nextMidnight)

	type key struct {
		user   int64
		bucket int
	}
	tracked := make(map[key]time.Duration)
	for _, p := range parts {
		k := key{p.UserID, dayIndex(p.StartedAt, start) / daysPerBucket}
		tracked[k] += p.FinishedAt.Sub(p.StartedAt)
	}

	extent := (time.Duration(daysPerBucket) * 24 * time.Hour).Seconds()
	out := make([]Quality, 0, len(tracked))
	for k, d := range tracked {
		if d <= 0 {
			continue
		}
		out = append(out, Quality{UserID: k.user, Bucket: k.bucket, Quality: d.Seconds() / extent})
	}
	return out
}

// qualityByHour buckets tracked time by hour of day, pooled across days.
// The extent of a bucket is one hour per distinct day the user was tracked
// in that hour.
func qualityByHour(intervals []Interval) []Quality {
	start := midnight(earliestStart(intervals))
	parts := splitIntervals(splitIntervals(intervals, nextMidnight), nextHour)

	type key struct {
		user int64
		hour int
	}
	tracked := make(map[key]time.Duration)
	days := make(map[key]map[int]bool)
	for _, p := range parts {
		k := key{p.UserID, p.StartedAt.Hour()}
		tracked[k] += p.FinishedAt.Sub(p.StartedAt)
		if days[k] == nil {
			days[k] = make(map[int]bool)
		}
		days[k][dayIndex(p.StartedAt, start)] = true
	}

	out := make([]Quality, 0, len(tracked))
	for k, d := range tracked {
		if d <= 0 {
			continue
		}
		extent := float64(len(days[k])) * 3600
		out = append(out, Quality{UserID: k.user, Bucket: k.hour, Quality: d.Seconds() / extent})
	}
	return out
}

// splitIntervals cuts every interval at the boundaries produced by next, so
// no returned part spans a boundary. Zero-length intervals pass through.
func splitIntervals(intervals []Interval, next func(time.Time) time.Time) []Interval {
	var out []Interval
	for _, iv := range intervals {
		cur := iv.StartedAt
		for {
			b := next(cur)
			if b.Before(iv.FinishedAt) {
				out = append(out, Interval{iv.UserID, cur, b})
				cur = b
				continue
			}
			out = append(out, Interval{iv.UserID, cur, iv.FinishedAt})
			break
		}
	}
	return out
}

func earliestStart(intervals []Interval) time.Time {
	first := intervals[0].StartedAt
	for _, iv := range intervals[1:] {
		if iv.StartedAt.Before(first) {
			first = iv.StartedAt
		}
	}
	return first
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func nextMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

func nextHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
}

func dayIndex(t, start time.Time) int {
	return int(math.Round(midnight(t).Sub(start).Hours() / 24))
}

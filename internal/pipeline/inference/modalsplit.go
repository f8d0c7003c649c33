package inference

import (
	"fmt"
	"sort"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
)

// Frequency selects the time bucketing of a modal split.
type Frequency string

const (
	// FreqNone pools all triplegs into a single bucket.
	FreqNone Frequency = ""
	// FreqDay buckets triplegs by calendar day of their start.
	FreqDay Frequency = "day"
	// FreqWeek buckets triplegs by the Monday-anchored week of their start.
	FreqWeek Frequency = "week"
)

// Metric selects the quantity a modal split sums per mode.
type Metric string

const (
	// MetricCount counts triplegs.
	MetricCount Metric = "count"
	// MetricDistance sums tripleg path lengths in meters.
	MetricDistance Metric = "distance"
	// MetricDuration sums tripleg durations in seconds.
	MetricDuration Metric = "duration"
)

// SplitConfig holds the modal split parameters.
type SplitConfig struct {
	Freq    Frequency
	Metric  Metric
	PerUser bool // one split per user instead of one over the whole dataset
	Norm    bool // normalize each bucket so its shares sum to one
}

// Validate fails fast on out-of-range configuration.
func (c SplitConfig) Validate() error {
	switch c.Freq {
	case FreqNone, FreqDay, FreqWeek:
	default:
		return fmt.Errorf("%w: unknown frequency %q", pipeline.ErrInvalidConfig, c.Freq)
	}
	switch c.Metric {
	case MetricCount, MetricDistance, MetricDuration:
	default:
		return fmt.Errorf("%w: unknown metric %q", pipeline.ErrInvalidConfig, c.Metric)
	}
	return nil
}

// ModalShare is the value of one mode in one bucket. UserID is zero for
// dataset-level splits, Bucket is the zero time for unbucketed splits.
type ModalShare struct {
	UserID int64     `json:"user_id"`
	Bucket time.Time `json:"bucket"`
	Mode   string    `json:"mode"`
	Value  float64   `json:"value"`
}

// ModalSplit aggregates triplegs by transport mode, optionally per user and
// per time bucket. Triplegs without a mode label count as unknown. With
// cfg.Norm the values of each bucket sum to one; a bucket whose total is
// zero has no defined proportions and is dropped from the normalized
// result. An empty input yields an empty result.
func ModalSplit(tpls []models.Tripleg, cfg SplitConfig) ([]ModalShare, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	type key struct {
		user   int64
		bucket time.Time
		mode   string
	}
	sums := make(map[key]float64)
	for _, tpl := range tpls {
		k := key{bucket: bucketStart(tpl.StartedAt, cfg.Freq), mode: tpl.Mode}
		if k.mode == "" {
			k.mode = models.ModeUnknown
		}
		if cfg.PerUser {
			k.user = tpl.UserID
		}
		switch cfg.Metric {
		case MetricCount:
			sums[k]++
		case MetricDistance:
			sums[k] += tpl.Length()
		case MetricDuration:
			sums[k] += tpl.Duration().Seconds()
		}
	}

	out := make([]ModalShare, 0, len(sums))
	for k, v := range sums {
		out = append(out, ModalShare{UserID: k.user, Bucket: k.bucket, Mode: k.mode, Value: v})
	}

	if cfg.Norm {
		type bkey struct {
			user   int64
			bucket time.Time
		}
		totals := make(map[bkey]float64)
		for _, s := range out {
			totals[bkey{s.UserID, s.Bucket}] += s.Value
		}
		kept := out[:0]
		for _, s := range out {
			t := totals[bkey{s.UserID, s.Bucket}]
			if t <= 0 {
				// zero-total bucket: proportions are undefined, report no data
				continue
			}
			s.Value /= t
			kept = append(kept, s)
		}
		out = kept
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		if !out[i].Bucket.Equal(out[j].Bucket) {
			return out[i].Bucket.Before(out[j].Bucket)
		}
		return out[i].Mode < out[j].Mode
	})
	return out, nil
}

// bucketStart truncates t to the start of its bucket in t's own time zone.
func bucketStart(t time.Time, freq Frequency) time.Time {
	switch freq {
	case FreqDay:
		return midnight(t)
	case FreqWeek:
		daysSinceMonday := (int(t.Weekday()) + 6) % 7
		return time.Date(t.Year(), t.Month(), t.Day()-daysSinceMonday, 0, 0, 0, 0, t.Location())
	default:
		return time.Time{}
	}
}

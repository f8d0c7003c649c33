package inference

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// ModeFeatures are the per-tripleg quantities a mode classifier may use.
// Speeds are in meters per second. MaxSpeed falls back to AvgSpeed when the
// tripleg's positionfixes are not available.
type ModeFeatures struct {
	Distance float64
	Duration time.Duration
	AvgSpeed float64
	MaxSpeed float64
}

// Classifier predicts a transport mode from tripleg features. Returning an
// error or an empty mode labels the tripleg as unknown; it never aborts the
// run.
type Classifier interface {
	Predict(f ModeFeatures) (string, error)
}

// SpeedBand maps average speeds below UpperBound (m/s, exclusive) to a mode.
type SpeedBand struct {
	UpperBound float64
	Mode       string
}

// ModeConfig holds the transport mode prediction parameters. Exactly one of
// Bands or Classifier drives the prediction; Bands win when both are set.
type ModeConfig struct {
	Bands      []SpeedBand
	Classifier Classifier
}

// Validate fails fast on out-of-range configuration. Bands must be in
// strictly ascending speed order and the last band must be unbounded.
func (c ModeConfig) Validate() error {
	if len(c.Bands) == 0 && c.Classifier == nil {
		return fmt.Errorf("%w: either speed bands or a classifier is required", pipeline.ErrInvalidConfig)
	}
	for i, b := range c.Bands {
		if i > 0 && b.UpperBound <= c.Bands[i-1].UpperBound {
			return fmt.Errorf("%w: speed bands must be strictly ascending, band %d (%v) <= band %d (%v)",
				pipeline.ErrInvalidConfig, i, b.UpperBound, i-1, c.Bands[i-1].UpperBound)
		}
		if b.Mode == "" {
			return fmt.Errorf("%w: speed band %d has no mode label", pipeline.ErrInvalidConfig, i)
		}
	}
	if n := len(c.Bands); n > 0 && !math.IsInf(c.Bands[n-1].UpperBound, 1) {
		return fmt.Errorf("%w: last speed band must be unbounded (+Inf), got %v",
			pipeline.ErrInvalidConfig, c.Bands[n-1].UpperBound)
	}
	return nil
}

// DefaultBands is the coarse three-way split: slow for anything under
// 15 km/h, motorized under 100 km/h, fast above.
func DefaultBands() []SpeedBand {
	return []SpeedBand{
		{UpperBound: spatial.KmhToMs(15), Mode: models.ModeSlow},
		{UpperBound: spatial.KmhToMs(100), Mode: models.ModeMotorized},
		{UpperBound: math.Inf(1), Mode: models.ModeFast},
	}
}

// DetailedBands splits further into concrete vehicle classes by typical
// cruising speeds.
func DetailedBands() []SpeedBand {
	return []SpeedBand{
		{UpperBound: spatial.KmhToMs(7), Mode: models.ModeWalk},
		{UpperBound: spatial.KmhToMs(25), Mode: models.ModeBike},
		{UpperBound: spatial.KmhToMs(90), Mode: models.ModeCar},
		{UpperBound: spatial.KmhToMs(200), Mode: models.ModeTrain},
		{UpperBound: math.Inf(1), Mode: models.ModePlane},
	}
}

// ComputeFeatures derives mode features from the tripleg geometry alone.
// MaxSpeed equals AvgSpeed since the geometry carries no timestamps.
func ComputeFeatures(tpl models.Tripleg) ModeFeatures {
	dist := spatial.PathLength(tpl.Geom)
	avg := spatial.Speed(dist, tpl.Duration())
	return ModeFeatures{
		Distance: dist,
		Duration: tpl.Duration(),
		AvgSpeed: avg,
		MaxSpeed: avg,
	}
}

// ComputeFeaturesWithFixes derives mode features using the tripleg's
// positionfixes for a real segment-wise maximum speed. Fixes are sorted by
// time before use.
func ComputeFeaturesWithFixes(tpl models.Tripleg, fixes []models.Positionfix) ModeFeatures {
	f := ComputeFeatures(tpl)
	if len(fixes) < 2 {
		return f
	}
	sorted := append([]models.Positionfix(nil), fixes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TrackedAt.Before(sorted[j].TrackedAt) })

	max := math.Inf(-1)
	for i := 1; i < len(sorted); i++ {
		d := spatial.HaversineDistance(sorted[i-1].Latitude, sorted[i-1].Longitude, sorted[i].Latitude, sorted[i].Longitude)
		v := spatial.Speed(d, sorted[i].TrackedAt.Sub(sorted[i-1].TrackedAt))
		if !math.IsNaN(v) && v > max {
			max = v
		}
	}
	if !math.IsInf(max, -1) {
		f.MaxSpeed = max
	}
	return f
}

// PredictTransportMode labels every tripleg with a transport mode. Triplegs
// with degenerate features (zero duration, empty geometry) are labeled
// unknown rather than aborting the run. The input is not modified.
func PredictTransportMode(tpls []models.Tripleg, cfg ModeConfig) ([]models.Tripleg, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out := append([]models.Tripleg(nil), tpls...)
	for i := range out {
		f := ComputeFeatures(out[i])
		out[i].Mode = predictOne(f, cfg)
	}
	return out, nil
}

func predictOne(f ModeFeatures, cfg ModeConfig) string {
	if math.IsNaN(f.AvgSpeed) {
		return models.ModeUnknown
	}
	if len(cfg.Bands) > 0 {
		for _, b := range cfg.Bands {
			if f.AvgSpeed < b.UpperBound {
				return b.Mode
			}
		}
		return models.ModeUnknown
	}
	mode, err := cfg.Classifier.Predict(f)
	if err != nil || mode == "" {
		return models.ModeUnknown
	}
	return mode
}

package inference

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

var base = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func TestCreateActivityFlag(t *testing.T) {
	sps := []models.Staypoint{
		{ID: 0, UserID: 1, StartedAt: base, FinishedAt: base.Add(30 * time.Minute)},
		{ID: 1, UserID: 1, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + 10*time.Minute)},
	}

	flagged, err := CreateActivityFlag(sps, ActivityConfig{TimeThreshold: 25 * time.Minute})
	if err != nil {
		t.Fatalf("CreateActivityFlag: %v", err)
	}
	if !flagged[0].IsActivity() {
		t.Fatalf("30 minute stay over a 25 minute threshold must be an activity")
	}
	if flagged[1].IsActivity() {
		t.Fatalf("10 minute stay must not be an activity")
	}
	if sps[0].Activity != nil {
		t.Fatalf("input slice must not be modified")
	}
}

func TestCreateActivityFlagCustomRule(t *testing.T) {
	purpose := "home"
	sps := []models.Staypoint{
		{ID: 0, UserID: 1, StartedAt: base, FinishedAt: base.Add(time.Minute), Purpose: &purpose},
		{ID: 1, UserID: 1, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(2 * time.Hour)},
	}
	rule := func(sp models.Staypoint) bool { return sp.Purpose != nil }

	flagged, err := CreateActivityFlag(sps, ActivityConfig{Rule: rule})
	if err != nil {
		t.Fatalf("CreateActivityFlag: %v", err)
	}
	if !flagged[0].IsActivity() || flagged[1].IsActivity() {
		t.Fatalf("custom rule not applied: %v %v", flagged[0].Activity, flagged[1].Activity)
	}
}

func TestCreateActivityFlagValidation(t *testing.T) {
	_, err := CreateActivityFlag(nil, ActivityConfig{})
	if !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

// legAt builds a straight north-south tripleg covering roughly
// 111.19 km per degree of latitude.
func legAt(id int64, latSpan float64, dur time.Duration) models.Tripleg {
	return models.Tripleg{
		ID: id, UserID: 1,
		StartedAt:  base,
		FinishedAt: base.Add(dur),
		Geom: []spatial.Point{
			{Lat: 0, Lon: 0},
			{Lat: latSpan, Lon: 0},
		},
	}
}

func TestPredictTransportModeBands(t *testing.T) {
	tpls := []models.Tripleg{
		legAt(0, 0.001, time.Minute), // ~111m/min, walking pace
		legAt(1, 0.01, time.Minute),  // ~1.1km/min, driving pace
		legAt(2, 0.1, time.Minute),   // ~11km/min, flying pace
	}

	out, err := PredictTransportMode(tpls, ModeConfig{Bands: DefaultBands()})
	if err != nil {
		t.Fatalf("PredictTransportMode: %v", err)
	}
	want := []string{models.ModeSlow, models.ModeMotorized, models.ModeFast}
	for i, w := range want {
		if out[i].Mode != w {
			t.Fatalf("tripleg %d: expected %s, got %s", i, w, out[i].Mode)
		}
	}
}

func TestPredictTransportModeDegenerate(t *testing.T) {
	zero := legAt(0, 0.01, time.Minute)
	zero.FinishedAt = zero.StartedAt // zero duration, speed undefined

	out, err := PredictTransportMode([]models.Tripleg{zero}, ModeConfig{Bands: DefaultBands()})
	if err != nil {
		t.Fatalf("PredictTransportMode: %v", err)
	}
	if out[0].Mode != models.ModeUnknown {
		t.Fatalf("degenerate tripleg must be labeled unknown, got %s", out[0].Mode)
	}

	// coincident points over a positive duration have a well-defined speed
	// of zero and land in the slowest band
	still := legAt(1, 0, time.Minute)
	out, err = PredictTransportMode([]models.Tripleg{still}, ModeConfig{Bands: DefaultBands()})
	if err != nil {
		t.Fatalf("PredictTransportMode: %v", err)
	}
	if out[0].Mode != models.ModeSlow {
		t.Fatalf("zero-speed tripleg should fall into the slowest band, got %s", out[0].Mode)
	}
}

func TestPredictTransportModeValidation(t *testing.T) {
	bad := []SpeedBand{
		{UpperBound: 10, Mode: models.ModeMotorized},
		{UpperBound: 5, Mode: models.ModeSlow},
	}
	if _, err := PredictTransportMode(nil, ModeConfig{Bands: bad}); !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unordered bands, got %v", err)
	}

	bounded := []SpeedBand{{UpperBound: 10, Mode: models.ModeSlow}}
	if _, err := PredictTransportMode(nil, ModeConfig{Bands: bounded}); !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for bounded last band, got %v", err)
	}

	if _, err := PredictTransportMode(nil, ModeConfig{}); !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for empty config, got %v", err)
	}
}

type fixedClassifier struct{ mode string }

func (c fixedClassifier) Predict(f ModeFeatures) (string, error) { return c.mode, nil }

func TestPredictTransportModeClassifier(t *testing.T) {
	out, err := PredictTransportMode(
		[]models.Tripleg{legAt(0, 0.01, time.Minute)},
		ModeConfig{Classifier: fixedClassifier{mode: models.ModeBus}})
	if err != nil {
		t.Fatalf("PredictTransportMode: %v", err)
	}
	if out[0].Mode != models.ModeBus {
		t.Fatalf("expected classifier mode, got %s", out[0].Mode)
	}
}

func TestComputeFeaturesWithFixes(t *testing.T) {
	tpl := legAt(0, 0.02, 20*time.Minute)
	fixes := []models.Positionfix{
		{UserID: 1, Latitude: 0, Longitude: 0, TrackedAt: base},
		{UserID: 1, Latitude: 0.001, Longitude: 0, TrackedAt: base.Add(10 * time.Minute)},
		// the remaining distance in half the time
		{UserID: 1, Latitude: 0.02, Longitude: 0, TrackedAt: base.Add(20 * time.Minute)},
	}

	f := ComputeFeaturesWithFixes(tpl, fixes)
	if f.MaxSpeed <= f.AvgSpeed {
		t.Fatalf("max segment speed %v should exceed average %v", f.MaxSpeed, f.AvgSpeed)
	}
}

func interval(user int64, start, end time.Time) Interval {
	return Interval{UserID: user, StartedAt: start, FinishedAt: end}
}

func TestTrackingQualityAll(t *testing.T) {
	// 12 tracked hours inside an 18 hour extent
	ivs := []Interval{
		interval(1, base, base.Add(6*time.Hour)),
		interval(1, base.Add(12*time.Hour), base.Add(18*time.Hour)),
	}
	q, err := TemporalTrackingQuality(ivs, GranularityAll)
	if err != nil {
		t.Fatalf("TemporalTrackingQuality: %v", err)
	}
	if len(q) != 1 {
		t.Fatalf("expected one row, got %d", len(q))
	}
	if got := q[0].Quality; math.Abs(got-12.0/18.0) > 1e-9 {
		t.Fatalf("expected quality 12/18, got %v", got)
	}
}

func TestTrackingQualityDaySplitsAtMidnight(t *testing.T) {
	// 18:00 to 06:00 next day: six hours on each side of midnight
	start := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
	q, err := TemporalTrackingQuality(
		[]Interval{interval(1, start, start.Add(12*time.Hour))}, GranularityDay)
	if err != nil {
		t.Fatalf("TemporalTrackingQuality: %v", err)
	}
	if len(q) != 2 {
		t.Fatalf("expected two day buckets, got %d", len(q))
	}
	for _, row := range q {
		if math.Abs(row.Quality-0.25) > 1e-9 {
			t.Fatalf("expected 6h/24h per day, got %v in bucket %d", row.Quality, row.Bucket)
		}
	}
	if q[0].Bucket != 0 || q[1].Bucket != 1 {
		t.Fatalf("day indices wrong: %d %d", q[0].Bucket, q[1].Bucket)
	}
}

func TestTrackingQualityHourPoolsDays(t *testing.T) {
	// day 1: tracked 08:00-09:00, day 2: tracked 08:30-09:00
	ivs := []Interval{
		interval(1, base, base.Add(time.Hour)),
		interval(1, base.AddDate(0, 0, 1).Add(30*time.Minute), base.AddDate(0, 0, 1).Add(time.Hour)),
	}
	q, err := TemporalTrackingQuality(ivs, GranularityHour)
	if err != nil {
		t.Fatalf("TemporalTrackingQuality: %v", err)
	}
	if len(q) != 1 {
		t.Fatalf("expected one hour bucket, got %d", len(q))
	}
	if q[0].Bucket != 8 {
		t.Fatalf("expected hour 8, got %d", q[0].Bucket)
	}
	if got := q[0].Quality; math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("expected 1.5h over 2 tracked days = 0.75, got %v", got)
	}
}

func TestTrackingQualityRejectsNegativeInterval(t *testing.T) {
	_, err := TemporalTrackingQuality(
		[]Interval{interval(1, base.Add(time.Hour), base)}, GranularityAll)
	if !errors.Is(err, pipeline.ErrContractViolation) {
		t.Fatalf("expected ErrContractViolation, got %v", err)
	}
}

func TestTrackingQualityEmptyInput(t *testing.T) {
	q, err := TemporalTrackingQuality(nil, GranularityDay)
	if err != nil {
		t.Fatalf("TemporalTrackingQuality: %v", err)
	}
	if len(q) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(q))
	}
}

func modeLeg(user int64, mode string, start time.Time, dur time.Duration, latSpan float64) models.Tripleg {
	return models.Tripleg{
		UserID: user, Mode: mode,
		StartedAt:  start,
		FinishedAt: start.Add(dur),
		Geom:       []spatial.Point{{Lat: 0, Lon: 0}, {Lat: latSpan, Lon: 0}},
	}
}

func TestModalSplitCountNormalized(t *testing.T) {
	tpls := []models.Tripleg{
		modeLeg(1, models.ModeSlow, base, 10*time.Minute, 0.001),
		modeLeg(1, models.ModeSlow, base.Add(time.Hour), 10*time.Minute, 0.001),
		modeLeg(1, models.ModeMotorized, base.Add(2*time.Hour), 10*time.Minute, 0.01),
	}

	shares, err := ModalSplit(tpls, SplitConfig{Metric: MetricCount, Norm: true})
	if err != nil {
		t.Fatalf("ModalSplit: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 modes, got %d", len(shares))
	}
	total := 0.0
	byMode := map[string]float64{}
	for _, s := range shares {
		total += s.Value
		byMode[s.Mode] = s.Value
	}
	if math.Abs(total-1) > 1e-6 {
		t.Fatalf("normalized shares must sum to 1, got %v", total)
	}
	if math.Abs(byMode[models.ModeSlow]-2.0/3.0) > 1e-9 {
		t.Fatalf("expected slow share 2/3, got %v", byMode[models.ModeSlow])
	}
}

func TestModalSplitDailyBucketsAndUnknown(t *testing.T) {
	tpls := []models.Tripleg{
		modeLeg(1, models.ModeSlow, base, 10*time.Minute, 0.001),
		modeLeg(1, "", base.AddDate(0, 0, 1), 10*time.Minute, 0.001),
	}

	shares, err := ModalSplit(tpls, SplitConfig{Freq: FreqDay, Metric: MetricDuration, PerUser: true})
	if err != nil {
		t.Fatalf("ModalSplit: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(shares))
	}
	if shares[0].Bucket.Equal(shares[1].Bucket) {
		t.Fatalf("triplegs on different days must land in different buckets")
	}
	if shares[1].Mode != models.ModeUnknown {
		t.Fatalf("unlabeled tripleg must count as unknown, got %q", shares[1].Mode)
	}
	if shares[0].Value != (10 * time.Minute).Seconds() {
		t.Fatalf("duration metric wrong: %v", shares[0].Value)
	}
}

func TestModalSplitDropsZeroTotalBuckets(t *testing.T) {
	tpls := []models.Tripleg{
		// day one: coincident geometry, zero distance
		modeLeg(1, models.ModeSlow, base, 10*time.Minute, 0),
		// day two: real movement
		modeLeg(1, models.ModeSlow, base.AddDate(0, 0, 1), 10*time.Minute, 0.01),
	}

	shares, err := ModalSplit(tpls, SplitConfig{Freq: FreqDay, Metric: MetricDistance, Norm: true})
	if err != nil {
		t.Fatalf("ModalSplit: %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("zero-total bucket must be absent from the normalized split, got %d rows", len(shares))
	}
	if !shares[0].Bucket.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("surviving bucket wrong: %v", shares[0].Bucket)
	}
	if math.Abs(shares[0].Value-1) > 1e-6 {
		t.Fatalf("single-mode bucket must normalize to 1, got %v", shares[0].Value)
	}
}

func TestModalSplitValidation(t *testing.T) {
	if _, err := ModalSplit(nil, SplitConfig{Metric: "speed"}); !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for metric, got %v", err)
	}
	if _, err := ModalSplit(nil, SplitConfig{Freq: "month", Metric: MetricCount}); !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for frequency, got %v", err)
	}
}

package segmentation

import (
	"errors"
	"testing"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
)

// 0.0001 degrees of latitude is roughly 11 meters, 0.005 roughly 556 meters.
func fix(user int64, lat, lon float64, at time.Time) models.Positionfix {
	return models.Positionfix{UserID: user, Latitude: lat, Longitude: lon, TrackedAt: at}
}

var base = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func defaultConfig() Config {
	return Config{
		Method:        MethodSliding,
		DistThreshold: 100,
		TimeThreshold: 5 * time.Minute,
	}
}

func TestGenerateMovingOnly(t *testing.T) {
	// steadily moving user, every step well over the distance bound
	var pfs []models.Positionfix
	for i := 0; i < 4; i++ {
		pfs = append(pfs, fix(1, 0.005*float64(i), 0, base.Add(time.Duration(i)*2*time.Minute)))
	}

	res, err := Generate(pfs, defaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Staypoints) != 0 {
		t.Fatalf("expected no staypoints, got %d", len(res.Staypoints))
	}
	if len(res.Triplegs) != 1 {
		t.Fatalf("expected 1 tripleg, got %d", len(res.Triplegs))
	}
	tpl := res.Triplegs[0]
	if len(tpl.Geom) != 4 {
		t.Fatalf("expected all 4 fixes in the tripleg geometry, got %d", len(tpl.Geom))
	}
	for i, pf := range res.Positionfixes {
		if pf.TriplegID == nil || *pf.TriplegID != tpl.ID {
			t.Fatalf("fix %d not attributed to the tripleg", i)
		}
		if pf.StaypointID != nil {
			t.Fatalf("fix %d wrongly attributed to a staypoint", i)
		}
	}
}

func TestGenerateTwoClusters(t *testing.T) {
	var pfs []models.Positionfix
	// ten minutes at place A
	for i := 0; i <= 5; i++ {
		pfs = append(pfs, fix(1, 0.00005*float64(i%2), 0, base.Add(time.Duration(i)*2*time.Minute)))
	}
	// one transit fix
	pfs = append(pfs, fix(1, 0.005, 0, base.Add(12*time.Minute)))
	// ten minutes at place B
	for i := 0; i <= 5; i++ {
		pfs = append(pfs, fix(1, 0.01+0.00005*float64(i%2), 0, base.Add(time.Duration(14+2*i)*time.Minute)))
	}

	res, err := Generate(pfs, defaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Staypoints) != 2 {
		t.Fatalf("expected 2 staypoints, got %d", len(res.Staypoints))
	}
	if len(res.Triplegs) != 1 {
		t.Fatalf("expected 1 connecting tripleg, got %d", len(res.Triplegs))
	}

	a, b := res.Staypoints[0], res.Staypoints[1]
	tpl := res.Triplegs[0]
	if !tpl.StartedAt.Equal(a.FinishedAt) || !tpl.FinishedAt.Equal(b.StartedAt) {
		t.Fatalf("tripleg does not tile the gap between staypoints: %v-%v vs %v-%v",
			tpl.StartedAt, tpl.FinishedAt, a.FinishedAt, b.StartedAt)
	}
	if a.Latitude > 0.001 || b.Latitude < 0.009 {
		t.Fatalf("staypoint centers off: a=%v b=%v", a.Latitude, b.Latitude)
	}

	// every fix belongs to exactly one segment; boundary fixes go to the staypoint
	for i, pf := range res.Positionfixes {
		if pf.StaypointID == nil && pf.TriplegID == nil {
			t.Fatalf("fix %d unattributed", i)
		}
		if pf.StaypointID != nil && pf.TriplegID != nil {
			t.Fatalf("fix %d attributed twice", i)
		}
	}
}

func TestGenerateShortStopIsNoStaypoint(t *testing.T) {
	// a stop shorter than the time threshold stays part of the movement
	pfs := []models.Positionfix{
		fix(1, 0, 0, base),
		fix(1, 0.005, 0, base.Add(2*time.Minute)),
		fix(1, 0.005, 0, base.Add(4*time.Minute)), // 2 min pause only
		fix(1, 0.01, 0, base.Add(6*time.Minute)),
	}

	res, err := Generate(pfs, defaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Staypoints) != 0 {
		t.Fatalf("expected no staypoints, got %d", len(res.Staypoints))
	}
}

func TestGenerateGapAwareSplitsAtOutage(t *testing.T) {
	cfg := defaultConfig()
	cfg.Method = MethodGapAware
	cfg.GapThreshold = 30 * time.Minute

	var pfs []models.Positionfix
	for i := 0; i <= 5; i++ {
		pfs = append(pfs, fix(1, 0, 0, base.Add(time.Duration(i)*2*time.Minute)))
	}
	// three hours of silence, then tracking resumes at the same place
	for i := 0; i <= 5; i++ {
		pfs = append(pfs, fix(1, 0, 0, base.Add(190*time.Minute+time.Duration(i)*2*time.Minute)))
	}

	res, err := Generate(pfs, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Staypoints) != 2 {
		t.Fatalf("expected the outage to split the stay in two, got %d staypoints", len(res.Staypoints))
	}
	for _, tpl := range res.Triplegs {
		if tpl.Duration() > cfg.GapThreshold {
			t.Fatalf("tripleg bridges the outage: %v", tpl.Duration())
		}
	}
	for _, sp := range res.Staypoints {
		if sp.Duration() > 15*time.Minute {
			t.Fatalf("staypoint bridges the outage: %v", sp.Duration())
		}
	}
}

func TestGenerateDeterministicAcrossUsers(t *testing.T) {
	var pfs []models.Positionfix
	for user := int64(1); user <= 4; user++ {
		for i := 0; i <= 5; i++ {
			pfs = append(pfs, fix(user, float64(user)*0.1, 0, base.Add(time.Duration(i)*2*time.Minute)))
		}
	}

	first, err := Generate(pfs, defaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := Generate(pfs, defaultConfig())
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(again.Staypoints) != len(first.Staypoints) {
			t.Fatalf("run %d: staypoint count changed", run)
		}
		for i := range again.Staypoints {
			if again.Staypoints[i].ID != first.Staypoints[i].ID ||
				again.Staypoints[i].UserID != first.Staypoints[i].UserID {
				t.Fatalf("run %d: staypoint %d differs", run, i)
			}
		}
	}
}

func TestGenerateIDsStartAtOne(t *testing.T) {
	// id 0 would be invisible to the repositories' positive-id filters
	var pfs []models.Positionfix
	for i := 0; i <= 5; i++ {
		pfs = append(pfs, fix(1, 0, 0, base.Add(time.Duration(i)*2*time.Minute)))
	}
	pfs = append(pfs, fix(1, 0.005, 0, base.Add(12*time.Minute)))
	pfs = append(pfs, fix(1, 0.01, 0, base.Add(14*time.Minute)))

	res, err := Generate(pfs, defaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Staypoints) == 0 || res.Staypoints[0].ID != 1 {
		t.Fatalf("first staypoint id should be 1, got %+v", res.Staypoints)
	}
	if len(res.Triplegs) == 0 || res.Triplegs[0].ID != 1 {
		t.Fatalf("first tripleg id should be 1, got %+v", res.Triplegs)
	}
}

func TestGenerateSingleFixYieldsNothing(t *testing.T) {
	res, err := Generate([]models.Positionfix{fix(1, 0, 0, base)}, defaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Staypoints) != 0 || len(res.Triplegs) != 0 {
		t.Fatalf("expected no segments for a single fix")
	}
}

func TestGenerateConfigValidation(t *testing.T) {
	cases := []Config{
		{Method: "nearest", DistThreshold: 100, TimeThreshold: time.Minute},
		{Method: MethodSliding, DistThreshold: 0, TimeThreshold: time.Minute},
		{Method: MethodSliding, DistThreshold: 100, TimeThreshold: 0},
		{Method: MethodGapAware, DistThreshold: 100, TimeThreshold: time.Minute},
	}
	for i, cfg := range cases {
		if _, err := Generate(nil, cfg); !errors.Is(err, pipeline.ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

func TestGenerateRejectsUnorderedInput(t *testing.T) {
	pfs := []models.Positionfix{
		fix(1, 0, 0, base.Add(time.Minute)),
		fix(1, 0, 0, base),
	}
	if _, err := Generate(pfs, defaultConfig()); !errors.Is(err, pipeline.ErrContractViolation) {
		t.Fatalf("expected ErrContractViolation, got %v", err)
	}
}

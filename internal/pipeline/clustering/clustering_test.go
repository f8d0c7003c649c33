package clustering

import (
	"errors"
	"testing"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
)

var base = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func stay(user int64, lat, lon float64, day int) models.Staypoint {
	start := base.AddDate(0, 0, day)
	return models.Staypoint{
		UserID:     user,
		StartedAt:  start,
		FinishedAt: start.Add(time.Hour),
		Latitude:   lat,
		Longitude:  lon,
	}
}

func TestGenerateRecurringPlaceBecomesOneLocation(t *testing.T) {
	// the same place visited on five different days, plus one one-off
	var sps []models.Staypoint
	for day := 0; day < 5; day++ {
		sps = append(sps, stay(1, 0.0001*float64(day%2), 0, day))
	}
	sps = append(sps, stay(1, 0.5, 0.5, 5)) // far away, visited once

	res, err := Generate(sps, Config{Epsilon: 100, MinSamples: 3, PerUser: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Locations) != 1 {
		t.Fatalf("expected 1 location, got %d", len(res.Locations))
	}
	loc := res.Locations[0]
	if loc.UserID == nil || *loc.UserID != 1 {
		t.Fatalf("per-user location should carry the user id, got %v", loc.UserID)
	}
	if len(loc.Extent) < 3 {
		t.Fatalf("extent must be a polygon, got %d points", len(loc.Extent))
	}

	for i, sp := range res.Staypoints[:5] {
		if sp.LocationID == nil || *sp.LocationID != loc.ID {
			t.Fatalf("recurring staypoint %d not assigned to the location", i)
		}
	}
	if res.Staypoints[5].LocationID != nil {
		t.Fatalf("one-off staypoint should be noise, got location %d", *res.Staypoints[5].LocationID)
	}
}

func TestGeneratePerUserIDsStayUnique(t *testing.T) {
	var sps []models.Staypoint
	for user := int64(1); user <= 2; user++ {
		for day := 0; day < 3; day++ {
			sps = append(sps, stay(user, float64(user), 0, day))
		}
	}

	res, err := Generate(sps, Config{Epsilon: 100, MinSamples: 3, PerUser: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Locations) != 2 {
		t.Fatalf("expected one location per user, got %d", len(res.Locations))
	}
	if res.Locations[0].ID == res.Locations[1].ID {
		t.Fatalf("location ids collide across users: %d", res.Locations[0].ID)
	}
	// id 0 would be invisible to the repositories' positive-id filters
	if res.Locations[0].ID != 1 {
		t.Fatalf("first location id should be 1, got %d", res.Locations[0].ID)
	}
}

func TestGenerateDatasetSharedPlace(t *testing.T) {
	// two users frequenting the same place, clustered dataset-wide
	var sps []models.Staypoint
	for user := int64(1); user <= 2; user++ {
		for day := 0; day < 2; day++ {
			sps = append(sps, stay(user, 0, 0, day))
		}
	}

	res, err := Generate(sps, Config{Epsilon: 100, MinSamples: 3, PerUser: false})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Locations) != 1 {
		t.Fatalf("expected one shared location, got %d", len(res.Locations))
	}
	if res.Locations[0].UserID != nil {
		t.Fatalf("dataset-level location must not carry a user id")
	}
	for i, sp := range res.Staypoints {
		if sp.LocationID == nil || *sp.LocationID != res.Locations[0].ID {
			t.Fatalf("staypoint %d not assigned to the shared location", i)
		}
	}
}

func TestGenerateAllNoise(t *testing.T) {
	sps := []models.Staypoint{
		stay(1, 0, 0, 0),
		stay(1, 0.5, 0, 1),
		stay(1, 1.0, 0, 2),
	}
	res, err := Generate(sps, Config{Epsilon: 100, MinSamples: 2, PerUser: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Locations) != 0 {
		t.Fatalf("expected no locations, got %d", len(res.Locations))
	}
	for i, sp := range res.Staypoints {
		if sp.LocationID != nil {
			t.Fatalf("staypoint %d should be noise", i)
		}
	}
}

func TestGenerateConfigValidation(t *testing.T) {
	if _, err := Generate(nil, Config{Epsilon: 0, MinSamples: 3}); !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for epsilon, got %v", err)
	}
	if _, err := Generate(nil, Config{Epsilon: 100, MinSamples: 0}); !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for min_samples, got %v", err)
	}
}

func TestMergeStaypoints(t *testing.T) {
	locA, locB := int64(10), int64(11)
	sps := []models.Staypoint{
		{ID: 1, UserID: 1, StartedAt: base, FinishedAt: base.Add(30 * time.Minute), LocationID: &locA},
		// same place again after a two minute blip
		{ID: 2, UserID: 1, StartedAt: base.Add(32 * time.Minute), FinishedAt: base.Add(60 * time.Minute), LocationID: &locA},
		// different place, never merged
		{ID: 3, UserID: 1, StartedAt: base.Add(90 * time.Minute), FinishedAt: base.Add(120 * time.Minute), LocationID: &locB},
	}

	merged, err := MergeStaypoints(sps, 5*time.Minute)
	if err != nil {
		t.Fatalf("MergeStaypoints: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 staypoints after merging, got %d", len(merged))
	}
	if merged[0].ID != 1 {
		t.Fatalf("merged staypoint should keep the first member's id, got %d", merged[0].ID)
	}
	if !merged[0].FinishedAt.Equal(base.Add(60 * time.Minute)) {
		t.Fatalf("merged staypoint should extend to the last member's end, got %v", merged[0].FinishedAt)
	}
}

func TestMergeStaypointsRespectsGap(t *testing.T) {
	locA := int64(10)
	sps := []models.Staypoint{
		{ID: 1, UserID: 1, StartedAt: base, FinishedAt: base.Add(30 * time.Minute), LocationID: &locA},
		{ID: 2, UserID: 1, StartedAt: base.Add(50 * time.Minute), FinishedAt: base.Add(80 * time.Minute), LocationID: &locA},
	}
	merged, err := MergeStaypoints(sps, 5*time.Minute)
	if err != nil {
		t.Fatalf("MergeStaypoints: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("a 20 minute gap must not be merged, got %d staypoints", len(merged))
	}
}

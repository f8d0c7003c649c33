package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
)

var base = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func TestGroupFixesByUser(t *testing.T) {
	pfs := []models.Positionfix{
		{ID: 1, UserID: 7, TrackedAt: base},
		{ID: 2, UserID: 3, TrackedAt: base},
		{ID: 3, UserID: 7, TrackedAt: base.Add(time.Minute)},
	}

	series, err := GroupFixesByUser(pfs)
	if err != nil {
		t.Fatalf("GroupFixesByUser: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 users, got %d", len(series))
	}
	if series[0].UserID != 3 || series[1].UserID != 7 {
		t.Fatalf("users must be in ascending order, got %d %d", series[0].UserID, series[1].UserID)
	}
	if len(series[1].Fixes) != 2 {
		t.Fatalf("expected 2 fixes for user 7, got %d", len(series[1].Fixes))
	}
}

func TestGroupFixesByUserRejectsMissingTimestamp(t *testing.T) {
	_, err := GroupFixesByUser([]models.Positionfix{{ID: 1, UserID: 1}})
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("expected ErrContractViolation, got %v", err)
	}
}

func TestGroupFixesByUserRejectsMixedTimezones(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	pfs := []models.Positionfix{
		{ID: 1, UserID: 1, TrackedAt: base},
		{ID: 2, UserID: 1, TrackedAt: base.Add(time.Minute).In(zurich)},
	}
	if _, err := GroupFixesByUser(pfs); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("expected ErrContractViolation, got %v", err)
	}
}

func TestGroupStaypointsByUserSorts(t *testing.T) {
	sps := []models.Staypoint{
		{ID: 1, UserID: 1, StartedAt: base.Add(time.Hour)},
		{ID: 2, UserID: 1, StartedAt: base},
	}
	groups := GroupStaypointsByUser(sps)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Staypoints[0].ID != 2 {
		t.Fatalf("staypoints must be sorted by started_at")
	}
}

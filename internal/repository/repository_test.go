package repository

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jharte/mobility-backend-go/internal/database"
	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// openTestDB creates a migrated in-memory database. A single connection is
// forced because each sqlite :memory: connection is its own database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		t.Fatalf("tx body: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestPositionfixRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewPositionfixRepository(db)

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	elev := 410.5
	pfs := []models.Positionfix{
		{UserID: 2, TrackedAt: base.Add(time.Minute), Latitude: 47.1, Longitude: 8.1},
		{UserID: 1, TrackedAt: base, Latitude: 47.0, Longitude: 8.0, Elevation: &elev},
	}

	inTx(t, db, func(tx *sql.Tx) error {
		n, err := repo.BulkInsert(tx, pfs)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("inserted %d rows, want 2", n)
		}
		return nil
	})

	all, err := repo.AllOrdered()
	if err != nil {
		t.Fatalf("AllOrdered: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d fixes, want 2", len(all))
	}
	if all[0].UserID != 1 || all[1].UserID != 2 {
		t.Errorf("fixes not ordered by user: %v, %v", all[0].UserID, all[1].UserID)
	}
	if !all[0].TrackedAt.Equal(base) {
		t.Errorf("timestamp not preserved: got %v, want %v", all[0].TrackedAt, base)
	}
	if all[0].Elevation == nil || *all[0].Elevation != elev {
		t.Errorf("elevation not preserved: %+v", all[0].Elevation)
	}

	listed, total, err := repo.List(models.PositionfixFilter{UserID: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(listed) != 1 || listed[0].UserID != 2 {
		t.Errorf("user filter failed: total=%d listed=%v", total, listed)
	}

	spID := all[0].ID
	all[0].StaypointID = &spID
	inTx(t, db, func(tx *sql.Tx) error {
		return repo.UpdateSegmentRefs(tx, all[:1])
	})
	reread, err := repo.AllOrdered()
	if err != nil {
		t.Fatalf("AllOrdered after update: %v", err)
	}
	if reread[0].StaypointID == nil || *reread[0].StaypointID != spID {
		t.Errorf("staypoint ref not stored: %+v", reread[0].StaypointID)
	}
}

func TestStaypointRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewStaypointRepository(db)

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	active := true
	sps := []models.Staypoint{
		{ID: 1, UserID: 1, StartedAt: base, FinishedAt: base.Add(time.Hour), Latitude: 47, Longitude: 8, Activity: &active},
		{ID: 2, UserID: 1, StartedAt: base.Add(2 * time.Hour), FinishedAt: base.Add(2*time.Hour + 5*time.Minute), Latitude: 47.1, Longitude: 8.1},
	}

	inTx(t, db, func(tx *sql.Tx) error {
		return repo.ReplaceAll(tx, sps)
	})

	got, err := repo.GetByID(1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || !got.IsActivity() {
		t.Fatalf("activity flag not preserved: %+v", got)
	}

	missing, err := repo.GetByID(99)
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing id, got %+v", missing)
	}

	// at least one hour of dwell
	long, total, err := repo.List(models.StaypointFilter{MinDuration: 3600})
	if err != nil {
		t.Fatalf("List MinDuration: %v", err)
	}
	if total != 1 || long[0].ID != 1 {
		t.Errorf("MinDuration filter failed: total=%d got=%v", total, long)
	}

	activityOnly, _, err := repo.List(models.StaypointFilter{ActivityOnly: true})
	if err != nil {
		t.Fatalf("List ActivityOnly: %v", err)
	}
	if len(activityOnly) != 1 || activityOnly[0].ID != 1 {
		t.Errorf("ActivityOnly filter failed: %v", activityOnly)
	}

	locID := int64(7)
	sps[0].LocationID = &locID
	inTx(t, db, func(tx *sql.Tx) error {
		return repo.UpdateLocations(tx, sps[:1])
	})
	got, err = repo.GetByID(1)
	if err != nil {
		t.Fatalf("GetByID after UpdateLocations: %v", err)
	}
	if got.LocationID == nil || *got.LocationID != locID {
		t.Errorf("location id not stored: %+v", got.LocationID)
	}
}

func TestTriplegRepositoryGeometryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewTriplegRepository(db)

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	geom := []spatial.Point{{Lat: 47, Lon: 8}, {Lat: 47.01, Lon: 8.01}}
	tpls := []models.Tripleg{
		{ID: 1, UserID: 1, StartedAt: base, FinishedAt: base.Add(10 * time.Minute), Geom: geom},
	}

	inTx(t, db, func(tx *sql.Tx) error {
		return repo.ReplaceAll(tx, tpls)
	})

	got, err := repo.GetByID(1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Geom) != 2 || got.Geom[1] != geom[1] {
		t.Errorf("geometry not preserved: %+v", got.Geom)
	}
	if got.Mode != "" {
		t.Errorf("unlabeled mode should be empty, got %q", got.Mode)
	}

	tpls[0].Mode = models.ModeSlow
	inTx(t, db, func(tx *sql.Tx) error {
		return repo.UpdateModes(tx, tpls)
	})
	labeled, _, err := repo.List(models.TriplegFilter{Mode: models.ModeSlow})
	if err != nil {
		t.Fatalf("List by mode: %v", err)
	}
	if len(labeled) != 1 {
		t.Errorf("mode filter failed: %v", labeled)
	}
}

func TestTourRepositoryAssignments(t *testing.T) {
	db := openTestDB(t)
	tripRepo := NewTripRepository(db)
	tourRepo := NewTourRepository(db)

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	origin := int64(1)
	trips := []models.Trip{
		{ID: 1, UserID: 1, StartedAt: base, FinishedAt: base.Add(time.Hour), OriginStaypointID: &origin},
		{ID: 2, UserID: 1, StartedAt: base.Add(2 * time.Hour), FinishedAt: base.Add(3 * time.Hour)},
	}
	loc := int64(5)
	tours := []models.Tour{
		{ID: 1, UserID: 1, StartedAt: base, FinishedAt: base.Add(3 * time.Hour), OriginDestinationLocationID: &loc, Journey: true},
	}
	assignments := []models.TripTourAssignment{
		{TripID: 1, TourID: 1, Position: 0},
		{TripID: 2, TourID: 1, Position: 1},
	}

	inTx(t, db, func(tx *sql.Tx) error {
		if err := tripRepo.ReplaceAll(tx, trips); err != nil {
			return err
		}
		return tourRepo.ReplaceAll(tx, tours, assignments)
	})

	journeys, total, err := tourRepo.List(models.TourFilter{JourneyOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || !journeys[0].Journey {
		t.Errorf("journey filter failed: total=%d %v", total, journeys)
	}

	asg, err := tourRepo.Assignments(1)
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	if len(asg) != 2 || asg[0].TripID != 1 || asg[1].TripID != 2 {
		t.Errorf("assignments wrong: %v", asg)
	}
}

func TestPipelineTaskLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewPipelineTaskRepository(db)

	task := &models.PipelineTask{
		RunID:  "run-123",
		Stage:  models.StageSegmentation,
		Status: models.TaskStatusPending,
	}
	if err := repo.Create(task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("task id not assigned")
	}

	if err := repo.MarkAsRunning(task.ID); err != nil {
		t.Fatalf("MarkAsRunning: %v", err)
	}
	if err := repo.UpdateProgress(task.ID, 50, 0, 50); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := repo.MarkAsCompleted(task.ID, `{"staypoints":3}`); err != nil {
		t.Fatalf("MarkAsCompleted: %v", err)
	}

	got, err := repo.GetByID(task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.ProgressPercent != 100 {
		t.Errorf("progress = %v, want 100", got.ProgressPercent)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Errorf("timestamps missing: started=%v completed=%v", got.StartedAt, got.CompletedAt)
	}
	if got.SummaryJSON != `{"staypoints":3}` {
		t.Errorf("summary = %q", got.SummaryJSON)
	}

	byRun, err := repo.List("run-123", "", "", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byRun) != 1 {
		t.Errorf("run filter failed: %v", byRun)
	}
}

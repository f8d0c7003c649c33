package stages

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"

	"github.com/jharte/mobility-backend-go/internal/analysis"
	"github.com/jharte/mobility-backend-go/internal/config"
	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline/reconstruction"
	"github.com/jharte/mobility-backend-go/internal/repository"
)

// ReconstructionParams are the per-run overrides accepted in params_json.
// HomeLocations maps user ids (as JSON object keys) to the location id of
// that user's home, used for journey flagging.
type ReconstructionParams struct {
	GapThreshold      string           `json:"gap_threshold,omitempty"`
	AllowZeroLegTrips bool             `json:"allow_zero_leg_trips,omitempty"`
	TourMaxDist       float64          `json:"tour_max_dist_m,omitempty"`
	TourMaxTime       string           `json:"tour_max_time,omitempty"`
	TourMaxNrGaps     *int             `json:"tour_max_nr_gaps,omitempty"`
	HomeLocations     map[string]int64 `json:"home_locations,omitempty"`
}

// ReconstructionStage derives trips from the labeled staypoints and
// triplegs, chains trips into tours, and rewrites both tables plus the back
// references on staypoints and triplegs.
type ReconstructionStage struct {
	*analysis.BaseStage
	defaults config.PipelineConfig

	spRepo   *repository.StaypointRepository
	tplRepo  *repository.TriplegRepository
	tripRepo *repository.TripRepository
	tourRepo *repository.TourRepository
}

// NewReconstructionStage creates a new reconstruction stage
func NewReconstructionStage(db *sql.DB, cfg config.PipelineConfig) analysis.Stage {
	return &ReconstructionStage{
		BaseStage: analysis.NewBaseStage(db, models.StageReconstruction),
		defaults:  cfg,
		spRepo:    repository.NewStaypointRepository(db),
		tplRepo:   repository.NewTriplegRepository(db),
		tripRepo:  repository.NewTripRepository(db),
		tourRepo:  repository.NewTourRepository(db),
	}
}

// Run executes the reconstruction stage
func (s *ReconstructionStage) Run(ctx context.Context, taskID int64) error {
	log.Printf("[ReconstructionStage] Starting (task_id=%d)", taskID)

	return s.RunTracked(ctx, taskID, func(ctx context.Context) (interface{}, error) {
		var params ReconstructionParams
		if err := s.GetTaskParams(taskID, &params); err != nil {
			return nil, err
		}

		tripCfg := reconstruction.TripConfig{
			GapThreshold:      s.defaults.GapThreshold,
			AllowZeroLegTrips: params.AllowZeroLegTrips,
		}
		var err error
		if tripCfg.GapThreshold, err = overrideDuration(tripCfg.GapThreshold, params.GapThreshold); err != nil {
			return nil, fmt.Errorf("invalid gap_threshold: %w", err)
		}

		tourCfg := reconstruction.TourConfig{
			MaxDist:   s.defaults.TourMaxDist,
			MaxTime:   s.defaults.TourMaxTime,
			MaxNrGaps: s.defaults.TourMaxNrGaps,
		}
		if params.TourMaxDist > 0 {
			tourCfg.MaxDist = params.TourMaxDist
		}
		if tourCfg.MaxTime, err = overrideDuration(tourCfg.MaxTime, params.TourMaxTime); err != nil {
			return nil, fmt.Errorf("invalid tour_max_time: %w", err)
		}
		if params.TourMaxNrGaps != nil {
			tourCfg.MaxNrGaps = *params.TourMaxNrGaps
		}
		if tourCfg.HomeLocationIDs, err = parseHomeLocations(params.HomeLocations); err != nil {
			return nil, err
		}

		sps, err := s.spRepo.AllOrdered()
		if err != nil {
			return nil, fmt.Errorf("failed to load staypoints: %w", err)
		}
		tpls, err := s.tplRepo.AllOrdered()
		if err != nil {
			return nil, fmt.Errorf("failed to load triplegs: %w", err)
		}

		total := len(sps) + len(tpls)
		if err := s.UpdateTaskProgress(taskID, 0, total, 0); err != nil {
			return nil, fmt.Errorf("failed to update task progress: %w", err)
		}

		tripResult, err := reconstruction.GenerateTrips(sps, tpls, tripCfg)
		if err != nil {
			return nil, err
		}

		tourResult, err := reconstruction.GenerateTours(tripResult.Trips, tripResult.Staypoints, tourCfg)
		if err != nil {
			return nil, err
		}

		err = s.Transaction(func(tx *sql.Tx) error {
			if err := s.tripRepo.ReplaceAll(tx, tripResult.Trips); err != nil {
				return err
			}
			if err := s.tourRepo.ReplaceAll(tx, tourResult.Tours, tourResult.Assignments); err != nil {
				return err
			}
			if err := s.spRepo.UpdateTripRefs(tx, tripResult.Staypoints); err != nil {
				return err
			}
			return s.tplRepo.UpdateTripRefs(tx, tripResult.Triplegs)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store reconstruction output: %w", err)
		}

		if err := s.UpdateTaskProgress(taskID, total, total, 0); err != nil {
			return nil, fmt.Errorf("failed to update task progress: %w", err)
		}

		log.Printf("[ReconstructionStage] Completed: %d trips, %d tours", len(tripResult.Trips), len(tourResult.Tours))

		return map[string]interface{}{
			"trips": len(tripResult.Trips),
			"tours": len(tourResult.Tours),
		}, nil
	})
}

func parseHomeLocations(raw map[string]int64) (map[int64]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	homes := make(map[int64]int64, len(raw))
	for k, v := range raw {
		userID, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid home_locations user id %q: %w", k, err)
		}
		homes[userID] = v
	}
	return homes, nil
}

func init() {
	analysis.RegisterStage(models.StageReconstruction, NewReconstructionStage)
}

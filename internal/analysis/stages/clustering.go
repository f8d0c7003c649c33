package stages

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jharte/mobility-backend-go/internal/analysis"
	"github.com/jharte/mobility-backend-go/internal/config"
	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline/clustering"
	"github.com/jharte/mobility-backend-go/internal/repository"
)

// ClusteringParams are the per-run overrides accepted in params_json.
type ClusteringParams struct {
	Epsilon    float64 `json:"epsilon_m,omitempty"`
	MinSamples int     `json:"min_samples,omitempty"`
	// "user" (default) clusters each user independently, "dataset" runs a
	// single clustering over all users so shared places get one location.
	AggLevel string `json:"agg_level,omitempty"`
}

// ClusteringStage clusters the stored staypoints into locations, rewrites
// the locations table and annotates staypoints with their location id.
type ClusteringStage struct {
	*analysis.BaseStage
	defaults config.PipelineConfig

	spRepo  *repository.StaypointRepository
	locRepo *repository.LocationRepository
}

// NewClusteringStage creates a new clustering stage
func NewClusteringStage(db *sql.DB, cfg config.PipelineConfig) analysis.Stage {
	return &ClusteringStage{
		BaseStage: analysis.NewBaseStage(db, models.StageClustering),
		defaults:  cfg,
		spRepo:    repository.NewStaypointRepository(db),
		locRepo:   repository.NewLocationRepository(db),
	}
}

// Run executes the clustering stage
func (s *ClusteringStage) Run(ctx context.Context, taskID int64) error {
	log.Printf("[ClusteringStage] Starting (task_id=%d)", taskID)

	return s.RunTracked(ctx, taskID, func(ctx context.Context) (interface{}, error) {
		var params ClusteringParams
		if err := s.GetTaskParams(taskID, &params); err != nil {
			return nil, err
		}

		cfg := clustering.Config{
			Epsilon:    s.defaults.Epsilon,
			MinSamples: s.defaults.MinSamples,
			PerUser:    true,
		}
		if params.Epsilon > 0 {
			cfg.Epsilon = params.Epsilon
		}
		if params.MinSamples > 0 {
			cfg.MinSamples = params.MinSamples
		}
		switch params.AggLevel {
		case "", "user":
		case "dataset":
			cfg.PerUser = false
		default:
			return nil, fmt.Errorf("invalid agg_level %q, want user or dataset", params.AggLevel)
		}

		sps, err := s.spRepo.AllOrdered()
		if err != nil {
			return nil, fmt.Errorf("failed to load staypoints: %w", err)
		}

		if err := s.UpdateTaskProgress(taskID, 0, len(sps), 0); err != nil {
			return nil, fmt.Errorf("failed to update task progress: %w", err)
		}

		result, err := clustering.Generate(sps, cfg)
		if err != nil {
			return nil, err
		}

		err = s.Transaction(func(tx *sql.Tx) error {
			if err := s.locRepo.ReplaceAll(tx, result.Locations); err != nil {
				return err
			}
			return s.spRepo.UpdateLocations(tx, result.Staypoints)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store clustering output: %w", err)
		}

		if err := s.UpdateTaskProgress(taskID, len(sps), len(sps), 0); err != nil {
			return nil, fmt.Errorf("failed to update task progress: %w", err)
		}

		log.Printf("[ClusteringStage] Completed: %d staypoints -> %d locations",
			len(sps), len(result.Locations))

		return map[string]interface{}{
			"staypoints": len(sps),
			"locations":  len(result.Locations),
		}, nil
	})
}

func init() {
	analysis.RegisterStage(models.StageClustering, NewClusteringStage)
}

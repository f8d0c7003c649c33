package stages

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jharte/mobility-backend-go/internal/analysis"
	"github.com/jharte/mobility-backend-go/internal/config"
	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline/segmentation"
	"github.com/jharte/mobility-backend-go/internal/repository"
)

// SegmentationParams are the per-run overrides accepted in params_json.
// Durations are Go duration strings ("5m", "1h30m"). Zero values fall back
// to the configured defaults.
type SegmentationParams struct {
	Method        string  `json:"method,omitempty"`
	DistThreshold float64 `json:"dist_threshold_m,omitempty"`
	TimeThreshold string  `json:"time_threshold,omitempty"`
	GapThreshold  string  `json:"gap_threshold,omitempty"`
}

// SegmentationStage generates staypoints and triplegs from the stored
// positionfixes and rewrites both tables in one transaction.
type SegmentationStage struct {
	*analysis.BaseStage
	defaults config.PipelineConfig

	pfRepo  *repository.PositionfixRepository
	spRepo  *repository.StaypointRepository
	tplRepo *repository.TriplegRepository
}

// NewSegmentationStage creates a new segmentation stage
func NewSegmentationStage(db *sql.DB, cfg config.PipelineConfig) analysis.Stage {
	return &SegmentationStage{
		BaseStage: analysis.NewBaseStage(db, models.StageSegmentation),
		defaults:  cfg,
		pfRepo:    repository.NewPositionfixRepository(db),
		spRepo:    repository.NewStaypointRepository(db),
		tplRepo:   repository.NewTriplegRepository(db),
	}
}

// Run executes the segmentation stage
func (s *SegmentationStage) Run(ctx context.Context, taskID int64) error {
	log.Printf("[SegmentationStage] Starting (task_id=%d)", taskID)

	return s.RunTracked(ctx, taskID, func(ctx context.Context) (interface{}, error) {
		var params SegmentationParams
		if err := s.GetTaskParams(taskID, &params); err != nil {
			return nil, err
		}

		cfg, err := s.buildConfig(params)
		if err != nil {
			return nil, err
		}

		pfs, err := s.pfRepo.AllOrdered()
		if err != nil {
			return nil, fmt.Errorf("failed to load positionfixes: %w", err)
		}

		if err := s.UpdateTaskProgress(taskID, 0, len(pfs), 0); err != nil {
			return nil, fmt.Errorf("failed to update task progress: %w", err)
		}

		result, err := segmentation.Generate(pfs, cfg)
		if err != nil {
			return nil, err
		}

		err = s.Transaction(func(tx *sql.Tx) error {
			if err := s.spRepo.ReplaceAll(tx, result.Staypoints); err != nil {
				return err
			}
			if err := s.tplRepo.ReplaceAll(tx, result.Triplegs); err != nil {
				return err
			}
			return s.pfRepo.UpdateSegmentRefs(tx, result.Positionfixes)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store segmentation output: %w", err)
		}

		if err := s.UpdateTaskProgress(taskID, len(pfs), len(pfs), 0); err != nil {
			return nil, fmt.Errorf("failed to update task progress: %w", err)
		}

		log.Printf("[SegmentationStage] Completed: %d fixes -> %d staypoints, %d triplegs",
			len(pfs), len(result.Staypoints), len(result.Triplegs))

		return map[string]interface{}{
			"positionfixes": len(pfs),
			"staypoints":    len(result.Staypoints),
			"triplegs":      len(result.Triplegs),
		}, nil
	})
}

func (s *SegmentationStage) buildConfig(params SegmentationParams) (segmentation.Config, error) {
	cfg := segmentation.Config{
		Method:        segmentation.MethodGapAware,
		DistThreshold: s.defaults.DistThreshold,
		TimeThreshold: s.defaults.TimeThreshold,
		GapThreshold:  s.defaults.GapThreshold,
	}

	if params.Method != "" {
		cfg.Method = params.Method
	}
	if params.DistThreshold > 0 {
		cfg.DistThreshold = params.DistThreshold
	}

	var err error
	if cfg.TimeThreshold, err = overrideDuration(cfg.TimeThreshold, params.TimeThreshold); err != nil {
		return cfg, fmt.Errorf("invalid time_threshold: %w", err)
	}
	if cfg.GapThreshold, err = overrideDuration(cfg.GapThreshold, params.GapThreshold); err != nil {
		return cfg, fmt.Errorf("invalid gap_threshold: %w", err)
	}

	return cfg, nil
}

// overrideDuration parses a duration override, keeping the default when the
// override is empty.
func overrideDuration(def time.Duration, override string) (time.Duration, error) {
	if override == "" {
		return def, nil
	}
	return time.ParseDuration(override)
}

func init() {
	analysis.RegisterStage(models.StageSegmentation, NewSegmentationStage)
}

package stages

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"

	"github.com/jharte/mobility-backend-go/internal/analysis"
	"github.com/jharte/mobility-backend-go/internal/config"
	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline/inference"
	"github.com/jharte/mobility-backend-go/internal/repository"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// SpeedBandParam is one speed band in params_json. UpperKmh <= 0 marks the
// unbounded last band.
type SpeedBandParam struct {
	UpperKmh float64 `json:"upper_kmh"`
	Mode     string  `json:"mode"`
}

// InferenceParams are the per-run overrides accepted in params_json.
type InferenceParams struct {
	ActivityThreshold string           `json:"activity_threshold,omitempty"`
	Bands             []SpeedBandParam `json:"bands,omitempty"`
}

// InferenceStage labels staypoints with activity flags and triplegs with a
// predicted transport mode. It must run after segmentation and before trip
// generation, which requires the activity flags.
type InferenceStage struct {
	*analysis.BaseStage
	defaults config.PipelineConfig

	spRepo  *repository.StaypointRepository
	tplRepo *repository.TriplegRepository
}

// NewInferenceStage creates a new inference stage
func NewInferenceStage(db *sql.DB, cfg config.PipelineConfig) analysis.Stage {
	return &InferenceStage{
		BaseStage: analysis.NewBaseStage(db, models.StageInference),
		defaults:  cfg,
		spRepo:    repository.NewStaypointRepository(db),
		tplRepo:   repository.NewTriplegRepository(db),
	}
}

// Run executes the inference stage
func (s *InferenceStage) Run(ctx context.Context, taskID int64) error {
	log.Printf("[InferenceStage] Starting (task_id=%d)", taskID)

	return s.RunTracked(ctx, taskID, func(ctx context.Context) (interface{}, error) {
		var params InferenceParams
		if err := s.GetTaskParams(taskID, &params); err != nil {
			return nil, err
		}

		activityCfg := inference.ActivityConfig{TimeThreshold: s.defaults.ActivityThresh}
		var err error
		if activityCfg.TimeThreshold, err = overrideDuration(activityCfg.TimeThreshold, params.ActivityThreshold); err != nil {
			return nil, fmt.Errorf("invalid activity_threshold: %w", err)
		}

		modeCfg := inference.ModeConfig{Bands: inference.DefaultBands()}
		if len(params.Bands) > 0 {
			modeCfg.Bands = buildBands(params.Bands)
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

		flagged, err := inference.CreateActivityFlag(sps, activityCfg)
		if err != nil {
			return nil, err
		}

		labeled, err := inference.PredictTransportMode(tpls, modeCfg)
		if err != nil {
			return nil, err
		}

		err = s.Transaction(func(tx *sql.Tx) error {
			if err := s.spRepo.UpdateActivityFlags(tx, flagged); err != nil {
				return err
			}
			return s.tplRepo.UpdateModes(tx, labeled)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store inference output: %w", err)
		}

		if err := s.UpdateTaskProgress(taskID, total, total, 0); err != nil {
			return nil, fmt.Errorf("failed to update task progress: %w", err)
		}

		activities := 0
		for _, sp := range flagged {
			if sp.IsActivity() {
				activities++
			}
		}
		modeCounts := map[string]int{}
		for _, tpl := range labeled {
			modeCounts[tpl.Mode]++
		}

		log.Printf("[InferenceStage] Completed: %d/%d activity staypoints, %d triplegs labeled",
			activities, len(flagged), len(labeled))

		return map[string]interface{}{
			"staypoints": len(flagged),
			"activities": activities,
			"triplegs":   len(labeled),
			"modes":      modeCounts,
		}, nil
	})
}

// buildBands converts km/h params into the m/s bands the engine takes. A
// non-positive upper bound means unbounded.
func buildBands(params []SpeedBandParam) []inference.SpeedBand {
	bands := make([]inference.SpeedBand, len(params))
	for i, p := range params {
		upper := math.Inf(1)
		if p.UpperKmh > 0 {
			upper = spatial.KmhToMs(p.UpperKmh)
		}
		bands[i] = inference.SpeedBand{UpperBound: upper, Mode: p.Mode}
	}
	return bands
}

func init() {
	analysis.RegisterStage(models.StageInference, NewInferenceStage)
}

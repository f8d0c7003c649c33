package service

import (
	"fmt"
	"sort"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline/inference"
	"github.com/jharte/mobility-backend-go/internal/repository"
	"github.com/jharte/mobility-backend-go/internal/spatial"
	"github.com/jharte/mobility-backend-go/internal/stats"
)

// AnalyticsService computes dataset-level metrics from the pipeline output
type AnalyticsService struct {
	pfRepo  *repository.PositionfixRepository
	spRepo  *repository.StaypointRepository
	tplRepo *repository.TriplegRepository
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(pfRepo *repository.PositionfixRepository, spRepo *repository.StaypointRepository, tplRepo *repository.TriplegRepository) *AnalyticsService {
	return &AnalyticsService{
		pfRepo:  pfRepo,
		spRepo:  spRepo,
		tplRepo: tplRepo,
	}
}

// QualitySummary describes the distribution of per-bucket quality values.
type QualitySummary struct {
	Buckets int     `json:"buckets"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
	P10     float64 `json:"p10"`
	P90     float64 `json:"p90"`
}

// TrackingQuality computes the temporal tracking coverage of the dataset in
// the requested granularity, with a summary of the quality distribution.
func (s *AnalyticsService) TrackingQuality(granularity string) ([]inference.Quality, *QualitySummary, error) {
	g := inference.Granularity(granularity)
	if granularity == "" {
		g = inference.GranularityAll
	}

	sps, err := s.spRepo.AllOrdered()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load staypoints: %w", err)
	}
	tpls, err := s.tplRepo.AllOrdered()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load triplegs: %w", err)
	}

	qualities, err := inference.TemporalTrackingQuality(inference.IntervalsFromMovement(sps, tpls), g)
	if err != nil {
		return nil, nil, err
	}

	values := make([]float64, len(qualities))
	for i, q := range qualities {
		values[i] = q.Quality
	}

	summary := &QualitySummary{
		Buckets: len(values),
		Mean:    stats.Mean(values),
		Median:  stats.Median(values),
		StdDev:  stats.StdDev(values),
		P10:     stats.Percentile(values, 10),
		P90:     stats.Percentile(values, 90),
	}

	return qualities, summary, nil
}

// ModalSplit computes the share of each transport mode over the labeled
// triplegs.
func (s *AnalyticsService) ModalSplit(cfg inference.SplitConfig) ([]inference.ModalShare, error) {
	tpls, err := s.tplRepo.AllOrdered()
	if err != nil {
		return nil, fmt.Errorf("failed to load triplegs: %w", err)
	}
	return inference.ModalSplit(tpls, cfg)
}

// UserMobility summarizes the spatial footprint of one user.
type UserMobility struct {
	UserID           int64   `json:"user_id"`
	Positionfixes    int     `json:"positionfixes"`
	RadiusOfGyration float64 `json:"radius_of_gyration_m"` // meters
	// Entropy of the user's location visit distribution, 0 when the user
	// always stays at one location and 1 when visits are spread evenly.
	LocationEntropy float64 `json:"location_entropy"`
	// Coverage rectangle of the user's positionfixes.
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// UserMobilitySummaries computes per-user radius of gyration and location
// visit entropy over the whole dataset.
func (s *AnalyticsService) UserMobilitySummaries() ([]UserMobility, error) {
	pfs, err := s.pfRepo.AllOrdered()
	if err != nil {
		return nil, fmt.Errorf("failed to load positionfixes: %w", err)
	}
	sps, err := s.spRepo.AllOrdered()
	if err != nil {
		return nil, fmt.Errorf("failed to load staypoints: %w", err)
	}

	pointsByUser := make(map[int64][]spatial.Point)
	for _, pf := range pfs {
		pointsByUser[pf.UserID] = append(pointsByUser[pf.UserID], spatial.Point{Lat: pf.Latitude, Lon: pf.Longitude})
	}

	visitsByUser := make(map[int64]map[int64]float64)
	for _, sp := range sps {
		if sp.LocationID == nil {
			continue
		}
		if visitsByUser[sp.UserID] == nil {
			visitsByUser[sp.UserID] = make(map[int64]float64)
		}
		visitsByUser[sp.UserID][*sp.LocationID]++
	}

	summaries := make([]UserMobility, 0, len(pointsByUser))
	for userID, points := range pointsByUser {
		m := UserMobility{
			UserID:           userID,
			Positionfixes:    len(points),
			RadiusOfGyration: spatial.RadiusOfGyration(points),
		}
		m.MinLat, m.MinLon, m.MaxLat, m.MaxLon = spatial.BoundingBox(points)

		if visits := visitsByUser[userID]; len(visits) > 0 {
			counts := make([]float64, 0, len(visits))
			for _, c := range visits {
				counts = append(counts, c)
			}
			m.LocationEntropy = stats.NormalizedEntropy(counts)
		}

		summaries = append(summaries, m)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].UserID < summaries[j].UserID })
	return summaries, nil
}

// ModeStats summarizes tripleg travel per transport mode.
type ModeStats struct {
	Mode           string  `json:"mode"`
	Count          int     `json:"count"`
	TotalKm        float64 `json:"total_km"`
	MedianKm       float64 `json:"median_km"`
	MeanDurationS  float64 `json:"mean_duration_s"`
	TotalDurationS float64 `json:"total_duration_s"`
}

// ModeStatistics aggregates distance and duration per predicted mode.
func (s *AnalyticsService) ModeStatistics() ([]ModeStats, error) {
	tpls, err := s.tplRepo.AllOrdered()
	if err != nil {
		return nil, fmt.Errorf("failed to load triplegs: %w", err)
	}

	type acc struct {
		distances []float64
		durations []float64
	}
	byMode := make(map[string]*acc)
	for _, tpl := range tpls {
		mode := tpl.Mode
		if mode == "" {
			mode = models.ModeUnknown
		}
		a := byMode[mode]
		if a == nil {
			a = &acc{}
			byMode[mode] = a
		}
		a.distances = append(a.distances, tpl.Length())
		a.durations = append(a.durations, tpl.Duration().Seconds())
	}

	result := make([]ModeStats, 0, len(byMode))
	for mode, a := range byMode {
		result = append(result, ModeStats{
			Mode:           mode,
			Count:          len(a.distances),
			TotalKm:        stats.Sum(a.distances) / 1000,
			MedianKm:       stats.Median(a.distances) / 1000,
			MeanDurationS:  stats.Mean(a.durations),
			TotalDurationS: stats.Sum(a.durations),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Mode < result[j].Mode })
	return result, nil
}

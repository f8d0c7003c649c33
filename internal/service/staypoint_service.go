package service

import (
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline/clustering"
	"github.com/jharte/mobility-backend-go/internal/repository"
)

// StaypointService handles business logic for staypoints
type StaypointService struct {
	repo *repository.StaypointRepository
}

// NewStaypointService creates a new staypoint service
func NewStaypointService(repo *repository.StaypointRepository) *StaypointService {
	return &StaypointService{repo: repo}
}

// GetStaypoints retrieves staypoints with filtering and pagination
func (s *StaypointService) GetStaypoints(filter models.StaypointFilter) ([]models.Staypoint, int64, error) {
	return s.repo.List(filter)
}

// GetStaypointByID retrieves a single staypoint by ID
func (s *StaypointService) GetStaypointByID(id int64) (*models.Staypoint, error) {
	return s.repo.GetByID(id)
}

// GetMergedStaypoints returns a merged view of the stored staypoints where
// consecutive stays at the same location separated by less than maxGap are
// collapsed into one. The stored rows are not modified.
func (s *StaypointService) GetMergedStaypoints(maxGap time.Duration) ([]models.Staypoint, error) {
	sps, err := s.repo.AllOrdered()
	if err != nil {
		return nil, err
	}
	return clustering.MergeStaypoints(sps, maxGap)
}

package service

import (
	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/repository"
)

// LocationService handles business logic for locations
type LocationService struct {
	repo *repository.LocationRepository
}

// NewLocationService creates a new location service
func NewLocationService(repo *repository.LocationRepository) *LocationService {
	return &LocationService{repo: repo}
}

// GetLocations retrieves locations with filtering and pagination
func (s *LocationService) GetLocations(filter models.LocationFilter) ([]models.Location, int64, error) {
	return s.repo.List(filter)
}

// GetLocationByID retrieves a single location by ID
func (s *LocationService) GetLocationByID(id int64) (*models.Location, error) {
	return s.repo.GetByID(id)
}

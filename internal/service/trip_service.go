package service

import (
	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/repository"
)

// TripService handles business logic for trips and tours
type TripService struct {
	tripRepo *repository.TripRepository
	tourRepo *repository.TourRepository
}

// NewTripService creates a new trip service
func NewTripService(tripRepo *repository.TripRepository, tourRepo *repository.TourRepository) *TripService {
	return &TripService{
		tripRepo: tripRepo,
		tourRepo: tourRepo,
	}
}

// GetTrips retrieves trips with filtering and pagination
func (s *TripService) GetTrips(filter models.TripFilter) ([]models.Trip, int64, error) {
	return s.tripRepo.List(filter)
}

// GetTripByID retrieves a single trip by ID
func (s *TripService) GetTripByID(id int64) (*models.Trip, error) {
	return s.tripRepo.GetByID(id)
}

// GetTours retrieves tours with filtering and pagination
func (s *TripService) GetTours(filter models.TourFilter) ([]models.Tour, int64, error) {
	return s.tourRepo.List(filter)
}

// GetTourByID retrieves a single tour with its ordered trip memberships
func (s *TripService) GetTourByID(id int64) (*models.Tour, []models.TripTourAssignment, error) {
	tour, err := s.tourRepo.GetByID(id)
	if err != nil || tour == nil {
		return tour, nil, err
	}

	assignments, err := s.tourRepo.Assignments(id)
	if err != nil {
		return nil, nil, err
	}
	return tour, assignments, nil
}

package service

import (
	"database/sql"
	"fmt"
	"io"
	"log"

	"github.com/jharte/mobility-backend-go/internal/database"
	"github.com/jharte/mobility-backend-go/internal/ingest"
	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/repository"
)

// PositionfixService handles business logic for positionfixes
type PositionfixService struct {
	repo *repository.PositionfixRepository
}

// NewPositionfixService creates a new positionfix service
func NewPositionfixService(repo *repository.PositionfixRepository) *PositionfixService {
	return &PositionfixService{repo: repo}
}

// GetPositionfixes retrieves positionfixes with filtering and pagination
func (s *PositionfixService) GetPositionfixes(filter models.PositionfixFilter) ([]models.Positionfix, int64, error) {
	return s.repo.List(filter)
}

// Count returns the total number of stored positionfixes
func (s *PositionfixService) Count() (int64, error) {
	return s.repo.Count()
}

// ImportCSV parses a CSV stream and stores the positionfixes in one
// transaction. Any malformed row rejects the whole upload.
func (s *PositionfixService) ImportCSV(r io.Reader) (int64, error) {
	pfs, err := ingest.ReadPositionfixesCSV(r)
	if err != nil {
		return 0, err
	}
	if len(pfs) == 0 {
		return 0, nil
	}

	var inserted int64
	err = database.Transaction(func(tx *sql.Tx) error {
		n, err := s.repo.BulkInsert(tx, pfs)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store positionfixes: %w", err)
	}

	log.Printf("[PositionfixService] Imported %d positionfixes", inserted)
	return inserted, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jharte/mobility-backend-go/internal/config"
	"github.com/jharte/mobility-backend-go/internal/export"
	"github.com/jharte/mobility-backend-go/internal/repository"
)

// ErrExportDisabled is returned when no PostGIS target is configured.
var ErrExportDisabled = errors.New("postgis export is not configured")

// ExportService copies the pipeline output to the configured PostGIS target
type ExportService struct {
	cfg config.ExportConfig

	pfRepo  *repository.PositionfixRepository
	spRepo  *repository.StaypointRepository
	tplRepo *repository.TriplegRepository
	locRepo *repository.LocationRepository
}

// NewExportService creates a new export service
func NewExportService(cfg config.ExportConfig, pfRepo *repository.PositionfixRepository, spRepo *repository.StaypointRepository, tplRepo *repository.TriplegRepository, locRepo *repository.LocationRepository) *ExportService {
	return &ExportService{
		cfg:     cfg,
		pfRepo:  pfRepo,
		spRepo:  spRepo,
		tplRepo: tplRepo,
		locRepo: locRepo,
	}
}

// Enabled reports whether a PostGIS target is configured
func (s *ExportService) Enabled() bool {
	return s.cfg.PostgresDSN != ""
}

// ExportToPostGIS writes the complete dataset to the configured target
func (s *ExportService) ExportToPostGIS(ctx context.Context) (export.Counts, error) {
	var counts export.Counts
	if !s.Enabled() {
		return counts, ErrExportDisabled
	}

	pfs, err := s.pfRepo.AllOrdered()
	if err != nil {
		return counts, fmt.Errorf("failed to load positionfixes: %w", err)
	}
	sps, err := s.spRepo.AllOrdered()
	if err != nil {
		return counts, fmt.Errorf("failed to load staypoints: %w", err)
	}
	tpls, err := s.tplRepo.AllOrdered()
	if err != nil {
		return counts, fmt.Errorf("failed to load triplegs: %w", err)
	}
	locs, err := s.locRepo.AllOrdered()
	if err != nil {
		return counts, fmt.Errorf("failed to load locations: %w", err)
	}

	exporter, err := export.NewExporter(s.cfg.PostgresDSN, s.cfg.SRID)
	if err != nil {
		return counts, err
	}
	defer exporter.Close()

	log.Printf("[ExportService] Exporting dataset (srid=%d)", s.cfg.SRID)
	return exporter.Export(ctx, pfs, sps, tpls, locs)
}

package service

import (
	"context"

	"barberq/internal/domain"
	"barberq/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService exposes the barber and service lists and keeps barber
// availability in step with the queue.
type CatalogService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewCatalogService(repo domain.Repository, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

func (s *CatalogService) Barbers(ctx context.Context) ([]models.Barber, error) {
	return s.repo.ListBarbers(ctx)
}

func (s *CatalogService) Services(ctx context.Context) ([]models.Service, error) {
	return s.repo.ListServices(ctx)
}

// Seed upserts the configured catalog at startup. Existing rows keep
// their IDs so bookings stay attached.
func (s *CatalogService) Seed(ctx context.Context, barbers []models.Barber, services []models.Service) error {
	for i := range barbers {
		if barbers[i].Status == "" {
			barbers[i].Status = models.BarberAvailable
		}
		if err := s.repo.UpsertBarber(ctx, &barbers[i]); err != nil {
			return err
		}
	}
	for i := range services {
		if err := s.repo.UpsertService(ctx, &services[i]); err != nil {
			return err
		}
	}
	return nil
}

// RefreshBarberStatus marks a barber busy while someone is in the chair
// and available otherwise.
func (s *CatalogService) RefreshBarberStatus(ctx context.Context, barberID string) error {
	inService, err := s.repo.GetInServiceCustomer(ctx, barberID)
	if err != nil {
		return err
	}
	status := models.BarberAvailable
	if inService != nil {
		status = models.BarberBusy
	}
	return s.repo.UpdateBarberStatus(ctx, barberID, status)
}

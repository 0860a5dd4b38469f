package service

import (
	"context"
	"errors"
	"fmt"

	"taxbook/internal/domain"
	"taxbook/internal/models"

	"github.com/rs/zerolog"
)

var ErrServiceNotFound = errors.New("service not found")

// CatalogService lists the services a customer can book.
type CatalogService struct {
	api    domain.CatalogAPI
	logger *zerolog.Logger
}

func NewCatalogService(api domain.CatalogAPI, logger *zerolog.Logger) *CatalogService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CatalogService{api: api, logger: logger}
}

// ListServices returns active services only.
func (s *CatalogService) ListServices(ctx context.Context) ([]models.Service, error) {
	all, err := s.api.ListServices(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list services")
		return nil, err
	}

	active := make([]models.Service, 0, len(all))
	for _, svc := range all {
		if svc.IsActive {
			active = append(active, svc)
		}
	}
	return active, nil
}

func (s *CatalogService) GetService(ctx context.Context, id string) (*models.Service, error) {
	services, err := s.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range services {
		if services[i].ID == id {
			return &services[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, id)
}

// Package directory serves the pickers on both dashboards: doctors by
// department for patients booking, and the patient roster for doctors
// adding appointments. Listings are cached briefly since they change
// rarely and are hit on every dashboard load.
package directory

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/repository"
)

const (
	cacheTTL        = 30 * time.Second
	cleanupInterval = 5 * time.Minute
	patientsKey     = "patients"
)

type Service struct {
	users repository.UserRepository
	cache *gocache.Cache
}

func NewService(users repository.UserRepository) *Service {
	return &Service{
		users: users,
		cache: gocache.New(cacheTTL, cleanupInterval),
	}
}

func (s *Service) DoctorsByDepartment(ctx context.Context, department string) ([]*model.User, error) {
	key := "dept:" + department
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]*model.User), nil
	}

	doctors, err := s.users.ListDoctorsByDepartment(ctx, department)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	s.cache.Set(key, doctors, gocache.DefaultExpiration)
	return doctors, nil
}

func (s *Service) Patients(ctx context.Context) ([]*model.User, error) {
	if cached, ok := s.cache.Get(patientsKey); ok {
		return cached.([]*model.User), nil
	}

	patients, err := s.users.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	s.cache.Set(patientsKey, patients, gocache.DefaultExpiration)
	return patients, nil
}

// Flush drops cached listings; called after signup so new users show up
// without waiting out the TTL.
func (s *Service) Flush() {
	s.cache.Flush()
}

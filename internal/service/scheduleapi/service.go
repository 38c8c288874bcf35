// Package scheduleapi exposes the availability calculator and working-hours
// management over the user store.
package scheduleapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/repository"
	"github.com/medbook/medbook-api/internal/schedule"
	apperrors "github.com/medbook/medbook-api/pkg/errors"
	"github.com/medbook/medbook-api/pkg/metrics"
	"github.com/medbook/medbook-api/pkg/validator"
)

type Service struct {
	users     repository.UserRepository
	metrics   *metrics.Metrics
	validator validator.Validator

	// now is injectable for tests
	now func() time.Time
}

func NewService(users repository.UserRepository, m *metrics.Metrics) *Service {
	return &Service{
		users:     users,
		metrics:   m,
		validator: validator.New(),
		now:       time.Now,
	}
}

// ListAvailableSlots computes the bookable start times for the doctor on
// the given date. "No slots" outcomes (past date, non-working day) are part
// of the listing, not errors; only an unknown doctor or a storage failure
// errors out.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.SlotListing, error) {
	doctor, err := s.users.GetByRole(ctx, doctorID, model.RoleDoctor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	timer := prometheus.NewTimer(s.metrics.SlotComputations)
	listing := schedule.ComputeSlots(doctor.WorkingHours(), date, s.now())
	timer.ObserveDuration()

	result := &model.SlotListing{
		Slots: listing.Slots,
		Error: string(listing.Reason),
	}
	if listing.Reason == schedule.ReasonNonWorkingDay {
		result.WorkingDaysHint = listing.WorkingDayNames
	}
	if result.Slots == nil {
		result.Slots = []string{}
	}
	return result, nil
}

// UpdateWorkingHours replaces the doctor's slot configuration.
func (s *Service) UpdateWorkingHours(ctx context.Context, doctorID uuid.UUID, req *model.UpdateWorkingHoursRequest) error {
	for _, day := range req.WorkingDays {
		if err := s.validator.ValidateVar(day, "weekday"); err != nil {
			return apperrors.Validation(fmt.Sprintf("invalid working day %d", day), err)
		}
	}
	if err := s.validator.ValidateVar(req.StartTime, "hhmm"); err != nil {
		return apperrors.Validation(fmt.Sprintf("invalid start time %q", req.StartTime), err)
	}
	if err := s.validator.ValidateVar(req.EndTime, "hhmm"); err != nil {
		return apperrors.Validation(fmt.Sprintf("invalid end time %q", req.EndTime), err)
	}

	hours := model.WorkingHours{
		WorkingDays:  req.WorkingDays,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		SlotDuration: req.SlotDuration,
	}
	if err := s.users.UpdateWorkingHours(ctx, doctorID, hours); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("doctor", err)
		}
		return fmt.Errorf("failed to update working hours: %w", err)
	}
	return nil
}

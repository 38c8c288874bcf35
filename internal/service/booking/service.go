// Package booking owns the appointment lifecycle: creation on either side
// of the doctor/patient relationship, status transitions, cancellation and
// removal. Every mutation is scoped to the owning doctor or patient.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/repository"
	apperrors "github.com/medbook/medbook-api/pkg/errors"
	"github.com/medbook/medbook-api/pkg/logger"
	"github.com/medbook/medbook-api/pkg/metrics"
)

var slotTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type Service struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	outbox       repository.OutboxRepository
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(
	appointments repository.AppointmentRepository,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	return &Service{
		appointments: appointments,
		users:        users,
		outbox:       outbox,
		metrics:      m,
		logger:       l,
	}
}

// eventPayload is the outbox message body for appointment events.
type eventPayload struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
}

// BookByPatient creates a pending appointment for the patient with the
// given doctor. The slot is reserved atomically; a taken slot surfaces as
// a Conflict error for the caller to pick another time.
func (s *Service) BookByPatient(ctx context.Context, patientID uuid.UUID, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.Validation("invalid doctor id", err)
	}
	return s.create(ctx, patientID, doctorID, req.Date, req.Time, req.Notes, model.AppointmentStatusPending, "patient")
}

// BookByDoctor creates an appointment on behalf of a patient; it starts
// pre-approved since the doctor is the one placing it.
func (s *Service) BookByDoctor(ctx context.Context, doctorID uuid.UUID, req *model.AddAppointmentRequest) (*model.Appointment, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, apperrors.Validation("invalid patient id", err)
	}
	return s.create(ctx, patientID, doctorID, req.Date, req.Time, req.Notes, model.AppointmentStatusApproved, "doctor")
}

func (s *Service) create(ctx context.Context, patientID, doctorID uuid.UUID, dateStr, timeStr, notes string, status model.AppointmentStatus, initiator string) (*model.Appointment, error) {
	date, err := model.ParseDate(dateStr)
	if err != nil {
		return nil, apperrors.Validation("invalid date", err)
	}
	if !slotTimePattern.MatchString(timeStr) {
		return nil, apperrors.Validation(fmt.Sprintf("invalid time %q", timeStr), nil)
	}

	doctor, err := s.users.GetByRole(ctx, doctorID, model.RoleDoctor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	patient, err := s.users.GetByRole(ctx, patientID, model.RolePatient)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	doctorName := doctor.Username
	if initiator == "doctor" {
		doctorName = "Dr. " + doctor.Username
	}

	apt := &model.Appointment{
		ID:          uuid.New(),
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		PatientName: patient.Patient.FullName(patient.Username),
		DoctorName:  doctorName,
		Department:  doctor.Doctor.Department,
		Date:        date,
		Time:        timeStr,
		Notes:       notes,
		Status:      status,
	}

	event := s.buildEvent(model.EventAppointmentCreated, apt)
	if err := s.appointments.CreateWithConflictCheck(ctx, apt, event); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.BookingConflicts.Inc()
			return nil, apperrors.Conflict("appointment slot already booked", err)
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.metrics.BookingsCreated.WithLabelValues(initiator).Inc()
	s.logger.Info("appointment created",
		"appointment_id", apt.ID.String(),
		"doctor_id", doctor.ID.String(),
		"status", string(status))

	return apt, nil
}

// ListForOwner returns the appointments belonging to the given doctor or
// patient, ordered by date then time.
func (s *Service) ListForOwner(ctx context.Context, role model.Role, ownerID uuid.UUID) ([]*model.Appointment, error) {
	switch role {
	case model.RoleDoctor:
		return s.appointments.ListForDoctor(ctx, ownerID)
	case model.RolePatient:
		return s.appointments.ListForPatient(ctx, ownerID)
	default:
		return nil, apperrors.Validation(fmt.Sprintf("invalid role %q", role), nil)
	}
}

// SetStatus applies a doctor-initiated transition (approve, reject,
// re-approve). Cancelled appointments are out of reach: the repository
// scopes the update to non-cancelled rows, so they read as not found.
func (s *Service) SetStatus(ctx context.Context, doctorID, appointmentID uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if !status.Valid() || status == model.AppointmentStatusCancelled {
		return nil, apperrors.Validation(fmt.Sprintf("invalid status %q", status), nil)
	}

	apt, err := s.appointments.UpdateStatusForDoctor(ctx, doctorID, appointmentID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	s.publish(ctx, model.EventAppointmentStatus, apt)
	return apt, nil
}

// Cancel is the patient-side soft cancellation. Cancelling an appointment
// that is already cancelled, or one owned by someone else, fails with not
// found rather than silently succeeding.
func (s *Service) Cancel(ctx context.Context, patientID, appointmentID uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.CancelForPatient(ctx, patientID, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	s.metrics.StatusChanges.WithLabelValues(string(model.AppointmentStatusCancelled)).Inc()
	s.publish(ctx, model.EventAppointmentCancelled, apt)
	return apt, nil
}

// Delete is the doctor-side hard removal.
func (s *Service) Delete(ctx context.Context, doctorID, appointmentID uuid.UUID) error {
	apt, err := s.appointments.DeleteForDoctor(ctx, doctorID, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("appointment", err)
		}
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	s.publish(ctx, model.EventAppointmentDeleted, apt)
	return nil
}

func (s *Service) buildEvent(eventType string, apt *model.Appointment) *model.OutboxEvent {
	payload, err := json.Marshal(eventPayload{
		AppointmentID: apt.ID,
		PatientID:     apt.PatientID,
		DoctorID:      apt.DoctorID,
		Date:          apt.Date.String(),
		Time:          apt.Time,
		Status:        string(apt.Status),
	})
	if err != nil {
		return nil
	}
	return &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}
}

// publish enqueues an event after a successful mutation. Failures are
// logged, not surfaced: the booking change itself already committed.
func (s *Service) publish(ctx context.Context, eventType string, apt *model.Appointment) {
	event := s.buildEvent(eventType, apt)
	if event == nil {
		return
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to enqueue event",
			"event_type", eventType,
			"appointment_id", apt.ID.String())
	}
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medbook/medbook-api/internal/model"
)

// Sentinel errors mapped by the service layer onto the API error taxonomy.
var (
	ErrNotFound      = errors.New("not found")
	ErrSlotTaken     = errors.New("slot already booked")
	ErrUsernameTaken = errors.New("username already exists")
)

type (
	// UserRepository handles the unified doctor/patient store
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByRole(ctx context.Context, id uuid.UUID, role model.Role) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		ListDoctorsByDepartment(ctx context.Context, department string) ([]*model.User, error)
		ListPatients(ctx context.Context) ([]*model.User, error)
		UpdateWorkingHours(ctx context.Context, doctorID uuid.UUID, hours model.WorkingHours) error
	}

	// AppointmentRepository owns appointment rows. CreateWithConflictCheck
	// runs the occupancy probe, the insert and the outbox write in one
	// transaction so concurrent bookings of the same slot cannot both win.
	AppointmentRepository interface {
		CreateWithConflictCheck(ctx context.Context, apt *model.Appointment, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
		UpdateStatusForDoctor(ctx context.Context, doctorID, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error)
		CancelForPatient(ctx context.Context, patientID, id uuid.UUID) (*model.Appointment, error)
		DeleteForDoctor(ctx context.Context, doctorID, id uuid.UUID) (*model.Appointment, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
	}
)

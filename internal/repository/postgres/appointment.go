package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/repository"
)

const appointmentColumns = `
	id, patient_id, doctor_id, patient_name, doctor_name,
	department, date, time, notes, status, created_at`

// CreateWithConflictCheck reserves the slot and inserts the appointment in a
// single transaction. The probe locks any occupying row; the partial unique
// index on (doctor_id, date, time) for non-cancelled rows backs it up, so a
// racing insert that slips past the probe still fails with ErrSlotTaken.
func (r *appointmentRepository) CreateWithConflictCheck(ctx context.Context, apt *model.Appointment, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	probe := `
		SELECT id FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND time = $3 AND status <> 'cancelled'
		LIMIT 1
		FOR UPDATE
	`
	var occupied uuid.UUID
	err = tx.GetContext(ctx, &occupied, probe, apt.DoctorID, apt.Date, apt.Time)
	if err == nil {
		return repository.ErrSlotTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check slot: %w", err)
	}

	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	apt.CreatedAt = time.Now()

	insert := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, patient_name, doctor_name,
			department, date, time, notes, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, insert,
		apt.ID, apt.PatientID, apt.DoctorID, apt.PatientName, apt.DoctorName,
		apt.Department, apt.Date, apt.Time, apt.Notes, apt.Status, apt.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if event != nil {
		if err := insertOutboxEvent(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY date, time
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
		ORDER BY date, time
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

// UpdateStatusForDoctor is scoped to the owning doctor and to non-cancelled
// rows; a wrong owner or a cancelled target reads as not found.
func (r *appointmentRepository) UpdateStatusForDoctor(ctx context.Context, doctorID, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $1
		WHERE id = $2 AND doctor_id = $3 AND status <> 'cancelled'
		RETURNING ` + appointmentColumns

	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, status, id, doctorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) CancelForPatient(ctx context.Context, patientID, id uuid.UUID) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = 'cancelled'
		WHERE id = $1 AND patient_id = $2 AND status <> 'cancelled'
		RETURNING ` + appointmentColumns

	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, id, patientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) DeleteForDoctor(ctx context.Context, doctorID, id uuid.UUID) (*model.Appointment, error) {
	query := `
		DELETE FROM appointments
		WHERE id = $1 AND doctor_id = $2
		RETURNING ` + appointmentColumns

	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, id, doctorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete appointment: %w", err)
	}
	return &apt, nil
}

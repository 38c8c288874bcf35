package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusApproved  AppointmentStatus = "approved"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusApproved,
		AppointmentStatusRejected, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Appointment is a booked slot. PatientName, DoctorName and Department are
// snapshots taken at creation and are not kept in sync with later user edits.
type Appointment struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	PatientID   uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientName string            `db:"patient_name" json:"patient_name"`
	DoctorName  string            `db:"doctor_name" json:"doctor_name"`
	Department  string            `db:"department" json:"department"`
	Date        Date              `db:"date" json:"date"`
	Time        string            `db:"time" json:"time"`
	Notes       string            `db:"notes" json:"notes,omitempty"`
	Status      AppointmentStatus `db:"status" json:"status"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id" binding:"required,uuid"`
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	Notes    string `json:"notes" binding:"max=1000"`
}

// AddAppointmentRequest is the doctor-side booking on behalf of a patient.
type AddAppointmentRequest struct {
	PatientID string `json:"patient_id" binding:"required,uuid"`
	Date      string `json:"date" binding:"required"`
	Time      string `json:"time" binding:"required"`
	Notes     string `json:"notes" binding:"max=1000"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=pending approved rejected"`
}

// SlotListing is the availability response: either a list of bookable
// times or the reason there are none.
type SlotListing struct {
	Slots           []string `json:"slots"`
	Error           string   `json:"error,omitempty"`
	WorkingDaysHint []string `json:"working_days,omitempty"`
}

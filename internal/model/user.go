package model

// Role discriminates the two user variants
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// Doctor scheduling defaults applied at signup
const (
	DefaultStartTime    = "09:00"
	DefaultEndTime      = "17:00"
	DefaultSlotDuration = 30
)

// DefaultWorkingDays is Monday through Friday (Sunday=0).
func DefaultWorkingDays() []int {
	return []int{1, 2, 3, 4, 5}
}

// User is a doctor or a patient. The role-specific payload lives on exactly
// one of the two profile pointers; the other is nil.
type User struct {
	Base
	Username   string `json:"username" db:"username"`
	Credential string `json:"-" db:"password"`
	Role       Role   `json:"role" db:"user_type"`

	Doctor  *DoctorProfile  `json:"doctor,omitempty"`
	Patient *PatientProfile `json:"patient,omitempty"`
}

// WorkingHours returns the doctor's slot configuration. Panics if the user
// is not a doctor; callers go through the repository which guarantees the
// variant matches the role.
func (u *User) WorkingHours() WorkingHours {
	return WorkingHours{
		WorkingDays:  u.Doctor.WorkingDays,
		StartTime:    u.Doctor.StartTime,
		EndTime:      u.Doctor.EndTime,
		SlotDuration: u.Doctor.SlotDuration,
	}
}

// DoctorProfile holds the doctor-only fields
type DoctorProfile struct {
	Department   string `json:"department"`
	WorkingDays  []int  `json:"working_days"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SlotDuration int    `json:"slot_duration"`
}

// PatientProfile holds the patient-only fields
type PatientProfile struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	CardID      string `json:"card_id,omitempty"`
	CardExpiry  string `json:"card_expiry,omitempty"`
}

// FullName is the snapshot written onto appointments; falls back to the
// username when the patient never filled in their name.
func (p *PatientProfile) FullName(username string) string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return username
	}
	return name
}

// WorkingHours is a doctor's bookable-slot configuration
type WorkingHours struct {
	WorkingDays  []int  `json:"working_days"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SlotDuration int    `json:"slot_duration"`
}

// SignupRequest covers both variants; role selects which extra fields apply
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=4"`
	Role     Role   `json:"role" binding:"required,oneof=doctor patient"`

	// doctor-only
	Department string `json:"department"`

	// patient-only
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	CardID      string `json:"card_id"`
	CardExpiry  string `json:"card_expiry"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type UpdateWorkingHoursRequest struct {
	WorkingDays  []int  `json:"working_days" binding:"required,min=1,max=7"`
	StartTime    string `json:"start_time" binding:"required"`
	EndTime      string `json:"end_time" binding:"required"`
	SlotDuration int    `json:"slot_duration" binding:"required,oneof=15 30 45 60"`
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/repository"
)

const userColumns = `
	id, username, password, user_type, created_at, updated_at,
	department, working_days, start_time, end_time, duration,
	first_name, last_name, dob, card_id, card_expiry`

// userRow is the flat shape of the unified users table; toModel folds it
// into the role-tagged variant.
type userRow struct {
	ID        uuid.UUID `db:"id"`
	Username  string    `db:"username"`
	Password  string    `db:"password"`
	UserType  string    `db:"user_type"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Department  sql.NullString `db:"department"`
	WorkingDays pq.Int64Array  `db:"working_days"`
	StartTime   sql.NullString `db:"start_time"`
	EndTime     sql.NullString `db:"end_time"`
	Duration    sql.NullInt64  `db:"duration"`

	FirstName  sql.NullString `db:"first_name"`
	LastName   sql.NullString `db:"last_name"`
	DOB        sql.NullTime   `db:"dob"`
	CardID     sql.NullString `db:"card_id"`
	CardExpiry sql.NullTime   `db:"card_expiry"`
}

func (r *userRow) toModel() *model.User {
	user := &model.User{
		Base: model.Base{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Username:   r.Username,
		Credential: r.Password,
		Role:       model.Role(r.UserType),
	}

	switch user.Role {
	case model.RoleDoctor:
		days := make([]int, len(r.WorkingDays))
		for i, d := range r.WorkingDays {
			days[i] = int(d)
		}
		user.Doctor = &model.DoctorProfile{
			Department:   r.Department.String,
			WorkingDays:  days,
			StartTime:    r.StartTime.String,
			EndTime:      r.EndTime.String,
			SlotDuration: int(r.Duration.Int64),
		}
	case model.RolePatient:
		profile := &model.PatientProfile{
			FirstName: r.FirstName.String,
			LastName:  r.LastName.String,
			CardID:    r.CardID.String,
		}
		if r.DOB.Valid {
			profile.DateOfBirth = r.DOB.Time.Format("2006-01-02")
		}
		if r.CardExpiry.Valid {
			profile.CardExpiry = r.CardExpiry.Time.Format("2006-01-02")
		}
		user.Patient = profile
	}

	return user
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	var err error
	switch user.Role {
	case model.RoleDoctor:
		days := make(pq.Int64Array, len(user.Doctor.WorkingDays))
		for i, d := range user.Doctor.WorkingDays {
			days[i] = int64(d)
		}
		query := `
			INSERT INTO users (
				id, username, password, user_type, created_at, updated_at,
				department, working_days, start_time, end_time, duration
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err = r.db.ExecContext(ctx, query,
			user.ID, user.Username, user.Credential, user.Role,
			user.CreatedAt, user.UpdatedAt,
			user.Doctor.Department, days,
			user.Doctor.StartTime, user.Doctor.EndTime, user.Doctor.SlotDuration,
		)
	case model.RolePatient:
		query := `
			INSERT INTO users (
				id, username, password, user_type, created_at, updated_at,
				first_name, last_name, dob, card_id, card_expiry
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err = r.db.ExecContext(ctx, query,
			user.ID, user.Username, user.Credential, user.Role,
			user.CreatedAt, user.UpdatedAt,
			user.Patient.FirstName, user.Patient.LastName,
			nullDate(user.Patient.DateOfBirth), user.Patient.CardID,
			nullDate(user.Patient.CardExpiry),
		)
	default:
		return fmt.Errorf("invalid user role: %s", user.Role)
	}

	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toModel(), nil
}

func (r *userRepository) GetByRole(ctx context.Context, id uuid.UUID, role model.Role) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND user_type = $2`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", role, err)
	}
	return row.toModel(), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return row.toModel(), nil
}

func (r *userRepository) ListDoctorsByDepartment(ctx context.Context, department string) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE user_type = 'doctor' AND department = $1
		ORDER BY username
	`
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, department); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return toModels(rows), nil
}

func (r *userRepository) ListPatients(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE user_type = 'patient'
		ORDER BY username
	`
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return toModels(rows), nil
}

func (r *userRepository) UpdateWorkingHours(ctx context.Context, doctorID uuid.UUID, hours model.WorkingHours) error {
	days := make(pq.Int64Array, len(hours.WorkingDays))
	for i, d := range hours.WorkingDays {
		days[i] = int64(d)
	}

	query := `
		UPDATE users
		SET working_days = $1, start_time = $2, end_time = $3, duration = $4, updated_at = $5
		WHERE id = $6 AND user_type = 'doctor'
	`
	result, err := r.db.ExecContext(ctx, query,
		days, hours.StartTime, hours.EndTime, hours.SlotDuration, time.Now(), doctorID,
	)
	if err != nil {
		return fmt.Errorf("failed to update working hours: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func toModels(rows []userRow) []*model.User {
	users := make([]*model.User, len(rows))
	for i := range rows {
		users[i] = rows[i].toModel()
	}
	return users
}

func nullDate(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

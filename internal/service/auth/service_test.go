package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/repository"
	"github.com/medbook/medbook-api/pkg/auth"
	apperrors "github.com/medbook/medbook-api/pkg/errors"
	"github.com/medbook/medbook-api/pkg/security"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return repository.ErrUsernameTaken
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByRole(ctx context.Context, id uuid.UUID, role model.Role) (*model.User, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) ListDoctorsByDepartment(_ context.Context, _ string) ([]*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) ListPatients(_ context.Context) ([]*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) UpdateWorkingHours(_ context.Context, _ uuid.UUID, _ model.WorkingHours) error {
	return nil
}

func newTestService() (*Service, *fakeUserRepo) {
	users := newFakeUserRepo()
	jwtSvc := auth.NewJWTService("test-secret", 1)
	hasher := security.NewBcryptHasher(security.DefaultBcryptCost)
	return NewService(users, jwtSvc, hasher), users
}

func doctorSignup() *model.SignupRequest {
	return &model.SignupRequest{
		Username:   "house",
		Password:   "lupus",
		Role:       model.RoleDoctor,
		Department: "Diagnostics",
	}
}

func TestSignupDoctor(t *testing.T) {
	svc, _ := newTestService()

	user, err := svc.Signup(context.Background(), doctorSignup())
	require.NoError(t, err)

	assert.Equal(t, model.RoleDoctor, user.Role)
	require.NotNil(t, user.Doctor)
	assert.Nil(t, user.Patient)
	assert.Equal(t, "Diagnostics", user.Doctor.Department)

	// scheduling defaults applied at signup
	assert.Equal(t, model.DefaultWorkingDays(), user.Doctor.WorkingDays)
	assert.Equal(t, model.DefaultStartTime, user.Doctor.StartTime)
	assert.Equal(t, model.DefaultEndTime, user.Doctor.EndTime)
	assert.Equal(t, model.DefaultSlotDuration, user.Doctor.SlotDuration)

	// credential is stored hashed
	assert.NotEqual(t, "lupus", user.Credential)
}

func TestSignupPatient(t *testing.T) {
	svc, _ := newTestService()

	user, err := svc.Signup(context.Background(), &model.SignupRequest{
		Username:  "jdoe",
		Password:  "secret",
		Role:      model.RolePatient,
		FirstName: "John",
		LastName:  "Doe",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RolePatient, user.Role)
	require.NotNil(t, user.Patient)
	assert.Nil(t, user.Doctor)
	assert.Equal(t, "John Doe", user.Patient.FullName(user.Username))
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, &model.SignupRequest{Username: "x", Password: "secret", Role: "admin"})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	// doctors must name a department
	req := doctorSignup()
	req.Department = ""
	_, err = svc.Signup(ctx, req)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	// password below the minimum length
	req = doctorSignup()
	req.Password = "ab"
	_, err = svc.Signup(ctx, req)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestSignupDuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, doctorSignup())
	require.NoError(t, err)

	_, err = svc.Signup(ctx, doctorSignup())
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Signup(ctx, doctorSignup())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &model.LoginRequest{Username: "house", Password: "lupus"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, created.ID, resp.User.ID)

	// the token round-trips through validation
	jwtSvc := auth.NewJWTService("test-secret", 1)
	claims, err := jwtSvc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, string(model.RoleDoctor), claims.Role)
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, doctorSignup())
	require.NoError(t, err)

	_, err = svc.Login(ctx, &model.LoginRequest{Username: "house", Password: "wrong"})
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))

	_, err = svc.Login(ctx, &model.LoginRequest{Username: "nobody", Password: "lupus"})
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
}

func TestLoginLegacyPlaintextCredential(t *testing.T) {
	svc, users := newTestService()
	ctx := context.Background()

	// rows migrated from the old system store the password verbatim
	legacy := &model.User{
		Username:   "legacy",
		Credential: "plaintext-pass",
		Role:       model.RolePatient,
		Patient:    &model.PatientProfile{},
	}
	require.NoError(t, users.Create(ctx, legacy))

	resp, err := svc.Login(ctx, &model.LoginRequest{Username: "legacy", Password: "plaintext-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = svc.Login(ctx, &model.LoginRequest{Username: "legacy", Password: "other"})
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
}

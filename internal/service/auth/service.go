package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/repository"
	"github.com/medbook/medbook-api/pkg/auth"
	apperrors "github.com/medbook/medbook-api/pkg/errors"
	"github.com/medbook/medbook-api/pkg/security"
)

type Service struct {
	users  repository.UserRepository
	jwtSvc auth.JWTService
	hasher security.PasswordHasher
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		users:  users,
		jwtSvc: jwtSvc,
		hasher: hasher,
	}
}

// Signup registers a doctor or a patient. Doctors get the default
// working-hours configuration; they adjust it from their dashboard later.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.User, error) {
	if !req.Role.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("invalid user role %q", req.Role), nil)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation("invalid password", err)
	}

	user := &model.User{
		Username:   req.Username,
		Credential: hashed,
		Role:       req.Role,
	}

	switch req.Role {
	case model.RoleDoctor:
		if req.Department == "" {
			return nil, apperrors.Validation("department is required for doctors", nil)
		}
		user.Doctor = &model.DoctorProfile{
			Department:   req.Department,
			WorkingDays:  model.DefaultWorkingDays(),
			StartTime:    model.DefaultStartTime,
			EndTime:      model.DefaultEndTime,
			SlotDuration: model.DefaultSlotDuration,
		}
	case model.RolePatient:
		user.Patient = &model.PatientProfile{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			DateOfBirth: req.DateOfBirth,
			CardID:      req.CardID,
			CardExpiry:  req.CardExpiry,
		}
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, apperrors.Validation("username already exists", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates by username and password and issues an access token.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(errors.New("invalid username or password"))
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.hasher.Compare(user.Credential, req.Password); err != nil {
		return nil, apperrors.Unauthorized(errors.New("invalid username or password"))
	}

	token, err := s.jwtSvc.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.LoginResponse{
		Token: token,
		User:  user,
	}, nil
}

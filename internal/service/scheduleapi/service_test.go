package scheduleapi

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/repository"
	apperrors "github.com/medbook/medbook-api/pkg/errors"
	"github.com/medbook/medbook-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("scheduleapi_test")

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

func (r *fakeUserRepo) GetByUsername(_ context.Context, _ string) (*model.User, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) ListDoctorsByDepartment(_ context.Context, _ string) ([]*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) ListPatients(_ context.Context) ([]*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) UpdateWorkingHours(_ context.Context, doctorID uuid.UUID, hours model.WorkingHours) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[doctorID]
	if !ok || u.Role != model.RoleDoctor {
		return repository.ErrNotFound
	}
	u.Doctor.WorkingDays = hours.WorkingDays
	u.Doctor.StartTime = hours.StartTime
	u.Doctor.EndTime = hours.EndTime
	u.Doctor.SlotDuration = hours.SlotDuration
	return nil
}

func newTestService(t *testing.T) (*Service, *model.User) {
	t.Helper()

	users := newFakeUserRepo()
	doctor := &model.User{
		Username: "grey",
		Role:     model.RoleDoctor,
		Doctor: &model.DoctorProfile{
			Department:   "Neurology",
			WorkingDays:  model.DefaultWorkingDays(),
			StartTime:    model.DefaultStartTime,
			EndTime:      model.DefaultEndTime,
			SlotDuration: model.DefaultSlotDuration,
		},
	}
	require.NoError(t, users.Create(context.Background(), doctor))

	svc := NewService(users, testMetrics)
	svc.now = func() time.Time {
		return time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC)
	}
	return svc, doctor
}

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestListAvailableSlots(t *testing.T) {
	svc, doctor := newTestService(t)

	// a far-future Monday with the default 09:00-17:00, 30 min config
	listing, err := svc.ListAvailableSlots(context.Background(), doctor.ID, mustDate(t, "2030-06-03"))
	require.NoError(t, err)

	assert.Empty(t, listing.Error)
	assert.Empty(t, listing.WorkingDaysHint)
	assert.Len(t, listing.Slots, 16)
	assert.Equal(t, "09:00", listing.Slots[0])
	assert.Equal(t, "16:30", listing.Slots[15])
}

func TestListAvailableSlotsUnknownDoctor(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListAvailableSlots(context.Background(), uuid.New(), mustDate(t, "2030-06-03"))
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestListAvailableSlotsPastDate(t *testing.T) {
	svc, doctor := newTestService(t)

	listing, err := svc.ListAvailableSlots(context.Background(), doctor.ID, mustDate(t, "2026-01-02"))
	require.NoError(t, err)

	assert.Equal(t, "past-date", listing.Error)
	assert.NotNil(t, listing.Slots)
	assert.Empty(t, listing.Slots)
	assert.Empty(t, listing.WorkingDaysHint)
}

func TestListAvailableSlotsNonWorkingDay(t *testing.T) {
	svc, doctor := newTestService(t)

	// 2030-06-02 is a Sunday
	listing, err := svc.ListAvailableSlots(context.Background(), doctor.ID, mustDate(t, "2030-06-02"))
	require.NoError(t, err)

	assert.Equal(t, "non-working-day", listing.Error)
	assert.Empty(t, listing.Slots)
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, listing.WorkingDaysHint)
}

func TestUpdateWorkingHours(t *testing.T) {
	svc, doctor := newTestService(t)
	ctx := context.Background()

	err := svc.UpdateWorkingHours(ctx, doctor.ID, &model.UpdateWorkingHoursRequest{
		WorkingDays:  []int{2, 4},
		StartTime:    "10:00",
		EndTime:      "14:00",
		SlotDuration: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4}, doctor.Doctor.WorkingDays)
	assert.Equal(t, "10:00", doctor.Doctor.StartTime)
	assert.Equal(t, 60, doctor.Doctor.SlotDuration)

	// the new config drives slot listings: 2030-06-04 is a Tuesday
	listing, err := svc.ListAvailableSlots(ctx, doctor.ID, mustDate(t, "2030-06-04"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00", "12:00", "13:00"}, listing.Slots)
}

func TestUpdateWorkingHoursValidation(t *testing.T) {
	svc, doctor := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.UpdateWorkingHoursRequest
	}{
		{"bad day", &model.UpdateWorkingHoursRequest{WorkingDays: []int{7}, StartTime: "09:00", EndTime: "17:00", SlotDuration: 30}},
		{"bad start", &model.UpdateWorkingHoursRequest{WorkingDays: []int{1}, StartTime: "9am", EndTime: "17:00", SlotDuration: 30}},
		{"bad end", &model.UpdateWorkingHoursRequest{WorkingDays: []int{1}, StartTime: "09:00", EndTime: "25:00", SlotDuration: 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.UpdateWorkingHours(ctx, doctor.ID, tt.req)
			assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
		})
	}
}

func TestUpdateWorkingHoursUnknownDoctor(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.UpdateWorkingHours(context.Background(), uuid.New(), &model.UpdateWorkingHoursRequest{
		WorkingDays:  []int{1},
		StartTime:    "09:00",
		EndTime:      "17:00",
		SlotDuration: 30,
	})
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

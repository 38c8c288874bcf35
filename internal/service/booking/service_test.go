package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/repository"
	apperrors "github.com/medbook/medbook-api/pkg/errors"
	"github.com/medbook/medbook-api/pkg/logger"
	"github.com/medbook/medbook-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("booking_test")

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

func (r *fakeUserRepo) ListDoctorsByDepartment(_ context.Context, department string) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, u := range r.users {
		if u.Role == model.RoleDoctor && u.Doctor.Department == department {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListPatients(_ context.Context) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, u := range r.users {
		if u.Role == model.RolePatient {
			out = append(out, u)
		}
	}
	return out, nil
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

// fakeAppointmentRepo mirrors the storage semantics: slot uniqueness over
// non-cancelled rows, owner-scoped mutations, cancelled rows out of reach
// for status changes.
type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	events       []*model.OutboxEvent
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func slotKey(apt *model.Appointment) string {
	return fmt.Sprintf("%s|%s|%s", apt.DoctorID, apt.Date.String(), apt.Time)
}

func (r *fakeAppointmentRepo) CreateWithConflictCheck(_ context.Context, apt *model.Appointment, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.appointments {
		if existing.Status != model.AppointmentStatusCancelled && slotKey(existing) == slotKey(apt) {
			return repository.ErrSlotTaken
		}
	}
	stored := *apt
	r.appointments[apt.ID] = &stored
	if event != nil {
		r.events = append(r.events, event)
	}
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *apt
	return &copied, nil
}

func (r *fakeAppointmentRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.DoctorID == doctorID {
			copied := *apt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.PatientID == patientID {
			copied := *apt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) UpdateStatusForDoctor(_ context.Context, doctorID, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok || apt.DoctorID != doctorID || apt.Status == model.AppointmentStatusCancelled {
		return nil, repository.ErrNotFound
	}
	apt.Status = status
	copied := *apt
	return &copied, nil
}

func (r *fakeAppointmentRepo) CancelForPatient(_ context.Context, patientID, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok || apt.PatientID != patientID || apt.Status == model.AppointmentStatusCancelled {
		return nil, repository.ErrNotFound
	}
	apt.Status = model.AppointmentStatusCancelled
	copied := *apt
	return &copied, nil
}

func (r *fakeAppointmentRepo) DeleteForDoctor(_ context.Context, doctorID, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok || apt.DoctorID != doctorID {
		return nil, repository.ErrNotFound
	}
	delete(r.appointments, id)
	return apt, nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.OutboxStatus, _ *string) error {
	return nil
}

type fixture struct {
	svc          *Service
	users        *fakeUserRepo
	appointments *fakeAppointmentRepo
	outbox       *fakeOutboxRepo
	doctor       *model.User
	patient      *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := newFakeUserRepo()
	appointments := newFakeAppointmentRepo()
	outbox := &fakeOutboxRepo{}

	doctor := &model.User{
		Username: "house",
		Role:     model.RoleDoctor,
		Doctor: &model.DoctorProfile{
			Department:   "Cardiology",
			WorkingDays:  model.DefaultWorkingDays(),
			StartTime:    model.DefaultStartTime,
			EndTime:      model.DefaultEndTime,
			SlotDuration: model.DefaultSlotDuration,
		},
	}
	patient := &model.User{
		Username: "jdoe",
		Role:     model.RolePatient,
		Patient:  &model.PatientProfile{FirstName: "John", LastName: "Doe"},
	}
	require.NoError(t, users.Create(context.Background(), doctor))
	require.NoError(t, users.Create(context.Background(), patient))

	return &fixture{
		svc:          NewService(appointments, users, outbox, testMetrics, logger.NewLogger(nil)),
		users:        users,
		appointments: appointments,
		outbox:       outbox,
		doctor:       doctor,
		patient:      patient,
	}
}

func (f *fixture) bookRequest() *model.BookAppointmentRequest {
	return &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID.String(),
		Date:     "2030-06-03",
		Time:     "10:00",
		Notes:    "checkup",
	}
}

func TestBookByPatient(t *testing.T) {
	f := newFixture(t)

	apt, err := f.svc.BookByPatient(context.Background(), f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, "John Doe", apt.PatientName)
	assert.Equal(t, "house", apt.DoctorName)
	assert.Equal(t, "Cardiology", apt.Department)
	assert.Equal(t, "10:00", apt.Time)
	assert.NotEqual(t, uuid.Nil, apt.ID)

	require.Len(t, f.appointments.events, 1)
	assert.Equal(t, model.EventAppointmentCreated, f.appointments.events[0].EventType)
}

func TestBookByDoctor(t *testing.T) {
	f := newFixture(t)

	apt, err := f.svc.BookByDoctor(context.Background(), f.doctor.ID, &model.AddAppointmentRequest{
		PatientID: f.patient.ID.String(),
		Date:      "2030-06-03",
		Time:      "11:30",
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusApproved, apt.Status)
	assert.Equal(t, "Dr. house", apt.DoctorName)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.BookAppointmentRequest
	}{
		{"bad date", &model.BookAppointmentRequest{DoctorID: f.doctor.ID.String(), Date: "03-06-2030", Time: "10:00"}},
		{"bad time", &model.BookAppointmentRequest{DoctorID: f.doctor.ID.String(), Date: "2030-06-03", Time: "25:99"}},
		{"seconds in time", &model.BookAppointmentRequest{DoctorID: f.doctor.ID.String(), Date: "2030-06-03", Time: "10:00:00"}},
		{"bad doctor id", &model.BookAppointmentRequest{DoctorID: "not-a-uuid", Date: "2030-06-03", Time: "10:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.BookByPatient(ctx, f.patient.ID, tt.req)
			assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
		})
	}
}

func TestBookUnknownParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.bookRequest()
	req.DoctorID = uuid.New().String()
	_, err := f.svc.BookByPatient(ctx, f.patient.ID, req)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))

	// a patient ID can never book as a doctor
	_, err = f.svc.BookByPatient(ctx, uuid.New(), f.bookRequest())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestBookSlotConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	_, err = f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	// a different time on the same day is fine
	req := f.bookRequest()
	req.Time = "10:30"
	_, err = f.svc.BookByPatient(ctx, f.patient.ID, req)
	assert.NoError(t, err)
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.BookByPatient(context.Background(), f.patient.ID, f.bookRequest())
		}(i)
	}
	wg.Wait()

	var won, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case apperrors.CodeOf(err) == apperrors.ErrConflict:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, conflicted)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	updated, err := f.svc.SetStatus(ctx, f.doctor.ID, apt.ID, model.AppointmentStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusApproved, updated.Status)

	// rejected appointments can be approved again
	_, err = f.svc.SetStatus(ctx, f.doctor.ID, apt.ID, model.AppointmentStatusRejected)
	require.NoError(t, err)
	updated, err = f.svc.SetStatus(ctx, f.doctor.ID, apt.ID, model.AppointmentStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusApproved, updated.Status)

	// each transition produced an event
	assert.Len(t, f.outbox.events, 3)
}

func TestSetStatusRejectsCancelledTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, f.doctor.ID, apt.ID, model.AppointmentStatusCancelled)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	_, err = f.svc.SetStatus(ctx, f.doctor.ID, apt.ID, "confirmed")
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestSetStatusOwnerScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, uuid.New(), apt.ID, model.AppointmentStatusApproved)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, f.patient.ID, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	// cancelling twice reads as gone
	_, err = f.svc.Cancel(ctx, f.patient.ID, apt.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))

	// a cancelled slot frees up for someone else
	_, err = f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	assert.NoError(t, err)

	// so does the doctor's ability to change its status
	_, err = f.svc.SetStatus(ctx, f.doctor.ID, apt.ID, model.AppointmentStatusApproved)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestCancelOwnerScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, uuid.New(), apt.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.doctor.ID, apt.ID))

	_, err = f.appointments.Get(ctx, apt.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = f.svc.Delete(ctx, f.doctor.ID, apt.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestDeleteOwnerScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	err = f.svc.Delete(ctx, uuid.New(), apt.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestListForOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.BookByPatient(ctx, f.patient.ID, f.bookRequest())
	require.NoError(t, err)

	forDoctor, err := f.svc.ListForOwner(ctx, model.RoleDoctor, f.doctor.ID)
	require.NoError(t, err)
	require.Len(t, forDoctor, 1)
	assert.Equal(t, apt.ID, forDoctor[0].ID)

	forPatient, err := f.svc.ListForOwner(ctx, model.RolePatient, f.patient.ID)
	require.NoError(t, err)
	assert.Len(t, forPatient, 1)

	forStranger, err := f.svc.ListForOwner(ctx, model.RoleDoctor, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, forStranger)

	_, err = f.svc.ListForOwner(ctx, "admin", f.doctor.ID)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

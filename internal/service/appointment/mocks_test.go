package appointment

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yferras/clinic-api/internal/model"
	"github.com/yferras/clinic-api/internal/repository"
)

// memAppointmentRepo backs the service tests with an in-memory store
// that enforces the same uniqueness rule as the partial index: at most
// one scheduled appointment per (doctor, start time).
type memAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Appointment

	// onFindInWindow, when set, runs after every snapshot read. The
	// concurrency tests use it as a rendezvous point.
	onFindInWindow func()
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{items: map[uuid.UUID]*model.Appointment{}}
}

func (r *memAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Status == model.AppointmentStatusScheduled &&
			existing.DoctorID == apt.DoctorID &&
			existing.StartTime.Equal(apt.StartTime) {
			return repository.ErrDuplicateSlot
		}
	}
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt
	r.items[apt.ID] = apt
	return nil
}

func (r *memAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *apt
	return &copied, nil
}

func (r *memAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	apt.Status = status
	apt.UpdatedAt = time.Now()
	return nil
}

func (r *memAppointmentRepo) FindScheduledInWindow(_ context.Context, windowStart, windowEnd time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	var result []*model.Appointment
	for _, apt := range r.items {
		if apt.Status != model.AppointmentStatusScheduled {
			continue
		}
		if apt.StartTime.Before(windowStart) || !apt.StartTime.Before(windowEnd) {
			continue
		}
		copied := *apt
		result = append(result, &copied)
	}
	r.mu.Unlock()

	if r.onFindInWindow != nil {
		r.onFindInWindow()
	}
	return result, nil
}

func (r *memAppointmentRepo) FindScheduledOverlapping(_ context.Context, doctorID uuid.UUID, start, end time.Time) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, apt := range r.items {
		if apt.Status != model.AppointmentStatusScheduled || apt.DoctorID != doctorID {
			continue
		}
		if apt.StartTime.Before(end) && apt.EndTime.After(start) {
			copied := *apt
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memAppointmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// blindRecheckRepo skips the post-lock overlap re-check so tests can
// drive a booking all the way into the duplicate-key defense.
type blindRecheckRepo struct {
	*memAppointmentRepo
}

func (r *blindRecheckRepo) FindScheduledOverlapping(context.Context, uuid.UUID, time.Time, time.Time) (*model.Appointment, error) {
	return nil, nil
}

type lockEntry struct {
	token   string
	expires time.Time
}

// memLockStore mirrors the Redis lock semantics: set-if-absent with
// expiry and atomic compare-token-and-delete release.
type memLockStore struct {
	mu    sync.Mutex
	locks map[string]lockEntry
}

func newMemLockStore() *memLockStore {
	return &memLockStore{locks: map[string]lockEntry{}}
}

func (s *memLockStore) Acquire(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.locks[key]; ok && time.Now().Before(entry.expires) {
		return false, nil
	}
	s.locks[key] = lockEntry{token: token, expires: time.Now().Add(ttl)}
	return true, nil
}

func (s *memLockStore) ReadToken(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.locks[key]
	if !ok || !time.Now().Before(entry.expires) {
		return "", nil
	}
	return entry.token, nil
}

func (s *memLockStore) ReleaseIfToken(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.locks[key]; ok && entry.token == token {
		delete(s.locks, key)
	}
	return nil
}

func (s *memLockStore) held(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.locks[key]
	return ok && time.Now().Before(entry.expires)
}

type stubUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newStubUserRepo(users ...*model.User) *stubUserRepo {
	r := &stubUserRepo{users: map[uuid.UUID]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *stubUserRepo) ListByRole(_ context.Context, roleID uuid.UUID) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.User
	for _, u := range r.users {
		if u.RoleID == roleID && u.Status == model.UserStatusActive {
			result = append(result, u)
		}
	}
	return result, nil
}

type stubRoleRepo struct {
	roles map[uuid.UUID]*model.Role
}

func newStubRoleRepo(roles ...*model.Role) *stubRoleRepo {
	r := &stubRoleRepo{roles: map[uuid.UUID]*model.Role{}}
	for _, role := range roles {
		r.roles[role.ID] = role
	}
	return r
}

func (r *stubRoleRepo) Get(_ context.Context, id uuid.UUID) (*model.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return role, nil
}

func (r *stubRoleRepo) GetByName(_ context.Context, name string) (*model.Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubScheduleRepo struct {
	workingHours []*model.WorkingHour
	holidays     []*model.Holiday
}

func (r *stubScheduleRepo) FindActiveWorkingHours(context.Context) ([]*model.WorkingHour, error) {
	return r.workingHours, nil
}

func (r *stubScheduleRepo) FindActiveHolidays(context.Context) ([]*model.Holiday, error) {
	return r.holidays, nil
}

// testClinic bundles a fully wired service with its doubles and a
// standard cast of users.
type testClinic struct {
	service  *Service
	repo     *memAppointmentRepo
	locks    *memLockStore
	users    *stubUserRepo
	roles    *stubRoleRepo
	schedule *stubScheduleRepo

	admin   *model.User
	doctor  *model.User
	doctor2 *model.User
	staff   *model.User
	patient *model.User
}

// testNow pins the clock to a Tuesday so the booking window always
// opens Wednesday 2026-03-11 08:00 UTC.
var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

var testWindowStart = time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)

func newTestClinic() *testClinic {
	adminRole := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleAdmin}
	doctorRole := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleDoctor}
	staffRole := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleStaff}

	admin := &model.User{Base: model.Base{ID: uuid.New()}, Name: "Admin", RoleID: adminRole.ID, Status: model.UserStatusActive}
	doctor := &model.User{Base: model.Base{ID: uuid.New()}, Name: "Dr. First", RoleID: doctorRole.ID, Status: model.UserStatusActive}
	doctor2 := &model.User{Base: model.Base{ID: uuid.New()}, Name: "Dr. Second", RoleID: doctorRole.ID, Status: model.UserStatusActive}
	staff := &model.User{Base: model.Base{ID: uuid.New()}, Name: "Reception", RoleID: staffRole.ID, Status: model.UserStatusActive}
	patient := &model.User{Base: model.Base{ID: uuid.New()}, Name: "Patient", RoleID: staffRole.ID, Status: model.UserStatusActive}

	repo := newMemAppointmentRepo()
	locks := newMemLockStore()
	users := newStubUserRepo(admin, doctor, doctor2, staff, patient)
	roles := newStubRoleRepo(adminRole, doctorRole, staffRole)
	schedule := &stubScheduleRepo{workingHours: fullWeekHours()}

	svc := NewService(repo, schedule, users, roles, locks, zerolog.Nop(), Config{})
	svc.now = func() time.Time { return testNow }

	return &testClinic{
		service:  svc,
		repo:     repo,
		locks:    locks,
		users:    users,
		roles:    roles,
		schedule: schedule,
		admin:    admin,
		doctor:   doctor,
		doctor2:  doctor2,
		staff:    staff,
		patient:  patient,
	}
}

func fullWeekHours() []*model.WorkingHour {
	days := []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	hours := make([]*model.WorkingHour, len(days))
	for i, day := range days {
		hours[i] = &model.WorkingHour{Day: day, Start: "08:00", End: "17:00", Active: true}
	}
	return hours
}

func bookingRequest(patientID uuid.UUID, doctorID *uuid.UUID) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Reason:    "persistent headache",
		Type:      model.AppointmentTypeGeneralConsultation,
	}
}

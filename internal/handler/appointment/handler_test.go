package appointment

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yferras/clinic-api/internal/model"
	"github.com/yferras/clinic-api/internal/repository"
	appointmentsvc "github.com/yferras/clinic-api/internal/service/appointment"
	"github.com/yferras/clinic-api/pkg/httputil"
)

type fakeAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{items: map[uuid.UUID]*model.Appointment{}}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Status == model.AppointmentStatusScheduled &&
			existing.DoctorID == apt.DoctorID &&
			existing.StartTime.Equal(apt.StartTime) {
			return repository.ErrDuplicateSlot
		}
	}
	apt.ID = uuid.New()
	r.items[apt.ID] = apt
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return apt, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	apt.Status = status
	return nil
}

func (r *fakeAppointmentRepo) FindScheduledInWindow(_ context.Context, windowStart, windowEnd time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Appointment
	for _, apt := range r.items {
		if apt.Status == model.AppointmentStatusScheduled &&
			!apt.StartTime.Before(windowStart) && apt.StartTime.Before(windowEnd) {
			result = append(result, apt)
		}
	}
	return result, nil
}

func (r *fakeAppointmentRepo) FindScheduledOverlapping(_ context.Context, doctorID uuid.UUID, start, end time.Time) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, apt := range r.items {
		if apt.Status == model.AppointmentStatusScheduled && apt.DoctorID == doctorID &&
			apt.StartTime.Before(end) && apt.EndTime.After(start) {
			return apt, nil
		}
	}
	return nil, nil
}

type fakeLockStore struct {
	denyAll bool
	mu      sync.Mutex
	locks   map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{locks: map[string]string{}}
}

func (s *fakeLockStore) Acquire(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	if s.denyAll {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[key]; held {
		return false, nil
	}
	s.locks[key] = token
	return true, nil
}

func (s *fakeLockStore) ReadToken(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks[key], nil
}

func (s *fakeLockStore) ReleaseIfToken(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] == token {
		delete(s.locks, key)
	}
	return nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) ListByRole(_ context.Context, roleID uuid.UUID) ([]*model.User, error) {
	var result []*model.User
	for _, u := range r.users {
		if u.RoleID == roleID && u.Status == model.UserStatusActive {
			result = append(result, u)
		}
	}
	return result, nil
}

type fakeRoleRepo struct {
	roles map[uuid.UUID]*model.Role
}

func (r *fakeRoleRepo) Get(_ context.Context, id uuid.UUID) (*model.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return role, nil
}

func (r *fakeRoleRepo) GetByName(_ context.Context, name string) (*model.Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeScheduleRepo struct {
	workingHours []*model.WorkingHour
}

func (r *fakeScheduleRepo) FindActiveWorkingHours(context.Context) ([]*model.WorkingHour, error) {
	return r.workingHours, nil
}

func (r *fakeScheduleRepo) FindActiveHolidays(context.Context) ([]*model.Holiday, error) {
	return nil, nil
}

// allWeekHours keeps the slot search independent of which weekday the
// test happens to run on.
func allWeekHours() []*model.WorkingHour {
	days := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	hours := make([]*model.WorkingHour, len(days))
	for i, day := range days {
		hours[i] = &model.WorkingHour{Day: day, Start: "08:00", End: "17:00", Active: true}
	}
	return hours
}

type testAPI struct {
	router *gin.Engine
	repo   *fakeAppointmentRepo
	locks  *fakeLockStore

	admin   *model.User
	doctor  *model.User
	staff   *model.User
	patient *model.User

	// authenticatedAs decides which user the injected auth middleware
	// attaches to incoming requests.
	authenticatedAs *model.User
}

func newTestAPI(t *testing.T, workingHours []*model.WorkingHour) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	adminRole := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleAdmin}
	doctorRole := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleDoctor}
	staffRole := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleStaff}

	admin := &model.User{Base: model.Base{ID: uuid.New()}, RoleID: adminRole.ID, Status: model.UserStatusActive}
	doctor := &model.User{Base: model.Base{ID: uuid.New()}, RoleID: doctorRole.ID, Status: model.UserStatusActive}
	staff := &model.User{Base: model.Base{ID: uuid.New()}, RoleID: staffRole.ID, Status: model.UserStatusActive}
	patient := &model.User{Base: model.Base{ID: uuid.New()}, RoleID: staffRole.ID, Status: model.UserStatusActive}

	repo := newFakeAppointmentRepo()
	locks := newFakeLockStore()
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{
		admin.ID: admin, doctor.ID: doctor, staff.ID: staff, patient.ID: patient,
	}}
	roles := &fakeRoleRepo{roles: map[uuid.UUID]*model.Role{
		adminRole.ID: adminRole, doctorRole.ID: doctorRole, staffRole.ID: staffRole,
	}}
	schedule := &fakeScheduleRepo{workingHours: workingHours}

	svc := appointmentsvc.NewService(repo, schedule, users, roles, locks, zerolog.Nop(), appointmentsvc.Config{})

	api := &testAPI{
		repo:            repo,
		locks:           locks,
		admin:           admin,
		doctor:          doctor,
		staff:           staff,
		patient:         patient,
		authenticatedAs: staff,
	}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("currentUser", api.authenticatedAs)
	})
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	api.router = router
	return api
}

func (api *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, *httputil.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, &resp
}

func createRequest(patientID uuid.UUID, doctorID *uuid.UUID) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Reason:    "annual checkup",
		Type:      model.AppointmentTypeGeneralConsultation,
	}
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	api := newTestAPI(t, allWeekHours())

	w, resp := api.do(t, http.MethodPost, "/api/v1/appointments", createRequest(api.patient.ID, &api.doctor.ID))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestCreateAppointmentEndpointValidation(t *testing.T) {
	api := newTestAPI(t, allWeekHours())

	// Missing required reason and type.
	w, resp := api.do(t, http.MethodPost, "/api/v1/appointments", map[string]interface{}{
		"patient_id": api.patient.ID,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", string(resp.Error.Code))
}

func TestCreateAppointmentEndpointNoSlot(t *testing.T) {
	api := newTestAPI(t, nil)

	w, resp := api.do(t, http.MethodPost, "/api/v1/appointments", createRequest(api.patient.ID, &api.doctor.ID))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NO_SLOT", string(resp.Error.Code))
}

func TestCreateAppointmentEndpointConflict(t *testing.T) {
	api := newTestAPI(t, allWeekHours())
	api.locks.denyAll = true

	w, resp := api.do(t, http.MethodPost, "/api/v1/appointments", createRequest(api.patient.ID, &api.doctor.ID))

	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SLOT_CONFLICT", string(resp.Error.Code))
}

func TestCreateAppointmentEndpointUnknownPatient(t *testing.T) {
	api := newTestAPI(t, allWeekHours())

	w, resp := api.do(t, http.MethodPost, "/api/v1/appointments", createRequest(uuid.New(), &api.doctor.ID))

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", string(resp.Error.Code))
}

func TestGetAppointmentEndpoint(t *testing.T) {
	api := newTestAPI(t, allWeekHours())

	_, created := api.do(t, http.MethodPost, "/api/v1/appointments", createRequest(api.patient.ID, &api.doctor.ID))
	var result model.BookingResult
	raw, err := json.Marshal(created.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &result))

	w, resp := api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/appointments/%s", result.Appointment.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestGetAppointmentEndpointNotFound(t *testing.T) {
	api := newTestAPI(t, allWeekHours())

	w, resp := api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/appointments/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", string(resp.Error.Code))
}

func TestGetAppointmentEndpointBadID(t *testing.T) {
	api := newTestAPI(t, allWeekHours())

	w, resp := api.do(t, http.MethodGet, "/api/v1/appointments/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", string(resp.Error.Code))
}

func TestUpdateAppointmentStatusEndpoint(t *testing.T) {
	api := newTestAPI(t, allWeekHours())

	_, created := api.do(t, http.MethodPost, "/api/v1/appointments", createRequest(api.patient.ID, &api.doctor.ID))
	var result model.BookingResult
	raw, err := json.Marshal(created.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &result))

	api.authenticatedAs = api.admin
	w, resp := api.do(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/appointments/%s/status", result.Appointment.ID),
		model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCancelled})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestUpdateAppointmentStatusEndpointForbidden(t *testing.T) {
	api := newTestAPI(t, allWeekHours())

	_, created := api.do(t, http.MethodPost, "/api/v1/appointments", createRequest(api.patient.ID, &api.doctor.ID))
	var result model.BookingResult
	raw, err := json.Marshal(created.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &result))

	// Reception staff without administration rights cannot update.
	w, resp := api.do(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/appointments/%s/status", result.Appointment.ID),
		model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCancelled})

	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", string(resp.Error.Code))
}

func TestUpdateAppointmentStatusEndpointBadStatus(t *testing.T) {
	api := newTestAPI(t, allWeekHours())

	w, resp := api.do(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/appointments/%s/status", uuid.New()),
		map[string]string{"status": "postponed"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", string(resp.Error.Code))
}

package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/yferras/clinic-api/internal/model"
	"github.com/yferras/clinic-api/internal/repository"
	"github.com/yferras/clinic-api/internal/scheduler"
	apperrors "github.com/yferras/clinic-api/pkg/errors"
)

const (
	// DefaultLockTTL bounds how long a crashed booking can keep a slot
	// unavailable. After expiry the slot becomes bookable again.
	DefaultLockTTL = 10 * time.Second

	roleCacheTTL     = 5 * time.Minute
	roleCacheCleanup = 15 * time.Minute
)

type Config struct {
	LockTTL time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
}

type Service struct {
	repo         repository.AppointmentRepository
	scheduleRepo repository.ScheduleRepository
	userRepo     repository.UserRepository
	roleRepo     repository.RoleRepository
	locks        repository.SlotLockStore
	roleCache    *cache.Cache
	logger       zerolog.Logger
	lockTTL      time.Duration
	now          func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	scheduleRepo repository.ScheduleRepository,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	locks repository.SlotLockStore,
	logger zerolog.Logger,
	cfg Config,
) *Service {
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &Service{
		repo:         repo,
		scheduleRepo: scheduleRepo,
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		locks:        locks,
		roleCache:    cache.New(roleCacheTTL, roleCacheCleanup),
		logger:       logger.With().Str("service", "appointment").Logger(),
		lockTTL:      lockTTL,
		now:          time.Now,
	}
}

// CreateAppointment books the earliest free slot for the request. The
// search phase is read-only and runs without coordination; the commit
// phase serializes on a short-lived Redis lock keyed by doctor and slot
// start, re-validates against the database inside the lock, and relies
// on the partial unique index as the final safety net.
func (s *Service) CreateAppointment(ctx context.Context, requester *model.User, req *model.CreateAppointmentRequest) (*model.BookingResult, error) {
	if _, err := s.userRepo.Get(ctx, req.PatientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("patient")
		}
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}

	pool, err := s.resolveDoctorPool(ctx, requester, req.DoctorID)
	if err != nil {
		return nil, err
	}

	windowStart, windowEnd := scheduler.Window(s.now(), req.WeekOffset)

	snapshot, err := s.fetchSchedule(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	slot, ok := scheduler.BestSlot(pool, snapshot, windowStart, windowEnd)
	if !ok {
		return nil, apperrors.NewNoSlot("no available appointment slot found in this interval")
	}

	lockKey := slotLockKey(slot.DoctorID, slot.Start)
	token := uuid.NewString()

	acquired, err := s.locks.Acquire(ctx, lockKey, token, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	if !acquired {
		return nil, apperrors.NewSlotConflict("this time slot is being booked by another user, please try again", nil)
	}
	defer func() {
		if err := s.locks.ReleaseIfToken(ctx, lockKey, token); err != nil {
			s.logger.Error().Err(err).Str("lock_key", lockKey).Msg("failed to release slot lock")
		}
	}()

	// The schedule snapshot may be stale by now; re-check against the
	// same store the insert goes to.
	conflict, err := s.repo.FindScheduledOverlapping(ctx, slot.DoctorID, slot.Start, slot.End)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check slot availability: %w", err)
	}
	if conflict != nil {
		return nil, apperrors.NewSlotConflict("this time slot was just booked, please try again", nil)
	}

	apt := &model.Appointment{
		PatientID: req.PatientID,
		DoctorID:  slot.DoctorID,
		CreatedBy: requester.ID,
		Type:      req.Type,
		StartTime: slot.Start,
		EndTime:   slot.End,
		Reason:    req.Reason,
		Documents: req.Documents,
		Status:    model.AppointmentStatusScheduled,
	}
	if err := s.repo.Create(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlot) {
			return nil, apperrors.NewSlotConflict("this time slot was just booked, please try again", err)
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.logger.Info().
		Str("appointment_id", apt.ID.String()).
		Str("doctor_id", slot.DoctorID.String()).
		Time("start", slot.Start).
		Msg("appointment created")

	return &model.BookingResult{Appointment: apt, Slot: slot}, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

// UpdateStatus drives the appointment lifecycle: scheduled may move to
// completed or cancelled, cancelled is terminal, and completing is only
// legal once the appointment has started. The actor must be the
// assigned doctor or hold administrative rights.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, actor *model.User) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	role, err := s.roleByID(ctx, actor.RoleID)
	if err != nil {
		return nil, apperrors.NewServerError("actor role not found", err)
	}

	isAssignedDoctor := apt.DoctorID == actor.ID
	if !isAssignedDoctor && !role.HasAdministration() {
		return nil, apperrors.NewForbidden("you are not authorized to update this appointment")
	}

	if apt.Status == model.AppointmentStatusCancelled && status != model.AppointmentStatusCancelled {
		return nil, apperrors.NewInvalidOperation("cannot change status of a cancelled appointment")
	}
	if status == model.AppointmentStatusCompleted && s.now().Before(apt.StartTime) {
		return nil, apperrors.NewInvalidOperation("cannot mark a future appointment as completed")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("appointment")
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	oldStatus := apt.Status
	apt.Status = status

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("old_status", string(oldStatus)).
		Str("new_status", string(status)).
		Str("actor_id", actor.ID.String()).
		Msg("appointment status changed")

	return apt, nil
}

// fetchSchedule is the schedule data gateway: one snapshot read of the
// scheduled appointments in the window plus the calendar configuration.
func (s *Service) fetchSchedule(ctx context.Context, windowStart, windowEnd time.Time) (*model.ScheduleSnapshot, error) {
	appointments, err := s.repo.FindScheduledInWindow(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scheduled appointments: %w", err)
	}

	workingHours, err := s.scheduleRepo.FindActiveWorkingHours(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch working hours: %w", err)
	}

	holidays, err := s.scheduleRepo.FindActiveHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holidays: %w", err)
	}

	return &model.ScheduleSnapshot{
		Appointments: appointments,
		WorkingHours: workingHours,
		Holidays:     holidays,
	}, nil
}

func slotLockKey(doctorID uuid.UUID, start time.Time) string {
	return fmt.Sprintf("appt:lock:%s:%d", doctorID, start.Unix())
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yferras/clinic-api/internal/model"
)

// ErrDuplicateSlot is returned by AppointmentRepository.Create when the
// partial unique index over (doctor_id, start_time) for scheduled
// appointments rejects the insert. It is the last line of defense
// behind the slot lock and the pre-insert re-check.
var ErrDuplicateSlot = errors.New("slot already booked")

// All repository interfaces in one file
type (
	// AppointmentRepository handles appointment persistence
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		FindScheduledInWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]*model.Appointment, error)
		FindScheduledOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (*model.Appointment, error)
	}

	// ScheduleRepository exposes the read-only calendar configuration
	ScheduleRepository interface {
		FindActiveWorkingHours(ctx context.Context) ([]*model.WorkingHour, error)
		FindActiveHolidays(ctx context.Context) ([]*model.Holiday, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		ListByRole(ctx context.Context, roleID uuid.UUID) ([]*model.User, error)
	}

	RoleRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Role, error)
		GetByName(ctx context.Context, name string) (*model.Role, error)
	}

	// SlotLockStore is the short-lived mutual-exclusion lock consumed by
	// the booking coordinator. Acquire is set-if-absent with expiry;
	// ReleaseIfToken must be an atomic check-and-delete so a holder never
	// releases a lock that expired and was re-acquired by someone else.
	SlotLockStore interface {
		Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
		ReadToken(ctx context.Context, key string) (string, error)
		ReleaseIfToken(ctx context.Context, key, token string) error
	}
)

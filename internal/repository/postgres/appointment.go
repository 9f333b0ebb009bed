package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yferras/clinic-api/internal/model"
	"github.com/yferras/clinic-api/internal/repository"
)

// uniqueViolation is the Postgres error code raised by the partial
// unique index over (doctor_id, start_time) WHERE status = 'scheduled'.
const uniqueViolation = "23505"

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, created_by,
			type, start_time, end_time, reason,
			documents, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.CreatedBy,
		appointment.Type,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Reason,
		appointment.Documents,
		appointment.Status,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicateSlot
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, created_by,
			   type, start_time, end_time, reason,
			   documents, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *appointmentRepository) FindScheduledInWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, created_by,
			   type, start_time, end_time, reason,
			   documents, status, created_at, updated_at
		FROM appointments
		WHERE status = 'scheduled'
		AND start_time >= $1
		AND start_time < $2
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) FindScheduledOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, created_by,
			   type, start_time, end_time, reason,
			   documents, status, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1
		AND status = 'scheduled'
		AND start_time < $3
		AND end_time > $2
		LIMIT 1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, doctorID, start, end)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check overlapping appointments: %w", err)
	}
	return &appointment, nil
}

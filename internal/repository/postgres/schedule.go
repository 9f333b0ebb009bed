package postgres

import (
	"context"
	"fmt"

	"github.com/yferras/clinic-api/internal/model"
)

func (r *scheduleRepository) FindActiveWorkingHours(ctx context.Context) ([]*model.WorkingHour, error) {
	query := `
		SELECT id, day, start_time, end_time, active, created_at, updated_at
		FROM working_hours
		WHERE active = true
	`
	var hours []*model.WorkingHour
	err := r.db.SelectContext(ctx, &hours, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list working hours: %w", err)
	}
	return hours, nil
}

func (r *scheduleRepository) FindActiveHolidays(ctx context.Context) ([]*model.Holiday, error) {
	query := `
		SELECT id, name, date, active, created_at, updated_at
		FROM holidays
		WHERE active = true
		ORDER BY date ASC
	`
	var holidays []*model.Holiday
	err := r.db.SelectContext(ctx, &holidays, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	return holidays, nil
}

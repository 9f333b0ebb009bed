package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/yferras/clinic-api/internal/model"
	apperrors "github.com/yferras/clinic-api/pkg/errors"
)

// resolveDoctorPool determines which doctors a booking request may be
// scheduled against. Doctors can only book themselves; an explicit
// choice narrows the pool to that doctor; otherwise every user holding
// the doctor role is a candidate, in randomized order so repeated
// searches spread load across equally-free doctors.
func (s *Service) resolveDoctorPool(ctx context.Context, requester *model.User, doctorChoice *uuid.UUID) ([]uuid.UUID, error) {
	role, err := s.roleByID(ctx, requester.RoleID)
	if err != nil {
		return nil, apperrors.NewServerError("requester role not found", err)
	}

	if role.Name == model.RoleDoctor {
		return []uuid.UUID{requester.ID}, nil
	}

	if doctorChoice != nil {
		if _, err := s.userRepo.Get(ctx, *doctorChoice); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperrors.NewNotFound("doctor")
			}
			return nil, fmt.Errorf("failed to look up chosen doctor: %w", err)
		}
		return []uuid.UUID{*doctorChoice}, nil
	}

	doctorRole, err := s.roleByName(ctx, model.RoleDoctor)
	if err != nil {
		return nil, apperrors.NewServerError("doctor role is not configured", err)
	}

	doctors, err := s.userRepo.ListByRole(ctx, doctorRole.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	pool := make([]uuid.UUID, len(doctors))
	for i, doc := range doctors {
		pool[i] = doc.ID
	}
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool, nil
}

// roleByID resolves a role through the short-lived cache. Role records
// change rarely; a stale read here only delays a rename.
func (s *Service) roleByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	cacheKey := "role:" + id.String()
	if cached, ok := s.roleCache.Get(cacheKey); ok {
		return cached.(*model.Role), nil
	}

	role, err := s.roleRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.roleCache.SetDefault(cacheKey, role)
	return role, nil
}

func (s *Service) roleByName(ctx context.Context, name string) (*model.Role, error) {
	cacheKey := "role-name:" + name
	if cached, ok := s.roleCache.Get(cacheKey); ok {
		return cached.(*model.Role), nil
	}

	role, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	s.roleCache.SetDefault(cacheKey, role)
	return role, nil
}

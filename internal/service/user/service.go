package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yferras/clinic-api/internal/model"
	"github.com/yferras/clinic-api/internal/repository"
	apperrors "github.com/yferras/clinic-api/pkg/errors"
)

const bcryptCost = 12

type Service struct {
	repo     repository.UserRepository
	roleRepo repository.RoleRepository
}

func NewService(repo repository.UserRepository, roleRepo repository.RoleRepository) *Service {
	return &Service{repo: repo, roleRepo: roleRepo}
}

func (s *Service) CreateUser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if _, err := s.roleRepo.Get(ctx, req.RoleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("role")
		}
		return nil, fmt.Errorf("failed to look up role: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hashedPassword),
		Phone:        req.Phone,
		RoleID:       req.RoleID,
		Status:       model.UserStatusActive,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListDoctors returns every active user holding the doctor role.
func (s *Service) ListDoctors(ctx context.Context) ([]*model.User, error) {
	doctorRole, err := s.roleRepo.GetByName(ctx, model.RoleDoctor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewServerError("doctor role is not configured", err)
		}
		return nil, fmt.Errorf("failed to look up doctor role: %w", err)
	}

	doctors, err := s.repo.ListByRole(ctx, doctorRole.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

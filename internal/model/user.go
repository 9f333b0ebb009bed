package model

import (
	"time"

	"github.com/google/uuid"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User represents a system user. Doctors, admins and reception staff are
// all users; the role reference decides what they can do.
type User struct {
	Base
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	Password     string     `json:"password,omitempty" db:"-"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Phone        *string    `json:"phone" db:"phone"`
	RoleID       uuid.UUID  `json:"role_id" db:"role_id"`
	Status       string     `json:"status" db:"status"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Email    string    `json:"email" binding:"required,email"`
	Name     string    `json:"name" binding:"required"`
	Password string    `json:"password" binding:"required,min=8"`
	RoleID   uuid.UUID `json:"role_id" binding:"required"`
	Phone    *string   `json:"phone"`
}

// UserFilters represents user search parameters
type UserFilters struct {
	RoleID uuid.UUID
	Status string
}

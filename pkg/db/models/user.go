package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID                    uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name                  string         `gorm:"column:name;not null"`
	Email                 string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash          string         `gorm:"column:password_hash;not null"`
	Phone                 *string        `gorm:"column:phone"`
	CityID                *uuid.UUID     `gorm:"column:city_id;type:uuid"`
	Role                  enums.UserRole `gorm:"column:role;type:user_role;not null;default:'user'"`
	IsVerified            bool           `gorm:"column:is_verified;not null;default:false"`
	VerificationCode      *string        `gorm:"column:verification_code"`
	VerificationExpiresAt *time.Time     `gorm:"column:verification_expires_at"`
	ResetTokenHash        *string        `gorm:"column:reset_token_hash"`
	ResetExpiresAt        *time.Time     `gorm:"column:reset_expires_at"`
	IsBlocked             bool           `gorm:"column:is_blocked;not null;default:false"`
	LastLoginAt           *time.Time     `gorm:"column:last_login_at"`
	CreatedAt             time.Time      `gorm:"column:created_at"`
	UpdatedAt             time.Time      `gorm:"column:updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == enums.UserRoleAdmin
}

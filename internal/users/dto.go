package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials and one-time codes.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Phone       *string        `json:"phone,omitempty"`
	CityID      *uuid.UUID     `json:"cityId,omitempty"`
	Role        enums.UserRole `json:"role"`
	IsVerified  bool           `json:"isVerified"`
	IsBlocked   bool           `json:"isBlocked"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name                  string
	Email                 string
	PasswordHash          string
	Phone                 *string
	CityID                *uuid.UUID
	Role                  enums.UserRole
	VerificationCode      *string
	VerificationExpiresAt *time.Time
	Now                   time.Time
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		CityID:      u.CityID,
		Role:        u.Role,
		IsVerified:  u.IsVerified,
		IsBlocked:   u.IsBlocked,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	now := c.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &models.User{
		ID:                    uuid.New(),
		Name:                  strings.TrimSpace(c.Name),
		Email:                 NormalizeEmail(c.Email),
		PasswordHash:          c.PasswordHash,
		Phone:                 c.Phone,
		CityID:                c.CityID,
		Role:                  role,
		VerificationCode:      c.VerificationCode,
		VerificationExpiresAt: c.VerificationExpiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/internal/users"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name            string     `json:"name" validate:"required,min=2,max=80"`
	Email           string     `json:"email" validate:"required,email"`
	Phone           *string    `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	CityID          *uuid.UUID `json:"cityId,omitempty"`
	Password        string     `json:"password" validate:"required,min=6"`
	ConfirmPassword string     `json:"confirmPassword" validate:"required"`
}

// RegisterResponse tells the client which account awaits verification.
type RegisterResponse struct {
	UserID               uuid.UUID `json:"userId"`
	Email                string    `json:"email"`
	RequiresVerification bool      `json:"requiresVerification"`
	ExpiresAt            time.Time `json:"expiresAt"`
}

// VerifyEmailRequest confirms the emailed code.
type VerifyEmailRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Code   string    `json:"code" validate:"required,len=6,numeric"`
}

// ResendCodeRequest asks for a fresh verification code.
type ResendCodeRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

// LoginRequest accepts an email address or a phone number as the identifier.
type LoginRequest struct {
	Identifier string `json:"emailOrPhone" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// RefreshRequest exchanges an expired access token and its refresh token for a new pair.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenResponse carries the token pair issued on login, verification, or refresh.
type TokenResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	User         *users.UserDTO `json:"user"`
}

// UpdateProfileRequest applies a partial profile change.
type UpdateProfileRequest struct {
	Name   *string    `json:"name,omitempty" validate:"omitempty,min=2,max=80"`
	Phone  *string    `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	CityID *uuid.UUID `json:"cityId,omitempty"`
}

// ChangePasswordRequest rotates the password of a signed-in user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordResponse identifies the account the reset code was sent for.
type ForgotPasswordResponse struct {
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ResetPasswordRequest completes a password reset with the mailed code.
type ResetPasswordRequest struct {
	UserID          uuid.UUID `json:"userId" validate:"required"`
	Code            string    `json:"code" validate:"required,len=6,numeric"`
	NewPassword     string    `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string    `json:"confirmPassword" validate:"required"`
}

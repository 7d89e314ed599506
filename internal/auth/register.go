package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/internal/users"
	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/mailer"
	"github.com/angelmondragon/petpair-backend/pkg/security"
)

// Register creates an unverified account and mails it a verification code.
// The account is removed again when the mail cannot be sent.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := users.NormalizeEmail(req.Email)
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}
	if err := validateNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	var phone *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		value := strings.TrimSpace(*req.Phone)
		if err := s.ensurePhoneFree(ctx, value, uuid.Nil); err != nil {
			return nil, err
		}
		phone = &value
	}
	if req.CityID != nil {
		if err := s.ensureCity(ctx, *req.CityID); err != nil {
			return nil, err
		}
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	code, err := s.newCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}

	now := s.now()
	expiresAt := now.Add(verificationCodeTTL)
	digest := security.HashCode(code)
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:                  name,
		Email:                 email,
		PasswordHash:          passwordHash,
		Phone:                 phone,
		CityID:                req.CityID,
		Role:                  enums.UserRoleUser,
		VerificationCode:      &digest,
		VerificationExpiresAt: &expiresAt,
		Now:                   now,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	if err := s.mail.Send(ctx, mailer.VerificationEmail(user.Email, user.Name, code, verificationCodeTTL)); err != nil {
		logCtx := s.logg.WithUserID(ctx, user.ID.String())
		s.logg.Error(logCtx, "auth.register.mail_failed", err)
		if _, delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logg.Error(logCtx, "auth.register.rollback_failed", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification email")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.register.pending_verification")
	return &RegisterResponse{
		UserID:               user.ID,
		Email:                user.Email,
		RequiresVerification: true,
		ExpiresAt:            expiresAt,
	}, nil
}

// VerifyEmail checks the mailed code and signs the user in on success.
func (s *service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*TokenResponse, error) {
	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already verified")
	}
	if err := s.checkCode(user.VerificationCode, user.VerificationExpiresAt, req.Code, "verification"); err != nil {
		return nil, err
	}

	if _, err := s.users.Update(ctx, user.ID, s.now(), map[string]any{
		"is_verified":             true,
		"verification_code":       nil,
		"verification_expires_at": nil,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark email verified")
	}
	user.IsVerified = true
	user.VerificationCode = nil
	user.VerificationExpiresAt = nil

	if user.IsBlocked {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is blocked")
	}
	return s.issueTokens(ctx, user)
}

// ResendCode replaces the pending verification code with a fresh one.
func (s *service) ResendCode(ctx context.Context, req ResendCodeRequest) (*RegisterResponse, error) {
	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already verified")
	}

	code, err := s.newCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	now := s.now()
	expiresAt := now.Add(verificationCodeTTL)
	if _, err := s.users.Update(ctx, user.ID, now, map[string]any{
		"verification_code":       security.HashCode(code),
		"verification_expires_at": expiresAt,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification code")
	}
	if err := s.mail.Send(ctx, mailer.VerificationEmail(user.Email, user.Name, code, verificationCodeTTL)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification email")
	}

	return &RegisterResponse{
		UserID:               user.ID,
		Email:                user.Email,
		RequiresVerification: true,
		ExpiresAt:            expiresAt,
	}, nil
}

// checkCode validates a one-time code against its stored digest and expiry.
func (s *service) checkCode(digest *string, expiresAt *time.Time, code, purpose string) error {
	if digest == nil || *digest == "" || expiresAt == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "no "+purpose+" code requested")
	}
	if s.now().After(*expiresAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, purpose+" code expired").
			WithDetails(map[string]any{"codeExpired": true})
	}
	if len(strings.TrimSpace(code)) != codeDigits || !security.CodeMatches(code, *digest) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid "+purpose+" code")
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}
	if password != confirm {
		return pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match")
	}
	return nil
}

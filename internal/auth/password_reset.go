package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/mailer"
	"github.com/angelmondragon/petpair-backend/pkg/security"
)

// ForgotPassword mails a reset code to a verified account.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no account registered with this email")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email address is not verified").
			WithDetails(map[string]any{"needsVerification": true, "userId": user.ID})
	}

	code, err := s.newCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset code")
	}
	now := s.now()
	expiresAt := now.Add(resetCodeTTL)
	if _, err := s.users.Update(ctx, user.ID, now, map[string]any{
		"reset_token_hash": security.HashCode(code),
		"reset_expires_at": expiresAt,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset code")
	}
	if err := s.mail.Send(ctx, mailer.PasswordResetEmail(user.Email, user.Name, code, resetCodeTTL)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send password reset email")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.password_reset.requested")
	return &ForgotPasswordResponse{UserID: user.ID, ExpiresAt: expiresAt}, nil
}

// ResetPassword swaps the password when the reset code matches. The code is
// single use and every session is revoked.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validateNewPassword(req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return err
	}
	if err := s.checkCode(user.ResetTokenHash, user.ResetExpiresAt, req.Code, "reset"); err != nil {
		return err
	}
	if err := s.storePassword(ctx, user.ID, req.NewPassword, map[string]any{
		"reset_token_hash": nil,
		"reset_expires_at": nil,
	}); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.password_reset.completed")
	return nil
}

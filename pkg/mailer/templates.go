package mailer

import (
	"fmt"
	"time"
)

// VerificationEmail renders the sign-up verification code mail.
func VerificationEmail(to, name, code string, validFor time.Duration) Message {
	minutes := int(validFor.Minutes())
	return Message{
		To:      to,
		Subject: "Verify your PetPair account",
		HTMLBody: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>",
			name, code, minutes,
		),
		TextBody: fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires in %d minutes.\n", name, code, minutes),
	}
}

// PasswordResetEmail renders the password reset code mail.
func PasswordResetEmail(to, name, code string, validFor time.Duration) Message {
	minutes := int(validFor.Minutes())
	return Message{
		To:      to,
		Subject: "Reset your PetPair password",
		HTMLBody: fmt.Sprintf(
			"<p>Hi %s,</p><p>Use <strong>%s</strong> to reset your password.</p><p>The code expires in %d minutes. Ignore this mail if you did not ask for it.</p>",
			name, code, minutes,
		),
		TextBody: fmt.Sprintf("Hi %s,\n\nUse %s to reset your password. The code expires in %d minutes.\n", name, code, minutes),
	}
}

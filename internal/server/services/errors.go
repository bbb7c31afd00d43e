package services

import "github.com/dmitrijs2005/authkeeper/internal/common"

// Client-facing failures. Each one matches its kind via errors.Is, e.g.
// errors.Is(ErrRefreshTokenExpired, common.ErrorUnauthorized).
var (
	ErrUsernameRequired    = common.BadRequest("Username is required")
	ErrInvalidRole         = common.BadRequest("Invalid role")
	ErrInvalidEmail        = common.BadRequest("Invalid email format")
	ErrPasswordTooShort    = common.BadRequest("Password must be at least 8 characters")
	ErrPasswordMismatch    = common.BadRequest("Passwords do not match")
	ErrAdminSelfRegister   = common.BadRequest("Cannot self-register as admin")
	ErrUsernameTaken       = common.Conflict("Username already exists")
	ErrEmailTaken          = common.Conflict("Email already exists")
	ErrInvalidCredentials  = common.Unauthorized("Invalid username or password")
	ErrEmailNotVerified    = common.Unauthorized("Please verify your email before logging in")
	ErrInvalidRefreshToken = common.Unauthorized("Invalid refresh token")
	ErrRefreshTokenExpired = common.Unauthorized("Refresh token expired")
	ErrUserNotFound        = common.Unauthorized("User not found")

	ErrInvalidVerificationToken = common.BadRequest("Invalid or expired verification token")
	ErrVerificationTokenExpired = common.BadRequest("Verification token has expired. Please request a new one.")
)

// Success messages returned to clients.
const (
	MsgRegistered       = "User registered successfully. Please check your email to verify your account."
	MsgEmailVerified    = "Email verified successfully. You can now log in."
	MsgVerificationSent = "If an unverified account exists with this email, a verification link has been sent."
)

package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside the human readable message.
const (
	TextCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	TextCodeEmailDelivery       = "EMAIL_DELIVERY_FAILED"
	TextCodeInvalidToken        = "INVALID_TOKEN"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeAlreadyVerified     = "ALREADY_VERIFIED"
	TextCodeMissingEmail        = "MISSING_EMAIL"
	TextCodeNotFound            = "NOT_FOUND"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
)

// ErrDuplicateEmail is returned on signup when the email is already registered.
var ErrDuplicateEmail = errors.New("Email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeBadRequest)

// ErrEmailDeliveryFailed wraps outbound email transport failures.
var ErrEmailDeliveryFailed = errors.New("failed to send verification email", errors.CategoryOperation).
	WithTextCode(TextCodeEmailDelivery).
	WithCode(errors.CodeBadRequest)

// ErrInvalidToken is returned when no verification token matches the value.
var ErrInvalidToken = errors.New("Invalid token", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned when a verification token is past its expiry.
var ErrTokenExpired = errors.New("Token has expired. Request a new one.", errors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeBadRequest)

// ErrTokenMalformed covers bad signatures and missing claims on JWTs.
var ErrTokenMalformed = errors.New("Invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrAlreadyVerified is returned when an account is already verified.
var ErrAlreadyVerified = errors.New("Email is already verified.", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(errors.CodeBadRequest)

// ErrMissingEmail is returned when resend is called without an email.
var ErrMissingEmail = errors.New("No email is provided", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingEmail).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is returned when no account matches the given email.
var ErrUserNotFound = errors.New("User not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidCredentials collapses unknown user, bad password, and unverified
// account into one answer so login never leaks account state.
var ErrInvalidCredentials = errors.New("Invalid email or password.", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidRefreshToken is returned for any refresh verification failure.
var ErrInvalidRefreshToken = errors.New("Invalid refresh token.", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidRefreshToken).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

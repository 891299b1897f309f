package auth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the domain errors.
const (
	TextCodeValidation          = "VALIDATION_ERROR"
	TextCodeDuplicateUsername   = "DUPLICATE_USERNAME"
	TextCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodePasswordMismatch    = "PASSWORD_MISMATCH"
	TextCodeUnauthenticated     = "UNAUTHENTICATED"
	TextCodeInvalidToken        = "INVALID_TOKEN"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeUserNotFound        = "USER_NOT_FOUND"
	TextCodeEmailNotFound       = "EMAIL_NOT_FOUND"
	TextCodeAlreadyVerified     = "ALREADY_VERIFIED"
	TextCodeInvalidResetToken   = "INVALID_OR_EXPIRED_TOKEN"
	TextCodeInvalidVerifyToken  = "INVALID_VERIFICATION_TOKEN"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodePasswordTooLong     = "PASSWORD_TOO_LONG"
	TextCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	TextCodeMissingSigningKey   = "MISSING_SIGNING_KEY"
	TextCodeInternal            = "INTERNAL_ERROR"
	TextCodeRouteNotFound       = "ROUTE_NOT_FOUND"
	TextCodeMalformedBody       = "MALFORMED_BODY"
	validationErrorsMetadataKey = "errors"
)

var (
	// ErrDuplicateUsername is returned when the username is taken
	ErrDuplicateUsername = goerrors.New("Username already exists", goerrors.CategoryConflict).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeDuplicateUsername)

	// ErrDuplicateEmail is returned when the email is taken
	ErrDuplicateEmail = goerrors.New("Email already exists", goerrors.CategoryConflict).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeDuplicateEmail)

	// ErrInvalidCredentials is deliberately the same for unknown users and
	// wrong passwords.
	ErrInvalidCredentials = goerrors.New("Invalid username or password", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeInvalidCreds)

	// ErrUnauthenticated is returned when a request carries no token
	ErrUnauthenticated = goerrors.New("Authentication required", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeUnauthenticated)

	// ErrInvalidToken signature, structure or registry lookup failure
	ErrInvalidToken = goerrors.New("Invalid token", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeInvalidToken)

	// ErrTokenExpired token past its expiry
	ErrTokenExpired = goerrors.New("Token expired", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeTokenExpired)

	// ErrUserNotFound authenticated identity without a user row
	ErrUserNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithTextCode(TextCodeUserNotFound)

	// ErrEmailNotFound resend verification for an unknown address
	ErrEmailNotFound = goerrors.New("Email not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithTextCode(TextCodeEmailNotFound)

	// ErrAlreadyVerified resend verification for a verified address
	ErrAlreadyVerified = goerrors.New("Email is already verified", goerrors.CategoryBadInput).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeAlreadyVerified)

	// ErrInvalidOrExpiredToken reset token unknown or past its expiry
	ErrInvalidOrExpiredToken = goerrors.New("Invalid or expired reset token", goerrors.CategoryBadInput).
					WithCode(goerrors.CodeBadRequest).
					WithTextCode(TextCodeInvalidResetToken)

	// ErrInvalidVerificationToken verification token unknown
	ErrInvalidVerificationToken = goerrors.New("Invalid verification token", goerrors.CategoryBadInput).
					WithCode(goerrors.CodeBadRequest).
					WithTextCode(TextCodeInvalidVerifyToken)

	// ErrNoEmptyString hashing an empty password
	ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeEmptyPassword)

	// ErrPasswordTooLong hashing a password over MaxPasswordBytes
	ErrPasswordTooLong = goerrors.New("password must not exceed 72 bytes", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodePasswordTooLong)

	// ErrMismatchedHashAndPassword password does not match the stored hash
	ErrMismatchedHashAndPassword = goerrors.New("password does not match hash", goerrors.CategoryAuth).
					WithCode(goerrors.CodeUnauthorized).
					WithTextCode(TextCodePasswordMismatch)

	// ErrTooManyRequests rate limit reached
	ErrTooManyRequests = goerrors.New("Too many requests from this IP, please try again later.", goerrors.CategoryRateLimit).
				WithCode(429).
				WithTextCode(TextCodeTooManyRequests)

	// ErrMissingSigningKey is a startup configuration error
	ErrMissingSigningKey = goerrors.New("JWT_SECRET is not defined in environment variables", goerrors.CategoryInternal).
				WithCode(goerrors.CodeInternal).
				WithTextCode(TextCodeMissingSigningKey)

	// ErrMalformedBody request body could not be decoded
	ErrMalformedBody = goerrors.New("Invalid request body", goerrors.CategoryBadInput).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeMalformedBody)

	// ErrRouteNotFound unknown endpoint
	ErrRouteNotFound = goerrors.New("Route not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithTextCode(TextCodeRouteNotFound)
)

// NewValidationError builds a validation error carrying per field messages
func NewValidationError(fields map[string]string) *goerrors.Error {
	return goerrors.New("Validation error", goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidation).
		WithMetadata(map[string]any{
			validationErrorsMetadataKey: fields,
		})
}

// ValidationFields returns the per field messages of a validation error
func ValidationFields(err error) (map[string]string, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return nil, false
	}
	fields, ok := richErr.Metadata[validationErrorsMetadataKey].(map[string]string)
	return fields, ok
}

// IsDuplicateError reports whether err is one of the uniqueness errors
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrDuplicateEmail)
}

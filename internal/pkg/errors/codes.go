package errors

import "net/http"

// Error codes are stable identifiers; messages may change, codes may not.

// Identity error codes.
const (
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodePasswordTooLong    = "PASSWORD_TOO_LONG"
)

// Auth error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeForbidden    = "FORBIDDEN"
	CodeAdminOnly    = "ADMIN_REQUIRED"
)

// Catalog and integration error codes.
const (
	CodePlatformNotFound    = "PLATFORM_NOT_FOUND"
	CodeIntegrationNotFound = "INTEGRATION_NOT_FOUND"
	CodeCredentialCorrupted = "CREDENTIAL_DATA_CORRUPTED"
)

// Validation error codes.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidOrderBy = "INVALID_ORDER_BY"
	CodeNameRequired   = "NAME_REQUIRED"
)

// System error codes.
const (
	CodeInternal       = "INTERNAL_ERROR"
	CodeRequestTimeout = "REQUEST_TIMEOUT"
)

// Convenience constructors using predefined codes.

// ErrUserNotFoundf creates a user not found error.
func ErrUserNotFoundf(userID int64) *AppError {
	return NotFound(CodeUserNotFound, "user not found").
		WithParams(map[string]interface{}{"user_id": userID})
}

// ErrPlatformNotFoundf creates a platform not found error.
func ErrPlatformNotFoundf(platformID int64) *AppError {
	return NotFound(CodePlatformNotFound, "platform not found").
		WithParams(map[string]interface{}{"platform_id": platformID})
}

// ErrIntegrationNotFoundf creates an integration not found error.
func ErrIntegrationNotFoundf(userID, platformID int64) *AppError {
	return NotFound(CodeIntegrationNotFound, "integration does not exist").
		WithParams(map[string]interface{}{"user_id": userID, "platform_id": platformID})
}

// ErrInvalidCredentials is returned for every failed login regardless of cause.
func ErrInvalidCredentials() *AppError {
	return &AppError{
		Code:       CodeInvalidCredentials,
		Message:    "incorrect username or password",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// ErrUsernameTaken creates a duplicate registration error.
func ErrUsernameTaken() *AppError {
	return Conflict(CodeUsernameTaken, "username already registered")
}

// ErrAdminRequired creates the error returned to authenticated non-admins.
func ErrAdminRequired() *AppError {
	return Forbidden(CodeAdminOnly, "administrator privileges required")
}

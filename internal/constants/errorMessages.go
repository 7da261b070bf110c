package constants

// Error codes carried by services.ServiceError
const (
	ErrCodeRejected    = "REJECTED"
	ErrCodeValidation  = "VALIDATION_FAILED"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeConflict    = "CONFLICT"
	ErrCodeConsistency = "CONSISTENCY_VIOLATION"
	ErrCodeForbidden   = "FORBIDDEN"
	ErrCodeInvalidLink = "INVALID_SIGN_LINK"
)

var ErrorMessages = map[string]string{
	ErrCodeRejected:    "The operation is not allowed in the current state",
	ErrCodeValidation:  "The request is invalid",
	ErrCodeNotFound:    "The requested resource was not found",
	ErrCodeConflict:    "The resource is busy, please retry",
	ErrCodeConsistency: "An internal consistency check failed",
	ErrCodeForbidden:   "You do not have access to this resource",
	ErrCodeInvalidLink: "The signing link is invalid or has already been used",
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "An unexpected error occurred"
}

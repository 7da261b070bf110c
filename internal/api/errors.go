package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chamberhub/campaigns/internal/auth"
	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/db"
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/services"
)

// handleServiceError maps service errors to appropriate HTTP responses
func handleServiceError(w http.ResponseWriter, r *http.Request, initTime time.Time, err error) {
	if errors.Is(err, db.ErrTransient) {
		common.RespondError(w, initTime, nil, constants.GetErrorMessage(constants.ErrCodeConflict), http.StatusServiceUnavailable)
		return
	}

	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		statusCode := mapErrorCodeToHTTPStatus(svcErr.Code)
		message := svcErr.Message
		if message == "" || svcErr.Code == constants.ErrCodeConsistency {
			message = constants.GetErrorMessage(svcErr.Code)
		}
		if statusCode >= http.StatusInternalServerError {
			logging.Error("Request failed",
				"request_id", auth.GetRequestID(r.Context()),
				"path", r.URL.Path,
				"code", svcErr.Code,
				"error", svcErr.Error(),
			)
		}
		common.RespondError(w, initTime, nil, message, statusCode)
		return
	}

	logging.Error("Unexpected error",
		"request_id", auth.GetRequestID(r.Context()),
		"path", r.URL.Path,
		"error", err.Error(),
	)
	common.RespondError(w, initTime, nil, "An unexpected error occurred", http.StatusInternalServerError)
}

// mapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func mapErrorCodeToHTTPStatus(errorCode string) int {
	switch errorCode {
	// 400 Bad Request - the link itself is unusable
	case constants.ErrCodeInvalidLink:
		return http.StatusBadRequest

	// 403 Forbidden - Authenticated but outside the caller's tenant
	case constants.ErrCodeForbidden:
		return http.StatusForbidden

	// 404 Not Found - Resource doesn't exist
	case constants.ErrCodeNotFound:
		return http.StatusNotFound

	// 409 Conflict - not allowed in the current state
	case constants.ErrCodeRejected:
		return http.StatusConflict

	// 422 Unprocessable Entity - input failed validation
	case constants.ErrCodeValidation:
		return http.StatusUnprocessableEntity

	// 503 Service Unavailable - lock conflict survived the retry
	case constants.ErrCodeConflict:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into dst and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, initTime time.Time, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondError(w, initTime, nil, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

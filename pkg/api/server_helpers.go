package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dd0wney/cluso-airnet/pkg/api/middleware"
	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/network"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      status,
		RequestID: middleware.GetRequestID(r),
	}
	s.respondJSON(w, status, response)
}

// statusFor maps an operation error to an HTTP status
func statusFor(err error) int {
	switch {
	case network.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, network.ErrDuplicateID):
		return http.StatusConflict
	case network.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondOpError reports a failed operation. Client errors carry the error
// text; internal details are logged but not exposed.
func (s *Server) respondOpError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		s.respondError(w, r, status, err.Error())
		return
	}

	s.logger.Error("operation failed",
		logging.Operation(operation),
		logging.RequestID(middleware.GetRequestID(r)),
		logging.Error(err))
	message := operation + " failed"
	if status == http.StatusGatewayTimeout {
		message = operation + " timed out"
	}
	s.respondError(w, r, status, message)
}

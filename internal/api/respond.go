// internal/api/respond.go
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"notification-queue/internal/common/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case errors.ErrCodeQueueRecordNotFound, errors.ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case errors.ErrCodeDatabaseConnectionFailed, errors.ErrCodeExternalServiceFailed, errors.ErrCodeTimeout:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	std := errors.Normalize(err)
	status := statusFor(std.Code)

	fields := map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"code":   string(std.Code),
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", fields)
	} else {
		s.logger.Warn("Request rejected", fields)
	}

	writeJSON(w, status, errorBody{Code: string(std.Code), Message: std.Message, Details: std.Details})
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return errors.NewInvalidRequestError("invalid request body: " + err.Error())
	}
	return nil
}

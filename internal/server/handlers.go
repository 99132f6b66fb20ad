package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"shopfloor/internal/api"
)

const defaultJSONMaxBody = 1 << 20 // 1 MiB

// apiError carries the HTTP status and machine code for one failure.
type apiError struct {
	status int
	code   string
	err    error
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

func makeAPIError(status int, code string, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	var existing apiError
	if errors.As(err, &existing) && existing.status != 0 {
		return existing
	}

	return apiError{status: status, code: code, err: err}
}

func badRequestCode(err error, code string) error {
	return makeAPIError(http.StatusBadRequest, code, err)
}

func badRequest(err error) error {
	return badRequestCode(err, codeInvalidArgument)
}

func unauthorized(err error) error {
	return makeAPIError(http.StatusUnauthorized, codeUnauthorized, err)
}

func forbiddenCode(err error, code string) error {
	return makeAPIError(http.StatusForbidden, code, err)
}

func notFoundCode(err error, code string) error {
	return makeAPIError(http.StatusNotFound, code, err)
}

func conflictCode(err error, code string) error {
	return makeAPIError(http.StatusConflict, code, err)
}

func storeFailure(err error) error {
	return makeAPIError(http.StatusInternalServerError, codeStoreFailure, err)
}

func httpStatusFromError(err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.status != 0 {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorCode(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.code != "" {
		return apiErr.code
	}
	return defaultCodeByStatus(status)
}

func shouldWarnClientError(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// writeError writes err with the status it carries, or 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	code := errorCode(status, err)
	message := err.Error()

	fields := []any{"status", status, "code", code, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}

	switch {
	case status >= 500:
		s.log().Error("request error", fields...)
		message = "internal error"
	case status >= 400 && shouldWarnClientError(status):
		s.log().Warn("request rejected", fields...)
	case status >= 400:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, api.ErrorResponse{Detail: message, Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, defaultJSONMaxBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

func classifyDecodeJSONError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return badRequestCode(fmt.Errorf("request body too large"), codeRequestTooLarge)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return badRequestCode(fmt.Errorf("invalid JSON payload"), codeInvalidJSON)
	}
	return badRequestCode(err, codeInvalidJSON)
}

func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
		return false
	}
	return true
}

// decodeOptionalJSONReq accepts an empty body as the zero value.
func (s *Server) decodeOptionalJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
		return false
	}
	return true
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
}

package server

import "net/http"

// Machine-readable error codes carried in the "code" field.
const (
	codeInvalidArgument   = "invalid_argument"
	codeInvalidJSON       = "invalid_json"
	codeRequestTooLarge   = "request_too_large"
	codeMissingRequired   = "missing_required"
	codeInvalidReason     = "invalid_reason"
	codeUnauthorized      = "unauthorized"
	codeForbidden         = "forbidden"
	codeNotAssignee       = "not_assignee"
	codeTaskNotFound      = "task_not_found"
	codeUserNotFound      = "user_not_found"
	codeMachineNotFound   = "machine_not_found"
	codeMachineInactive   = "machine_unavailable"
	codeMachineNameTaken  = "machine_name_taken"
	codeNotFound          = "not_found"
	codeInvalidTransition = "invalid_transition"
	codeAlreadyInStatus   = "already_in_status"
	codeUsernameTaken     = "username_taken"
	codeConflict          = "conflict"
	codeResourceExhausted = "resource_exhausted"
	codeInternal          = "internal"
	codeStoreFailure      = "store_failure"
)

func defaultCodeByStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeInvalidArgument
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusConflict:
		return codeConflict
	case http.StatusTooManyRequests:
		return codeResourceExhausted
	case http.StatusInternalServerError:
		return codeInternal
	default:
		return ""
	}
}

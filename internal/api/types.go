package api

// ErrorResponse is the JSON error body. Detail is meant for humans and is
// shown verbatim.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

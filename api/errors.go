package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Error is the response body for every failed request. Details carries the
// specific validation or authorization message; its strings are part of the
// tested contract, do not reword them casually.
type Error struct {
	// Code is the HTTP status of the response.
	Code int32 `json:"code"`
	// Message is the generic status text, e.g. "bad request".
	Message string `json:"message"`
	// Details describes the specific failure.
	Details string `json:"details,omitempty"`
}

func (e Error) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%d %v", e.Code, strings.ToLower(http.StatusText(int(e.Code))))
	}
	return e.Details
}

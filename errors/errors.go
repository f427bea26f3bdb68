package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation       = fmt.Errorf("body is not a valid nostr event")
	ErrWrongKind        = fmt.Errorf("event is not kind 4")
	ErrEncoding         = fmt.Errorf("unable to npub encode sender or receiver")
	ErrMissingParameter = fmt.Errorf("missing required parameter")
	ErrInvalidParameter = fmt.Errorf("invalid parameter")
	ErrRouteNotFound    = fmt.Errorf("invalid route")
	ErrMethodNotAllowed = fmt.Errorf("method not allowed")
	ErrMalformedKey     = fmt.Errorf("malformed archive key")
	ErrUnknownDriver    = fmt.Errorf("unknown store driver")
)

// clientErrors lists the errors reported back to callers, with the message exposed in the body.
var clientErrors = []struct {
	err     error
	status  int
	message string
}{
	{ErrValidation, http.StatusBadRequest, "Body is not a valid nostr event"},
	{ErrWrongKind, http.StatusBadRequest, "Event is not kind 4"},
	{ErrEncoding, http.StatusBadRequest, "Unable to npub encode sender or receiver"},
	{ErrMissingParameter, http.StatusBadRequest, ""},
	{ErrInvalidParameter, http.StatusBadRequest, ""},
	{ErrRouteNotFound, http.StatusBadRequest, "Invalid route"},
	{ErrMethodNotAllowed, http.StatusMethodNotAllowed, ""},
}

// MapToHTTPError translates a domain error into a status code and a public message.
// Parameter errors expose their wrapped detail since it only echoes what the caller sent.
// Anything unknown is an internal error and its detail is never exposed.
func MapToHTTPError(err error) (int, string) {
	for _, c := range clientErrors {
		if !stderrors.Is(err, c.err) {
			continue
		}
		if c.message == "" {
			return c.status, err.Error()
		}
		return c.status, c.message
	}
	return http.StatusInternalServerError, ""
}

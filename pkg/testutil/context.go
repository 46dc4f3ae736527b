package testutil

import (
	"net/http"
	"time"

	"ons/pkg/requestcontext"
)

// WithRequestTime pins the request clock, as the request-time middleware would.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID sets the request id, as the request-id middleware would.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}

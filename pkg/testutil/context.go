package testutil

import (
	"context"
	"net/http"
	"time"

	id "ngoconnect/pkg/domain"
	"ngoconnect/pkg/requestcontext"
)

// WithUser returns the request with an authenticated donor/volunteer identity
// in its context, the way the auth middleware would leave it.
func WithUser(req *http.Request, userID id.UserID) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, requestcontext.RoleUser)
	return req.WithContext(ctx)
}

// WithNGO returns the request with an authenticated NGO identity in its
// context.
func WithNGO(req *http.Request, ngoID id.NGOID) *http.Request {
	ctx := requestcontext.WithNGOID(req.Context(), ngoID)
	ctx = requestcontext.WithRole(ctx, requestcontext.RoleNGO)
	return req.WithContext(ctx)
}

// WithRequestID returns the request with a request id in its context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithFrozenTime returns a context whose request time is pinned to the given
// instant.
func WithFrozenTime(ctx context.Context, at time.Time) context.Context {
	return requestcontext.WithTime(ctx, at)
}

package httputil

import (
	"context"
	"net/http"
)

type userIDKey struct{}

// WithUserID returns r with userID stored in its context
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID))
}

// GetUserID returns the authenticated user ID, or "" if none is set
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey{}).(string)
	return userID
}

package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	ctxUserID contextKey = iota
	ctxUserEmail
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// UserIDFromContext returns the authenticated host id, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

// UserUUIDFromContext is UserIDFromContext parsed; uuid.Nil when anonymous.
func UserUUIDFromContext(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func EmailFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserEmail)
}

// WithUserID marks ctx as authenticated for userID. Tests use it to skip
// the JWT middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

func withEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxUserEmail, email)
}

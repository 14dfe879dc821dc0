package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
)

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxUserEmail  contextKey = "user_email"
	ctxResolution contextKey = "subscription_resolution"
)

// UserIDFromContext returns the authenticated user id, or uuid.Nil when the
// request is anonymous.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func UserEmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserEmail).(string); ok {
		return v
	}
	return ""
}

// ResolutionFromContext returns the subscription resolution seeded by
// SubscriptionContext, or nil when the middleware did not run.
func ResolutionFromContext(ctx context.Context) *subscriptions.Resolution {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxResolution).(*subscriptions.Resolution); ok {
		return v
	}
	return nil
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithResolution injects the subscription resolution for downstream handlers.
func WithResolution(ctx context.Context, resolution *subscriptions.Resolution) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxResolution, resolution)
}

package middleware

import (
	"net/http"

	"github.com/lucasberthier/prepalettres-backend/api/responses"
	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

// SubscriptionContext resolves the authenticated user's subscription and seeds
// the request context with it. Resolution never fails, so this middleware
// never rejects a request; the Require* gates below do.
func SubscriptionContext(resolver subscriptions.Resolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolution := resolver.Resolve(r.Context(), UserIDFromContext(r.Context()))
			next.ServeHTTP(w, r.WithContext(WithResolution(r.Context(), resolution)))
		})
	}
}

// RequirePremium blocks users without an entitled paid plan. The code tells
// the frontend which upsell screen to show.
func RequirePremium(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolution := ResolutionFromContext(r.Context())
			if resolution == nil || resolution.Subscription == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNoSubscription, "no subscription found"))
				return
			}
			if !resolution.Plan.ID.IsPaid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodePremiumRequired, "a premium plan is required"))
				return
			}
			if !resolution.Subscription.Status.IsEntitled() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeSubscriptionInactive, "subscription is not active"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAI blocks users whose plan does not include AI features.
func RequireAI(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolution := ResolutionFromContext(r.Context())
			if resolution == nil || !resolution.Capabilities.HasAI {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeAINotAvailable, "AI features are not included in the current plan"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTutoring blocks users whose plan does not include tutoring.
func RequireTutoring(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolution := ResolutionFromContext(r.Context())
			if resolution == nil || !resolution.Capabilities.HasTutoring {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeTutoringNotAvailable, "tutoring is not included in the current plan"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckExerciseLimit blocks submissions once the weekly allowance is spent.
// The refusal carries the usage numbers so the frontend can show them.
func CheckExerciseLimit(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolution := ResolutionFromContext(r.Context())
			if resolution == nil || resolution.Subscription == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNoSubscription, "no subscription found"))
				return
			}
			if resolution.Capabilities.CanDoExercise {
				next.ServeHTTP(w, r)
				return
			}
			if !resolution.Subscription.Status.IsEntitled() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeSubscriptionInactive, "subscription is not active"))
				return
			}
			err := pkgerrors.New(pkgerrors.CodeExerciseLimitReached, "weekly exercise limit reached").
				WithDetails(map[string]int{
					"used":      resolution.Subscription.ExercisesThisWeek,
					"limit":     resolution.Plan.WeeklyExerciseLimit,
					"remaining": resolution.Capabilities.RemainingExercises,
				})
			responses.WriteError(r.Context(), logg, w, err)
		})
	}
}

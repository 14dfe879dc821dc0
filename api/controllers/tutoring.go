package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/lucasberthier/prepalettres-backend/api/middleware"
	"github.com/lucasberthier/prepalettres-backend/api/responses"
	"github.com/lucasberthier/prepalettres-backend/api/validators"
	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

type tutoringBalanceResponse struct {
	RemainingHours string `json:"remaining_hours"`
	MonthlyHours   string `json:"monthly_hours"`
}

// TutoringBalance reports the caller's remaining tutoring hours. The
// RequireTutoring gate runs before this handler.
func TutoringBalance(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resolution := middleware.ResolutionFromContext(ctx)
		if resolution == nil || resolution.Subscription == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription resolution missing"))
			return
		}

		responses.WriteSuccess(w, tutoringBalanceResponse{
			RemainingHours: resolution.Subscription.TutoringHours.StringFixed(1),
			MonthlyHours:   resolution.Plan.TutoringHoursPerMonth.StringFixed(1),
		})
	}
}

type tutoringConsumeRequest struct {
	Hours string `json:"hours" validate:"required"`
}

type tutoringConsumeResponse struct {
	RemainingHours string `json:"remaining_hours"`
}

// TutoringConsume books time against the monthly allowance. The decrement is
// a single guarded UPDATE so concurrent bookings cannot overdraw the balance.
func TutoringConsume(repo subscriptions.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if repo == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo unavailable"))
			return
		}

		var payload tutoringConsumeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		hours, err := decimal.NewFromString(payload.Hours)
		if err != nil || hours.LessThanOrEqual(decimal.Zero) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "hours must be a positive decimal"))
			return
		}

		userID := middleware.UserIDFromContext(ctx)
		if err := repo.ConsumeTutoringHours(ctx, userID, hours); err != nil {
			switch err {
			case subscriptions.ErrInsufficientTutoringHours:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "insufficient tutoring hours"))
			case subscriptions.ErrNotFound:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNoSubscription, "subscription required"))
			default:
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume tutoring hours"))
			}
			return
		}

		stored, err := repo.FindByUserID(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription"))
			return
		}
		responses.WriteSuccess(w, tutoringConsumeResponse{
			RemainingHours: stored.TutoringHours.StringFixed(1),
		})
	}
}

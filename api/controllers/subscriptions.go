package controllers

import (
	"net/http"
	"time"

	"github.com/lucasberthier/prepalettres-backend/api/middleware"
	"github.com/lucasberthier/prepalettres-backend/api/responses"
	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

type subscriptionMeResponse struct {
	Plan              string                     `json:"plan"`
	PlanName          string                     `json:"plan_name"`
	Status            string                     `json:"status"`
	BillingInterval   string                     `json:"billing_interval,omitempty"`
	CurrentPeriodEnd  *string                    `json:"current_period_end,omitempty"`
	TrialEnd          *string                    `json:"trial_end,omitempty"`
	CancelAtPeriodEnd bool                       `json:"cancel_at_period_end"`
	ExercisesThisWeek int                        `json:"exercises_this_week"`
	WeekStart         string                     `json:"week_start"`
	TutoringHours     string                     `json:"tutoring_hours"`
	Capabilities      subscriptions.Capabilities `json:"capabilities"`
	Fallback          bool                       `json:"fallback,omitempty"`
}

// SubscriptionMe returns the caller's subscription and capability summary.
// Reading it applies the lazy weekly reset as a side effect.
func SubscriptionMe(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resolution := middleware.ResolutionFromContext(ctx)
		if resolution == nil || resolution.Subscription == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription resolution missing"))
			return
		}

		sub := resolution.Subscription
		resp := subscriptionMeResponse{
			Plan:              string(sub.Plan),
			PlanName:          resolution.Plan.Name,
			Status:            string(sub.Status),
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
			ExercisesThisWeek: sub.ExercisesThisWeek,
			WeekStart:         sub.WeekStart.UTC().Format(time.RFC3339),
			TutoringHours:     sub.TutoringHours.StringFixed(1),
			Capabilities:      resolution.Capabilities,
			Fallback:          resolution.Fallback,
		}
		if sub.BillingInterval != nil {
			resp.BillingInterval = string(*sub.BillingInterval)
		}
		if sub.CurrentPeriodEnd != nil {
			formatted := sub.CurrentPeriodEnd.UTC().Format(time.RFC3339)
			resp.CurrentPeriodEnd = &formatted
		}
		if sub.TrialEnd != nil {
			formatted := sub.TrialEnd.UTC().Format(time.RFC3339)
			resp.TrialEnd = &formatted
		}

		responses.WriteSuccess(w, resp)
	}
}

package controllers

import (
	"net/http"

	"github.com/lucasberthier/prepalettres-backend/api/middleware"
	"github.com/lucasberthier/prepalettres-backend/api/responses"
	"github.com/lucasberthier/prepalettres-backend/api/validators"
	"github.com/lucasberthier/prepalettres-backend/internal/billing"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

type checkoutRequest struct {
	Plan       string `json:"plan" validate:"required"`
	Interval   string `json:"interval" validate:"required"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

type portalRequest struct {
	ReturnURL string `json:"return_url" validate:"required,url"`
}

// BillingCheckout starts a hosted checkout session for a paid plan.
func BillingCheckout(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		planID, err := enums.ParsePlanID(payload.Plan)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan"))
			return
		}
		interval, err := enums.ParseBillingInterval(payload.Interval)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid interval"))
			return
		}

		url, err := svc.CreateCheckoutSession(ctx, middleware.UserIDFromContext(ctx), middleware.UserEmailFromContext(ctx), billing.CheckoutInput{
			Plan:       planID,
			Interval:   interval,
			SuccessURL: payload.SuccessURL,
			CancelURL:  payload.CancelURL,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, checkoutResponse{URL: url})
	}
}

// BillingPortal starts a hosted billing portal session.
func BillingPortal(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		var payload portalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		url, err := svc.CreatePortalSession(ctx, middleware.UserIDFromContext(ctx), payload.ReturnURL)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, checkoutResponse{URL: url})
	}
}

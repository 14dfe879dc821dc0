package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/lucasberthier/prepalettres-backend/internal/billing"
	"github.com/lucasberthier/prepalettres-backend/internal/plans"
	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
	"github.com/lucasberthier/prepalettres-backend/pkg/metrics"
)

// ServiceParams groups dependencies for the webhook translator.
type ServiceParams struct {
	Repo    subscriptions.Repository
	Catalog *plans.Catalog
	Logger  *logger.Logger
	Metrics *metrics.APIMetrics
}

// Service translates billing provider events into subscription-row updates.
// All handling is idempotent: replaying an event converges on the same row.
type Service struct {
	repo    subscriptions.Repository
	catalog *plans.Catalog
	logg    *logger.Logger
	metrics *metrics.APIMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		repo:    params.Repo,
		catalog: params.Catalog,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// HandleEvent routes one verified event. Unknown event types are ignored so
// the provider does not retry them forever.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	err := s.dispatch(ctx, event)
	outcome := "processed"
	if err != nil {
		outcome = "failed"
	}
	s.metrics.IncWebhookEvent(string(event.Type), outcome)
	return err
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, &stripeSub)
	case stripe.EventTypeInvoicePaid:
		return s.applyInvoiceStatus(ctx, event, enums.SubscriptionStatusActive)
	case stripe.EventTypeInvoicePaymentFailed:
		return s.applyInvoiceStatus(ctx, event, enums.SubscriptionStatusPastDue)
	case stripe.EventTypeCheckoutSessionCompleted:
		// The subscription.created event carries the full state; nothing to
		// persist here beyond an audit line.
		s.logg.Info(ctx, "checkout session completed")
		return nil
	default:
		return nil
	}
}

// syncSubscription upserts the local row from provider state. The row is keyed
// on user_id, so duplicate deliveries and out-of-order created/updated pairs
// converge on the same stored state.
func (s *Service) syncSubscription(ctx context.Context, stripeSub *stripe.Subscription) error {
	if stripeSub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}

	userID, err := s.resolveUserID(ctx, stripeSub)
	if err != nil {
		return err
	}

	status := mapStripeStatus(stripeSub.Status)
	stored, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && err != subscriptions.ErrNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	planID, interval, err := s.resolvePlan(stripeSub, stored, status)
	if err != nil {
		return err
	}

	row := &models.Subscription{
		ID:                   uuid.New(),
		UserID:               userID,
		Plan:                 planID,
		Status:               status,
		StripeSubscriptionID: &stripeSub.ID,
		CancelAtPeriodEnd:    stripeSub.CancelAtPeriodEnd,
		WeekStart:            time.Now().UTC(),
	}
	if stored != nil {
		row.ID = stored.ID
		row.WeekStart = stored.WeekStart
		row.ExercisesThisWeek = stored.ExercisesThisWeek
		row.TutoringHours = stored.TutoringHours
		row.StripeCustomerID = stored.StripeCustomerID
	}
	if interval != nil {
		row.BillingInterval = interval
	} else if stored != nil {
		row.BillingInterval = stored.BillingInterval
	}
	if stripeSub.Customer != nil && stripeSub.Customer.ID != "" {
		customerID := stripeSub.Customer.ID
		row.StripeCustomerID = &customerID
	}
	if end := subscriptionPeriodEnd(stripeSub); end != nil {
		row.CurrentPeriodEnd = end
	} else if stored != nil {
		row.CurrentPeriodEnd = stored.CurrentPeriodEnd
	}
	if stripeSub.TrialEnd > 0 {
		trialEnd := time.Unix(stripeSub.TrialEnd, 0).UTC()
		row.TrialEnd = &trialEnd
	}

	if planID.IsValid() && planID.IsPaid() {
		plan, planErr := s.catalog.Get(planID)
		if planErr == nil && status.IsEntitled() && shouldRefillTutoring(stored, planID, subscriptionPeriodEnd(stripeSub)) {
			row.TutoringHours = plan.TutoringHoursPerMonth
		}
	}

	if err := s.repo.Upsert(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert subscription")
	}

	fields := s.logg.WithFields(ctx, map[string]any{
		"plan":   planID.String(),
		"status": status.String(),
	})
	s.logg.Info(s.logg.WithUserID(fields, userID.String()), "subscription synced from webhook")
	return nil
}

// applyInvoiceStatus flips only the status for invoice lifecycle events. The
// full plan state arrives on subscription.updated events.
func (s *Service) applyInvoiceStatus(ctx context.Context, event *stripe.Event, status enums.SubscriptionStatus) error {
	subscriptionID := invoiceSubscriptionID(event)
	if subscriptionID == "" {
		// Invoices without a subscription (one-off charges) are not ours.
		return nil
	}

	stored, err := s.repo.FindByStripeSubscriptionID(ctx, subscriptionID)
	if err != nil {
		if err == subscriptions.ErrNotFound {
			s.logg.Warn(ctx, fmt.Sprintf("invoice event for unknown subscription %s", subscriptionID))
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	if stored.Status == status {
		return nil
	}
	// Trial subscriptions receive a zero-amount invoice.paid at trial start;
	// flipping to active there would erase the trial from the capability
	// summary for its whole duration.
	if status == enums.SubscriptionStatusActive &&
		stored.Status == enums.SubscriptionStatusTrialing &&
		stored.TrialEnd != nil && stored.TrialEnd.After(time.Now()) {
		return nil
	}
	stored.Status = status
	if err := s.repo.Update(ctx, stored); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription status")
	}
	return nil
}

// resolveUserID prefers the metadata stamped at checkout, falling back to the
// stored row for subscriptions created before metadata stamping.
func (s *Service) resolveUserID(ctx context.Context, stripeSub *stripe.Subscription) (uuid.UUID, error) {
	if raw, ok := stripeSub.Metadata[billing.MetadataUserIDKey]; ok && raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id metadata")
		}
		return userID, nil
	}

	stored, err := s.repo.FindByStripeSubscriptionID(ctx, stripeSub.ID)
	if err != nil {
		if err == subscriptions.ErrNotFound {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription event carries no user_id metadata")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	return stored.UserID, nil
}

// resolvePlan translates the price id into a catalog plan. Deletions fall back
// to the stored plan so a cancel event never fails on a retired price.
func (s *Service) resolvePlan(stripeSub *stripe.Subscription, stored *models.Subscription, status enums.SubscriptionStatus) (enums.PlanID, *enums.BillingInterval, error) {
	priceID := subscriptionPriceID(stripeSub)
	if priceID != "" {
		priced, err := s.catalog.ByStripePrice(priceID)
		if err == nil {
			interval := priced.Interval
			return priced.Plan.ID, &interval, nil
		}
		if status != enums.SubscriptionStatusCanceled {
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unmapped stripe price")
		}
	}
	if stored != nil {
		return stored.Plan, nil, nil
	}
	if status == enums.SubscriptionStatusCanceled {
		return enums.PlanFree, nil, nil
	}
	return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription event carries no price")
}

// shouldRefillTutoring limits the monthly-hours refill to genuine renewals.
// Mid-cycle updates (a cancel_at_period_end toggle, a payment method change)
// keep whatever balance the user has already consumed.
func shouldRefillTutoring(stored *models.Subscription, plan enums.PlanID, periodEnd *time.Time) bool {
	if stored == nil || stored.Plan != plan {
		return true
	}
	if periodEnd == nil {
		return false
	}
	if stored.CurrentPeriodEnd == nil {
		return true
	}
	return periodEnd.After(*stored.CurrentPeriodEnd)
}

func subscriptionPriceID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	if sub.Items.Data[0].Price != nil {
		return sub.Items.Data[0].Price.ID
	}
	return ""
}

// subscriptionPeriodEnd reads the period end from the first item, where the
// provider reports it since the 2025 API versions.
func subscriptionPeriodEnd(sub *stripe.Subscription) *time.Time {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	ts := sub.Items.Data[0].CurrentPeriodEnd
	if ts <= 0 {
		return nil
	}
	end := time.Unix(ts, 0).UTC()
	return &end
}

func invoiceSubscriptionID(event *stripe.Event) string {
	if id := event.GetObjectValue("parent", "subscription_details", "subscription"); id != "" {
		return id
	}
	return event.GetObjectValue("subscription")
}

func mapStripeStatus(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return enums.SubscriptionStatusActive
	case stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return enums.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return enums.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusIncomplete:
		return enums.SubscriptionStatusIncomplete
	default:
		return enums.SubscriptionStatusIncomplete
	}
}

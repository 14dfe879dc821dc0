package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/lucasberthier/prepalettres-backend/internal/plans"
	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

// MetadataUserIDKey is set on checkout subscriptions so webhook events can be
// mapped back to a local user without a customer lookup.
const MetadataUserIDKey = "user_id"

// Service orchestrates the billing provider: customers, checkout sessions and
// the self-serve portal. Webhook translation lives in internal/webhooks/stripe.
type Service interface {
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, email string, input CheckoutInput) (string, error)
	CreatePortalSession(ctx context.Context, userID uuid.UUID, returnURL string) (string, error)
}

// CheckoutInput captures the data required to start a paid subscription.
type CheckoutInput struct {
	Plan       enums.PlanID
	Interval   enums.BillingInterval
	SuccessURL string
	CancelURL  string
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo    subscriptions.Repository
	Catalog *plans.Catalog
	Stripe  StripeBillingClient
	Logger  *logger.Logger
}

type service struct {
	repo    subscriptions.Repository
	catalog *plans.Catalog
	stripe  StripeBillingClient
	logg    *logger.Logger
}

// NewService builds a billing service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("plan catalog required")
	}
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		catalog: params.Catalog,
		stripe:  params.Stripe,
		logg:    params.Logger,
	}, nil
}

// CreateCheckoutSession returns the hosted checkout URL for upgrading to a
// paid plan. The plan's trial days and the user id ride along on the
// subscription so the webhook translator can upsert the local row.
func (s *service) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, email string, input CheckoutInput) (string, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Plan.IsPaid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("plan %q cannot be purchased", input.Plan))
	}
	if !input.Interval.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "billing interval must be month or year")
	}
	if strings.TrimSpace(input.SuccessURL) == "" || strings.TrimSpace(input.CancelURL) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "success_url and cancel_url are required")
	}

	plan, err := s.catalog.Get(input.Plan)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown plan")
	}
	priceID, err := s.catalog.StripePriceFor(input.Plan, input.Interval)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "plan price not configured")
	}

	customerID, err := s.getOrCreateCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID.String()),
		SuccessURL:        stripe.String(input.SuccessURL),
		CancelURL:         stripe.String(input.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				MetadataUserIDKey: userID.String(),
				"plan":            input.Plan.String(),
			},
		},
	}
	if plan.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(plan.TrialDays))
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), fmt.Sprintf("checkout session created for plan %s (%s)", input.Plan, input.Interval))
	return session.URL, nil
}

// CreatePortalSession returns the hosted billing portal URL for an existing
// billing customer.
func (s *service) CreatePortalSession(ctx context.Context, userID uuid.UUID, returnURL string) (string, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(returnURL) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "return_url is required")
	}

	subscription, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if err == subscriptions.ErrNotFound {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "no billing account for this user")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if subscription.StripeCustomerID == nil || *subscription.StripeCustomerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "no billing account for this user")
	}

	session, err := s.stripe.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*subscription.StripeCustomerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create portal session")
	}
	return session.URL, nil
}

// getOrCreateCustomer reuses the customer id stored on the subscription row or
// creates one at the provider and persists it.
func (s *service) getOrCreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	subscription, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && err != subscriptions.ErrNotFound {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	if subscription != nil && subscription.StripeCustomerID != nil && *subscription.StripeCustomerID != "" {
		return *subscription.StripeCustomerID, nil
	}

	customerParams := &stripe.CustomerParams{
		Metadata: map[string]string{MetadataUserIDKey: userID.String()},
	}
	if strings.TrimSpace(email) != "" {
		customerParams.Email = stripe.String(email)
	}
	created, err := s.stripe.CreateCustomer(ctx, customerParams)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}

	if subscription == nil {
		subscription = &models.Subscription{
			ID:               uuid.New(),
			UserID:           userID,
			Plan:             enums.PlanFree,
			Status:           enums.SubscriptionStatusActive,
			StripeCustomerID: &created.ID,
			WeekStart:        nowUTC(),
			TutoringHours:    decimal.Zero,
		}
		if err := s.repo.Create(ctx, subscription); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
		}
		return created.ID, nil
	}

	subscription.StripeCustomerID = &created.ID
	if err := s.repo.Update(ctx, subscription); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist customer id")
	}
	return created.ID, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

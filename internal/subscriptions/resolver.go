package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasberthier/prepalettres-backend/internal/plans"
	"github.com/lucasberthier/prepalettres-backend/pkg/config"
	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

const weekLength = 7 * 24 * time.Hour

// Capabilities is the derived, never-stored view of what a user may do right
// now. RemainingExercises is plans.UnlimitedExercises for uncapped plans.
type Capabilities struct {
	HasAI              bool `json:"has_ai"`
	HasTutoring        bool `json:"has_tutoring"`
	CanDoExercise      bool `json:"can_do_exercise"`
	RemainingExercises int  `json:"remaining_exercises"`
	IsTrialing         bool `json:"is_trialing"`
	TrialDaysRemaining int  `json:"trial_days_remaining"`
}

// Resolution bundles the subscription row with its derived capabilities.
// Fallback marks synthetic records that were never persisted.
type Resolution struct {
	Subscription *models.Subscription
	Plan         plans.PlanConfig
	Capabilities Capabilities
	Fallback     bool
}

// Resolver loads a user's subscription, applies the lazy weekly reset and
// derives the capability summary.
type Resolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) *Resolution
	Anonymous() *Resolution
}

// ResolverParams groups dependencies for the resolver.
type ResolverParams struct {
	Repo    Repository
	Catalog *plans.Catalog
	Policy  config.EntitlementsConfig
	Logger  *logger.Logger
	Now     func() time.Time
}

type resolver struct {
	repo    Repository
	catalog *plans.Catalog
	policy  config.EntitlementsConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewResolver builds a resolver with the required dependencies.
func NewResolver(params ResolverParams) (Resolver, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("plan catalog required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &resolver{
		repo:    params.Repo,
		catalog: params.Catalog,
		policy:  params.Policy,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// ApplyWeeklyReset zeroes the weekly counter and advances week_start once the
// stored week is at least seven days old. It reports whether the row changed.
// Resolving is the only place this runs: there is no background job.
func ApplyWeeklyReset(subscription *models.Subscription, now time.Time) bool {
	if subscription == nil {
		return false
	}
	if now.Sub(subscription.WeekStart) < weekLength {
		return false
	}
	subscription.ExercisesThisWeek = 0
	subscription.WeekStart = now
	return true
}

// Resolve returns the user's subscription and capabilities. It never fails:
// when the store is unreachable the caller gets a conservative synthetic
// record so the product degrades instead of locking out.
func (r *resolver) Resolve(ctx context.Context, userID uuid.UUID) *Resolution {
	if userID == uuid.Nil {
		return r.Anonymous()
	}

	now := r.now()

	subscription, err := r.repo.FindByUserID(ctx, userID)
	if err == ErrNotFound {
		subscription, err = r.createDefault(ctx, userID, now)
	}
	if err != nil {
		r.logg.Error(r.logg.WithUserID(ctx, userID.String()), "resolving subscription failed, serving fallback record", err)
		return r.fallback(userID, now)
	}

	if ApplyWeeklyReset(subscription, now) {
		if err := r.repo.Update(ctx, subscription); err != nil {
			// Keep the in-memory reset; the next resolve retries the write.
			r.logg.Error(r.logg.WithUserID(ctx, userID.String()), "persisting weekly reset failed", err)
		}
	}

	plan, err := r.catalog.Get(subscription.Plan)
	if err != nil {
		r.logg.Error(r.logg.WithUserID(ctx, userID.String()), "subscription references unknown plan, serving fallback record", err)
		return r.fallback(userID, now)
	}

	return &Resolution{
		Subscription: subscription,
		Plan:         plan,
		Capabilities: r.deriveCapabilities(subscription, plan, now),
	}
}

// Anonymous returns the synthetic record unauthenticated callers operate on.
func (r *resolver) Anonymous() *Resolution {
	return r.syntheticFree(uuid.Nil, r.now(), false, false, 0)
}

func (r *resolver) createDefault(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	subscription := &models.Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		Plan:          enums.PlanFree,
		Status:        enums.SubscriptionStatusActive,
		WeekStart:     now,
		TutoringHours: decimal.Zero,
	}
	if err := r.repo.Create(ctx, subscription); err != nil {
		// A concurrent first request may have created the row already.
		if existing, findErr := r.repo.FindByUserID(ctx, userID); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return subscription, nil
}

// fallback is served on persistence failure. It still grants the configured
// AI allowance so transient outages do not read as a full lockout.
func (r *resolver) fallback(userID uuid.UUID, now time.Time) *Resolution {
	return r.syntheticFree(userID, now, true, r.policy.FallbackHasAI, r.policy.FallbackWeeklyAllowance)
}

func (r *resolver) syntheticFree(userID uuid.UUID, now time.Time, isFallback, hasAI bool, allowance int) *Resolution {
	plan, _ := r.catalog.Get(enums.PlanFree)
	remaining := plan.WeeklyExerciseLimit
	if isFallback {
		remaining = allowance
	}
	return &Resolution{
		Subscription: &models.Subscription{
			UserID:    userID,
			Plan:      enums.PlanFree,
			Status:    enums.SubscriptionStatusActive,
			WeekStart: now,
		},
		Plan: plan,
		Capabilities: Capabilities{
			HasAI:              hasAI && isFallback,
			CanDoExercise:      remaining != 0,
			RemainingExercises: remaining,
		},
		Fallback: isFallback,
	}
}

func (r *resolver) deriveCapabilities(subscription *models.Subscription, plan plans.PlanConfig, now time.Time) Capabilities {
	entitled := subscription.Status.IsEntitled()
	featureEntitled := entitled || r.withinPastDueGrace(subscription, now)

	caps := Capabilities{
		HasAI:       featureEntitled && plan.HasAI,
		HasTutoring: featureEntitled && plan.HasTutoring,
		IsTrialing:  subscription.Status == enums.SubscriptionStatusTrialing,
	}

	if plan.Unlimited() {
		caps.RemainingExercises = plans.UnlimitedExercises
		caps.CanDoExercise = entitled
	} else {
		remaining := plan.WeeklyExerciseLimit - subscription.ExercisesThisWeek
		if remaining < 0 {
			remaining = 0
		}
		caps.RemainingExercises = remaining
		caps.CanDoExercise = entitled && remaining > 0
	}

	if caps.IsTrialing && subscription.TrialEnd != nil {
		caps.TrialDaysRemaining = trialDaysRemaining(*subscription.TrialEnd, now)
	}

	return caps
}

// withinPastDueGrace keeps paid features alive for a configured window after a
// failed payment instead of revoking on the first past_due webhook.
func (r *resolver) withinPastDueGrace(subscription *models.Subscription, now time.Time) bool {
	if subscription.Status != enums.SubscriptionStatusPastDue {
		return false
	}
	if r.policy.PastDueGrace <= 0 {
		return false
	}
	graceFrom := subscription.UpdatedAt
	if subscription.CurrentPeriodEnd != nil {
		graceFrom = *subscription.CurrentPeriodEnd
	}
	return now.Before(graceFrom.Add(r.policy.PastDueGrace))
}

func trialDaysRemaining(trialEnd, now time.Time) int {
	left := trialEnd.Sub(now)
	if left <= 0 {
		return 0
	}
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	return days
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
)

// Subscription is the single durable row per user carrying billing state and
// the weekly exercise counter. Rows are never hard-deleted; cancellation only
// transitions the status.
type Subscription struct {
	ID                   uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Plan                 enums.PlanID             `gorm:"column:plan;not null;default:'free'"`
	Status               enums.SubscriptionStatus `gorm:"column:status;not null;default:'active'"`
	BillingInterval      *enums.BillingInterval   `gorm:"column:billing_interval"`
	StripeCustomerID     *string                  `gorm:"column:stripe_customer_id;index"`
	StripeSubscriptionID *string                  `gorm:"column:stripe_subscription_id;uniqueIndex"`
	CurrentPeriodEnd     *time.Time               `gorm:"column:current_period_end"`
	TrialEnd             *time.Time               `gorm:"column:trial_end"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false"`
	ExercisesThisWeek    int                      `gorm:"column:exercises_this_week;not null;default:0"`
	WeekStart            time.Time                `gorm:"column:week_start;not null"`
	TutoringHours        decimal.Decimal          `gorm:"column:tutoring_hours;type:numeric(6,2);not null;default:0"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

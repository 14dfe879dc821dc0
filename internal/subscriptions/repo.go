package subscriptions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
)

// ErrNotFound is returned when no subscription row exists for the lookup key.
var ErrNotFound = errors.New("subscription not found")

// ErrInsufficientTutoringHours is returned when a decrement would push the
// tutoring balance below zero.
var ErrInsufficientTutoringHours = errors.New("insufficient tutoring hours")

// Repository handles subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	Create(ctx context.Context, subscription *models.Subscription) error
	Update(ctx context.Context, subscription *models.Subscription) error
	Upsert(ctx context.Context, subscription *models.Subscription) error
	IncrementExerciseUsage(ctx context.Context, userID uuid.UUID) error
	ConsumeTutoringHours(ctx context.Context, userID uuid.UUID, hours decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repository) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repository) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", subscriptionID).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repository) Create(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) Update(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Save(subscription).Error
}

// Upsert writes the subscription keyed on user_id so duplicate webhook
// deliveries converge on the same row.
func (r *repository) Upsert(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan",
				"status",
				"billing_interval",
				"stripe_customer_id",
				"stripe_subscription_id",
				"current_period_end",
				"trial_end",
				"cancel_at_period_end",
				"tutoring_hours",
				"updated_at",
			}),
		}).
		Create(subscription).Error
}

// IncrementExerciseUsage bumps the weekly counter atomically in the database
// rather than read-modify-write in Go.
func (r *repository) IncrementExerciseUsage(ctx context.Context, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		UpdateColumn("exercises_this_week", gorm.Expr("exercises_this_week + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeTutoringHours decrements the tutoring balance atomically. The guard
// in the WHERE clause keeps the balance non-negative under concurrent bookings.
func (r *repository) ConsumeTutoringHours(ctx context.Context, userID uuid.UUID, hours decimal.Decimal) error {
	if hours.LessThanOrEqual(decimal.Zero) {
		return errors.New("hours must be positive")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND tutoring_hours >= ?", userID, hours).
		UpdateColumn("tutoring_hours", gorm.Expr("tutoring_hours - ?", hours))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByUserID(ctx, userID); err != nil {
			return err
		}
		return ErrInsufficientTutoringHours
	}
	return nil
}

package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
)

func openSubscriptionDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	ddl := `CREATE TABLE subscriptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL DEFAULT 'free',
		status TEXT NOT NULL DEFAULT 'active',
		billing_interval TEXT,
		stripe_customer_id TEXT,
		stripe_subscription_id TEXT,
		current_period_end DATETIME,
		trial_end DATETIME,
		cancel_at_period_end BOOLEAN NOT NULL DEFAULT 0,
		exercises_this_week INTEGER NOT NULL DEFAULT 0,
		week_start DATETIME NOT NULL,
		tutoring_hours NUMERIC NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

func seedSubscription(t *testing.T, repo Repository, userID uuid.UUID) *models.Subscription {
	t.Helper()
	subscription := &models.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		Plan:      enums.PlanFree,
		Status:    enums.SubscriptionStatusActive,
		WeekStart: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), subscription); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return subscription
}

func TestRepositoryFindByUserID(t *testing.T) {
	repo := NewRepository(openSubscriptionDB(t))
	userID := uuid.New()
	created := seedSubscription(t, repo, userID)

	found, err := repo.FindByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID, found.ID)
	}

	if _, err := repo.FindByUserID(context.Background(), uuid.New()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryIncrementExerciseUsage(t *testing.T) {
	repo := NewRepository(openSubscriptionDB(t))
	userID := uuid.New()
	seedSubscription(t, repo, userID)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.IncrementExerciseUsage(ctx, userID); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	found, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ExercisesThisWeek != 3 {
		t.Fatalf("expected 3 exercises this week, got %d", found.ExercisesThisWeek)
	}

	if err := repo.IncrementExerciseUsage(ctx, uuid.New()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestRepositoryUpsertIsIdempotent(t *testing.T) {
	repo := NewRepository(openSubscriptionDB(t))
	ctx := context.Background()
	userID := uuid.New()

	customerID := "cus_123"
	subscriptionID := "sub_123"
	interval := enums.BillingIntervalMonth
	periodEnd := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second)

	row := &models.Subscription{
		ID:                   uuid.New(),
		UserID:               userID,
		Plan:                 enums.PlanStudentPremium,
		Status:               enums.SubscriptionStatusActive,
		BillingInterval:      &interval,
		StripeCustomerID:     &customerID,
		StripeSubscriptionID: &subscriptionID,
		CurrentPeriodEnd:     &periodEnd,
		WeekStart:            time.Now().UTC(),
	}
	if err := repo.Upsert(ctx, row); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Replaying the same billing state must converge on the same single row.
	replay := *row
	replay.ID = uuid.New()
	if err := repo.Upsert(ctx, &replay); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var count int64
	if err := repo.(*repository).db.Model(&models.Subscription{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row after replay, got %d", count)
	}

	found, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Plan != enums.PlanStudentPremium {
		t.Fatalf("unexpected plan %s", found.Plan)
	}
	if found.StripeSubscriptionID == nil || *found.StripeSubscriptionID != subscriptionID {
		t.Fatal("stripe subscription id not preserved")
	}
}

func TestRepositoryUpsertDoesNotTouchUsageCounters(t *testing.T) {
	repo := NewRepository(openSubscriptionDB(t))
	ctx := context.Background()
	userID := uuid.New()
	seedSubscription(t, repo, userID)

	for i := 0; i < 2; i++ {
		if err := repo.IncrementExerciseUsage(ctx, userID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	update := &models.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		Plan:      enums.PlanStudentPremium,
		Status:    enums.SubscriptionStatusActive,
		WeekStart: time.Now().UTC(),
	}
	if err := repo.Upsert(ctx, update); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	found, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ExercisesThisWeek != 2 {
		t.Fatalf("billing upserts must not reset usage, got %d", found.ExercisesThisWeek)
	}
}

func TestRepositoryFindByStripeIdentifiers(t *testing.T) {
	repo := NewRepository(openSubscriptionDB(t))
	ctx := context.Background()
	userID := uuid.New()
	customerID := "cus_find"
	subscriptionID := "sub_find"

	row := &models.Subscription{
		ID:                   uuid.New(),
		UserID:               userID,
		Plan:                 enums.PlanStudentPremium,
		Status:               enums.SubscriptionStatusActive,
		StripeCustomerID:     &customerID,
		StripeSubscriptionID: &subscriptionID,
		WeekStart:            time.Now().UTC(),
	}
	if err := repo.Create(ctx, row); err != nil {
		t.Fatalf("create: %v", err)
	}

	byCustomer, err := repo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		t.Fatalf("find by customer: %v", err)
	}
	if byCustomer.UserID != userID {
		t.Fatalf("unexpected user %s", byCustomer.UserID)
	}

	bySub, err := repo.FindByStripeSubscriptionID(ctx, subscriptionID)
	if err != nil {
		t.Fatalf("find by subscription: %v", err)
	}
	if bySub.UserID != userID {
		t.Fatalf("unexpected user %s", bySub.UserID)
	}

	if _, err := repo.FindByStripeCustomerID(ctx, "cus_missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConsumeTutoringHoursDecrementsAtomically(t *testing.T) {
	repo := NewRepository(openSubscriptionDB(t))
	ctx := context.Background()
	userID := uuid.New()

	row := &models.Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		Plan:          enums.PlanStudentTutoring,
		Status:        enums.SubscriptionStatusActive,
		WeekStart:     time.Now().UTC(),
		TutoringHours: decimal.NewFromInt(2),
	}
	if err := repo.Create(ctx, row); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.ConsumeTutoringHours(ctx, userID, decimal.RequireFromString("1.5")); err != nil {
		t.Fatalf("consume: %v", err)
	}
	stored, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.TutoringHours.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected 0.5 hours remaining, got %s", stored.TutoringHours)
	}
}

func TestConsumeTutoringHoursRejectsOverdraw(t *testing.T) {
	repo := NewRepository(openSubscriptionDB(t))
	ctx := context.Background()
	userID := uuid.New()

	row := &models.Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		Plan:          enums.PlanStudentTutoring,
		Status:        enums.SubscriptionStatusActive,
		WeekStart:     time.Now().UTC(),
		TutoringHours: decimal.RequireFromString("0.5"),
	}
	if err := repo.Create(ctx, row); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.ConsumeTutoringHours(ctx, userID, decimal.NewFromInt(1)); err != ErrInsufficientTutoringHours {
		t.Fatalf("expected ErrInsufficientTutoringHours, got %v", err)
	}
	stored, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.TutoringHours.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("rejected booking must not change the balance, got %s", stored.TutoringHours)
	}

	if err := repo.ConsumeTutoringHours(ctx, uuid.New(), decimal.NewFromInt(1)); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
}

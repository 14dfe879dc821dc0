package plans

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lucasberthier/prepalettres-backend/pkg/config"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
)

// UnlimitedExercises marks a plan without a weekly exercise cap.
const UnlimitedExercises = -1

// PlanConfig describes one tier: what it costs and what it grants. The catalog
// is the single source of truth shared by entitlement checks, webhook
// translation and the public pricing endpoint.
type PlanConfig struct {
	ID                    enums.PlanID
	Name                  string
	Description           string
	MonthlyPrice          decimal.Decimal
	YearlyPrice           decimal.Decimal
	HasAI                 bool
	HasTutoring           bool
	WeeklyExerciseLimit   int
	TrialDays             int
	TutoringHoursPerMonth decimal.Decimal
}

// Unlimited reports whether the plan has no weekly exercise cap.
func (p PlanConfig) Unlimited() bool {
	return p.WeeklyExerciseLimit == UnlimitedExercises
}

// Catalog resolves plans by id and by Stripe price id.
type Catalog struct {
	plans   map[enums.PlanID]PlanConfig
	ordered []PlanConfig
	byPrice map[string]pricedPlan
}

type pricedPlan struct {
	planID   enums.PlanID
	interval enums.BillingInterval
}

// PricedPlan is the result of a reverse price lookup.
type PricedPlan struct {
	Plan     PlanConfig
	Interval enums.BillingInterval
}

// NewCatalog builds the plan catalog and indexes the configured Stripe price
// ids. Plans whose prices are not configured remain resolvable by id but
// cannot be matched from webhook payloads.
func NewCatalog(stripeCfg config.StripeConfig) *Catalog {
	ordered := []PlanConfig{
		{
			ID:                  enums.PlanFree,
			Name:                "Découverte",
			Description:         "Méthodologie, programme des œuvres et 3 exercices par semaine.",
			MonthlyPrice:        decimal.Zero,
			YearlyPrice:         decimal.Zero,
			WeeklyExerciseLimit: 3,
		},
		{
			ID:                  enums.PlanStudentPremium,
			Name:                "Premium Élève",
			Description:         "Exercices illimités avec correction par IA.",
			MonthlyPrice:        decimal.NewFromFloat(9.99),
			YearlyPrice:         decimal.NewFromFloat(89.99),
			HasAI:               true,
			WeeklyExerciseLimit: UnlimitedExercises,
			TrialDays:           7,
		},
		{
			ID:                    enums.PlanStudentTutoring,
			Name:                  "Tutorat Élève",
			Description:           "Premium plus deux heures de tutorat par mois.",
			MonthlyPrice:          decimal.NewFromFloat(29.99),
			YearlyPrice:           decimal.NewFromFloat(299.99),
			HasAI:                 true,
			HasTutoring:           true,
			WeeklyExerciseLimit:   UnlimitedExercises,
			TrialDays:             7,
			TutoringHoursPerMonth: decimal.NewFromInt(2),
		},
		{
			ID:                  enums.PlanTeacherPro,
			Name:                "Professeur",
			Description:         "Outils de génération de sujets pour la classe.",
			MonthlyPrice:        decimal.NewFromFloat(19.99),
			YearlyPrice:         decimal.NewFromFloat(199.99),
			HasAI:               true,
			WeeklyExerciseLimit: UnlimitedExercises,
			TrialDays:           14,
		},
	}

	plansByID := make(map[enums.PlanID]PlanConfig, len(ordered))
	for _, plan := range ordered {
		plansByID[plan.ID] = plan
	}

	byPrice := map[string]pricedPlan{}
	index := func(priceID string, planID enums.PlanID, interval enums.BillingInterval) {
		priceID = strings.TrimSpace(priceID)
		if priceID == "" {
			return
		}
		byPrice[priceID] = pricedPlan{planID: planID, interval: interval}
	}
	index(stripeCfg.PricePremiumMonthly, enums.PlanStudentPremium, enums.BillingIntervalMonth)
	index(stripeCfg.PricePremiumYearly, enums.PlanStudentPremium, enums.BillingIntervalYear)
	index(stripeCfg.PriceTutoringMonthly, enums.PlanStudentTutoring, enums.BillingIntervalMonth)
	index(stripeCfg.PriceTutoringYearly, enums.PlanStudentTutoring, enums.BillingIntervalYear)
	index(stripeCfg.PriceTeacherMonthly, enums.PlanTeacherPro, enums.BillingIntervalMonth)
	index(stripeCfg.PriceTeacherYearly, enums.PlanTeacherPro, enums.BillingIntervalYear)

	return &Catalog{plans: plansByID, ordered: ordered, byPrice: byPrice}
}

// Get returns the config for a plan id.
func (c *Catalog) Get(id enums.PlanID) (PlanConfig, error) {
	plan, ok := c.plans[id]
	if !ok {
		return PlanConfig{}, fmt.Errorf("unknown plan %q", id)
	}
	return plan, nil
}

// All returns every plan in display order.
func (c *Catalog) All() []PlanConfig {
	out := make([]PlanConfig, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// ByStripePrice reverse-maps a Stripe price id to the plan and billing
// interval it was configured for.
func (c *Catalog) ByStripePrice(priceID string) (PricedPlan, error) {
	entry, ok := c.byPrice[strings.TrimSpace(priceID)]
	if !ok {
		return PricedPlan{}, fmt.Errorf("no plan configured for stripe price %q", priceID)
	}
	plan := c.plans[entry.planID]
	return PricedPlan{Plan: plan, Interval: entry.interval}, nil
}

// StripePriceFor returns the configured price id for a plan and interval.
func (c *Catalog) StripePriceFor(id enums.PlanID, interval enums.BillingInterval) (string, error) {
	for priceID, entry := range c.byPrice {
		if entry.planID == id && entry.interval == interval {
			return priceID, nil
		}
	}
	return "", fmt.Errorf("no stripe price configured for plan %q interval %q", id, interval)
}

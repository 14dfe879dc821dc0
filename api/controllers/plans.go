package controllers

import (
	"net/http"

	"github.com/lucasberthier/prepalettres-backend/api/responses"
	"github.com/lucasberthier/prepalettres-backend/internal/plans"
)

type planResponse struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Description           string `json:"description"`
	MonthlyPrice          string `json:"monthly_price"`
	YearlyPrice           string `json:"yearly_price"`
	HasAI                 bool   `json:"has_ai"`
	HasTutoring           bool   `json:"has_tutoring"`
	WeeklyExerciseLimit   int    `json:"weekly_exercise_limit"`
	TrialDays             int    `json:"trial_days"`
	TutoringHoursPerMonth string `json:"tutoring_hours_per_month,omitempty"`
}

type planListResponse struct {
	Plans []planResponse `json:"plans"`
}

// PlansList serves the public pricing page payload.
func PlansList(catalog *plans.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := catalog.All()
		out := make([]planResponse, 0, len(all))
		for _, plan := range all {
			out = append(out, planToResponse(plan))
		}
		responses.WriteSuccess(w, planListResponse{Plans: out})
	}
}

func planToResponse(plan plans.PlanConfig) planResponse {
	resp := planResponse{
		ID:                  string(plan.ID),
		Name:                plan.Name,
		Description:         plan.Description,
		MonthlyPrice:        plan.MonthlyPrice.StringFixed(2),
		YearlyPrice:         plan.YearlyPrice.StringFixed(2),
		HasAI:               plan.HasAI,
		HasTutoring:         plan.HasTutoring,
		WeeklyExerciseLimit: plan.WeeklyExerciseLimit,
		TrialDays:           plan.TrialDays,
	}
	if plan.HasTutoring {
		resp.TutoringHoursPerMonth = plan.TutoringHoursPerMonth.StringFixed(1)
	}
	return resp
}

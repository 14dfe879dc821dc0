package controllers

import (
	"net/http"
	"time"

	"github.com/lucasberthier/prepalettres-backend/api/middleware"
	"github.com/lucasberthier/prepalettres-backend/api/responses"
	"github.com/lucasberthier/prepalettres-backend/internal/exercises"
	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

type exerciseResponse struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	WorkAuthor *string `json:"work_author,omitempty"`
	WorkTitle  *string `json:"work_title,omitempty"`
	Subject    string  `json:"subject"`
	Answer     string  `json:"answer"`
	Feedback   *string `json:"feedback,omitempty"`
	Score      *string `json:"score,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

type exerciseListResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

// ExerciseHistory lists the caller's attempts, newest first.
func ExerciseHistory(svc exercises.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exercise service unavailable"))
			return
		}

		rows, err := svc.History(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]exerciseResponse, 0, len(rows))
		for i := range rows {
			out = append(out, exerciseToResponse(&rows[i]))
		}
		responses.WriteSuccess(w, exerciseListResponse{Exercises: out})
	}
}

func exerciseToResponse(exercise *models.Exercise) exerciseResponse {
	resp := exerciseResponse{
		ID:         exercise.ID.String(),
		Type:       string(exercise.Type),
		WorkAuthor: exercise.WorkAuthor,
		WorkTitle:  exercise.WorkTitle,
		Subject:    exercise.Subject,
		Answer:     exercise.Answer,
		Feedback:   exercise.Feedback,
		CreatedAt:  exercise.CreatedAt.UTC().Format(time.RFC3339),
	}
	if exercise.Score != nil {
		resp.Score = scoreString(*exercise.Score)
	}
	return resp
}

package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lucasberthier/prepalettres-backend/api/middleware"
	"github.com/lucasberthier/prepalettres-backend/api/responses"
	"github.com/lucasberthier/prepalettres-backend/api/validators"
	"github.com/lucasberthier/prepalettres-backend/internal/ai"
	"github.com/lucasberthier/prepalettres-backend/internal/exercises"
	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
	"github.com/lucasberthier/prepalettres-backend/pkg/metrics"
)

type subjectRequest struct {
	Type       string `json:"type" validate:"required"`
	WorkAuthor string `json:"work_author"`
	WorkTitle  string `json:"work_title"`
}

type subjectResponse struct {
	Subject string `json:"subject"`
	Type    string `json:"type"`
}

type subjectListResponse struct {
	Subjects []subjectResponse `json:"subjects"`
}

type workAnalysisRequest struct {
	WorkAuthor string `json:"work_author" validate:"required"`
	WorkTitle  string `json:"work_title" validate:"required"`
}

type workAnalysisResponse struct {
	WorkAuthor        string   `json:"work_author"`
	WorkTitle         string   `json:"work_title"`
	Biography         string   `json:"biography"`
	HistoricalContext string   `json:"historical_context"`
	Summary           []string `json:"summary"`
	Characters        []string `json:"characters"`
}

type evaluateRequest struct {
	Type         string `json:"type" validate:"required"`
	WorkAuthor   string `json:"work_author"`
	WorkTitle    string `json:"work_title"`
	Subject      string `json:"subject" validate:"required"`
	StudentInput string `json:"student_input" validate:"required"`
}

type evaluateResponse struct {
	ExerciseID string  `json:"exercise_id"`
	Feedback   string  `json:"feedback"`
	Score      *string `json:"score,omitempty"`
}

func parseSubjectRequest(payload subjectRequest) (ai.SubjectRequest, error) {
	exerciseType, err := enums.ParseExerciseType(payload.Type)
	if err != nil {
		return ai.SubjectRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid exercise type")
	}

	req := ai.SubjectRequest{Type: exerciseType}
	author := validators.SanitizeString(payload.WorkAuthor, 200)
	title := validators.SanitizeString(payload.WorkTitle, 200)
	if author != "" || title != "" {
		work, err := works.Find(author, title)
		if err != nil {
			return ai.SubjectRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "work is not part of the program")
		}
		req.Work = &work
	}
	return req, nil
}

func observeAI(apiMetrics *metrics.APIMetrics, operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	apiMetrics.ObserveAIRequest(operation, outcome, time.Since(start))
}

// AIGenerateSubject produces one exam subject.
func AIGenerateSubject(gen ai.Generator, apiMetrics *metrics.APIMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if gen == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation backend unavailable"))
			return
		}

		var payload subjectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		req, err := parseSubjectRequest(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		start := time.Now()
		subject, err := gen.GenerateSubject(ctx, req)
		observeAI(apiMetrics, "generate_subject", start, err)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, subjectResponse{Subject: subject.Text, Type: string(subject.Type)})
	}
}

// AIGenerateSubjectList produces a batch of distinct subjects.
func AIGenerateSubjectList(gen ai.Generator, apiMetrics *metrics.APIMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if gen == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation backend unavailable"))
			return
		}

		count, err := validators.ParseQueryInt(r, "count", 3, 1, 10)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload subjectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		req, err := parseSubjectRequest(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		start := time.Now()
		subjects, err := gen.GenerateSubjectList(ctx, req, count)
		observeAI(apiMetrics, "generate_subject_list", start, err)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]subjectResponse, 0, len(subjects))
		for _, s := range subjects {
			out = append(out, subjectResponse{Subject: s.Text, Type: string(s.Type)})
		}
		responses.WriteSuccess(w, subjectListResponse{Subjects: out})
	}
}

// AIEvaluate submits an exercise attempt for correction. The weekly limit gate
// runs before this handler; the attempt is persisted and counted even when the
// plan has no AI correction.
func AIEvaluate(svc exercises.Service, apiMetrics *metrics.APIMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exercise service unavailable"))
			return
		}

		var payload evaluateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(strings.TrimSpace(payload.StudentInput)) < ai.MinStudentInputLength {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "student input must be at least 10 characters"))
			return
		}

		start := time.Now()
		exercise, err := svc.SubmitAnswer(ctx, middleware.UserIDFromContext(ctx), middleware.ResolutionFromContext(ctx), exercises.SubmitInput{
			Type:       payload.Type,
			WorkAuthor: payload.WorkAuthor,
			WorkTitle:  payload.WorkTitle,
			Subject:    payload.Subject,
			Answer:     payload.StudentInput,
		})
		observeAI(apiMetrics, "evaluate", start, err)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := evaluateResponse{ExerciseID: exercise.ID.String()}
		if exercise.Feedback != nil {
			resp.Feedback = *exercise.Feedback
		}
		if exercise.Score != nil {
			resp.Score = scoreString(*exercise.Score)
		}
		responses.WriteSuccess(w, resp)
	}
}

// AIWorkAnalysis serves the cached study sheet for a program work.
func AIWorkAnalysis(svc *ai.AnalysisService, apiMetrics *metrics.APIMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}

		var payload workAnalysisRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		start := time.Now()
		analysis, err := svc.GetWorkAnalysis(ctx, payload.WorkAuthor, payload.WorkTitle)
		observeAI(apiMetrics, "work_analysis", start, err)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, analysisToResponse(analysis))
	}
}

func analysisToResponse(analysis *models.WorkAnalysis) workAnalysisResponse {
	return workAnalysisResponse{
		WorkAuthor:        analysis.WorkAuthor,
		WorkTitle:         analysis.WorkTitle,
		Biography:         analysis.Biography,
		HistoricalContext: analysis.HistoricalContext,
		Summary:           analysis.Summary,
		Characters:        analysis.Characters,
	}
}

func scoreString(score decimal.Decimal) *string {
	formatted := score.StringFixed(1)
	return &formatted
}

package exercises

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lucasberthier/prepalettres-backend/internal/ai"
	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
	"github.com/lucasberthier/prepalettres-backend/pkg/metrics"
)

// offlineFeedback is stored when the user's plan does not include AI
// correction. The attempt still counts against the weekly allowance.
const offlineFeedback = "Votre travail a bien été enregistré. La correction détaillée par intelligence artificielle est réservée aux formules Premium. Relisez votre copie en vérifiant la structure du plan, les citations et l'orthographe."

// SubmitInput is one student attempt.
type SubmitInput struct {
	Type       string `json:"type" validate:"required,oneof=dissertation commentaire oral"`
	WorkAuthor string `json:"work_author"`
	WorkTitle  string `json:"work_title"`
	Subject    string `json:"subject" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
}

// Service handles exercise submission and history.
type Service interface {
	SubmitAnswer(ctx context.Context, userID uuid.UUID, resolution *subscriptions.Resolution, input SubmitInput) (*models.Exercise, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.Exercise, error)
}

// ServiceParams groups dependencies for the exercise service.
type ServiceParams struct {
	Repo             Repository
	SubscriptionRepo subscriptions.Repository
	Generator        ai.Generator
	Logger           *logger.Logger
	Metrics          *metrics.APIMetrics
}

type service struct {
	repo    Repository
	subRepo subscriptions.Repository
	gen     ai.Generator
	logg    *logger.Logger
	metrics *metrics.APIMetrics
}

// NewService validates dependencies and builds the service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("exercise repo is required")
	}
	if params.SubscriptionRepo == nil {
		return nil, errors.New("subscription repo is required")
	}
	if params.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &service{
		repo:    params.Repo,
		subRepo: params.SubscriptionRepo,
		gen:     params.Generator,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// SubmitAnswer persists the attempt, corrects it when the plan includes AI and
// counts it against the weekly allowance either way. The entitlement check
// itself happens upstream; by the time this runs the attempt is allowed.
func (s *service) SubmitAnswer(ctx context.Context, userID uuid.UUID, resolution *subscriptions.Resolution, input SubmitInput) (*models.Exercise, error) {
	exerciseType, err := enums.ParseExerciseType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid exercise type")
	}
	if len(strings.TrimSpace(input.Subject)) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if len(strings.TrimSpace(input.Answer)) < ai.MinStudentInputLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "answer must be at least 10 characters")
	}
	if resolution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "missing subscription resolution")
	}

	work, err := resolveWork(input)
	if err != nil {
		return nil, err
	}

	exercise := &models.Exercise{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    exerciseType,
		Subject: input.Subject,
		Answer:  input.Answer,
	}
	if work != nil {
		exercise.WorkAuthor = &work.Author
		exercise.WorkTitle = &work.Title
	}

	s.applyFeedback(ctx, exercise, resolution, work)

	if err := s.repo.Create(ctx, exercise); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to save exercise")
	}

	// Fallback resolutions have no backing row to count against; the counter
	// catches up once the store is reachable again.
	if !resolution.Fallback {
		if err := s.subRepo.IncrementExerciseUsage(ctx, userID); err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "failed to count exercise against weekly allowance", err)
		}
	}

	s.metrics.IncExerciseSubmitted(exerciseType.String())
	return exercise, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]models.Exercise, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load exercise history")
	}
	return rows, nil
}

// applyFeedback fills feedback and score. AI correction failures degrade to the
// offline message rather than losing the attempt.
func (s *service) applyFeedback(ctx context.Context, exercise *models.Exercise, resolution *subscriptions.Resolution, work *works.Work) {
	if !resolution.Capabilities.HasAI {
		feedback := offlineFeedback
		exercise.Feedback = &feedback
		return
	}

	evaluation, err := s.gen.EvaluateWork(ctx, ai.EvaluationRequest{
		Type:         exercise.Type,
		Subject:      exercise.Subject,
		StudentInput: exercise.Answer,
		Work:         work,
	})
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, exercise.UserID.String()), "ai correction failed, storing attempt without it", err)
		feedback := offlineFeedback
		exercise.Feedback = &feedback
		return
	}

	feedback := formatFeedback(evaluation)
	score := evaluation.Score
	exercise.Feedback = &feedback
	exercise.Score = &score
}

func formatFeedback(evaluation *ai.Evaluation) string {
	var b strings.Builder
	b.WriteString(evaluation.Feedback)
	if len(evaluation.Strengths) > 0 {
		b.WriteString("\n\nPoints forts :\n- ")
		b.WriteString(strings.Join(evaluation.Strengths, "\n- "))
	}
	if len(evaluation.Improvements) > 0 {
		b.WriteString("\n\nPistes d'amélioration :\n- ")
		b.WriteString(strings.Join(evaluation.Improvements, "\n- "))
	}
	return b.String()
}

func resolveWork(input SubmitInput) (*works.Work, error) {
	if input.WorkAuthor == "" && input.WorkTitle == "" {
		return nil, nil
	}
	work, err := works.Find(input.WorkAuthor, input.WorkTitle)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "work is not part of the program")
	}
	return &work, nil
}

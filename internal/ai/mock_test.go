package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
)

func TestMockGenerateSubjectIsDeterministic(t *testing.T) {
	mock := NewMockGenerator()
	req := SubjectRequest{Type: enums.ExerciseDissertation, Work: programWork(t)}

	first, err := mock.GenerateSubject(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := mock.GenerateSubject(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first.Text != second.Text {
		t.Fatal("same request must produce the same subject")
	}
	if !strings.Contains(first.Text, "Cahiers de Douai") {
		t.Fatalf("subject must reference the work, got %q", first.Text)
	}
}

func TestMockGenerateSubjectListProducesDistinctSubjects(t *testing.T) {
	mock := NewMockGenerator()
	subjects, err := mock.GenerateSubjectList(context.Background(), SubjectRequest{
		Type: enums.ExerciseOral,
		Work: programWork(t),
	}, 3)
	if err != nil {
		t.Fatalf("generate list: %v", err)
	}
	if len(subjects) != 3 {
		t.Fatalf("expected 3 subjects, got %d", len(subjects))
	}
	seen := map[string]bool{}
	for _, s := range subjects {
		if seen[s.Text] {
			t.Fatalf("duplicate subject %q", s.Text)
		}
		seen[s.Text] = true
	}
}

func TestMockCommentaireWorksWithoutAWork(t *testing.T) {
	mock := NewMockGenerator()
	subject, err := mock.GenerateSubject(context.Background(), SubjectRequest{Type: enums.ExerciseCommentaire})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if subject.Text == "" {
		t.Fatal("expected subject text")
	}
}

func TestMockEvaluationScoresStructuredAnswersHigher(t *testing.T) {
	mock := NewMockGenerator()
	ctx := context.Background()

	weak, err := mock.EvaluateWork(ctx, EvaluationRequest{
		Type:         enums.ExerciseDissertation,
		Subject:      "Sujet de dissertation",
		StudentInput: "Ceci est une réponse courte sans structure.",
	})
	if err != nil {
		t.Fatalf("evaluate weak: %v", err)
	}

	structured := "I. " + strings.Repeat("Une argumentation développée avec soin. ", 40) +
		"II. « Une citation du texte » vient appuyer le propos. En conclusion, le sujet est traité."
	strong, err := mock.EvaluateWork(ctx, EvaluationRequest{
		Type:         enums.ExerciseDissertation,
		Subject:      "Sujet de dissertation",
		StudentInput: structured,
	})
	if err != nil {
		t.Fatalf("evaluate strong: %v", err)
	}

	if !strong.Score.GreaterThan(weak.Score) {
		t.Fatalf("structured answer must score higher: %s vs %s", strong.Score, weak.Score)
	}
	if strong.Score.GreaterThan(decimal.NewFromInt(16)) {
		t.Fatalf("score must stay within the band, got %s", strong.Score)
	}
	if len(weak.Improvements) == 0 {
		t.Fatal("weak answer must receive improvement hints")
	}
}

func TestMockEvaluationIsDeterministic(t *testing.T) {
	mock := NewMockGenerator()
	req := EvaluationRequest{
		Type:         enums.ExerciseCommentaire,
		Subject:      "Commentez ce texte",
		StudentInput: "Une réponse tout à fait correcte qui dépasse le minimum requis.",
	}

	first, err := mock.EvaluateWork(context.Background(), req)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	second, err := mock.EvaluateWork(context.Background(), req)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !first.Score.Equal(second.Score) {
		t.Fatalf("same answer must get the same score: %s vs %s", first.Score, second.Score)
	}
}

func TestMockEvaluationRejectsShortInput(t *testing.T) {
	mock := NewMockGenerator()
	_, err := mock.EvaluateWork(context.Background(), EvaluationRequest{
		Type:         enums.ExerciseDissertation,
		Subject:      "Sujet",
		StudentInput: "court",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMockAnalyzeWorkMentionsParcours(t *testing.T) {
	mock := NewMockGenerator()
	analysis, err := mock.AnalyzeWork(context.Background(), *programWork(t))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(analysis.HistoricalContext, "Émancipations créatrices") {
		t.Fatal("analysis must reference the parcours")
	}
	if len(analysis.Summary) == 0 || len(analysis.Characters) == 0 {
		t.Fatal("analysis lists must be populated")
	}
}

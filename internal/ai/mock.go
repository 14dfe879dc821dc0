package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
)

// MockGenerator is the deterministic offline backend used when no provider
// credential is configured. Outputs depend only on the request, so the same
// input always produces the same subject and the same score.
type MockGenerator struct{}

// NewMockGenerator builds the offline generator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Name() string { return "mock" }

func (m *MockGenerator) GenerateSubject(ctx context.Context, req SubjectRequest) (*Subject, error) {
	if err := validateSubjectRequest(req); err != nil {
		return nil, err
	}
	return &Subject{Text: m.subjectText(req, 0), Type: req.Type, Work: req.Work}, nil
}

func (m *MockGenerator) GenerateSubjectList(ctx context.Context, req SubjectRequest, count int) ([]Subject, error) {
	if err := validateSubjectRequest(req); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = defaultSubjectListSize
	}
	subjects := make([]Subject, 0, count)
	for i := 0; i < count; i++ {
		subjects = append(subjects, Subject{Text: m.subjectText(req, i), Type: req.Type, Work: req.Work})
	}
	return subjects, nil
}

func (m *MockGenerator) EvaluateWork(ctx context.Context, req EvaluationRequest) (*Evaluation, error) {
	if err := validateEvaluationRequest(req); err != nil {
		return nil, err
	}

	score := scoreAnswer(req.StudentInput)
	strengths, improvements := assessAnswer(req.StudentInput)

	return &Evaluation{
		Feedback: fmt.Sprintf(
			"Votre travail sur le sujet « %s » a été relu. Cette correction automatique se fonde sur des critères formels : structure apparente, usage des citations et développement. Note indicative : %s/20.",
			req.Subject, score.StringFixed(1),
		),
		Score:        score,
		Strengths:    strengths,
		Improvements: improvements,
	}, nil
}

func (m *MockGenerator) AnalyzeWork(ctx context.Context, work works.Work) (*WorkAnalysis, error) {
	return &WorkAnalysis{
		Biography: fmt.Sprintf(
			"%s compte parmi les auteurs inscrits au programme de l'épreuve anticipée de français. Sa biographie détaillée sera disponible lorsque la génération en ligne sera activée.",
			work.Author,
		),
		HistoricalContext: fmt.Sprintf(
			"%s s'inscrit dans le parcours « %s ». Replacez l'œuvre dans son contexte de publication et dans l'histoire du genre.",
			work.Title, work.Parcours,
		),
		Summary: []string{
			fmt.Sprintf("Lecture intégrale de %s recommandée avant l'épreuve.", work.Title),
			fmt.Sprintf("Relevez les passages clés en lien avec le parcours « %s ».", work.Parcours),
		},
		Characters: []string{
			"Identifiez les figures principales de l'œuvre et leur évolution.",
		},
	}, nil
}

func (m *MockGenerator) subjectText(req SubjectRequest, variant int) string {
	switch req.Type {
	case enums.ExerciseDissertation:
		templates := []string{
			"Dans quelle mesure %s de %s illustre-t-il le parcours « %s » ?",
			"En quoi la lecture de %s de %s éclaire-t-elle le parcours « %s » ?",
			"Peut-on dire que %s de %s renouvelle le parcours « %s » ?",
		}
		t := templates[variant%len(templates)]
		return fmt.Sprintf(t, req.Work.Title, req.Work.Author, req.Work.Parcours)
	case enums.ExerciseOral:
		templates := []string{
			"Présentez un extrait de %s de %s et expliquez son lien avec le parcours « %s ».",
			"Quelle lecture linéaire proposeriez-vous d'un passage de %s de %s (parcours « %s ») ?",
			"Justifiez votre choix de %s de %s comme œuvre présentée à l'oral (parcours « %s »).",
		}
		t := templates[variant%len(templates)]
		return fmt.Sprintf(t, req.Work.Title, req.Work.Author, req.Work.Parcours)
	default:
		if req.Work != nil {
			templates := []string{
				"Proposez le commentaire d'un extrait de %s de %s.",
				"Commentez un passage de votre choix tiré de %s de %s.",
				"Étudiez l'écriture d'un extrait significatif de %s de %s.",
			}
			t := templates[variant%len(templates)]
			return fmt.Sprintf(t, req.Work.Title, req.Work.Author)
		}
		templates := []string{
			"Proposez le commentaire d'un texte du domaine public de votre choix en justifiant votre démarche.",
			"Commentez un poème du XIXe siècle de votre choix.",
			"Étudiez un extrait de roman du domaine public en dégageant un projet de lecture.",
		}
		return templates[variant%len(templates)]
	}
}

// scoreAnswer grades on formal criteria only: length, visible structure and
// quotation use. It deliberately stays in the 8 to 16 band.
func scoreAnswer(input string) decimal.Decimal {
	score := decimal.NewFromInt(8)

	words := len(strings.Fields(input))
	switch {
	case words >= 500:
		score = score.Add(decimal.NewFromInt(4))
	case words >= 200:
		score = score.Add(decimal.NewFromInt(3))
	case words >= 50:
		score = score.Add(decimal.NewFromInt(1))
	}

	if hasStructureMarkers(input) {
		score = score.Add(decimal.NewFromInt(2))
	}
	if strings.ContainsAny(input, "«»\"") {
		score = score.Add(decimal.NewFromInt(2))
	}

	maxScore := decimal.NewFromInt(16)
	if score.GreaterThan(maxScore) {
		return maxScore
	}
	return score
}

func assessAnswer(input string) (strengths, improvements []string) {
	words := len(strings.Fields(input))

	if words >= 200 {
		strengths = append(strengths, "Développement substantiel.")
	} else {
		improvements = append(improvements, "Développez davantage votre argumentation (au moins 200 mots).")
	}
	if hasStructureMarkers(input) {
		strengths = append(strengths, "Plan apparent et structuré.")
	} else {
		improvements = append(improvements, "Rendez votre plan visible (introduction, parties numérotées, conclusion).")
	}
	if strings.ContainsAny(input, "«»\"") {
		strengths = append(strengths, "Citations du texte à l'appui.")
	} else {
		improvements = append(improvements, "Appuyez chaque argument sur une citation précise.")
	}
	if len(strengths) == 0 {
		strengths = append(strengths, "Le sujet est abordé.")
	}
	return strengths, improvements
}

func hasStructureMarkers(input string) bool {
	for _, marker := range []string{"I.", "II.", "III.", "d'une part", "d'autre part", "en conclusion", "Premièrement"} {
		if strings.Contains(input, marker) {
			return true
		}
	}
	return false
}

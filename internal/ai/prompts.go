package ai

import (
	"fmt"
	"strings"

	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
)

const (
	// MinStudentInputLength rejects obviously empty answers before any
	// provider call is made.
	MinStudentInputLength = 10

	defaultSubjectListSize = 3
)

type promptBuilder struct{}

func (promptBuilder) subject(req SubjectRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Génère un sujet de %s pour l'épreuve anticipée de français.\n", exerciseLabel(req.Type))
	if req.Work != nil {
		fmt.Fprintf(&b, "Œuvre au programme : %s, %s (parcours « %s »).\n", req.Work.Author, req.Work.Title, req.Work.Parcours)
	} else {
		b.WriteString("Choisis un extrait d'un texte du domaine public adapté au commentaire.\n")
	}
	b.WriteString(`Réponds avec un objet JSON de la forme {"subject": "..."}.`)
	return b.String()
}

func (p promptBuilder) subjectList(req SubjectRequest, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Génère %d sujets distincts de %s pour l'épreuve anticipée de français.\n", count, exerciseLabel(req.Type))
	if req.Work != nil {
		fmt.Fprintf(&b, "Œuvre au programme : %s, %s (parcours « %s »).\n", req.Work.Author, req.Work.Title, req.Work.Parcours)
	}
	b.WriteString(`Réponds avec un objet JSON de la forme {"subjects": ["...", "..."]}.`)
	return b.String()
}

func (promptBuilder) evaluation(req EvaluationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Évalue la copie d'un élève de première pour un exercice de %s.\n", exerciseLabel(req.Type))
	if req.Work != nil {
		fmt.Fprintf(&b, "Œuvre : %s, %s.\n", req.Work.Author, req.Work.Title)
	}
	fmt.Fprintf(&b, "Sujet : %s\n", req.Subject)
	fmt.Fprintf(&b, "Copie de l'élève :\n%s\n", req.StudentInput)
	b.WriteString("Note la copie sur 20 selon les critères officiels du baccalauréat.\n")
	b.WriteString(`Réponds avec un objet JSON de la forme {"feedback": "...", "score": 12.5, "strengths": ["..."], "improvements": ["..."]}.`)
	return b.String()
}

func (promptBuilder) workAnalysis(work works.Work) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rédige une fiche de révision sur %s de %s (parcours « %s »).\n", work.Title, work.Author, work.Parcours)
	b.WriteString(`Réponds avec un objet JSON de la forme {"biography": "...", "historical_context": "...", "summary": ["..."], "characters": ["..."]}.`)
	return b.String()
}

func exerciseLabel(t enums.ExerciseType) string {
	switch t {
	case enums.ExerciseDissertation:
		return "dissertation"
	case enums.ExerciseCommentaire:
		return "commentaire de texte"
	case enums.ExerciseOral:
		return "question d'oral"
	default:
		return t.String()
	}
}

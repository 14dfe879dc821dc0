package ai

import (
	"github.com/shopspring/decimal"

	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
)

// SubjectRequest asks for one exam subject. Work is required for every
// exercise type except commentaire, which may use any public-domain text.
type SubjectRequest struct {
	Type enums.ExerciseType
	Work *works.Work
}

// Subject is one generated exam subject.
type Subject struct {
	Text string             `json:"text"`
	Type enums.ExerciseType `json:"type"`
	Work *works.Work        `json:"work,omitempty"`
}

// EvaluationRequest asks for feedback on a student answer.
type EvaluationRequest struct {
	Type         enums.ExerciseType
	Subject      string
	StudentInput string
	Work         *works.Work
}

// Evaluation is the graded feedback for one answer. Score is on the French
// /20 scale.
type Evaluation struct {
	Feedback     string          `json:"feedback"`
	Score        decimal.Decimal `json:"score"`
	Strengths    []string        `json:"strengths"`
	Improvements []string        `json:"improvements"`
}

// WorkAnalysis is the study sheet for one program work.
type WorkAnalysis struct {
	Biography         string   `json:"biography"`
	HistoricalContext string   `json:"historical_context"`
	Summary           []string `json:"summary"`
	Characters        []string `json:"characters"`
}
